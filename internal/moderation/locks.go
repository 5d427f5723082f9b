package moderation

import "sync"

const lockStripes = 64

// SubjectLocks serializes work on the same subject across the executor and the reconciler.
// Distinct subjects may share a stripe; that only costs parallelism.
type SubjectLocks struct {
	stripes [lockStripes]sync.Mutex
}

func NewSubjectLocks() *SubjectLocks {
	return &SubjectLocks{}
}

// Lock blocks until the subject's stripe is held and returns the matching unlock.
func (l *SubjectLocks) Lock(subject int64) func() {
	m := &l.stripes[uint64(subject)%lockStripes]
	m.Lock()
	return m.Unlock
}
