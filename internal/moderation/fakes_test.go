package moderation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tg-moderator/internal/audit"
	"tg-moderator/internal/models"
)

type platformCall struct {
	Op            string
	Target        int64
	Reason        string
	DeleteHistory time.Duration
	Duration      time.Duration
}

type fakePlatform struct {
	mu      sync.Mutex
	roles   []string
	members map[int64]*Member
	banned  map[int64]bool
	calls   []platformCall
	dms     map[int64][]string

	dmErr      error
	banErr     error
	unbanErr   error
	kickErr    error
	timeoutErr error
	fetchErr   error
}

func newFakePlatform(roles []string) *fakePlatform {
	return &fakePlatform{
		roles:   roles,
		members: make(map[int64]*Member),
		banned:  make(map[int64]bool),
		dms:     make(map[int64][]string),
	}
}

func (p *fakePlatform) addMember(id int64, roles ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.members[id] = &Member{ID: id, Name: fmt.Sprintf("user%d", id), Roles: roles}
}

func (p *fakePlatform) record(c platformCall) {
	p.calls = append(p.calls, c)
}

func (p *fakePlatform) Ban(_ context.Context, target int64, reason string, deleteHistory time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(platformCall{Op: "ban", Target: target, Reason: reason, DeleteHistory: deleteHistory})
	if p.banErr != nil {
		return p.banErr
	}
	p.banned[target] = true
	delete(p.members, target)
	return nil
}

func (p *fakePlatform) Unban(_ context.Context, target int64, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(platformCall{Op: "unban", Target: target, Reason: reason})
	if p.unbanErr != nil {
		return p.unbanErr
	}
	if !p.banned[target] {
		return fmt.Errorf("user %d is not banned: %w", target, ErrNotFound)
	}
	delete(p.banned, target)
	return nil
}

func (p *fakePlatform) Kick(_ context.Context, target int64, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(platformCall{Op: "kick", Target: target, Reason: reason})
	if p.kickErr != nil {
		return p.kickErr
	}
	delete(p.members, target)
	return nil
}

func (p *fakePlatform) Timeout(_ context.Context, target int64, d time.Duration, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(platformCall{Op: "timeout", Target: target, Reason: reason, Duration: d})
	return p.timeoutErr
}

func (p *fakePlatform) DirectMessage(_ context.Context, target int64, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dmErr != nil {
		return p.dmErr
	}
	p.dms[target] = append(p.dms[target], text)
	return nil
}

func (p *fakePlatform) FetchMember(_ context.Context, id int64) (*Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	m, ok := p.members[id]
	if !ok {
		return nil, fmt.Errorf("member %d: %w", id, ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (p *fakePlatform) OrderedRoles(context.Context) ([]string, error) {
	return p.roles, nil
}

// remoteCalls returns the enforcement calls, excluding lookups and DMs.
func (p *fakePlatform) remoteCalls(op string) []platformCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []platformCall
	for _, c := range p.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

type memoryStore struct {
	mu        sync.Mutex
	records   map[int64]time.Time
	upsertErr error
	removeErr error
	listErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[int64]time.Time)}
}

func (s *memoryStore) Upsert(_ context.Context, subject int64, imposedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.records[subject] = imposedAt
	return nil
}

func (s *memoryStore) Remove(_ context.Context, subject int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	delete(s.records, subject)
	return nil
}

func (s *memoryStore) ListExpired(_ context.Context, now time.Time, duration time.Duration) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []int64
	for subject, imposed := range s.records {
		if !imposed.Add(duration).After(now) {
			out = append(out, subject)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *memoryStore) Get(_ context.Context, subject int64) (*models.SanctionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	imposed, ok := s.records[subject]
	if !ok {
		return nil, nil
	}
	return &models.SanctionRecord{SubjectID: subject, ImposedAt: imposed, Kind: models.SanctionTemporaryBan}, nil
}

func (s *memoryStore) get(subject int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.records[subject]
	return t, ok
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAuditor) Record(_ context.Context, e audit.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAuditor) all() []audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]audit.Entry(nil), a.entries...)
}

type fakeLocker struct {
	held     bool
	err      error
	released int
}

func (l *fakeLocker) TryLock(context.Context) (func(), bool, error) {
	if l.err != nil || l.held {
		return nil, false, l.err
	}
	l.held = true
	return func() {
		l.held = false
		l.released++
	}, true, nil
}
