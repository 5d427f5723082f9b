package moderation

import (
	"context"
	"time"

	"tg-moderator/internal/audit"
	"tg-moderator/internal/models"
)

// Member is a current member of the community.
type Member struct {
	ID    int64
	Name  string
	IsBot bool
	// Roles holds role identifiers as they appear in the ordered role list.
	Roles []string
}

// Platform is the remote chat platform. Failures wrap ErrForbidden or ErrNotFound where
// the platform reports those conditions.
type Platform interface {
	Ban(ctx context.Context, target int64, reason string, deleteHistory time.Duration) error
	Unban(ctx context.Context, target int64, reason string) error
	Kick(ctx context.Context, target int64, reason string) error
	Timeout(ctx context.Context, target int64, d time.Duration, reason string) error
	DirectMessage(ctx context.Context, target int64, text string) error
	// FetchMember returns an error wrapping ErrNotFound when id is not a current member.
	FetchMember(ctx context.Context, id int64) (*Member, error)
	// OrderedRoles returns the community's roles, lowest authority first.
	OrderedRoles(ctx context.Context) ([]string, error)
}

// Store persists active temporary bans.
type Store interface {
	Upsert(ctx context.Context, subject int64, imposedAt time.Time) error
	Remove(ctx context.Context, subject int64) error
	ListExpired(ctx context.Context, now time.Time, duration time.Duration) ([]int64, error)
	Get(ctx context.Context, subject int64) (*models.SanctionRecord, error)
}

// Auditor receives one entry per completed action.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

// Locker guards a reconciler drain across processes.
type Locker interface {
	TryLock(ctx context.Context) (release func(), acquired bool, err error)
}

// Actor is whoever asked for the action.
type Actor struct {
	ID   int64
	Name string
	// System actors skip authorization; the reconciler acts as one.
	System bool
}

// SystemActor is the bot acting on its own schedule.
var SystemActor = Actor{Name: "system", System: true}

// Deps is everything the executor and the reconciler share.
type Deps struct {
	Store    Store
	Platform Platform
	Auditor  Auditor
	Locks    *SubjectLocks
	Now      func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
