package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tg-moderator/internal/audit"
	"tg-moderator/internal/config"
	"tg-moderator/internal/logger"
	"tg-moderator/internal/models"
)

// BanVariant selects how a ban is applied.
type BanVariant string

const (
	// BanStandard is time-bounded and lifted by the reconciler.
	BanStandard BanVariant = "standard"
	// BanSpam is permanent, sends no message and deletes recent history.
	BanSpam BanVariant = "spam"
	// BanBlacklist is permanent and tells the user why.
	BanBlacklist BanVariant = "blacklist"
)

// ParseBanVariant accepts the variant names used in commands and callback data.
func ParseBanVariant(s string) (BanVariant, error) {
	switch v := BanVariant(s); v {
	case BanStandard, BanSpam, BanBlacklist:
		return v, nil
	}
	return "", fmt.Errorf("unknown ban variant %q", s)
}

func (v BanVariant) action() string {
	switch v {
	case BanSpam:
		return audit.ActionSpamBan
	case BanBlacklist:
		return audit.ActionBlacklist
	default:
		return audit.ActionBan
	}
}

// Options are the configured values the executor consumes.
type Options struct {
	Policy            Policy
	SanctionDuration  time.Duration
	Timeouts          map[string]time.Duration
	SpamHistoryWindow time.Duration
	ServerName        string
	Language          string
}

// OptionsFromConfig copies the moderation section into Options.
func OptionsFromConfig(cfg config.ModerationConfig) Options {
	return Options{
		Policy: Policy{
			StaffRole:       cfg.StaffRole,
			MaxBannableRole: cfg.MaxBannableRole,
		},
		SanctionDuration:  cfg.SanctionDuration,
		Timeouts:          cfg.Timeouts,
		SpamHistoryWindow: cfg.SpamHistoryWindow,
		ServerName:        cfg.ServerName,
		Language:          cfg.Language,
	}
}

// Result describes an applied action.
type Result struct {
	Action       string
	TargetID     int64
	TargetName   string
	Reason       string
	Notification audit.NotificationOutcome
	// Duration is the ban length for standard bans and the timeout length for timeouts.
	Duration time.Duration
}

// Executor applies sanctions. Every operation holds the subject's lock from authorization
// through the audit entry.
type Executor struct {
	deps Deps
	opts Options
}

// NewExecutor creates an executor. Pass the same Deps.Locks to the reconciler so both
// serialize on the same subjects.
func NewExecutor(deps Deps, opts Options) *Executor {
	if deps.Locks == nil {
		deps.Locks = NewSubjectLocks()
	}
	return &Executor{deps: deps, opts: opts}
}

// Options returns the executor's configuration.
func (e *Executor) Options() Options {
	return e.opts
}

// ApplyBan bans targetID. Standard bans are recorded for expiry; permanent variants drop
// any temporary record they supersede.
func (e *Executor) ApplyBan(ctx context.Context, actor Actor, targetID int64, variant BanVariant, reason string) (Result, error) {
	if _, err := ParseBanVariant(string(variant)); err != nil {
		return Result{}, err
	}
	action := variant.action()

	unlock := e.deps.Locks.Lock(targetID)
	defer unlock()

	target, err := e.authorize(ctx, action, actor, targetID)
	if err != nil {
		return Result{}, err
	}

	reason = e.reasonOrDefault(reason)
	res := e.newResult(action, targetID, target, reason)

	switch variant {
	case BanStandard:
		res.Duration = e.opts.SanctionDuration
		res.Notification = e.notify(ctx, targetID, e.translate("dm_ban", FormatDuration(res.Duration), e.opts.ServerName, reason))
	case BanBlacklist:
		res.Notification = e.notify(ctx, targetID, e.translate("dm_blacklist", e.opts.ServerName, reason))
	}

	var deleteHistory time.Duration
	if variant == BanSpam {
		deleteHistory = e.opts.SpamHistoryWindow
	}
	if err := e.deps.Platform.Ban(ctx, targetID, reason, deleteHistory); err != nil {
		return res, enforcementError(action, err)
	}
	sanctionsApplied.WithLabelValues(action).Inc()

	var storeErr error
	if variant == BanStandard {
		storeErr = e.upsert(ctx, targetID)
	} else {
		storeErr = e.remove(ctx, targetID)
	}

	entry := e.entry(actor, res)
	if variant == BanStandard {
		entry = entry.WithDetail("Duration", FormatDuration(res.Duration))
	}
	e.deps.Auditor.Record(ctx, entry)

	return res, storeErr
}

// ApplyKick removes a current member from the community.
func (e *Executor) ApplyKick(ctx context.Context, actor Actor, targetID int64, reason string) (Result, error) {
	unlock := e.deps.Locks.Lock(targetID)
	defer unlock()

	target, err := e.authorize(ctx, audit.ActionKick, actor, targetID)
	if err != nil {
		return Result{}, err
	}
	if target == nil {
		return Result{}, enforcementError(audit.ActionKick, fmt.Errorf("user %d: %w", targetID, ErrNotFound))
	}

	reason = e.reasonOrDefault(reason)
	res := e.newResult(audit.ActionKick, targetID, target, reason)
	res.Notification = e.notify(ctx, targetID, e.translate("dm_kick", e.opts.ServerName, reason))

	if err := e.deps.Platform.Kick(ctx, targetID, reason); err != nil {
		return res, enforcementError(audit.ActionKick, err)
	}
	sanctionsApplied.WithLabelValues(audit.ActionKick).Inc()

	e.deps.Auditor.Record(ctx, e.entry(actor, res))
	return res, nil
}

// ApplyTimeout silences a current member for one of the configured lengths.
func (e *Executor) ApplyTimeout(ctx context.Context, actor Actor, targetID int64, choice, reason string) (Result, error) {
	d, ok := e.opts.Timeouts[choice]
	if !ok || d <= 0 {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidTimeout, choice)
	}

	unlock := e.deps.Locks.Lock(targetID)
	defer unlock()

	target, err := e.authorize(ctx, audit.ActionTimeout, actor, targetID)
	if err != nil {
		return Result{}, err
	}
	if target == nil {
		return Result{}, enforcementError(audit.ActionTimeout, fmt.Errorf("user %d: %w", targetID, ErrNotFound))
	}

	reason = e.reasonOrDefault(reason)
	res := e.newResult(audit.ActionTimeout, targetID, target, reason)
	res.Duration = d
	res.Notification = e.notify(ctx, targetID, e.translate("dm_timeout", e.opts.ServerName, choice, reason))

	if err := e.deps.Platform.Timeout(ctx, targetID, d, reason); err != nil {
		return res, enforcementError(audit.ActionTimeout, err)
	}
	sanctionsApplied.WithLabelValues(audit.ActionTimeout).Inc()

	e.deps.Auditor.Record(ctx, e.entry(actor, res).WithDetail("Length", choice))
	return res, nil
}

// ReverseBan lifts a ban and drops its record. A subject that is not banned remotely is
// treated as already reversed.
func (e *Executor) ReverseBan(ctx context.Context, actor Actor, targetID int64, reason string) (Result, error) {
	unlock := e.deps.Locks.Lock(targetID)
	defer unlock()

	return e.reverseLocked(ctx, actor, targetID, reason)
}

func (e *Executor) reverseLocked(ctx context.Context, actor Actor, targetID int64, reason string) (Result, error) {
	target, err := e.authorize(ctx, audit.ActionUnban, actor, targetID)
	if err != nil {
		return Result{}, err
	}

	reason = e.reasonOrDefault(reason)
	res := e.newResult(audit.ActionUnban, targetID, target, reason)

	if err := e.deps.Platform.Unban(ctx, targetID, reason); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return res, enforcementError(audit.ActionUnban, err)
		}
		logger.Infof("User %d was not banned, clearing record only", targetID)
	}
	sanctionsApplied.WithLabelValues(audit.ActionUnban).Inc()

	storeErr := e.remove(ctx, targetID)
	e.deps.Auditor.Record(ctx, e.entry(actor, res))
	return res, storeErr
}

// authorize runs the hierarchy check and returns the target when it is a current member.
// System actors skip the check and any lookups.
func (e *Executor) authorize(ctx context.Context, action string, actor Actor, targetID int64) (*Member, error) {
	if actor.System {
		return nil, nil
	}

	target, err := e.deps.Platform.FetchMember(ctx, targetID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, enforcementError("member lookup", err)
		}
		target = nil
	}

	roles, err := e.deps.Platform.OrderedRoles(ctx)
	if err != nil {
		return nil, enforcementError("role lookup", err)
	}
	order, err := NewRoleOrder(roles)
	if err != nil {
		return nil, fmt.Errorf("invalid role order: %w", err)
	}

	var actorRoles []string
	actorMember, err := e.deps.Platform.FetchMember(ctx, actor.ID)
	switch {
	case err == nil:
		actorRoles = actorMember.Roles
	case !errors.Is(err, ErrNotFound):
		return nil, enforcementError("member lookup", err)
	}

	t := &Target{}
	if target != nil {
		t.Resolved = true
		t.Roles = target.Roles
	}

	decision := Authorize(order, actorRoles, t, e.opts.Policy)
	if !decision.Allowed {
		authorizationDenials.WithLabelValues(string(decision.Reason)).Inc()
		logger.Infof("Denied %s by %d on %d: %s", action, actor.ID, targetID, decision.Reason)
		return nil, &AuthorizationError{Reason: decision.Reason}
	}
	return target, nil
}

// notify sends a direct message. Failure never stops the sanction.
func (e *Executor) notify(ctx context.Context, targetID int64, text string) audit.NotificationOutcome {
	if err := e.deps.Platform.DirectMessage(ctx, targetID, text); err != nil {
		logger.Warningf("Failed to DM user %d: %v", targetID, err)
		notificationOutcomes.WithLabelValues(string(audit.NotificationFailed)).Inc()
		return audit.NotificationFailed
	}
	notificationOutcomes.WithLabelValues(string(audit.NotificationSent)).Inc()
	return audit.NotificationSent
}

func (e *Executor) upsert(ctx context.Context, subject int64) error {
	if err := e.deps.Store.Upsert(ctx, subject, e.deps.now()); err != nil {
		storeFailures.WithLabelValues("upsert").Inc()
		logger.Errorf("Failed to record ban of %d: %v", subject, err)
		return &StoreError{Op: "upsert", Err: err}
	}
	return nil
}

func (e *Executor) remove(ctx context.Context, subject int64) error {
	if err := e.deps.Store.Remove(ctx, subject); err != nil {
		storeFailures.WithLabelValues("remove").Inc()
		logger.Errorf("Failed to remove sanction record of %d: %v", subject, err)
		return &StoreError{Op: "remove", Err: err}
	}
	return nil
}

func (e *Executor) newResult(action string, targetID int64, target *Member, reason string) Result {
	res := Result{
		Action:       action,
		TargetID:     targetID,
		Reason:       reason,
		Notification: audit.NotificationSkipped,
	}
	if target != nil {
		res.TargetName = target.Name
	}
	return res
}

func (e *Executor) entry(actor Actor, res Result) audit.Entry {
	entry := audit.Entry{
		Action:       res.Action,
		Category:     audit.CategoryModActions,
		TargetID:     res.TargetID,
		TargetName:   res.TargetName,
		Reason:       res.Reason,
		Notification: res.Notification,
		Timestamp:    e.deps.now(),
	}
	if !actor.System {
		entry.ActorID = actor.ID
		entry.ActorName = actor.Name
	}
	return entry
}

func (e *Executor) reasonOrDefault(reason string) string {
	if reason == "" {
		return models.GetTranslation(e.opts.Language, "default_reason")
	}
	return reason
}

func (e *Executor) translate(key string, args ...interface{}) string {
	return fmt.Sprintf(models.GetTranslation(e.opts.Language, key), args...)
}

// FormatDuration renders whole weeks and days in words and anything else as a Go duration.
func FormatDuration(d time.Duration) string {
	const day = 24 * time.Hour
	plural := func(n int64, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	switch {
	case d >= day && d%(7*day) == 0:
		return plural(int64(d/(7*day)), "week")
	case d >= day && d%day == 0:
		return plural(int64(d/day), "day")
	default:
		return d.String()
	}
}
