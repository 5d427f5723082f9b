package moderation

import (
	"context"
	"errors"
	"time"

	"tg-moderator/internal/crash"
	"tg-moderator/internal/logger"
)

// Summary reports one drain.
type Summary struct {
	Expired  int
	Reversed int
	Skipped  int
	Failed   int
	// Locked is true when another process held the drain lock and nothing was done.
	Locked bool
}

// ReconcilerOptions configures the expiry loop.
type ReconcilerOptions struct {
	// Duration is how long a standard ban lasts.
	Duration time.Duration
	// Location decides where midnight is.
	Location *time.Location
	// Reason is attached to automatic unbans.
	Reason string
	// Locker, when set, keeps two processes from draining at once.
	Locker Locker
}

// Reconciler lifts standard bans once they expire. It sleeps until the next local
// midnight, drains every expired record and goes back to sleep.
type Reconciler struct {
	exec *Executor
	opts ReconcilerOptions

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func NewReconciler(exec *Executor, opts ReconcilerOptions) *Reconciler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Reason == "" {
		opts.Reason = "ban has expired"
	}
	return &Reconciler{
		exec:  exec,
		opts:  opts,
		now:   exec.deps.now,
		after: time.After,
	}
}

// NextMidnight returns the first local midnight strictly after now.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// Run drains once at startup, catching up on a midnight missed while the process was
// down, then drains at every local midnight until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	logger.Infof("Expiry reconciler started (duration %s, zone %s)", FormatDuration(r.opts.Duration), r.opts.Location)
	r.safeDrain(ctx)

	for {
		wake := NextMidnight(r.now(), r.opts.Location)
		logger.Infof("Waiting %s before checking bans", wake.Sub(r.now()).Round(time.Second))
		if !r.sleepUntil(ctx, wake) {
			logger.Info("Expiry reconciler stopped")
			return
		}
		r.safeDrain(ctx)
	}
}

// sleepUntil waits for the wall clock to reach wake. Timers can fire early when the
// clock is adjusted, so it re-checks and sleeps again. It returns false when ctx ends.
func (r *Reconciler) sleepUntil(ctx context.Context, wake time.Time) bool {
	for {
		remaining := wake.Sub(r.now())
		if remaining <= 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-r.after(remaining):
		}
	}
}

func (r *Reconciler) safeDrain(ctx context.Context) {
	err := crash.Protect("expiry reconciler", func() error {
		_, err := r.Drain(ctx)
		return err
	})
	if err != nil {
		logger.Errorf("Expiry drain failed, retrying next cycle: %v", err)
	}
}

// Drain lifts every expired ban once. Records whose remote unban fails for any reason
// other than "not banned" stay for the next drain.
func (r *Reconciler) Drain(ctx context.Context) (Summary, error) {
	var summary Summary

	if r.opts.Locker != nil {
		release, acquired, err := r.opts.Locker.TryLock(ctx)
		if err != nil {
			reconcilerFailures.WithLabelValues("lock").Inc()
			return summary, err
		}
		if !acquired {
			logger.Info("Another instance is draining expired bans, skipping")
			summary.Locked = true
			return summary, nil
		}
		defer release()
	}

	deps := r.exec.deps
	now := r.now()
	subjects, err := deps.Store.ListExpired(ctx, now, r.opts.Duration)
	if err != nil {
		reconcilerFailures.WithLabelValues("list").Inc()
		return summary, &StoreError{Op: "list expired", Err: err}
	}
	summary.Expired = len(subjects)
	logger.Infof("Found %d expired bans", len(subjects))

	for _, subject := range subjects {
		if ctx.Err() != nil {
			break
		}
		reversed, err := r.reverseExpired(ctx, subject)
		switch {
		case err != nil:
			summary.Failed++
			var storeErr *StoreError
			if errors.As(err, &storeErr) {
				reconcilerFailures.WithLabelValues("store").Inc()
			} else {
				reconcilerFailures.WithLabelValues("unban").Inc()
			}
			logger.Warningf("Failed to lift expired ban of %d, retrying next cycle: %v", subject, err)
		case reversed:
			summary.Reversed++
			reconcilerReversals.Inc()
		default:
			summary.Skipped++
		}
	}

	reconcilerDrains.Inc()
	logger.Infof("Expiry drain done: %d reversed, %d skipped, %d failed", summary.Reversed, summary.Skipped, summary.Failed)
	return summary, nil
}

// reverseExpired re-reads the record under the subject lock so a ban renewed since the
// scan is left alone.
func (r *Reconciler) reverseExpired(ctx context.Context, subject int64) (bool, error) {
	unlock := r.exec.deps.Locks.Lock(subject)
	defer unlock()

	record, err := r.exec.deps.Store.Get(ctx, subject)
	if err != nil {
		return false, &StoreError{Op: "get", Err: err}
	}
	if record == nil || !record.Expired(r.now(), r.opts.Duration) {
		logger.Debugf("Ban of %d was lifted or renewed since the scan", subject)
		return false, nil
	}

	logger.Infof("Unbanning %d", subject)
	if _, err := r.exec.reverseLocked(ctx, SystemActor, subject, r.opts.Reason); err != nil {
		return false, err
	}
	return true, nil
}
