package bot

import (
	"context"
	"time"

	"tg-moderator/internal/logger"
	"tg-moderator/internal/moderation"
)

// DryRunPlatform logs mutations instead of performing them. Lookups pass through so
// authorization still runs against real data.
type DryRunPlatform struct {
	moderation.Platform
}

func NewDryRunPlatform(inner moderation.Platform) *DryRunPlatform {
	return &DryRunPlatform{Platform: inner}
}

func (p *DryRunPlatform) Ban(_ context.Context, target int64, reason string, deleteHistory time.Duration) error {
	logger.Infof("[dry run] ban %d (history %s): %s", target, deleteHistory, reason)
	return nil
}

func (p *DryRunPlatform) Unban(_ context.Context, target int64, reason string) error {
	logger.Infof("[dry run] unban %d: %s", target, reason)
	return nil
}

func (p *DryRunPlatform) Kick(_ context.Context, target int64, reason string) error {
	logger.Infof("[dry run] kick %d: %s", target, reason)
	return nil
}

func (p *DryRunPlatform) Timeout(_ context.Context, target int64, d time.Duration, reason string) error {
	logger.Infof("[dry run] timeout %d for %s: %s", target, d, reason)
	return nil
}

func (p *DryRunPlatform) DirectMessage(_ context.Context, target int64, text string) error {
	logger.Infof("[dry run] message to %d: %q", target, text)
	return nil
}
