package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tg-moderator/internal/logger"
	"tg-moderator/internal/moderation"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
)

// botAPI is the subset of *telego.Bot the platform adapter calls.
type botAPI interface {
	BanChatMember(ctx context.Context, params *telego.BanChatMemberParams) error
	UnbanChatMember(ctx context.Context, params *telego.UnbanChatMemberParams) error
	RestrictChatMember(ctx context.Context, params *telego.RestrictChatMemberParams) error
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error)
}

// TelegramPlatform enforces sanctions in the primary chat and mirrors bans into the extra
// chats.
type TelegramPlatform struct {
	api          botAPI
	chatID       int64
	extraChatIDs []int64
	roles        []string
	now          func() time.Time
}

// NewTelegramPlatform creates the adapter. roles is the configured role list, lowest first.
func NewTelegramPlatform(api botAPI, chatID int64, extraChatIDs []int64, roles []string) *TelegramPlatform {
	return &TelegramPlatform{
		api:          api,
		chatID:       chatID,
		extraChatIDs: extraChatIDs,
		roles:        roles,
		now:          time.Now,
	}
}

// Ban bans target. Telegram can only revoke all of a user's messages, so any positive
// history window turns revocation on.
func (p *TelegramPlatform) Ban(ctx context.Context, target int64, reason string, deleteHistory time.Duration) error {
	err := p.api.BanChatMember(ctx, &telego.BanChatMemberParams{
		ChatID:         telego.ChatID{ID: p.chatID},
		UserID:         target,
		RevokeMessages: deleteHistory > 0,
	})
	if err != nil {
		return classifyError(err)
	}
	logger.Infof("Banned %d in %d (%s)", target, p.chatID, reason)

	for _, chatID := range p.extraChatIDs {
		err := p.api.BanChatMember(ctx, &telego.BanChatMemberParams{
			ChatID:         telego.ChatID{ID: chatID},
			UserID:         target,
			RevokeMessages: deleteHistory > 0,
		})
		if err != nil {
			logger.Warningf("Failed to mirror ban of %d into %d: %v", target, chatID, err)
		}
	}
	return nil
}

// Unban lifts a ban. A user who is not banned in the community chat yields an error
// wrapping ErrNotFound; the mirror chats are unbanned either way.
func (p *TelegramPlatform) Unban(ctx context.Context, target int64, reason string) error {
	defer p.mirrorUnban(ctx, target)

	member, err := p.api.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: p.chatID},
		UserID: target,
	})
	if err != nil {
		logger.Debugf("Member lookup of %d before unban failed, unbanning anyway: %v", target, err)
	} else if member.MemberStatus() != telego.MemberStatusBanned {
		return fmt.Errorf("user %d is not banned: %w", target, moderation.ErrNotFound)
	}

	if err := p.unbanIn(ctx, p.chatID, target); err != nil {
		return classifyError(err)
	}
	logger.Infof("Unbanned %d in %d (%s)", target, p.chatID, reason)
	return nil
}

func (p *TelegramPlatform) mirrorUnban(ctx context.Context, target int64) {
	for _, chatID := range p.extraChatIDs {
		if err := p.unbanIn(ctx, chatID, target); err != nil {
			logger.Warningf("Failed to mirror unban of %d into %d: %v", target, chatID, err)
		}
	}
}

func (p *TelegramPlatform) unbanIn(ctx context.Context, chatID, target int64) error {
	return p.api.UnbanChatMember(ctx, &telego.UnbanChatMemberParams{
		ChatID:       telego.ChatID{ID: chatID},
		UserID:       target,
		OnlyIfBanned: true,
	})
}

// Kick removes target without leaving a ban behind.
func (p *TelegramPlatform) Kick(ctx context.Context, target int64, reason string) error {
	err := p.api.BanChatMember(ctx, &telego.BanChatMemberParams{
		ChatID: telego.ChatID{ID: p.chatID},
		UserID: target,
	})
	if err != nil {
		return classifyError(err)
	}
	if err := p.unbanIn(ctx, p.chatID, target); err != nil {
		return fmt.Errorf("kicked %d but could not lift the ban: %w", target, classifyError(err))
	}
	logger.Infof("Kicked %d from %d (%s)", target, p.chatID, reason)
	return nil
}

// Timeout takes every send permission away from target until now + d.
func (p *TelegramPlatform) Timeout(ctx context.Context, target int64, d time.Duration, reason string) error {
	err := p.api.RestrictChatMember(ctx, &telego.RestrictChatMemberParams{
		ChatID:      telego.ChatID{ID: p.chatID},
		UserID:      target,
		Permissions: telego.ChatPermissions{},
		UntilDate:   p.now().Add(d).Unix(),
	})
	if err != nil {
		return classifyError(err)
	}
	logger.Infof("Timed out %d in %d for %s (%s)", target, p.chatID, d, reason)
	return nil
}

// DirectMessage writes to the user's private chat. It fails with ErrForbidden when the
// user never started the bot or blocked it.
func (p *TelegramPlatform) DirectMessage(ctx context.Context, target int64, text string) error {
	_, err := p.api.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: target},
		Text:   text,
	})
	if err != nil {
		return classifyError(err)
	}
	return nil
}

// FetchMember looks target up in the primary chat. Users who left, were banned, or are
// restricted outside the chat are not members.
func (p *TelegramPlatform) FetchMember(ctx context.Context, id int64) (*moderation.Member, error) {
	member, err := p.api.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: p.chatID},
		UserID: id,
	})
	if err != nil {
		return nil, classifyError(err)
	}

	roles, ok := MemberRoles(member)
	if !ok {
		return nil, fmt.Errorf("user %d is not in the chat: %w", id, moderation.ErrNotFound)
	}
	user := member.MemberUser()
	return &moderation.Member{
		ID:    id,
		Name:  DisplayName(user),
		IsBot: user.IsBot,
		Roles: roles,
	}, nil
}

// OrderedRoles returns the configured role list; Telegram has no role order of its own.
func (p *TelegramPlatform) OrderedRoles(context.Context) ([]string, error) {
	return p.roles, nil
}

// MemberRoles derives role identifiers from a chat member: the member status, plus the
// custom title of owners and administrators. ok is false for users not in the chat.
func MemberRoles(member telego.ChatMember) (roles []string, ok bool) {
	switch m := member.(type) {
	case *telego.ChatMemberOwner:
		return withTitle(telego.MemberStatusCreator, m.CustomTitle), true
	case *telego.ChatMemberAdministrator:
		return withTitle(telego.MemberStatusAdministrator, m.CustomTitle), true
	case *telego.ChatMemberMember:
		return []string{telego.MemberStatusMember}, true
	case *telego.ChatMemberRestricted:
		if !m.IsMember {
			return nil, false
		}
		return []string{telego.MemberStatusRestricted}, true
	default:
		return nil, false
	}
}

func withTitle(status, title string) []string {
	if title == "" {
		return []string{status}
	}
	return []string{status, title}
}

// DisplayName returns the user's full name, falling back to the username.
func DisplayName(user telego.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" && user.Username != "" {
		return "@" + user.Username
	}
	return name
}

// classifyError maps Bot API failures onto the moderation error kinds.
func classifyError(err error) error {
	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.ErrorCode == 403:
			return fmt.Errorf("%w: %s", moderation.ErrForbidden, apiErr.Description)
		case apiErr.ErrorCode == 400 && isNotFound(apiErr.Description):
			return fmt.Errorf("%w: %s", moderation.ErrNotFound, apiErr.Description)
		case apiErr.ErrorCode == 400 && isForbidden(apiErr.Description):
			return fmt.Errorf("%w: %s", moderation.ErrForbidden, apiErr.Description)
		}
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "Forbidden"):
		return fmt.Errorf("%w: %v", moderation.ErrForbidden, err)
	case isNotFound(msg):
		return fmt.Errorf("%w: %v", moderation.ErrNotFound, err)
	}
	return err
}

func isNotFound(description string) bool {
	return strings.Contains(description, "not found") || strings.Contains(description, "PARTICIPANT")
}

func isForbidden(description string) bool {
	return strings.Contains(description, "not enough rights") || strings.Contains(description, "can't remove chat owner") ||
		strings.Contains(description, "user is an administrator")
}
