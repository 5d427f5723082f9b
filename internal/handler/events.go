package handler

import (
	"context"
	"time"

	"tg-moderator/internal/audit"
	"tg-moderator/internal/bot"
	"tg-moderator/internal/logger"

	"github.com/mymmrac/telego"
)

// onChatMember turns membership updates in the community chat into audit events.
func (h *Handler) onChatMember(ctx context.Context, update telego.ChatMemberUpdated) error {
	if update.Chat.ID != h.cfg.ChatID {
		return nil
	}
	ev, ok := h.memberEvent(update)
	if !ok {
		return nil
	}
	h.describeAndRecord(ctx, ev)
	return nil
}

func (h *Handler) memberEvent(update telego.ChatMemberUpdated) (audit.Event, bool) {
	user := update.NewChatMember.MemberUser()
	ev := audit.Event{
		At:     time.Unix(update.Date, 0),
		ChatID: update.Chat.ID,
		User:   userRef(user),
		Actor:  userRef(update.From),
	}

	oldStatus := update.OldChatMember.MemberStatus()
	newStatus := update.NewChatMember.MemberStatus()
	oldRoles, wasMember := bot.MemberRoles(update.OldChatMember)
	newRoles, isMember := bot.MemberRoles(update.NewChatMember)

	switch {
	case newStatus == telego.MemberStatusBanned && oldStatus != telego.MemberStatusBanned:
		// bans issued through the bot were already logged by the executor
		if update.From.ID == h.self.ID {
			return audit.Event{}, false
		}
		ev.Kind = audit.EventExternalBan
	case !wasMember && isMember:
		ev.Kind = audit.EventMemberJoined
	case wasMember && !isMember:
		ev.Kind = audit.EventMemberLeft
		ev.OldRoles = oldRoles
	case wasMember && isMember && oldStatus != newStatus:
		ev.Kind = audit.EventRolesChanged
		ev.OldRoles, ev.NewRoles = oldRoles, newRoles
	case wasMember && isMember:
		ev.Kind = audit.EventTitleChanged
		ev.OldTitle = customTitle(update.OldChatMember)
		ev.NewTitle = customTitle(update.NewChatMember)
	default:
		return audit.Event{}, false
	}
	return ev, true
}

func customTitle(member telego.ChatMember) string {
	switch m := member.(type) {
	case *telego.ChatMemberOwner:
		return m.CustomTitle
	case *telego.ChatMemberAdministrator:
		return m.CustomTitle
	}
	return ""
}

// cacheMessage remembers the text of community messages so a later edit can show what
// changed. Telegram only sends the new text with an edit.
func (h *Handler) cacheMessage(message telego.Message) {
	if message.Chat.ID != h.cfg.ChatID || message.From.IsBot {
		return
	}
	h.cache.Add(messageKey{ChatID: message.Chat.ID, MessageID: message.MessageID}, messageText(message))
}

func (h *Handler) onEditedMessage(ctx context.Context, message telego.Message) error {
	if message.Chat.ID != h.cfg.ChatID || message.From == nil {
		return nil
	}

	key := messageKey{ChatID: message.Chat.ID, MessageID: message.MessageID}
	newText := messageText(message)
	oldText, known := h.cache.Get(key)
	h.cache.Add(key, newText)
	if !known {
		logger.Debugf("Edit of uncached message %d, nothing to compare", message.MessageID)
		return nil
	}

	at := time.Unix(message.EditDate, 0)
	h.describeAndRecord(ctx, audit.Event{
		Kind:      audit.EventMessageEdited,
		At:        at,
		ChatID:    message.Chat.ID,
		User:      userRef(*message.From),
		MessageID: message.MessageID,
		OldText:   oldText,
		NewText:   newText,
	})
	return nil
}

func (h *Handler) describeAndRecord(ctx context.Context, ev audit.Event) {
	entry, ok := audit.Describe(ev)
	if !ok {
		logger.Debugf("Event %s for %d produced no audit entry", ev.Kind, ev.User.ID)
		return
	}
	h.auditor.Record(ctx, entry)
}

func userRef(user telego.User) audit.UserRef {
	return audit.UserRef{ID: user.ID, Name: bot.DisplayName(user), IsBot: user.IsBot}
}

func messageText(message telego.Message) string {
	if message.Text != "" {
		return message.Text
	}
	return message.Caption
}
