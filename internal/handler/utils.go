package handler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"tg-moderator/internal/bot"
	"tg-moderator/internal/logger"
	"tg-moderator/internal/models"
	"tg-moderator/internal/moderation"

	"github.com/mymmrac/telego"
)

// parseCommand splits "/cmd@bot a b" into "cmd" and its arguments. ok is false for text
// that is not a command or is addressed to another bot.
func parseCommand(text, botUsername string) (cmd string, args []string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text)
	cmd = strings.TrimPrefix(fields[0], "/")
	if name, target, found := strings.Cut(cmd, "@"); found {
		if botUsername != "" && !strings.EqualFold(target, botUsername) {
			return "", nil, false
		}
		cmd = name
	}
	return strings.ToLower(cmd), fields[1:], cmd != ""
}

// parseTarget takes the target from the replied-to message, or else from a numeric first
// argument. It returns the remaining arguments.
func parseTarget(message telego.Message, args []string) (int64, []string, bool) {
	if reply := message.ReplyToMessage; reply != nil && reply.From != nil {
		return reply.From.ID, args, true
	}
	if len(args) == 0 {
		return 0, nil, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "@"), 10, 64)
	if err != nil || id <= 0 {
		return 0, nil, false
	}
	return id, args[1:], true
}

func actorFrom(user *telego.User) moderation.Actor {
	return moderation.Actor{ID: user.ID, Name: bot.DisplayName(*user)}
}

func targetLabel(id int64, name string) string {
	if name == "" {
		return strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s (%d)", name, id)
}

func (h *Handler) t(key string, args ...interface{}) string {
	text := models.GetTranslation(h.opts.Language, key)
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

func (h *Handler) timeoutChoices() string {
	choices := make([]string, 0, len(h.opts.Timeouts))
	for name := range h.opts.Timeouts {
		choices = append(choices, name)
	}
	slices.SortFunc(choices, func(a, b string) int {
		return cmp.Compare(h.opts.Timeouts[a], h.opts.Timeouts[b])
	})
	return strings.Join(choices, "|")
}

// replyForError turns an executor error into the text shown to the moderator.
func (h *Handler) replyForError(err error, command, target string) string {
	var authErr *moderation.AuthorizationError
	var enfErr *moderation.EnforcementError
	var storeErr *moderation.StoreError

	switch {
	case errors.As(err, &authErr):
		switch authErr.Reason {
		case moderation.DenialOutOfJurisdiction:
			return h.t("reply_out_of_jurisdiction", command)
		case moderation.DenialTargetUnresolvable:
			return h.t("reply_target_unresolvable", command)
		default:
			return h.t("reply_not_staff")
		}
	case errors.Is(err, moderation.ErrInvalidTimeout):
		return h.t("reply_invalid_timeout", invalidChoice(err), h.timeoutChoices())
	case errors.As(err, &enfErr):
		switch enfErr.Kind {
		case moderation.FailureForbidden:
			return h.t("reply_forbidden", command, target)
		case moderation.FailureNotFound:
			return h.t("reply_not_found", target, h.opts.ServerName)
		default:
			return h.t("reply_enforcement_failed", command, target)
		}
	case errors.As(err, &storeErr):
		return h.t("reply_store_failed", command)
	default:
		return h.t("reply_enforcement_failed", command, target)
	}
}

// invalidChoice recovers the quoted choice from an ErrInvalidTimeout message.
func invalidChoice(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, `"`); i >= 0 {
		if s, uerr := strconv.Unquote(msg[i:]); uerr == nil {
			return s
		}
	}
	return ""
}

func (h *Handler) reply(ctx context.Context, message telego.Message, text string) {
	_, err := h.api.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:          telego.ChatID{ID: message.Chat.ID},
		Text:            text,
		ReplyParameters: &telego.ReplyParameters{MessageID: message.MessageID, AllowSendingWithoutReply: true},
	})
	if err != nil {
		logger.Warningf("Failed to reply in chat %d: %v", message.Chat.ID, err)
	}
}

func (h *Handler) answer(ctx context.Context, query telego.CallbackQuery, text string, alert bool) {
	err := h.api.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		logger.Warningf("Failed to answer callback query: %v", err)
	}
}
