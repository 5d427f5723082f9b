package audit

import (
	"context"
	"fmt"
	"html"
	"strings"

	"tg-moderator/internal/config"
	"tg-moderator/internal/logger"
	"tg-moderator/internal/models"

	"github.com/mymmrac/telego"
)

// Sender is the part of the Telegram bot the notifier needs.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Routes maps each category to its log chat. Missing or zero entries disable the category.
type Routes map[Category]int64

// RoutesFromConfig builds routes from the audit section of the configuration.
func RoutesFromConfig(cfg config.AuditConfig) Routes {
	return Routes{
		CategoryModActions: cfg.ModActions,
		CategoryJoinLeave:  cfg.JoinLeave,
		CategoryMessages:   cfg.Messages,
		CategoryMembers:    cfg.Members,
	}
}

// Notifier posts audit entries to Telegram log chats.
type Notifier struct {
	sender   Sender
	routes   Routes
	language string
}

func NewNotifier(sender Sender, routes Routes, language string) *Notifier {
	return &Notifier{sender: sender, routes: routes, language: language}
}

// Record sends the entry to its category's chat. Failures are logged and otherwise ignored:
// the audit trail never blocks a sanction.
func (n *Notifier) Record(ctx context.Context, e Entry) {
	if e.Category == "" {
		e.Category = CategoryModActions
	}
	chatID := n.routes[e.Category]
	if chatID == 0 {
		logger.Debugf("Audit category %s has no destination, dropping %q entry", e.Category, e.Action)
		return
	}

	params := &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		Text:      Format(e),
		ParseMode: "HTML",
	}
	if e.IsBan() {
		params.ReplyMarkup = &telego.InlineKeyboardMarkup{
			InlineKeyboard: [][]telego.InlineKeyboardButton{{
				{
					Text:         models.GetTranslation(n.language, "button_unban"),
					CallbackData: UnbanCallbackData(e.TargetID),
				},
			}},
		}
	}

	if _, err := n.sender.SendMessage(ctx, params); err != nil {
		logger.Warningf("Failed to send audit entry %q for %d to chat %d: %v", e.Action, e.TargetID, chatID, err)
	}
}

// UnbanCallbackData is the callback payload of the unban button on ban entries.
func UnbanCallbackData(subject int64) string {
	return fmt.Sprintf("unban:%d", subject)
}

// Format renders an entry as Telegram HTML.
func Format(e Entry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>Action:</b> <code>%s</code>\n", html.EscapeString(e.Action))
	if e.ActorID != 0 {
		fmt.Fprintf(&b, "<b>By:</b> %s\n", UserLink(e.ActorID, e.ActorName))
	} else if e.Category == CategoryModActions {
		b.WriteString("<b>By:</b> system\n")
	}
	if e.TargetID != 0 {
		fmt.Fprintf(&b, "<b>User:</b> %s (<code>%d</code>)\n", UserLink(e.TargetID, e.TargetName), e.TargetID)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, "<b>Reason:</b>\n<blockquote>%s</blockquote>\n", html.EscapeString(e.Reason))
	}
	for _, d := range e.Details {
		fmt.Fprintf(&b, "<b>%s:</b> %s\n", html.EscapeString(d.Label), html.EscapeString(d.Value))
	}
	if e.Category == CategoryModActions && e.Notification != "" && e.Notification != NotificationSkipped {
		fmt.Fprintf(&b, "<b>Successfully DM'd:</b> %t\n", e.Notification == NotificationSent)
	}
	if !e.Timestamp.IsZero() {
		fmt.Fprintf(&b, "<i>%s</i>", e.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}

	return strings.TrimRight(b.String(), "\n")
}

// UserLink renders a mention that works without a username.
func UserLink(id int64, name string) string {
	if name == "" {
		name = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, id, html.EscapeString(name))
}
