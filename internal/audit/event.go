package audit

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// EventKind enumerates the passively observed events that may produce audit entries.
type EventKind int

const (
	EventMemberJoined EventKind = iota + 1
	EventMemberLeft
	EventRolesChanged
	EventTitleChanged
	EventMessageEdited
	EventExternalBan
)

func (k EventKind) String() string {
	switch k {
	case EventMemberJoined:
		return "member_joined"
	case EventMemberLeft:
		return "member_left"
	case EventRolesChanged:
		return "roles_changed"
	case EventTitleChanged:
		return "title_changed"
	case EventMessageEdited:
		return "message_edited"
	case EventExternalBan:
		return "external_ban"
	default:
		return "unknown"
	}
}

// UserRef identifies a user as seen in an update.
type UserRef struct {
	ID    int64
	Name  string
	IsBot bool
}

// Event is a transport-independent description of something that happened in the chat.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	At        time.Time
	ChatID    int64
	User      UserRef
	Actor     UserRef
	OldRoles  []string
	NewRoles  []string
	OldTitle  string
	NewTitle  string
	MessageID int
	OldText   string
	NewText   string
}

const noContent = "[no content]"

// maxDetailRunes keeps an edit entry with both texts well under Telegram's 4096 character
// message limit.
const maxDetailRunes = 1024

// Describe turns an event into an audit entry. It returns false for events that are not
// logged: bot authors, edits that leave the text unchanged, role updates with no
// difference, and bans without a known actor. Callers drop bans issued by the bot itself
// before building the event, since the executor already logged those.
func Describe(ev Event) (Entry, bool) {
	base := Entry{
		TargetID:     ev.User.ID,
		TargetName:   ev.User.Name,
		Notification: NotificationSkipped,
		Timestamp:    ev.At,
	}

	switch ev.Kind {
	case EventMemberJoined:
		base.Action = ActionMemberJoined
		base.Category = CategoryJoinLeave
		return base, true

	case EventMemberLeft:
		base.Action = ActionMemberLeft
		base.Category = CategoryJoinLeave
		return base.WithDetail("Roles", joinOr(ev.OldRoles, "No roles")), true

	case EventRolesChanged:
		added, removed := diffRoles(ev.OldRoles, ev.NewRoles)
		if len(added) == 0 && len(removed) == 0 {
			return Entry{}, false
		}
		base.Action = ActionRolesChanged
		base.Category = CategoryMembers
		base.ActorID, base.ActorName = ev.Actor.ID, ev.Actor.Name
		if len(added) > 0 {
			base = base.WithDetail("Roles Added", strings.Join(added, ", "))
		}
		if len(removed) > 0 {
			base = base.WithDetail("Roles Removed", strings.Join(removed, ", "))
		}
		return base, true

	case EventTitleChanged:
		if ev.OldTitle == ev.NewTitle {
			return Entry{}, false
		}
		base.Action = ActionTitleChanged
		base.Category = CategoryMembers
		return base.
			WithDetail("Before", orDefault(ev.OldTitle, "None")).
			WithDetail("After", orDefault(ev.NewTitle, "None")), true

	case EventMessageEdited:
		if ev.User.IsBot || ev.OldText == ev.NewText {
			return Entry{}, false
		}
		base.Action = ActionMessageEdited
		base.Category = CategoryMessages
		return base.
			WithDetail("Before", truncate(orDefault(ev.OldText, noContent), maxDetailRunes)).
			WithDetail("After", truncate(orDefault(ev.NewText, noContent), maxDetailRunes)).
			WithDetail("Message ID", strconv.Itoa(ev.MessageID)), true

	case EventExternalBan:
		if ev.Actor.ID == 0 {
			return Entry{}, false
		}
		base.Action = ActionExternalBan
		base.Category = CategoryModActions
		base.ActorID, base.ActorName = ev.Actor.ID, ev.Actor.Name
		return base, true
	}

	return Entry{}, false
}

func diffRoles(before, after []string) (added, removed []string) {
	had := make(map[string]bool, len(before))
	for _, r := range before {
		had[r] = true
	}
	has := make(map[string]bool, len(after))
	for _, r := range after {
		has[r] = true
		if !had[r] {
			added = append(added, r)
		}
	}
	for _, r := range before {
		if !has[r] {
			removed = append(removed, r)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// truncate cuts s to at most limit runes, marking the cut with "...".
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
