package audit

import "time"

// Category selects the log chat an entry is routed to.
type Category string

const (
	CategoryModActions Category = "mod_actions"
	CategoryJoinLeave  Category = "join_leave"
	CategoryMessages   Category = "messages"
	CategoryMembers    Category = "members"
)

// NotificationOutcome records whether the sanctioned user was told by direct message.
type NotificationOutcome string

const (
	NotificationSent    NotificationOutcome = "sent"
	NotificationFailed  NotificationOutcome = "failed"
	NotificationSkipped NotificationOutcome = "skipped"
)

// Actions written by the executor, the reconciler and Describe.
const (
	ActionBan           = "ban"
	ActionSpamBan       = "spam ban"
	ActionBlacklist     = "blacklist"
	ActionKick          = "kick"
	ActionTimeout       = "timeout"
	ActionUnban         = "unban"
	ActionExternalBan   = "external ban"
	ActionMemberJoined  = "member joined"
	ActionMemberLeft    = "member left"
	ActionRolesChanged  = "roles changed"
	ActionTitleChanged  = "title changed"
	ActionMessageEdited = "message edited"
)

// Detail is one labelled line of an entry, kept in insertion order.
type Detail struct {
	Label string
	Value string
}

// Entry is a single audit record. ActorID is zero for actions taken by the bot itself.
type Entry struct {
	Action       string
	Category     Category
	ActorID      int64
	ActorName    string
	TargetID     int64
	TargetName   string
	Reason       string
	Notification NotificationOutcome
	Timestamp    time.Time
	Details      []Detail
}

// WithDetail appends a labelled line and returns the entry.
func (e Entry) WithDetail(label, value string) Entry {
	e.Details = append(append([]Detail(nil), e.Details...), Detail{Label: label, Value: value})
	return e
}

// IsBan reports whether the entry describes a ban that staff may want to lift.
func (e Entry) IsBan() bool {
	switch e.Action {
	case ActionBan, ActionSpamBan, ActionBlacklist, ActionExternalBan:
		return e.TargetID != 0
	}
	return false
}
