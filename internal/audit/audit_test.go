package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []*telego.SendMessageParams
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	f.sent = append(f.sent, params)
	if f.err != nil {
		return nil, f.err
	}
	return &telego.Message{}, nil
}

var at = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestDescribeSkipsNoOps(t *testing.T) {
	cases := []struct {
		name string
		ev   Event
	}{
		{"unchanged edit", Event{Kind: EventMessageEdited, User: UserRef{ID: 1}, OldText: "a", NewText: "a"}},
		{"bot edit", Event{Kind: EventMessageEdited, User: UserRef{ID: 1, IsBot: true}, OldText: "a", NewText: "b"}},
		{"same roles", Event{Kind: EventRolesChanged, OldRoles: []string{"member"}, NewRoles: []string{"member"}}},
		{"same title", Event{Kind: EventTitleChanged, OldTitle: "x", NewTitle: "x"}},
		{"ban without actor", Event{Kind: EventExternalBan, User: UserRef{ID: 3}}},
		{"unknown kind", Event{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := Describe(tc.ev)
			assert.False(t, ok)
		})
	}
}

func TestDescribeRolesChanged(t *testing.T) {
	e, ok := Describe(Event{
		Kind:     EventRolesChanged,
		At:       at,
		User:     UserRef{ID: 5, Name: "eve"},
		OldRoles: []string{"member", "helper"},
		NewRoles: []string{"member", "administrator"},
	})
	require.True(t, ok)
	assert.Equal(t, ActionRolesChanged, e.Action)
	assert.Equal(t, CategoryMembers, e.Category)
	assert.Equal(t, []Detail{
		{Label: "Roles Added", Value: "administrator"},
		{Label: "Roles Removed", Value: "helper"},
	}, e.Details)
}

func TestDescribeMessageEdited(t *testing.T) {
	e, ok := Describe(Event{
		Kind:      EventMessageEdited,
		At:        at,
		User:      UserRef{ID: 9, Name: "bob"},
		MessageID: 77,
		OldText:   "",
		NewText:   "hello",
	})
	require.True(t, ok)
	assert.Equal(t, CategoryMessages, e.Category)
	assert.Equal(t, "[no content]", e.Details[0].Value)
	assert.Equal(t, "hello", e.Details[1].Value)
	assert.Equal(t, "77", e.Details[2].Value)
	assert.Equal(t, at, e.Timestamp)
}

func TestDescribeTruncatesLongEdits(t *testing.T) {
	before := strings.Repeat("ä", 3000)
	after := strings.Repeat("b", 3000)
	e, ok := Describe(Event{
		Kind:      EventMessageEdited,
		At:        at,
		User:      UserRef{ID: 9, Name: "bob"},
		MessageID: 78,
		OldText:   before,
		NewText:   after,
	})
	require.True(t, ok)
	assert.Equal(t, 1024, utf8.RuneCountInString(e.Details[0].Value))
	assert.True(t, strings.HasSuffix(e.Details[0].Value, "..."))
	assert.Equal(t, strings.Repeat("ä", 1021)+"...", e.Details[0].Value)
	assert.Equal(t, 1024, utf8.RuneCountInString(e.Details[1].Value))

	assert.Less(t, utf8.RuneCountInString(Format(e)), 4096)
}

func TestDescribeMembership(t *testing.T) {
	joined, ok := Describe(Event{Kind: EventMemberJoined, User: UserRef{ID: 2}})
	require.True(t, ok)
	assert.Equal(t, CategoryJoinLeave, joined.Category)

	left, ok := Describe(Event{Kind: EventMemberLeft, User: UserRef{ID: 2}})
	require.True(t, ok)
	assert.Equal(t, ActionMemberLeft, left.Action)
	assert.Equal(t, "No roles", left.Details[0].Value)
}

func TestDescribeExternalBan(t *testing.T) {
	e, ok := Describe(Event{
		Kind:  EventExternalBan,
		User:  UserRef{ID: 3, Name: "spammer"},
		Actor: UserRef{ID: 4, Name: "admin"},
	})
	require.True(t, ok)
	assert.Equal(t, CategoryModActions, e.Category)
	assert.Equal(t, int64(4), e.ActorID)
	assert.True(t, e.IsBan())
}

func TestNotifierRoutesByCategory(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, Routes{CategoryModActions: -100, CategoryMessages: -200}, "en")
	ctx := context.Background()

	n.Record(ctx, Entry{Action: ActionKick, TargetID: 1, Notification: NotificationSent})
	n.Record(ctx, Entry{Action: ActionMessageEdited, Category: CategoryMessages, TargetID: 1})
	n.Record(ctx, Entry{Action: ActionMemberJoined, Category: CategoryJoinLeave, TargetID: 1})

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(-100), sender.sent[0].ChatID.ID)
	assert.Nil(t, sender.sent[0].ReplyMarkup)
	assert.Equal(t, int64(-200), sender.sent[1].ChatID.ID)
}

func TestNotifierAddsUnbanButtonToBans(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, Routes{CategoryModActions: -100}, "en")

	n.Record(context.Background(), Entry{Action: ActionBan, Category: CategoryModActions, TargetID: 42})

	require.Len(t, sender.sent, 1)
	markup, ok := sender.sent[0].ReplyMarkup.(*telego.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "unban:42", markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "Unban", markup.InlineKeyboard[0][0].Text)
}

func TestNotifierSwallowsSendErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("chat not found")}
	n := NewNotifier(sender, Routes{CategoryModActions: -100}, "en")

	assert.NotPanics(t, func() {
		n.Record(context.Background(), Entry{Action: ActionKick, TargetID: 1})
	})
	assert.Len(t, sender.sent, 1)
}

func TestFormat(t *testing.T) {
	text := Format(Entry{
		Action:       ActionBan,
		Category:     CategoryModActions,
		ActorID:      1,
		ActorName:    "mod <1>",
		TargetID:     2,
		TargetName:   "user",
		Reason:       "spam & ads",
		Notification: NotificationFailed,
		Timestamp:    at,
	})
	assert.Contains(t, text, "<code>ban</code>")
	assert.Contains(t, text, `<a href="tg://user?id=1">mod &lt;1&gt;</a>`)
	assert.Contains(t, text, "spam &amp; ads")
	assert.Contains(t, text, "Successfully DM'd:</b> false")
	assert.Contains(t, text, "2024-05-01 12:00:00 UTC")

	system := Format(Entry{Action: ActionUnban, Category: CategoryModActions, TargetID: 2})
	assert.Contains(t, system, "<b>By:</b> system")
}
