package moderation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tg-moderator/internal/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	staffID  int64 = 100
	memberID int64 = 200
)

var (
	testRoles = []string{"restricted", "member", "helper", "administrator", "creator"}
	testNow   = time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)
	staff     = Actor{ID: staffID, Name: "mod"}
)

type harness struct {
	exec     *Executor
	platform *fakePlatform
	store    *memoryStore
	auditor  *recordingAuditor
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		platform: newFakePlatform(testRoles),
		store:    newMemoryStore(),
		auditor:  &recordingAuditor{},
		now:      testNow,
	}
	h.platform.addMember(staffID, "administrator")
	h.platform.addMember(memberID, "member")

	h.exec = NewExecutor(Deps{
		Store:    h.store,
		Platform: h.platform,
		Auditor:  h.auditor,
		Locks:    NewSubjectLocks(),
		Now:      func() time.Time { return h.now },
	}, Options{
		Policy:            Policy{StaffRole: "administrator", MaxBannableRole: "helper"},
		SanctionDuration:  90 * 24 * time.Hour,
		Timeouts:          map[string]time.Duration{"10m": 10 * time.Minute, "1h": time.Hour},
		SpamHistoryWindow: 7 * 24 * time.Hour,
		ServerName:        "Test Server",
		Language:          "en",
	})
	return h
}

func TestStandardBanCreatesRecord(t *testing.T) {
	h := newHarness(t)

	res, err := h.exec.ApplyBan(context.Background(), staff, memberID, BanStandard, "rule 1")
	require.NoError(t, err)

	imposed, ok := h.store.get(memberID)
	require.True(t, ok)
	assert.Equal(t, testNow, imposed)

	assert.Equal(t, audit.ActionBan, res.Action)
	assert.Equal(t, audit.NotificationSent, res.Notification)
	assert.Equal(t, 90*24*time.Hour, res.Duration)

	bans := h.platform.remoteCalls("ban")
	require.Len(t, bans, 1)
	assert.Equal(t, time.Duration(0), bans[0].DeleteHistory)
	assert.Contains(t, h.platform.dms[memberID][0], "Test Server")
	assert.Contains(t, h.platform.dms[memberID][0], "90 days")

	entries := h.auditor.all()
	require.Len(t, entries, 1)
	assert.Equal(t, staffID, entries[0].ActorID)
	assert.Equal(t, memberID, entries[0].TargetID)
	assert.Equal(t, "rule 1", entries[0].Reason)
	assert.Equal(t, testNow, entries[0].Timestamp)
}

func TestRebanRenewsRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.exec.ApplyBan(ctx, staff, memberID, BanStandard, "")
	require.NoError(t, err)

	h.now = testNow.Add(48 * time.Hour)
	_, err = h.exec.ApplyBan(ctx, staff, memberID, BanStandard, "")
	require.NoError(t, err)

	imposed, ok := h.store.get(memberID)
	require.True(t, ok)
	assert.Equal(t, h.now, imposed)
	assert.Len(t, h.store.records, 1)
}

func TestPermanentBansSupersedeRecord(t *testing.T) {
	for _, variant := range []BanVariant{BanSpam, BanBlacklist} {
		t.Run(string(variant), func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.store.Upsert(context.Background(), memberID, testNow.Add(-time.Hour)))

			_, err := h.exec.ApplyBan(context.Background(), staff, memberID, variant, "bot")
			require.NoError(t, err)

			_, ok := h.store.get(memberID)
			assert.False(t, ok)
		})
	}
}

func TestSpamBanSkipsMessageAndDeletesHistory(t *testing.T) {
	h := newHarness(t)

	res, err := h.exec.ApplyBan(context.Background(), staff, memberID, BanSpam, "")
	require.NoError(t, err)

	assert.Equal(t, audit.ActionSpamBan, res.Action)
	assert.Equal(t, audit.NotificationSkipped, res.Notification)
	assert.Empty(t, h.platform.dms[memberID])
	bans := h.platform.remoteCalls("ban")
	require.Len(t, bans, 1)
	assert.Equal(t, 7*24*time.Hour, bans[0].DeleteHistory)
	assert.Equal(t, "none given", bans[0].Reason)
}

func TestBanProceedsWhenDirectMessageFails(t *testing.T) {
	h := newHarness(t)
	h.platform.dmErr = fmt.Errorf("bot was blocked by the user: %w", ErrForbidden)

	res, err := h.exec.ApplyBan(context.Background(), staff, memberID, BanStandard, "")
	require.NoError(t, err)

	assert.Equal(t, audit.NotificationFailed, res.Notification)
	_, ok := h.store.get(memberID)
	assert.True(t, ok)
	assert.Len(t, h.platform.remoteCalls("ban"), 1)

	entries := h.auditor.all()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.NotificationFailed, entries[0].Notification)
}

func TestDeniedBanHasNoSideEffects(t *testing.T) {
	h := newHarness(t)
	h.platform.addMember(300, "administrator")

	_, err := h.exec.ApplyBan(context.Background(), staff, 300, BanStandard, "")

	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, DenialOutOfJurisdiction, authErr.Reason)
	assert.Empty(t, h.platform.remoteCalls(""))
	assert.Empty(t, h.platform.dms)
	assert.Empty(t, h.store.records)
	assert.Empty(t, h.auditor.all())
}

func TestNonStaffIsDenied(t *testing.T) {
	h := newHarness(t)
	h.platform.addMember(301, "helper")

	_, err := h.exec.ApplyKick(context.Background(), Actor{ID: 301}, memberID, "")
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, DenialNotStaff, authErr.Reason)

	_, err = h.exec.ApplyBan(context.Background(), Actor{ID: 999}, memberID, BanStandard, "")
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, DenialNotStaff, authErr.Reason)
}

func TestBanNonMemberByIdentifier(t *testing.T) {
	h := newHarness(t)

	res, err := h.exec.ApplyBan(context.Background(), staff, 5555, BanStandard, "")
	require.NoError(t, err)
	assert.Equal(t, int64(5555), res.TargetID)
	_, ok := h.store.get(5555)
	assert.True(t, ok)
}

func TestRemoteFailureLeavesStoreUntouched(t *testing.T) {
	h := newHarness(t)
	h.platform.banErr = fmt.Errorf("not enough rights: %w", ErrForbidden)

	_, err := h.exec.ApplyBan(context.Background(), staff, memberID, BanStandard, "")

	var enfErr *EnforcementError
	require.ErrorAs(t, err, &enfErr)
	assert.Equal(t, FailureForbidden, enfErr.Kind)
	assert.Empty(t, h.store.records)
	assert.Empty(t, h.auditor.all())
}

func TestStoreFailureStillAudits(t *testing.T) {
	h := newHarness(t)
	h.store.upsertErr = errors.New("disk full")

	_, err := h.exec.ApplyBan(context.Background(), staff, memberID, BanStandard, "")

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "upsert", storeErr.Op)
	assert.Len(t, h.platform.remoteCalls("ban"), 1)
	assert.Len(t, h.auditor.all(), 1)
}

func TestKick(t *testing.T) {
	h := newHarness(t)

	res, err := h.exec.ApplyKick(context.Background(), staff, memberID, "flooding")
	require.NoError(t, err)
	assert.Equal(t, audit.ActionKick, res.Action)
	assert.Len(t, h.platform.remoteCalls("kick"), 1)
	assert.Empty(t, h.store.records)
	assert.Contains(t, h.platform.dms[memberID][0], "kicked")
}

func TestKickNonMember(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec.ApplyKick(context.Background(), staff, 4242, "")

	var enfErr *EnforcementError
	require.ErrorAs(t, err, &enfErr)
	assert.Equal(t, FailureNotFound, enfErr.Kind)
	assert.Empty(t, h.platform.remoteCalls("kick"))
}

func TestTimeout(t *testing.T) {
	h := newHarness(t)

	res, err := h.exec.ApplyTimeout(context.Background(), staff, memberID, "1h", "")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, res.Duration)

	calls := h.platform.remoteCalls("timeout")
	require.Len(t, calls, 1)
	assert.Equal(t, time.Hour, calls[0].Duration)

	entries := h.auditor.all()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.Detail{Label: "Length", Value: "1h"}, entries[0].Details[0])
	assert.Empty(t, h.store.records)
}

func TestTimeoutRejectsUnknownChoice(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec.ApplyTimeout(context.Background(), staff, memberID, "90m", "")
	assert.ErrorIs(t, err, ErrInvalidTimeout)
	assert.Empty(t, h.platform.remoteCalls(""))
	assert.Empty(t, h.platform.dms)
}

func TestReverseBan(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.exec.ApplyBan(ctx, staff, memberID, BanStandard, "")
	require.NoError(t, err)

	res, err := h.exec.ReverseBan(ctx, staff, memberID, "appeal accepted")
	require.NoError(t, err)
	assert.Equal(t, audit.ActionUnban, res.Action)
	assert.Equal(t, audit.NotificationSkipped, res.Notification)
	_, ok := h.store.get(memberID)
	assert.False(t, ok)
	assert.Len(t, h.platform.dms[memberID], 1, "unban sends no message")
}

func TestReverseBanOfUnbannedSubjectSucceeds(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Upsert(context.Background(), 777, testNow))

	_, err := h.exec.ReverseBan(context.Background(), staff, 777, "")
	require.NoError(t, err)
	_, ok := h.store.get(777)
	assert.False(t, ok)
	assert.Len(t, h.auditor.all(), 1)
}

func TestReverseBanRemoteFailureKeepsRecord(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Upsert(context.Background(), 777, testNow))
	h.platform.unbanErr = errors.New("timeout")

	_, err := h.exec.ReverseBan(context.Background(), staff, 777, "")
	var enfErr *EnforcementError
	require.ErrorAs(t, err, &enfErr)
	assert.Equal(t, FailureOther, enfErr.Kind)
	_, ok := h.store.get(777)
	assert.True(t, ok)
}

func TestMemberLookupFailure(t *testing.T) {
	h := newHarness(t)
	h.platform.fetchErr = errors.New("network down")

	_, err := h.exec.ApplyBan(context.Background(), staff, memberID, BanStandard, "")
	var enfErr *EnforcementError
	require.ErrorAs(t, err, &enfErr)
	assert.Empty(t, h.platform.remoteCalls("ban"))
}

func TestParseBanVariant(t *testing.T) {
	v, err := ParseBanVariant("blacklist")
	require.NoError(t, err)
	assert.Equal(t, BanBlacklist, v)

	_, err = ParseBanVariant("forever")
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "90 days", FormatDuration(2160*time.Hour))
	assert.Equal(t, "1 week", FormatDuration(168*time.Hour))
	assert.Equal(t, "2 weeks", FormatDuration(336*time.Hour))
	assert.Equal(t, "1 day", FormatDuration(24*time.Hour))
	assert.Equal(t, "10m0s", FormatDuration(10*time.Minute))
}
