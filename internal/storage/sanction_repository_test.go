package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) *SanctionRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sanctions.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	repo := NewSanctionRepository(db)
	require.NoError(t, repo.MigrateTable())
	return repo
}

func TestUpsertRenewsExistingRecord(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	require.NoError(t, repo.Upsert(ctx, 7, first))
	require.NoError(t, repo.Upsert(ctx, 7, second))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rec, err := repo.Get(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, second.Equal(rec.ImposedAt), "imposed_at = %v", rec.ImposedAt)
}

func TestListExpiredBoundary(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	duration := 90 * 24 * time.Hour
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// 1 is overdue, 3 is exactly due, 2 is one second short, 4 is due but stored from another zone
	require.NoError(t, repo.Upsert(ctx, 3, now.Add(-duration)))
	require.NoError(t, repo.Upsert(ctx, 1, now.Add(-duration-time.Hour)))
	require.NoError(t, repo.Upsert(ctx, 2, now.Add(-duration+time.Second)))
	require.NoError(t, repo.Upsert(ctx, 4, now.Add(-duration).In(time.FixedZone("X", 5*3600))))

	got, err := repo.ListExpired(ctx, now, duration)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, got)
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	require.NoError(t, repo.Upsert(ctx, 9, time.Now()))
	require.NoError(t, repo.Remove(ctx, 9))
	require.NoError(t, repo.Remove(ctx, 9))

	rec, err := repo.Get(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestListExpiredEmpty(t *testing.T) {
	repo := newTestRepository(t)
	got, err := repo.ListExpired(context.Background(), time.Now(), time.Hour)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecordsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")
	imposed := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	repo := NewSanctionRepository(db)
	require.NoError(t, repo.MigrateTable())
	require.NoError(t, repo.Upsert(ctx, 11, imposed))
	require.NoError(t, Close(db))

	db, err = gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	defer Close(db)
	rec, err := NewSanctionRepository(db).Get(ctx, 11)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, imposed.Equal(rec.ImposedAt))
}

func TestBansExpiredWhileDownAreListedAfterReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "restart.db")
	duration := 90 * 24 * time.Hour
	shutdown := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	repo := NewSanctionRepository(db)
	require.NoError(t, repo.MigrateTable())
	// 1 expires two days after shutdown, 2 is still active at restart
	require.NoError(t, repo.Upsert(ctx, 1, shutdown.Add(-duration+2*24*time.Hour)))
	require.NoError(t, repo.Upsert(ctx, 2, shutdown))
	expired, err := repo.ListExpired(ctx, shutdown, duration)
	require.NoError(t, err)
	require.Empty(t, expired)
	require.NoError(t, Close(db))

	db, err = gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	defer Close(db)
	repo = NewSanctionRepository(db)

	restart := shutdown.Add(5 * 24 * time.Hour)
	first, err := repo.ListExpired(ctx, restart, duration)
	require.NoError(t, err)
	second, err := repo.ListExpired(ctx, restart, duration)
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, first)
	assert.Equal(t, first, second, "listing does not consume records")
}
