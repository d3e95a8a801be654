package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/crackd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "crackd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetUser(ctx, "anon_missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	now := time.Unix(1_700_000_000, 0)
	require.NoError(t, s.UpsertUser(ctx, &domain.User{
		UserID: "anon_1", Username: "anon-1", LastSeenAt: now, CreatedAt: now, UpdatedAt: now,
	}))

	got, err = s.GetUser(ctx, "anon_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "anon-1", got.Username)
	assert.True(t, got.CreatedAt.Equal(now))

	later := now.Add(time.Hour)
	require.NoError(t, s.UpdateLastSeen(ctx, "anon_1", later))
	got, err = s.GetUser(ctx, "anon_1")
	require.NoError(t, err)
	assert.True(t, got.LastSeenAt.Equal(later))

	// Unknown users are not an error.
	require.NoError(t, s.UpdateLastSeen(ctx, "anon_ghost", later))
}

func TestProfileLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, s.UpsertUser(ctx, &domain.User{
		UserID: "anon_2", Username: "anon-2", LastSeenAt: now, CreatedAt: now, UpdatedAt: now,
	}))

	p, err := s.GetProfile(ctx, "anon_2")
	require.NoError(t, err)
	assert.Nil(t, p, "no profile before onboarding")

	require.NoError(t, s.UpsertProfile(ctx, &domain.Profile{
		UserID: "anon_2", Username: "ada", SkillLevel: domain.SkillBeginner, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, s.UpsertProfile(ctx, &domain.Profile{
		UserID: "anon_2", Username: "Ada", SkillLevel: domain.SkillAdvanced,
		CreatedAt: now.Add(time.Hour), UpdatedAt: now.Add(time.Hour),
	}))

	p, err = s.GetProfile(ctx, "anon_2")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Ada", p.Username)
	assert.Equal(t, domain.SkillAdvanced, p.SkillLevel)
	assert.True(t, p.CreatedAt.Equal(now), "created_at survives updates")

	require.NoError(t, s.DeleteProfile(ctx, "anon_2"))
	p, err = s.GetProfile(ctx, "anon_2")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPingAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crackd.db")
	ctx := context.Background()

	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.UpsertUser(ctx, &domain.User{UserID: "anon_3", Username: "anon-3"}))
	require.NoError(t, s.Close())

	s, err = NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	u, err := s.GetUser(ctx, "anon_3")
	require.NoError(t, err)
	require.NotNil(t, u)
}

func TestWithRetryStopsOnNonConflict(t *testing.T) {
	s := &SQLiteStore{}
	calls := 0

	err := s.withRetry(context.Background(), "op", "u", func() error {
		calls++
		return assert.AnError
	})

	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRetriesBusy(t *testing.T) {
	s := &SQLiteStore{}
	calls := 0

	err := s.withRetry(context.Background(), "op", "u", func() error {
		calls++
		if calls < 2 {
			return errBusy
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

type busyError struct{}

func (busyError) Error() string { return "SQLITE_BUSY: database is locked" }

var errBusy error = busyError{}
