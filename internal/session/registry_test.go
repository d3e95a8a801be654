package session

import (
	"context"
	"testing"
	"time"

	"github.com/ashureev/crackd/internal/domain"
	"github.com/ashureev/crackd/internal/mentor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, ttl time.Duration) *Registry {
	t.Helper()
	catalog, err := mentor.DefaultCatalog()
	require.NoError(t, err)
	r := NewRegistry(mentor.NewDispatcher(catalog, nil), RegistryConfig{TTL: ttl})
	t.Cleanup(r.Close)
	return r
}

func TestRegistryStartGreetsOnce(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, time.Minute)
	profile := domain.Profile{Username: "grace", SkillLevel: domain.SkillBeginner}

	first := r.Start("u1", "tab-1", profile)
	second := r.Start("u1", "tab-1", profile)

	assert.Same(t, first, second)
	require.Len(t, first.Messages(), 1)
	assert.Contains(t, first.Messages()[0].Content, "Hey grace!")
	assert.Equal(t, domain.RoleMentor, first.Messages()[0].Role)
}

func TestRegistrySessionsAreIndependent(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, time.Minute)

	a := r.Start("u1", "tab-1", domain.Profile{Username: "a"})
	b := r.Start("u1", "tab-2", domain.Profile{Username: "a"})
	require.NotSame(t, a, b)

	submitAndWait(t, a, "two sum")

	assert.NotNil(t, a.CurrentProblem())
	assert.Nil(t, b.CurrentProblem())
	assert.Len(t, b.Messages(), 1)
}

func TestRegistryEndClosesSession(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, time.Minute)
	ctrl := r.Start("u1", "tab-1", domain.Profile{Username: "a"})

	assert.True(t, r.End("u1", "tab-1"))
	assert.False(t, r.End("u1", "tab-1"))

	assert.True(t, ctrl.Closed())
	_, ok := r.Get("u1", "tab-1")
	assert.False(t, ok)
	_, err := ctrl.Submit(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestRegistryEndUser(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, time.Minute)
	r.Start("u1", "tab-1", domain.Profile{})
	r.Start("u1", "tab-2", domain.Profile{})
	r.Start("u2", "tab-1", domain.Profile{})

	assert.Equal(t, 2, r.EndUser("u1"))
	assert.Equal(t, 1, r.Len())
}

func TestRegistrySweepExpiresIdleSessions(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, 10*time.Millisecond)
	ctrl := r.Start("u1", "tab-1", domain.Profile{})

	time.Sleep(30 * time.Millisecond)
	r.Sweep()

	assert.True(t, ctrl.Closed())
	assert.Equal(t, 0, r.Len())
}

func TestRegistrySweeperStopsWithContext(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, 5*time.Millisecond)
	ctrl := r.Start("u1", "tab-1", domain.Profile{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartSweeper(ctx, 5*time.Millisecond)

	assert.Eventually(t, ctrl.Closed, time.Second, 5*time.Millisecond)
}

func TestRegistryRestartAfterEnd(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, time.Minute)
	old := r.Start("u1", "tab-1", domain.Profile{Username: "a"})
	submitAndWait(t, old, "two sum")
	r.End("u1", "tab-1")

	fresh := r.Start("u1", "tab-1", domain.Profile{Username: "a"})

	assert.NotSame(t, old, fresh)
	assert.Nil(t, fresh.CurrentProblem())
	assert.Len(t, fresh.Messages(), 1)
}

func TestRegistryStartClosesExpiredSessionBeforeReplacing(t *testing.T) {
	t.Parallel()
	responder := newBlockingResponder()
	obs := &recordingObserver{}
	r := NewRegistry(responder, RegistryConfig{
		TTL:       20 * time.Millisecond,
		Observers: func(string, string) Observer { return obs },
	})
	t.Cleanup(r.Close)

	old := r.Start("u1", "tab-1", domain.Profile{Username: "a"})
	done, err := old.Submit(context.Background(), "two sum")
	require.NoError(t, err)
	<-responder.started

	time.Sleep(50 * time.Millisecond)
	fresh := r.Start("u1", "tab-1", domain.Profile{Username: "a"})
	require.NotSame(t, old, fresh)
	assert.True(t, old.Closed())

	close(responder.release)
	<-done

	obs.mu.Lock()
	last := obs.snapshots[len(obs.snapshots)-1]
	obs.mu.Unlock()
	require.Len(t, last.Messages, 1, "the replaced session published nothing after its turn")
	assert.Contains(t, last.Messages[0].Content, "Hey a!")
	assert.Len(t, fresh.Messages(), 1)
}

func TestRegistryGetClosesExpiredSession(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, 10*time.Millisecond)
	ctrl := r.Start("u1", "tab-1", domain.Profile{})

	time.Sleep(30 * time.Millisecond)

	_, ok := r.Get("u1", "tab-1")
	assert.False(t, ok)
	assert.True(t, ctrl.Closed())
	assert.Equal(t, 0, r.Len())
}

func TestRegistryGetRefreshesExpiry(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, 100*time.Millisecond)
	ctrl := r.Start("u1", "tab-1", domain.Profile{})

	for i := 0; i < 5; i++ {
		time.Sleep(40 * time.Millisecond)
		got, ok := r.Get("u1", "tab-1")
		require.True(t, ok)
		require.Same(t, ctrl, got)
		r.Sweep()
	}
	assert.False(t, ctrl.Closed())
}
