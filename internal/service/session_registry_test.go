package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/histamine-helper/internal/domain"
)

func newTestRegistry(f Fetcher, clock *fakeClock) *SessionRegistry {
	return NewSessionRegistry(f,
		WithClock(clock.Now),
		WithLocation(time.UTC),
		WithImagePreparer(passthrough),
	)
}

func TestSessionRegistry_StartCarriesQuota(t *testing.T) {
	f := &fakeFetcher{body: completion("ok")}
	r := newTestRegistry(f, newClock())
	ctx := context.Background()
	const chatID = 42

	first := r.Start(chatID, domain.Quota{DailyLimit: 2})
	require.NoError(t, first.Send(ctx, "a", nil))
	first.Wait()
	require.NoError(t, first.Send(ctx, "b", nil))
	first.Wait()

	second := r.Start(chatID, domain.Quota{DailyLimit: 2})
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, 2, second.Quota().SentToday)

	require.NoError(t, second.Send(ctx, "c", nil))
	second.Wait()
	assert.Equal(t, 2, f.callCount())

	got, ok := r.Get(chatID)
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestSessionRegistry_EndKeepsQuotaForNextSession(t *testing.T) {
	f := &fakeFetcher{body: completion("ok")}
	r := newTestRegistry(f, newClock())
	const chatID = 7

	s := r.Start(chatID, domain.Quota{DailyLimit: 5})
	require.NoError(t, s.Send(context.Background(), "a", nil))
	s.Wait()

	ended, ok := r.End(chatID)
	require.True(t, ok)
	assert.Same(t, s, ended)

	_, ok = r.Get(chatID)
	assert.False(t, ok)

	next := r.Start(chatID, domain.Quota{DailyLimit: 5})
	assert.Equal(t, 1, next.Quota().SentToday)

	_, ok = r.End(99)
	assert.False(t, ok)
}

func TestSessionRegistry_SeedLimitWins(t *testing.T) {
	f := &fakeFetcher{body: completion("ok")}
	r := newTestRegistry(f, newClock())
	ctx := context.Background()
	const chatID = 1

	s := r.Start(chatID, domain.Quota{DailyLimit: 1})
	require.NoError(t, s.Send(ctx, "a", nil))
	s.Wait()
	require.NoError(t, s.Send(ctx, "b", nil))
	require.True(t, s.Quota().LimitReached)

	upgraded := r.Start(chatID, domain.Quota{DailyLimit: 100})
	q := upgraded.Quota()
	assert.Equal(t, 100, q.DailyLimit)
	assert.Equal(t, 1, q.SentToday)
	assert.False(t, q.LimitReached)
}

func TestSessionRegistry_ResumeOverridesStoredQuota(t *testing.T) {
	f := &fakeFetcher{body: completion("ok")}
	clock := newClock()
	r := newTestRegistry(f, clock)
	const chatID = 3

	active := r.Start(chatID, domain.Quota{DailyLimit: 10})
	require.NoError(t, active.Send(context.Background(), "a", nil))
	active.Wait()

	stored := domain.Chat{
		ID:    uuid.New(),
		Title: "Spinach",
		Quota: domain.Quota{DailyLimit: 10},
		Messages: []domain.Message{
			domain.NewMessage(domain.RoleUser, "spinach?", nil, clock.Now()),
			domain.NewMessage(domain.RoleAssistant, "High in histamine.", nil, clock.Now()),
		},
	}

	resumed := r.Resume(chatID, stored, domain.Quota{DailyLimit: 10})
	assert.Equal(t, stored.ID, resumed.ID())
	assert.Equal(t, "Spinach", resumed.Title())
	assert.Len(t, resumed.Snapshot().Messages, 2)
	assert.Equal(t, 1, resumed.Quota().SentToday)
}

func TestSessionRegistry_WaitIncludesEndedSessions(t *testing.T) {
	f := &fakeFetcher{body: completion("late reply"), block: make(chan struct{})}
	r := newTestRegistry(f, newClock())
	const chatID = 5

	s := r.Start(chatID, domain.Quota{DailyLimit: 5})
	require.NoError(t, s.Send(context.Background(), "a", nil))
	r.End(chatID)
	require.True(t, s.IsSending())

	close(f.block)
	r.Wait()

	assert.False(t, s.IsSending())
	assert.Equal(t, "late reply", s.Snapshot().LastAssistantText())
}

func TestSessionRegistry_EndKeepsOnlyQuota(t *testing.T) {
	f := &fakeFetcher{body: completion("ok")}
	r := newTestRegistry(f, newClock())
	ctx := context.Background()
	photo := bytes.Repeat([]byte{0xAB}, 1024)

	for chatID := int64(1); chatID <= 1000; chatID++ {
		s := r.Start(chatID, domain.Quota{DailyLimit: 5})
		require.NoError(t, s.Send(ctx, "is this safe?", photo))
		s.Wait()
		r.End(chatID)
	}

	active, carried := r.Len()
	assert.Equal(t, 0, active)
	assert.Equal(t, 1000, carried)
	assert.Empty(t, r.ended)
	assert.Equal(t, 1, r.carried[500].quota.SentToday)
}

func TestSessionRegistry_EvictIdle(t *testing.T) {
	f := &fakeFetcher{body: completion("ok")}
	clock := newClock()
	r := newTestRegistry(f, clock)
	ctx := context.Background()

	idle := r.Start(1, domain.Quota{DailyLimit: 5})
	require.NoError(t, idle.Send(ctx, "a", nil))
	idle.Wait()

	clock.Advance(20 * time.Minute)
	fresh := r.Start(2, domain.Quota{DailyLimit: 5})

	clock.Advance(15 * time.Minute)
	assert.Equal(t, 1, r.EvictIdle(clock.Now(), 30*time.Minute))

	_, ok := r.Get(1)
	assert.False(t, ok)
	got, ok := r.Get(2)
	require.True(t, ok)
	assert.Same(t, fresh, got)

	active, carried := r.Len()
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, carried)

	next := r.Start(1, domain.Quota{DailyLimit: 5})
	assert.Equal(t, 1, next.Quota().SentToday)
	_, carried = r.Len()
	assert.Equal(t, 0, carried)
}

func TestSessionRegistry_EvictIdleSkipsPendingReply(t *testing.T) {
	f := &fakeFetcher{body: completion("late"), block: make(chan struct{})}
	clock := newClock()
	r := newTestRegistry(f, clock)

	s := r.Start(1, domain.Quota{DailyLimit: 5})
	require.NoError(t, s.Send(context.Background(), "a", nil))

	clock.Advance(time.Hour)
	assert.Equal(t, 0, r.EvictIdle(clock.Now(), 30*time.Minute))
	_, ok := r.Get(1)
	assert.True(t, ok)

	close(f.block)
	s.Wait()
	clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, r.EvictIdle(clock.Now(), 30*time.Minute))
}

func TestSessionRegistry_CarriedQuotaExpires(t *testing.T) {
	f := &fakeFetcher{body: completion("ok")}
	clock := newClock()
	r := newTestRegistry(f, clock)

	s := r.Start(1, domain.Quota{DailyLimit: 5})
	require.NoError(t, s.Send(context.Background(), "a", nil))
	s.Wait()
	r.End(1)

	clock.Advance(10 * time.Minute)
	r.EvictIdle(clock.Now(), 30*time.Minute)
	_, carried := r.Len()
	assert.Equal(t, 1, carried)

	clock.Advance(30 * time.Minute)
	r.EvictIdle(clock.Now(), 30*time.Minute)
	_, carried = r.Len()
	assert.Equal(t, 0, carried)

	next := r.Start(1, domain.Quota{DailyLimit: 5, SentToday: 1})
	assert.Equal(t, 1, next.Quota().SentToday)
}
