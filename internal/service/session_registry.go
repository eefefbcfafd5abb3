package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/set-night/histamine-helper/internal/domain"
)

type carriedQuota struct {
	quota domain.Quota
	at    time.Time
}

// SessionRegistry maps a Telegram chat to its active chat session.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[int64]*ChatSession
	ended    []*ChatSession
	// quota of the last ended or evicted session per chat, until the next one starts
	carried  map[int64]carriedQuota

	proxy Fetcher
	opts  []SessionOption
}

func NewSessionRegistry(proxy Fetcher, opts ...SessionOption) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[int64]*ChatSession),
		carried:  make(map[int64]carriedQuota),
		proxy:    proxy,
		opts:     opts,
	}
}

// Start replaces the chat's active session with a new one. The quota carries over
// from the replaced session when there is one, otherwise seed is used.
func (r *SessionRegistry) Start(chatID int64, seed domain.Quota, opts ...SessionOption) *ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	quota := r.takeQuotaLocked(chatID, seed)

	s := NewChatSession(r.proxy, quota, append(append([]SessionOption(nil), r.opts...), opts...)...)
	r.sessions[chatID] = s
	return s
}

// Resume makes a stored chat the active one. Its own quota state is replaced by the
// carried-over one so reopening an old chat cannot reset today's count.
func (r *SessionRegistry) Resume(chatID int64, chat domain.Chat, seed domain.Quota, opts ...SessionOption) *ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	quota := r.takeQuotaLocked(chatID, seed)
	chat.Quota = quota

	s := RestoreChatSession(r.proxy, chat, append(append([]SessionOption(nil), r.opts...), opts...)...)
	r.sessions[chatID] = s
	return s
}

func (r *SessionRegistry) Get(chatID int64) (*ChatSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[chatID]
	return s, ok
}

// End detaches the active session. In-flight replies still complete.
func (r *SessionRegistry) End(chatID int64) (*ChatSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[chatID]
	if ok {
		delete(r.sessions, chatID)
		r.retireLocked(s)
		r.carried[chatID] = carriedQuota{quota: s.Quota(), at: s.now()}
	}
	return s, ok
}

// EvictIdle drops sessions with no activity for idle and nothing in flight, keeping
// only their quota. Carried quotas older than idle are dropped too; by then the
// chat's history holds them. It returns the number of sessions evicted.
func (r *SessionRegistry) EvictIdle(now time.Time, idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	for chatID, c := range r.carried {
		if now.Sub(c.at) >= idle {
			delete(r.carried, chatID)
		}
	}

	evicted := 0
	for chatID, s := range r.sessions {
		if s.IsSending() || now.Sub(s.LastActive()) < idle {
			continue
		}
		delete(r.sessions, chatID)
		r.carried[chatID] = carriedQuota{quota: s.Quota(), at: now}
		evicted++
	}
	r.pruneEndedLocked()

	if evicted > 0 {
		slog.Debug("evicted idle chat sessions", "count", evicted, "active", len(r.sessions))
	}
	return evicted
}

// Len reports the active and carried-over entries held.
func (r *SessionRegistry) Len() (active, carried int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions), len(r.carried)
}

// Wait blocks until all sessions, including ended ones, have no exchange in flight.
func (r *SessionRegistry) Wait() {
	r.mu.RLock()
	all := make([]*ChatSession, 0, len(r.sessions)+len(r.ended))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	all = append(all, r.ended...)
	r.mu.RUnlock()

	for _, s := range all {
		s.Wait()
	}
}

// takeQuotaLocked retires the chat's active session and returns the quota the next one
// starts with. An ended session still counts: its replies may not be saved yet.
func (r *SessionRegistry) takeQuotaLocked(chatID int64, seed domain.Quota) domain.Quota {
	if prev, ok := r.sessions[chatID]; ok {
		r.retireLocked(prev)
		return carryQuota(prev.Quota(), seed)
	}
	if prev, ok := r.carried[chatID]; ok {
		delete(r.carried, chatID)
		return carryQuota(prev.quota, seed)
	}
	return seed
}

func (r *SessionRegistry) retireLocked(s *ChatSession) {
	r.pruneEndedLocked()
	if s.IsSending() {
		r.ended = append(r.ended, s)
	}
}

// pruneEndedLocked keeps only ended sessions with a reply pending; those are
// waited on at shutdown.
func (r *SessionRegistry) pruneEndedLocked() {
	kept := r.ended[:0]
	for _, e := range r.ended {
		if e.IsSending() {
			kept = append(kept, e)
		}
	}
	clear(r.ended[len(kept):])
	r.ended = kept
}

// carryQuota keeps the counters of prev and takes the daily limit from seed.
func carryQuota(prev, seed domain.Quota) domain.Quota {
	q := prev
	q.DailyLimit = seed.DailyLimit
	if q.SentToday < q.DailyLimit {
		q.LimitReached = false
	}
	return q
}
