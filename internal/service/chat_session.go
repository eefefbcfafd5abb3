package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/histamine-helper/internal/config"
	"github.com/set-night/histamine-helper/internal/domain"
)

type EventKind int

const (
	EventMessageAppended EventKind = iota
	EventSendingChanged
	EventTitleChanged
)

func (k EventKind) String() string {
	switch k {
	case EventMessageAppended:
		return "message_appended"
	case EventSendingChanged:
		return "sending_changed"
	case EventTitleChanged:
		return "title_changed"
	default:
		return "unknown"
	}
}

// Event describes one transcript mutation. Chat is the state right after it.
type Event struct {
	Kind    EventKind
	Message domain.Message // set for EventMessageAppended
	Chat    domain.Chat
}

// Observer is called synchronously, in mutation order. It must not call Send or
// GenerateTitle on the same goroutine.
type Observer func(Event)

type SessionOption func(*ChatSession)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *ChatSession) { s.now = now }
}

// WithLocation sets the timezone used for calendar-day comparisons.
func WithLocation(loc *time.Location) SessionOption {
	return func(s *ChatSession) { s.loc = loc }
}

func WithImagePreparer(p ImagePreparer) SessionOption {
	return func(s *ChatSession) { s.prepare = p }
}

func WithTitleModel(model string) SessionOption {
	return func(s *ChatSession) { s.titleModel = model }
}

func WithObserver(o Observer) SessionOption {
	return func(s *ChatSession) { s.observers = append(s.observers, o) }
}

// ChatSession is the only writer of its transcript and quota state.
type ChatSession struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	id       uuid.UUID
	messages []domain.Message
	pending  int
	title    string
	date     time.Time
	active   time.Time
	quota    domain.Quota

	proxy      Fetcher
	prepare    ImagePreparer
	titleModel string
	observers  []Observer
	now        func() time.Time
	loc        *time.Location

	wg sync.WaitGroup
}

// NewChatSession starts an empty transcript with the given quota state.
func NewChatSession(proxy Fetcher, quota domain.Quota, opts ...SessionOption) *ChatSession {
	s := &ChatSession{
		id:         uuid.New(),
		quota:      quota,
		proxy:      proxy,
		prepare:    NewImageResizer(config.MaxImageEdge, config.ImageJPEGQuality).Prepare,
		titleModel: "",
		now:        time.Now,
		loc:        time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.date = s.now()
	s.active = s.date
	return s
}

// RestoreChatSession rebuilds a session from a stored snapshot.
func RestoreChatSession(proxy Fetcher, chat domain.Chat, opts ...SessionOption) *ChatSession {
	s := NewChatSession(proxy, chat.Quota, opts...)
	s.id = chat.ID
	s.title = chat.Title
	s.messages = append([]domain.Message(nil), chat.Messages...)
	if !chat.Date.IsZero() {
		s.date = chat.Date
	}
	return s
}

func (s *ChatSession) ID() uuid.UUID {
	return s.id
}

// Subscribe adds an observer for subsequent mutations.
func (s *ChatSession) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *ChatSession) Snapshot() domain.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *ChatSession) Quota() domain.Quota {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quota
}

func (s *ChatSession) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// LastActive is when the session was created or last appended a message.
func (s *ChatSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *ChatSession) IsSending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending > 0
}

// SetDailyLimit applies a new limit. Raising it above SentToday re-enables sending today.
func (s *ChatSession) SetDailyLimit(limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		return
	}
	s.quota.DailyLimit = limit
	if s.quota.SentToday < limit {
		s.quota.LimitReached = false
	}
}

// Wait blocks until every in-flight exchange has been appended.
func (s *ChatSession) Wait() {
	s.wg.Wait()
}

// Send appends a user message and asks the proxy for a reply in the background.
// Over quota it appends a single notice per day instead. Only an empty message is an error.
func (s *ChatSession) Send(ctx context.Context, text string, image []byte) error {
	if strings.TrimSpace(text) == "" && len(image) == 0 {
		return domain.ErrEmptyMessage
	}

	s.mu.Lock()
	now := s.now()
	if !domain.SameDay(s.quota.LastSendDate, now, s.loc) {
		s.quota.SentToday = 0
		s.quota.LimitReached = false
	}

	if s.quota.SentToday >= s.quota.DailyLimit {
		if s.quota.LimitReached {
			s.mu.Unlock()
			return nil
		}
		s.quota.LimitReached = true
		// Pin the notice to today so a later send on the same day stays silent.
		s.quota.LastSendDate = now
		notice := s.appendLocked(domain.RoleAssistant, config.QuotaExceededText, nil, now)
		slog.Info("daily quota reached", "session_id", s.id, "limit", s.quota.DailyLimit)
		s.unlockAndNotify(Event{Kind: EventMessageAppended, Message: notice})
		return nil
	}

	userMsg := s.appendLocked(domain.RoleUser, text, image, now)
	s.quota.SentToday++
	s.quota.LastSendDate = now
	s.pending++
	transcript := append([]domain.Message(nil), s.messages...)
	s.wg.Add(1)

	s.unlockAndNotify(
		Event{Kind: EventMessageAppended, Message: userMsg},
		Event{Kind: EventSendingChanged},
	)

	go s.exchange(ctx, transcript)
	return nil
}

func (s *ChatSession) exchange(ctx context.Context, transcript []domain.Message) {
	defer s.wg.Done()

	reply := s.request(ctx, transcript)

	s.mu.Lock()
	s.pending--
	msg := s.appendLocked(domain.RoleAssistant, reply, nil, s.now())
	s.unlockAndNotify(
		Event{Kind: EventMessageAppended, Message: msg},
		Event{Kind: EventSendingChanged},
	)
}

// request returns the text to append as the assistant reply.
func (s *ChatSession) request(ctx context.Context, transcript []domain.Message) string {
	fields, err := BuildSendFields(transcript, s.prepare)
	if err != nil {
		slog.Error("build proxy payload", "session_id", s.id, "error", err)
		return fmt.Sprintf("Error: %s", err)
	}

	body, err := s.proxy.Fetch(ctx, fields)
	if err != nil {
		slog.Error("proxy fetch", "session_id", s.id, "error", err)
		return fmt.Sprintf("Error: %s", err)
	}

	reply := ParseReply(body)
	switch reply.Kind {
	case ReplyCompletion:
		return reply.Text
	case ReplyText:
		slog.Debug("plain text proxy response", "session_id", s.id)
		return reply.Text
	default:
		return config.UnknownFormatText
	}
}

// GenerateTitle asks the proxy to name the conversation. The exchange is not added to the
// transcript, and on failure the current title is kept.
func (s *ChatSession) GenerateTitle(ctx context.Context) (string, error) {
	s.mu.Lock()
	transcript := append([]domain.Message(nil), s.messages...)
	s.mu.Unlock()

	fields, err := BuildTitleFields(transcript, config.TitlePrompt, s.titleModel)
	if err != nil {
		return "", fmt.Errorf("build title payload: %w", err)
	}

	body, err := s.proxy.Fetch(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("fetch title: %w", err)
	}

	content, ok := CompletionContent(body)
	title := strings.TrimSpace(content)
	if !ok || title == "" {
		return "", domain.ErrNoTitle
	}

	s.mu.Lock()
	s.title = title
	s.unlockAndNotify(Event{Kind: EventTitleChanged})
	return title, nil
}

func (s *ChatSession) appendLocked(role domain.Role, text string, image []byte, at time.Time) domain.Message {
	msg := domain.NewMessage(role, text, image, at)
	s.messages = append(s.messages, msg)
	s.date = at
	s.active = at
	return msg
}

func (s *ChatSession) snapshotLocked() domain.Chat {
	return domain.Chat{
		ID:       s.id,
		Title:    s.title,
		Date:     s.date,
		Sending:  s.pending > 0,
		Quota:    s.quota,
		Messages: append([]domain.Message(nil), s.messages...),
	}
}

// unlockAndNotify must be called with mu held. It hands over to notifyMu before
// releasing mu so observers see events in the order the mutations happened.
func (s *ChatSession) unlockAndNotify(events ...Event) {
	snapshot := s.snapshotLocked()
	observers := append([]Observer(nil), s.observers...)

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, e := range events {
		e.Chat = snapshot
		for _, o := range observers {
			o(e)
		}
	}
}
