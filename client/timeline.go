package client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"betchat/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultSendTimeout rejects a placeholder whose confirmation event has not
// arrived. Retrying is left to the caller.
const DefaultSendTimeout = 15 * time.Second

// Config wires a Timeline to its collaborators. OnChange receives a snapshot
// of the visible list after every mutation; OnError receives send failures.
// Both callbacks run outside the timeline lock and may be nil.
type Config struct {
	Store   MessageStore
	Media   MediaStore
	Events  EventChannel
	Session Session

	SendTimeout time.Duration
	OnChange    func(messages []Message)
	OnError     func(err error)
}

// Timeline maintains the ordered, deduplicated message view for one open
// chat. It merges three inputs: the initial bulk fetch, optimistic
// placeholders appended at send time, and confirmed messages pushed by the
// event channel. Sends arrive from the caller's goroutine and events from
// the subscription's read loop, so all state is guarded by one mutex.
//
// Placeholders are resolved by exact correlation: every send carries a
// client token that the backend stores and echoes back in the INSERT event.
// A confirmation only ever replaces the placeholder holding its token;
// other pending sends are left alone.
type Timeline struct {
	cfg    Config
	chatID string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	messages []Message
	pending  map[string]*time.Timer
	states   map[string]SendState
	sub      Subscription
	closed   bool

	now func() time.Time
}

// NewTimeline creates a timeline; call Open before sending.
func NewTimeline(cfg Config) *Timeline {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	return &Timeline{
		cfg:     cfg,
		pending: make(map[string]*time.Timer),
		states:  make(map[string]SendState),
		now:     time.Now,
	}
}

// Open fetches the chat's history and subscribes to its insert events, both
// concurrently. On failure the visible list stays empty, any opened
// subscription is released and the error is returned; there is no automatic
// retry. Events that arrive while the fetch is still in flight are merged
// once it lands, duplicates are discarded by server id.
func (t *Timeline) Open(ctx context.Context, chatID string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.chatID = chatID
	tctx, cancel := context.WithCancel(ctx)
	t.ctx, t.cancel = tctx, cancel
	t.mu.Unlock()

	var (
		history []models.Message
		sub     Subscription
	)
	g, gctx := errgroup.WithContext(tctx)
	g.Go(func() error {
		msgs, err := t.cfg.Store.Fetch(gctx, chatID)
		if err != nil {
			return fmt.Errorf("history fetch: %w", err)
		}
		history = msgs
		return nil
	})
	g.Go(func() error {
		// The subscription outlives Open, so it gets the timeline context,
		// not the group context.
		s, err := t.cfg.Events.Subscribe(tctx, chatID, t.handleEvent)
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		sub = s
		return nil
	})
	if err := g.Wait(); err != nil {
		if sub != nil {
			sub.Close()
		}
		cancel()
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		sub.Close()
		return ErrClosed
	}
	t.sub = sub
	for _, m := range history {
		// The event path may already have inserted this message while the
		// fetch was in flight.
		if t.containsLocked(m.MessageID) {
			continue
		}
		t.insertLocked(Message{Message: m})
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(snap)
	return nil
}

// SendText appends a pending placeholder immediately and persists the
// message in the background. The returned token identifies the send; the
// placeholder is replaced when its confirmation event arrives, or rolled
// back (with OnError) on persist failure or timeout.
func (t *Timeline) SendText(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyMessage
	}

	token := uuid.New().String()
	placeholder := Message{
		Message: models.Message{
			MessageID:   "local-" + token,
			ChatID:      t.chatID,
			SenderID:    t.cfg.Session.UserID,
			Kind:        models.MessageText,
			Content:     content,
			ClientToken: token,
			CreatedAt:   t.now(),
		},
		Local: true,
	}
	ctx, err := t.addPlaceholder(placeholder, token)
	if err != nil {
		return "", err
	}

	go func() {
		err := t.cfg.Store.Insert(ctx, InsertRequest{
			ChatID:      t.chatID,
			Kind:        models.MessageText,
			Content:     content,
			ClientToken: token,
		})
		if err != nil {
			t.reject(token, fmt.Errorf("persist message: %w", err))
		}
	}()
	return token, nil
}

// SendImage appends a placeholder showing the local preview URL, then runs
// the two-phase send in the background: upload the bytes to the media store,
// then persist a message pointing at the returned URL. Failure of either
// phase rolls the placeholder back and reports through OnError.
func (t *Timeline) SendImage(payload io.Reader, previewURL string) (string, error) {
	token := uuid.New().String()
	placeholder := Message{
		Message: models.Message{
			MessageID:   "local-" + token,
			ChatID:      t.chatID,
			SenderID:    t.cfg.Session.UserID,
			Kind:        models.MessageImage,
			MediaURL:    previewURL,
			ClientToken: token,
			CreatedAt:   t.now(),
		},
		Local: true,
	}
	ctx, err := t.addPlaceholder(placeholder, token)
	if err != nil {
		return "", err
	}

	go func() {
		url, err := t.cfg.Media.Upload(ctx, t.chatID, payload)
		if err != nil {
			t.reject(token, fmt.Errorf("media upload: %w", err))
			return
		}
		err = t.cfg.Store.Insert(ctx, InsertRequest{
			ChatID:      t.chatID,
			Kind:        models.MessageImage,
			MediaURL:    url,
			ClientToken: token,
		})
		if err != nil {
			t.reject(token, fmt.Errorf("persist message: %w", err))
		}
	}()
	return token, nil
}

// Messages returns a snapshot of the visible list, ascending by created_at.
func (t *Timeline) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// StateOf reports the lifecycle state of a send token.
func (t *Timeline) StateOf(token string) (SendState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[token]
	return s, ok
}

// Close tears the timeline down: the subscription is released
// unconditionally, pending timers stop, and late responses from in-flight
// calls are ignored. Idempotent.
func (t *Timeline) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	for token, timer := range t.pending {
		timer.Stop()
		delete(t.pending, token)
	}
	sub := t.sub
	t.sub = nil
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		sub.Close()
	}
}

// handleEvent merges one confirmed message pushed by the event channel.
func (t *Timeline) handleEvent(m models.Message) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	if m.ClientToken != "" {
		if timer, ok := t.pending[m.ClientToken]; ok {
			timer.Stop()
			delete(t.pending, m.ClientToken)
			t.states[m.ClientToken] = SendConfirmed
			t.removeLocalLocked(m.ClientToken)
		}
	}

	// At-least-once channel: a redelivered event must not duplicate entries.
	if t.containsLocked(m.MessageID) {
		t.mu.Unlock()
		return
	}

	t.insertLocked(Message{Message: m})
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(snap)
}

// addPlaceholder appends the pending entry, arms its timeout timer and
// returns the timeline context for the asynchronous phase of the send.
func (t *Timeline) addPlaceholder(m Message, token string) (context.Context, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	if t.ctx == nil {
		t.mu.Unlock()
		return nil, fmt.Errorf("client: timeline not opened")
	}
	ctx := t.ctx
	t.insertLocked(m)
	t.states[token] = SendPending
	t.pending[token] = time.AfterFunc(t.cfg.SendTimeout, func() {
		t.reject(token, fmt.Errorf("%w after %s", ErrSendTimeout, t.cfg.SendTimeout))
	})
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(snap)
	return ctx, nil
}

// reject rolls a pending placeholder back and reports the cause. A token
// that was already confirmed or rejected is left alone.
func (t *Timeline) reject(token string, cause error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	timer, ok := t.pending[token]
	if !ok {
		t.mu.Unlock()
		return
	}
	timer.Stop()
	delete(t.pending, token)
	t.states[token] = SendRejected
	t.removeLocalLocked(token)
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(snap)
	if t.cfg.OnError != nil {
		t.cfg.OnError(cause)
	}
}

// insertLocked keeps the list ascending by CreatedAt; equal timestamps keep
// insertion order.
func (t *Timeline) insertLocked(m Message) {
	i := len(t.messages)
	for i > 0 && t.messages[i-1].CreatedAt.After(m.CreatedAt) {
		i--
	}
	t.messages = append(t.messages, Message{})
	copy(t.messages[i+1:], t.messages[i:])
	t.messages[i] = m
}

func (t *Timeline) removeLocalLocked(token string) {
	kept := t.messages[:0]
	for _, m := range t.messages {
		if m.Local && m.ClientToken == token {
			continue
		}
		kept = append(kept, m)
	}
	t.messages = kept
}

func (t *Timeline) containsLocked(id string) bool {
	for _, m := range t.messages {
		if m.MessageID == id {
			return true
		}
	}
	return false
}

func (t *Timeline) snapshotLocked() []Message {
	snap := make([]Message, len(t.messages))
	copy(snap, t.messages)
	return snap
}

func (t *Timeline) notify(snapshot []Message) {
	if t.cfg.OnChange != nil {
		t.cfg.OnChange(snapshot)
	}
}
