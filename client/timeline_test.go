package client

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"betchat/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	history   []models.Message
	fetchErr  error
	insertErr error
	inserted  []InsertRequest

	fetchGate  chan struct{} // when set, Fetch blocks until it is closed
	insertDone chan InsertRequest
}

func (f *fakeStore) Fetch(ctx context.Context, chatID string) ([]models.Message, error) {
	if f.fetchGate != nil {
		<-f.fetchGate
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.history, nil
}

func (f *fakeStore) Insert(ctx context.Context, req InsertRequest) error {
	f.mu.Lock()
	f.inserted = append(f.inserted, req)
	f.mu.Unlock()
	if f.insertDone != nil {
		f.insertDone <- req
	}
	return f.insertErr
}

func (f *fakeStore) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

type fakeMedia struct {
	url string
	err error
}

func (f *fakeMedia) Upload(ctx context.Context, chatID string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeSub struct {
	mu     sync.Mutex
	closed int
}

func (s *fakeSub) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

func (s *fakeSub) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeEvents struct {
	mu      sync.Mutex
	handler func(models.Message)
	sub     *fakeSub
	subErr  error
}

func (f *fakeEvents) Subscribe(ctx context.Context, chatID string, handler func(models.Message)) (Subscription, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.mu.Lock()
	f.handler = handler
	f.sub = &fakeSub{}
	f.mu.Unlock()
	return f.sub, nil
}

// deliver pushes a confirmed message the way the read loop would.
func (f *fakeEvents) deliver(m models.Message) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(m)
}

type harness struct {
	store  *fakeStore
	media  *fakeMedia
	events *fakeEvents
	errs   chan error
	tl     *Timeline
}

func newHarness(t *testing.T, store *fakeStore) *harness {
	t.Helper()
	h := &harness{
		store:  store,
		media:  &fakeMedia{url: "http://cdn/img.jpg"},
		events: &fakeEvents{},
		errs:   make(chan error, 8),
	}
	h.tl = NewTimeline(Config{
		Store:       store,
		Media:       h.media,
		Events:      h.events,
		Session:     Session{UserID: "u1", Token: "tok"},
		SendTimeout: time.Second,
		OnError:     func(err error) { h.errs <- err },
	})
	t.Cleanup(h.tl.Close)
	return h
}

func (h *harness) open(t *testing.T) {
	t.Helper()
	require.NoError(t, h.tl.Open(context.Background(), "c1"))
}

func confirmed(id, chatID, sender, content, token string, at time.Time) models.Message {
	return models.Message{
		MessageID:   id,
		ChatID:      chatID,
		SenderID:    sender,
		Kind:        models.MessageText,
		Content:     content,
		ClientToken: token,
		CreatedAt:   at,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestTextRoundTrip(t *testing.T) {
	h := newHarness(t, &fakeStore{})
	h.open(t)

	token, err := h.tl.SendText("hi")
	require.NoError(t, err)

	msgs := h.tl.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Local)
	assert.Equal(t, "hi", msgs[0].Content)

	state, ok := h.tl.StateOf(token)
	require.True(t, ok)
	assert.Equal(t, SendPending, state)

	waitFor(t, func() bool { return h.store.insertCount() == 1 })
	h.events.deliver(confirmed("s1", "c1", "u1", "hi", token, time.Now()))

	msgs = h.tl.Messages()
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Local)
	assert.Equal(t, "s1", msgs[0].MessageID)

	state, _ = h.tl.StateOf(token)
	assert.Equal(t, SendConfirmed, state)
}

func TestDuplicateEventIsIdempotent(t *testing.T) {
	h := newHarness(t, &fakeStore{})
	h.open(t)

	event := confirmed("s1", "c1", "u2", "yo", "", time.Now())
	h.events.deliver(event)
	h.events.deliver(event)

	msgs := h.tl.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "s1", msgs[0].MessageID)
}

func TestSendAddsExactlyOnePlaceholder(t *testing.T) {
	store := &fakeStore{insertDone: make(chan InsertRequest, 1)}
	h := newHarness(t, store)
	h.open(t)

	_, err := h.tl.SendText("one")
	require.NoError(t, err)

	// Synchronous effect: exactly one entry before any response arrives.
	assert.Len(t, h.tl.Messages(), 1)
	<-store.insertDone
}

func TestEmptyTextRejected(t *testing.T) {
	h := newHarness(t, &fakeStore{})
	h.open(t)

	_, err := h.tl.SendText("   \t ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, h.tl.Messages())
}

func TestImageUploadFailureRollsBack(t *testing.T) {
	h := newHarness(t, &fakeStore{})
	h.media.err = errors.New("bucket unavailable")
	h.open(t)

	token, err := h.tl.SendImage(strings.NewReader("jpeg"), "file:///local.jpg")
	require.NoError(t, err)

	waitFor(t, func() bool { return len(h.tl.Messages()) == 0 })
	assert.Zero(t, h.store.insertCount(), "no partial message may be persisted")

	sendErr := <-h.errs
	assert.Contains(t, sendErr.Error(), "media upload")

	state, _ := h.tl.StateOf(token)
	assert.Equal(t, SendRejected, state)
}

func TestTextPersistFailureRollsBack(t *testing.T) {
	h := newHarness(t, &fakeStore{insertErr: errors.New("store down")})
	h.open(t)

	token, err := h.tl.SendText("hello")
	require.NoError(t, err)

	waitFor(t, func() bool { return len(h.tl.Messages()) == 0 })
	sendErr := <-h.errs
	assert.Contains(t, sendErr.Error(), "persist message")

	state, _ := h.tl.StateOf(token)
	assert.Equal(t, SendRejected, state)
}

func TestImageTwoPhaseSuccess(t *testing.T) {
	h := newHarness(t, &fakeStore{})
	h.open(t)

	token, err := h.tl.SendImage(strings.NewReader("jpeg"), "file:///local.jpg")
	require.NoError(t, err)

	msgs := h.tl.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "file:///local.jpg", msgs[0].MediaURL, "placeholder shows the local preview")

	waitFor(t, func() bool { return h.store.insertCount() == 1 })
	h.store.mu.Lock()
	req := h.store.inserted[0]
	h.store.mu.Unlock()
	assert.Equal(t, models.MessageImage, req.Kind)
	assert.Equal(t, "http://cdn/img.jpg", req.MediaURL, "persisted message points at the uploaded URL")

	event := confirmed("s9", "c1", "u1", "", token, time.Now())
	event.Kind = models.MessageImage
	event.MediaURL = "http://cdn/img.jpg"
	h.events.deliver(event)

	msgs = h.tl.Messages()
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Local)
	assert.Equal(t, "http://cdn/img.jpg", msgs[0].MediaURL)
}

func TestListStaysSortedByCreatedAt(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	store := &fakeStore{history: []models.Message{
		confirmed("s1", "c1", "u2", "first", "", base),
		confirmed("s2", "c1", "u2", "second", "", base.Add(time.Minute)),
	}}
	h := newHarness(t, store)
	h.open(t)

	_, err := h.tl.SendText("mine")
	require.NoError(t, err)

	// An event older than the history tail still lands in order.
	h.events.deliver(confirmed("s3", "c1", "u2", "late", "", base.Add(30*time.Second)))

	msgs := h.tl.Messages()
	require.Len(t, msgs, 4)
	assert.True(t, sort.SliceIsSorted(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	}))
	assert.Equal(t, "s3", msgs[1].MessageID)
}

func TestForeignEventLeavesPendingPlaceholder(t *testing.T) {
	h := newHarness(t, &fakeStore{})
	h.open(t)

	token, err := h.tl.SendText("mine")
	require.NoError(t, err)

	// The other participant's message confirms nothing of ours.
	h.events.deliver(confirmed("s1", "c1", "u2", "theirs", "other-token", time.Now()))

	msgs := h.tl.Messages()
	require.Len(t, msgs, 2)
	state, _ := h.tl.StateOf(token)
	assert.Equal(t, SendPending, state)

	h.events.deliver(confirmed("s2", "c1", "u1", "mine", token, time.Now()))
	msgs = h.tl.Messages()
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.False(t, m.Local)
	}
}

func TestConcurrentSendsResolveIndependently(t *testing.T) {
	h := newHarness(t, &fakeStore{})
	h.open(t)

	token1, err := h.tl.SendText("one")
	require.NoError(t, err)
	token2, err := h.tl.SendText("two")
	require.NoError(t, err)

	// Confirmations may arrive in any order; only the matching placeholder
	// is replaced.
	h.events.deliver(confirmed("s2", "c1", "u1", "two", token2, time.Now()))

	state1, _ := h.tl.StateOf(token1)
	state2, _ := h.tl.StateOf(token2)
	assert.Equal(t, SendPending, state1)
	assert.Equal(t, SendConfirmed, state2)

	locals := 0
	for _, m := range h.tl.Messages() {
		if m.Local {
			locals++
		}
	}
	assert.Equal(t, 1, locals)
}

func TestSendTimeoutRejectsPlaceholder(t *testing.T) {
	h := newHarness(t, &fakeStore{})
	h.tl.cfg.SendTimeout = 30 * time.Millisecond
	h.open(t)

	token, err := h.tl.SendText("lost")
	require.NoError(t, err)

	waitFor(t, func() bool { return len(h.tl.Messages()) == 0 })
	sendErr := <-h.errs
	assert.ErrorIs(t, sendErr, ErrSendTimeout)

	state, _ := h.tl.StateOf(token)
	assert.Equal(t, SendRejected, state)
}

func TestFetchFailureSurfacesEmptyList(t *testing.T) {
	store := &fakeStore{fetchErr: errors.New("connection refused")}
	h := newHarness(t, store)

	err := h.tl.Open(context.Background(), "c1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history fetch")
	assert.Empty(t, h.tl.Messages())

	// The subscription that did open must have been released.
	if h.events.sub != nil {
		waitFor(t, func() bool { return h.events.sub.closeCount() >= 1 })
	}
}

func TestTeardownIgnoresLateFetch(t *testing.T) {
	gate := make(chan struct{})
	store := &fakeStore{
		fetchGate: gate,
		history:   []models.Message{confirmed("s1", "c1", "u2", "old", "", time.Now())},
	}
	h := newHarness(t, store)

	openDone := make(chan error, 1)
	go func() { openDone <- h.tl.Open(context.Background(), "c1") }()

	waitFor(t, func() bool {
		h.events.mu.Lock()
		defer h.events.mu.Unlock()
		return h.events.handler != nil
	})
	h.tl.Close()
	close(gate)

	err := <-openDone
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, h.tl.Messages(), "late fetch result must not mutate torn-down state")
	waitFor(t, func() bool { return h.events.sub.closeCount() >= 1 })
}

func TestOpenMergesEventDeliveredDuringFetch(t *testing.T) {
	gate := make(chan struct{})
	at := time.Now()
	store := &fakeStore{
		fetchGate: gate,
		history:   []models.Message{confirmed("s1", "c1", "u2", "hi", "", at)},
	}
	h := newHarness(t, store)

	openDone := make(chan error, 1)
	go func() { openDone <- h.tl.Open(context.Background(), "c1") }()

	waitFor(t, func() bool {
		h.events.mu.Lock()
		defer h.events.mu.Unlock()
		return h.events.handler != nil
	})
	// The realtime channel races the bulk fetch and wins: the same message
	// arrives as an event before the history snapshot is merged.
	h.events.deliver(confirmed("s1", "c1", "u2", "hi", "", at))
	close(gate)
	require.NoError(t, <-openDone)

	msgs := h.tl.Messages()
	require.Len(t, msgs, 1, "one server id must yield one visible entry")
	assert.Equal(t, "s1", msgs[0].MessageID)
}

func TestCloseIsIdempotentAndStopsSends(t *testing.T) {
	h := newHarness(t, &fakeStore{})
	h.open(t)

	h.tl.Close()
	h.tl.Close()

	_, err := h.tl.SendText("after close")
	assert.ErrorIs(t, err, ErrClosed)
	waitFor(t, func() bool { return h.events.sub.closeCount() >= 1 })
}

func TestEventAfterCloseIsIgnored(t *testing.T) {
	h := newHarness(t, &fakeStore{})
	h.open(t)

	h.tl.Close()
	h.events.deliver(confirmed("s1", "c1", "u2", "late", "", time.Now()))
	assert.Empty(t, h.tl.Messages())
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	var (
		mu    sync.Mutex
		snaps [][]Message
	)
	h := newHarness(t, &fakeStore{})
	h.tl.cfg.OnChange = func(msgs []Message) {
		mu.Lock()
		snaps = append(snaps, msgs)
		mu.Unlock()
	}
	h.open(t)

	token, err := h.tl.SendText("hi")
	require.NoError(t, err)
	h.events.deliver(confirmed("s1", "c1", "u1", "hi", token, time.Now()))

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(snaps), 2)
	last := snaps[len(snaps)-1]
	require.Len(t, last, 1)
	assert.Equal(t, "s1", last[0].MessageID)
}
