package services

import (
	"encoding/json"
	"testing"
	"time"

	"betchat/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	t.Cleanup(h.Close)
	return h
}

func recvFrame(t *testing.T, sub *Subscriber) Frame {
	t.Helper()
	select {
	case raw, ok := <-sub.Send:
		require.True(t, ok, "subscriber queue closed")
		var f Frame
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
		return Frame{}
	}
}

func TestHubDeliversToChatSubscribersOnly(t *testing.T) {
	h := newTestHub(t)

	subA1 := NewSubscriber()
	subA2 := NewSubscriber()
	subB := NewSubscriber()
	h.Subscribe("chat-a", subA1)
	h.Subscribe("chat-a", subA2)
	h.Subscribe("chat-b", subB)

	msg := models.Message{MessageID: "m1", ChatID: "chat-a", Kind: models.MessageText, Content: "hi"}
	h.PublishInsert(msg)

	for _, sub := range []*Subscriber{subA1, subA2} {
		f := recvFrame(t, sub)
		assert.Equal(t, FrameInsert, f.Type)
		assert.Equal(t, "chat-a", f.ChatID)
		require.NotNil(t, f.Message)
		assert.Equal(t, "m1", f.Message.MessageID)
	}

	select {
	case raw := <-subB.Send:
		t.Fatalf("chat-b subscriber received foreign frame: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDeliveryPreservesPublishOrder(t *testing.T) {
	h := newTestHub(t)
	sub := NewSubscriber()
	h.Subscribe("c1", sub)

	for _, id := range []string{"m1", "m2", "m3"} {
		h.PublishInsert(models.Message{MessageID: id, ChatID: "c1"})
	}
	for _, want := range []string{"m1", "m2", "m3"} {
		f := recvFrame(t, sub)
		assert.Equal(t, want, f.Message.MessageID)
	}
}

func TestHubUnsubscribeIsIdempotent(t *testing.T) {
	h := newTestHub(t)
	sub := NewSubscriber()
	h.Subscribe("c1", sub)

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)

	// Queue is closed once, and no further frames arrive.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub.Send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscriber queue was never closed")
		}
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	h := newTestHub(t)
	slow := NewSubscriber()
	h.Subscribe("c1", slow)

	// Never drained: once the buffer is full the hub drops the subscriber.
	for i := 0; i < cap(slow.Send)+8; i++ {
		h.PublishInsert(models.Message{MessageID: "m", ChatID: "c1"})
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-slow.Send:
			if !ok {
				return // dropped and closed
			}
		case <-deadline:
			t.Fatal("slow subscriber was never dropped")
		}
	}
}
