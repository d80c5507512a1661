package pubsub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return ""
	}
}

func TestSubscribeReplaysBoundedHistory(t *testing.T) {
	b := NewBroker(2)
	topic := LeagueTopic("l1")
	b.Publish(topic, []byte("one"))
	b.Publish(topic, []byte("two"))
	b.Publish(topic, []byte("three"))

	ch, unsubscribe := b.Subscribe(topic)
	defer unsubscribe()

	assert.Equal(t, "two", receive(t, ch))
	assert.Equal(t, "three", receive(t, ch))

	b.Publish(topic, []byte("four"))
	assert.Equal(t, "four", receive(t, ch))
}

func TestTopicsAreIsolated(t *testing.T) {
	b := NewBroker(0)
	a, unsubA := b.Subscribe(LeagueTopic("a"))
	defer unsubA()

	b.Publish(LeagueTopic("b"), []byte("for b"))
	b.Publish(LeagueTopic("a"), []byte("for a"))
	assert.Equal(t, "for a", receive(t, a))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker(0)
	ch, unsubscribe := b.Subscribe("t")
	assert.Equal(t, 1, b.Subscribers("t"))

	unsubscribe()
	unsubscribe()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.Subscribers("t"))
}

func TestCloseTopic(t *testing.T) {
	b := NewBroker(0)
	b.Publish("t", []byte("cached"))
	ch, unsubscribe := b.Subscribe("t")
	defer unsubscribe()
	assert.Equal(t, "cached", receive(t, ch))

	b.CloseTopic("t")
	_, ok := <-ch
	assert.False(t, ok)

	fresh, unsubFresh := b.Subscribe("t")
	defer unsubFresh()
	select {
	case msg := <-fresh:
		t.Fatalf("unexpected replay %q", msg)
	default:
	}
}

func TestFormatMessage(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal(FormatMessage("round_opened", map[string]int{"round": 2}), &msg))
	assert.Equal(t, "round_opened", msg.Stream)
	assert.JSONEq(t, `{"round":2}`, string(msg.Data))

	assert.Contains(t, string(FormatMessage("x", make(chan int))), `"stream":"error"`)
}
