package pubsub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// DefaultHistory is how many recent messages a topic replays to a new subscriber.
const DefaultHistory = 32

// Broker is a small in-memory pub/sub used to fan league events out to
// websocket clients.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan []byte // topic -> list of subscriber channels
	cache       map[string][][]byte      // topic -> most recent messages
	history     int
}

type Message struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// NewBroker returns a broker that keeps at most history messages per topic.
func NewBroker(history int) *Broker {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Broker{
		subscribers: make(map[string][]chan []byte),
		cache:       make(map[string][][]byte),
		history:     history,
	}
}

// LeagueTopic names the topic carrying a league's round events.
func LeagueTopic(leagueID string) string {
	return "league:" + leagueID
}

// Subscribe subscribes to a topic. The cached history is queued on the channel
// before any live message.
func (b *Broker) Subscribe(topic string) (<-chan []byte, func()) {
	b.mu.Lock()

	history := b.cache[topic]
	ch := make(chan []byte, b.history+64)
	for _, msg := range history {
		ch <- msg
	}
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subscribers := b.subscribers[topic]
			for i, sub := range subscribers {
				if sub == ch {
					b.subscribers[topic] = append(subscribers[:i], subscribers[i+1:]...)
					close(ch)
					break
				}
			}
			if len(b.subscribers[topic]) == 0 {
				delete(b.subscribers, topic)
			}
			zap.S().Debugf("unsubscribed from topic %s", topic)
		})
	}

	zap.S().Debugf("new subscription to topic %s, replayed %d cached messages", topic, len(history))
	return ch, unsubscribe
}

// Publish sends msg to every live subscriber of topic and caches it.
func (b *Broker) Publish(topic string, msg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cached := append(b.cache[topic], msg)
	if len(cached) > b.history {
		cached = cached[len(cached)-b.history:]
	}
	b.cache[topic] = cached

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		default:
			// slow subscriber, drop
		}
	}
}

// Subscribers reports the number of live subscribers on topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// CloseTopic closes all subscriber channels and clears the cache for a topic.
func (b *Broker) CloseTopic(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers[topic] {
		close(ch)
	}
	delete(b.subscribers, topic)
	delete(b.cache, topic)
	zap.S().Infof("closed pubsub topic %s and cleared cache", topic)
}

// FormatMessage wraps data, which must marshal to JSON, in a stream envelope.
func FormatMessage(stream string, data interface{}) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		return []byte(`{"stream":"error","data":"json format error"}`)
	}
	bytes, err := json.Marshal(Message{Stream: stream, Data: raw})
	if err != nil {
		return []byte(`{"stream":"error","data":"json format error"}`)
	}
	return bytes
}
