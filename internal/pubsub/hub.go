// Package pubsub implements channel and glob-pattern publish/subscribe
// fan-out. State here is the one structure in this server that is read and
// written from multiple connections' goroutines concurrently (every other
// mutation funnels through a single per-database executor), so it is
// guarded by its own mutex per §5's "pub/sub tables... a concurrent-safe
// map suffices" note.
package pubsub

import (
	"sync"

	"github.com/echojfree/mini-redis/internal/keyspace"
	"github.com/echojfree/mini-redis/internal/resp"
)

// Subscriber is the minimal surface Hub needs from a connection: a way to
// deliver a message frame and a stable identity for removal.
type Subscriber interface {
	ID() int64
	Deliver(v resp.Value) error
}

// Hub tracks channel and pattern subscriptions and performs PUBLISH fan-out.
type Hub struct {
	mu       sync.Mutex
	channels map[string]map[int64]Subscriber
	patterns map[string]map[int64]Subscriber
}

func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[int64]Subscriber),
		patterns: make(map[string]map[int64]Subscriber),
	}
}

func (h *Hub) Subscribe(channel string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[int64]Subscriber)
	}
	h.channels[channel][s.ID()] = s
}

func (h *Hub) Unsubscribe(channel string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.channels[channel], id)
	if len(h.channels[channel]) == 0 {
		delete(h.channels, channel)
	}
}

func (h *Hub) PSubscribe(pattern string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.patterns[pattern] == nil {
		h.patterns[pattern] = make(map[int64]Subscriber)
	}
	h.patterns[pattern][s.ID()] = s
}

func (h *Hub) PUnsubscribe(pattern string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.patterns[pattern], id)
	if len(h.patterns[pattern]) == 0 {
		delete(h.patterns, pattern)
	}
}

// RemoveAll drops every subscription belonging to id, called on connection
// close regardless of what the connection thought it was subscribed to.
func (h *Hub) RemoveAll(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, subs := range h.channels {
		delete(subs, id)
		if len(subs) == 0 {
			delete(h.channels, ch)
		}
	}
	for pat, subs := range h.patterns {
		delete(subs, id)
		if len(subs) == 0 {
			delete(h.patterns, pat)
		}
	}
}

// Publish delivers payload to every direct subscriber of channel and every
// subscriber of a pattern matching channel, returning the total delivery
// count — a subscriber matched by two patterns (or a pattern and a direct
// subscription) counts twice, per the spec's delivery-counting rule.
func (h *Hub) Publish(channel, payload string) int {
	h.mu.Lock()
	type delivery struct {
		sub   Subscriber
		frame resp.Value
	}
	var deliveries []delivery
	for id, s := range h.channels[channel] {
		_ = id
		deliveries = append(deliveries, delivery{
			sub: s,
			frame: resp.NewArray([]resp.Value{
				resp.NewBulkString("message"),
				resp.NewBulkString(channel),
				resp.NewBulkString(payload),
			}),
		})
	}
	for pattern, subs := range h.patterns {
		if !keyspace.Match(pattern, channel) {
			continue
		}
		for _, s := range subs {
			deliveries = append(deliveries, delivery{
				sub: s,
				frame: resp.NewArray([]resp.Value{
					resp.NewBulkString("pmessage"),
					resp.NewBulkString(pattern),
					resp.NewBulkString(channel),
					resp.NewBulkString(payload),
				}),
			})
		}
	}
	h.mu.Unlock()

	for _, d := range deliveries {
		_ = d.sub.Deliver(d.frame)
	}
	return len(deliveries)
}
