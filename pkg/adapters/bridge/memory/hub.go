package memory

import (
	"context"
	"sync"

	"github.com/aescanero/dapipe/pkg/domain"
)

// Hub implements ports.Bridge by fanning messages out to in-process
// subscribers. Slow subscribers miss messages instead of blocking senders.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int]*subscription
	nextID      int
	history     []domain.Message
	limit       int
}

type subscription struct {
	topic string
	ch    chan domain.Message
}

// NewHub creates a hub that remembers the last historyLimit messages
func NewHub(historyLimit int) *Hub {
	return &Hub{
		subscribers: make(map[int]*subscription),
		limit:       historyLimit,
	}
}

// Send delivers msg to every subscriber of its topic
func (h *Hub) Send(ctx context.Context, msg domain.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.limit > 0 {
		h.history = append(h.history, msg)
		if len(h.history) > h.limit {
			h.history = h.history[len(h.history)-h.limit:]
		}
	}

	for _, sub := range h.subscribers {
		if sub.topic != "" && sub.topic != msg.Topic {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			// subscriber buffer full
		}
	}

	return nil
}

// Subscribe returns a channel receiving messages for topic, or for every
// topic when topic is empty. The channel is closed once ctx is done.
func (h *Hub) Subscribe(ctx context.Context, topic string, buffer int) <-chan domain.Message {
	sub := &subscription{
		topic: topic,
		ch:    make(chan domain.Message, buffer),
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = sub
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.unsubscribe(id)
	}()

	return sub.ch
}

// Messages returns the remembered messages, oldest first
func (h *Hub) Messages() []domain.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.Message, len(h.history))
	copy(out, h.history)
	return out
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close drops every subscription
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subscribers {
		close(sub.ch)
		delete(h.subscribers, id)
	}
	return nil
}

func (h *Hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscribers[id]; ok {
		close(sub.ch)
		delete(h.subscribers, id)
	}
}
