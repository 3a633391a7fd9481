package notify

import "sync"

// Event announces that a table changed. It carries no row data: receivers
// refetch whatever they display.
type Event struct {
	Table string `json:"table"`
}

// Subscription represents an active subscription.
type Subscription struct {
	id     int
	tables map[string]struct{}
	ch     chan Event
}

// Ch returns the channel to receive events on.
func (s *Subscription) Ch() <-chan Event {
	return s.ch
}

func (s *Subscription) wants(table string) bool {
	if len(s.tables) == 0 {
		return true
	}
	_, ok := s.tables[table]
	return ok
}

// Hub is an in-process change feed keyed by table name.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]*Subscription
	nextID int
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]*Subscription)}
}

// Subscribe registers interest in the given tables. No tables means every table.
// The channel holds a single pending event; further events published before
// the receiver drains it are coalesced into that one.
func (h *Hub) Subscribe(tables ...string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		tables: make(map[string]struct{}, len(tables)),
		ch:     make(chan Event, 1),
	}
	for _, t := range tables {
		sub.tables[t] = struct{}{}
	}
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
		close(sub.ch)
	}
}

// Notify publishes a change of table to every interested subscriber without blocking.
func (h *Hub) Notify(table string) {
	ev := Event{Table: table}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.wants(table) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
