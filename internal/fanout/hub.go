// Package fanout distributes change signals to session subscribers.
// Signals carry only the changed entity kind; clients reconcile by
// re-reading through the normal read path. Delivery is at-least-once and
// unordered, with repeat changes to one entity coalesced per subscriber.
package fanout

import (
	"sync"
)

// Hub routes change signals to per-session subscriber rooms.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*sessionRoom
}

// NewHub creates an empty fanout hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*sessionRoom)}
}

// Subscribe registers interest in a session's changes. An empty entity list
// subscribes to every entity kind. The caller must Close the subscription
// when done or the room leaks.
func (h *Hub) Subscribe(sessionID string, entities []string) *Subscription {
	sub := &Subscription{
		hub:       h,
		sessionID: sessionID,
		pending:   make(map[string]bool),
		signal:    make(chan struct{}, 1),
	}
	if len(entities) > 0 {
		sub.entities = make(map[string]bool, len(entities))
		for _, entity := range entities {
			sub.entities[entity] = true
		}
	}

	h.room(sessionID).join(sub)
	return sub
}

// Publish signals one entity change in a session. Subscribers that are not
// interested in the entity kind are skipped; nobody blocks.
func (h *Hub) Publish(sessionID string, entity string) {
	h.mu.Lock()
	room, ok := h.rooms[sessionID]
	h.mu.Unlock()
	if !ok {
		return
	}
	for _, sub := range room.subscribers() {
		sub.notify(entity)
	}
}

func (h *Hub) room(sessionID string) *sessionRoom {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[sessionID]
	if ok {
		return room
	}
	room = newSessionRoom()
	h.rooms[sessionID] = room
	return room
}

func (h *Hub) leave(sessionID string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	if room.leave(sub) {
		delete(h.rooms, sessionID)
	}
}

type sessionRoom struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func newSessionRoom() *sessionRoom {
	return &sessionRoom{subs: make(map[*Subscription]struct{})}
}

func (r *sessionRoom) join(sub *Subscription) {
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
}

func (r *sessionRoom) leave(sub *Subscription) bool {
	r.mu.Lock()
	delete(r.subs, sub)
	empty := len(r.subs) == 0
	r.mu.Unlock()
	return empty
}

func (r *sessionRoom) subscribers() []*Subscription {
	r.mu.Lock()
	subs := make([]*Subscription, 0, len(r.subs))
	for sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.Unlock()
	return subs
}

// Subscription is one subscriber's coalescing signal buffer. Changed fires
// when at least one entity changed since the last Drain.
type Subscription struct {
	hub       *Hub
	sessionID string
	entities  map[string]bool // nil means all entity kinds

	mu      sync.Mutex
	pending map[string]bool
	closed  bool
	signal  chan struct{}
}

// Changed returns a channel that receives when pending changes exist.
func (s *Subscription) Changed() <-chan struct{} {
	return s.signal
}

// Drain returns and clears the entity kinds changed since the last call.
func (s *Subscription) Drain() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	entities := make([]string, 0, len(s.pending))
	for entity := range s.pending {
		entities = append(entities, entity)
	}
	s.pending = make(map[string]bool)
	return entities
}

// Close releases the subscription and its room slot.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.hub.leave(s.sessionID, s)
}

func (s *Subscription) notify(entity string) {
	s.mu.Lock()
	if s.closed || (s.entities != nil && !s.entities[entity]) {
		s.mu.Unlock()
		return
	}
	s.pending[entity] = true
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}
