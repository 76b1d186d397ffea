// Package matching implements the matchmaking and session-lifecycle engine:
// the shared waiting queue, the pairing algorithm, partner/room bookkeeping,
// and the disconnect/next re-queuing protocol.
package matching

import "sync"

// Store holds the shared matchmaking state: the FIFO waiting queue, the
// symmetric partner map, and the room map. A single mutex guards all three
// structures so that every multi-structure mutation is atomic; no caller
// ever observes a half-established pair or a connection that is both
// waiting and paired.
//
// Connections are identified by their session ID. The store never talks to
// the network; notification sends belong to the Matchmaker and Lifecycle.
type Store struct {
	mu       sync.Mutex
	waiting  []string            // FIFO queue of session IDs
	queued   map[string]struct{} // membership guard for waiting
	partners map[string]string   // session -> partner session, symmetric
	rooms    map[string]string   // session -> room id, identical for a pair
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		queued:   make(map[string]struct{}),
		partners: make(map[string]string),
		rooms:    make(map[string]string),
	}
}

// Enqueue appends id to the tail of the waiting queue. If the connection is
// already waiting the call is a no-op and returns false, so a client can
// never hold two queue slots.
func (s *Store) Enqueue(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queued[id]; ok {
		return false
	}
	s.waiting = append(s.waiting, id)
	s.queued[id] = struct{}{}
	return true
}

// EnqueueFront inserts id at the head of the waiting queue. It is used by
// the matchmaker's rollback path so a client whose pairing was undone by the
// other side's send failure is matched first on the next pass. Like Enqueue,
// it refuses duplicates.
func (s *Store) EnqueueFront(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queued[id]; ok {
		return false
	}
	s.waiting = append([]string{id}, s.waiting...)
	s.queued[id] = struct{}{}
	return true
}

// DequeuePair removes and returns the two oldest waiting connections. It
// returns ok=false without mutating anything when fewer than two clients
// are waiting.
func (s *Store) DequeuePair() (a, b string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.waiting) < 2 {
		return "", "", false
	}
	a, b = s.waiting[0], s.waiting[1]
	s.waiting = s.waiting[2:]
	delete(s.queued, a)
	delete(s.queued, b)
	return a, b, true
}

// RemoveWaiting removes id from the waiting queue if present. It is
// idempotent and returns whether an entry was actually removed.
func (s *Store) RemoveWaiting(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queued[id]; !ok {
		return false
	}
	delete(s.queued, id)
	for i, w := range s.waiting {
		if w == id {
			s.waiting = append(s.waiting[:i], s.waiting[i+1:]...)
			break
		}
	}
	return true
}

// EstablishPair writes the symmetric partner entries and the shared room id
// for a and b in one critical section.
func (s *Store) EstablishPair(a, b, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.partners[a] = b
	s.partners[b] = a
	s.rooms[a] = roomID
	s.rooms[b] = roomID
}

// UndoPair reverses EstablishPair for a and b, but only if that exact
// pairing is still intact. This makes the matchmaker's compensating
// rollback safe against a concurrent disconnect that already unpaired one
// side. Returns whether anything was undone.
func (s *Store) UndoPair(a, b string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.partners[a] != b {
		return false
	}
	delete(s.partners, a)
	delete(s.partners, b)
	delete(s.rooms, a)
	delete(s.rooms, b)
	return true
}

// Unpair atomically removes id and its partner from the partner and room
// maps. It returns the former partner and the shared room id, or ok=false
// if id was not paired.
func (s *Store) Unpair(id string) (partner, roomID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	partner, ok = s.partners[id]
	if !ok {
		return "", "", false
	}
	roomID = s.rooms[id]
	delete(s.partners, id)
	delete(s.partners, partner)
	delete(s.rooms, id)
	delete(s.rooms, partner)
	return partner, roomID, true
}

// Partner returns id's current partner without mutating anything.
func (s *Store) Partner(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	partner, ok := s.partners[id]
	return partner, ok
}

// Room returns the room id shared by id and its partner.
func (s *Store) Room(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, ok := s.rooms[id]
	return roomID, ok
}

// WaitingLen returns the current length of the waiting queue.
func (s *Store) WaitingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiting)
}

// PairedCount returns the number of currently paired connections (twice the
// number of rooms).
func (s *Store) PairedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.partners)
}
