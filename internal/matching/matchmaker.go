package matching

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/driftchat/drift/internal/metrics"
	"github.com/driftchat/drift/internal/protocol"
)

// Sender delivers an outbound frame to the connection identified by id. A
// non-nil error means the peer is unreachable; callers use it only to drive
// compensating state cleanup and never propagate it further.
type Sender interface {
	SendMessage(id string, data []byte) error
}

// Matchmaker drains the waiting queue two-at-a-time and establishes rooms.
// It is invoked opportunistically after every event that changes queue
// membership so pairing progresses eagerly instead of on a fixed tick.
type Matchmaker struct {
	store  *Store
	sender Sender
	mu     sync.Mutex // serializes pairing passes
	encode func(msgType string, payload interface{}) ([]byte, error)
}

// NewMatchmaker creates a Matchmaker over the given store and sender.
func NewMatchmaker(store *Store, sender Sender) *Matchmaker {
	return &Matchmaker{store: store, sender: sender, encode: protocol.NewServerMessage}
}

// TryPairAll pairs waiting connections until fewer than two remain. For each
// pair it generates a fresh room id, commits the pairing, and notifies both
// sides with a matched message.
//
// If notifying the first side fails, the pairing is undone and the second
// side re-enters the queue at the front. If the first notify succeeds but
// the second fails, the pairing is undone, the first side gets a best-effort
// partner_disconnect, and it re-enters the queue at the front. Either way a
// send failure never strands the unaffected party outside the queue.
//
// Concurrent invocations are serialized so two passes cannot interleave
// their pair/notify sequences.
func (m *Matchmaker) TryPairAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer publishGauges(m.store)

	for {
		a, b, ok := m.store.DequeuePair()
		if !ok {
			return
		}

		roomID := uuid.NewString()
		m.store.EstablishPair(a, b, roomID)

		matched, err := m.encode(protocol.TypeMatched, protocol.MatchedMsg{RoomID: roomID})
		if err != nil {
			// Neither side was notified and neither peer failed, so both
			// go back where they came from. Encoding is deterministic, so
			// end the pass rather than retry the same failure.
			log.Printf("[matchmaker] build matched message: %v", err)
			m.store.UndoPair(a, b)
			m.store.EnqueueFront(b)
			m.store.EnqueueFront(a)
			metrics.PairRollbacksTotal.Inc()
			return
		}

		if err := m.sender.SendMessage(a, matched); err != nil {
			log.Printf("[matchmaker] notify %s failed, undoing room %s: %v", a, roomID, err)
			m.rollback(a, b, roomID, false)
			continue
		}

		if err := m.sender.SendMessage(b, matched); err != nil {
			log.Printf("[matchmaker] notify %s failed, undoing room %s: %v", b, roomID, err)
			m.rollback(b, a, roomID, true)
			continue
		}

		metrics.PairsTotal.Inc()
		log.Printf("[matchmaker] paired %s and %s in room %s", a, b, roomID)
	}
}

// publishGauges refreshes the queue-depth and active-pair gauges from the
// store's current counts.
func publishGauges(s *Store) {
	metrics.WaitingQueueSize.Set(float64(s.WaitingLen()))
	metrics.ActivePairs.Set(float64(s.PairedCount() / 2))
}

// rollback undoes the pairing between the failed connection and the healthy
// survivor, then re-inserts the survivor at the front of the queue. When the
// survivor was already told it was matched (notified), it first gets a
// best-effort partner_disconnect so its client state does not point at a
// room the server no longer knows about.
func (m *Matchmaker) rollback(failed, survivor, roomID string, notified bool) {
	m.store.UndoPair(failed, survivor)

	if notified {
		if pd, err := m.encode(protocol.TypePartnerDisconnect, protocol.PartnerDisconnectMsg{RoomID: roomID}); err == nil {
			_ = m.sender.SendMessage(survivor, pd)
		}
	}

	m.store.EnqueueFront(survivor)
	metrics.PairRollbacksTotal.Inc()
}
