package matching

import (
	"log"

	"github.com/driftchat/drift/internal/protocol"
)

// Lifecycle orchestrates the per-connection state machine:
//
//	Connecting -> Waiting <-> Paired -> (Waiting | Closed)
//
// Connect, Next and Disconnect are the only entry points that move a
// connection between states. Each runs its store mutations through the
// store's critical section and invokes the matchmaker whenever queue
// membership changed, so pairing never waits for a tick.
type Lifecycle struct {
	store      *Store
	sender     Sender
	matchmaker *Matchmaker
}

// NewLifecycle creates a Lifecycle over the given store, sender and
// matchmaker.
func NewLifecycle(store *Store, sender Sender, matchmaker *Matchmaker) *Lifecycle {
	return &Lifecycle{store: store, sender: sender, matchmaker: matchmaker}
}

// Connect handles a freshly accepted connection: it is told it is searching,
// enters the waiting queue, and a pairing pass runs immediately.
func (l *Lifecycle) Connect(id string) {
	l.sendSearching(id)
	l.store.Enqueue(id)
	l.matchmaker.TryPairAll()
}

// Next handles an explicit request to leave the current pairing and find a
// new partner. The former partner is notified, re-queued, and told it is
// searching again. A next from a connection that is already waiting does
// not re-enqueue it (the queue refuses duplicates); the client just gets a
// fresh searching notice.
func (l *Lifecycle) Next(id string) {
	if partner, roomID, ok := l.store.Unpair(id); ok {
		l.notifyPartnerGone(partner, roomID)
		l.store.Enqueue(partner)
		l.sendSearching(partner)
	}

	l.store.Enqueue(id)
	l.sendSearching(id)
	l.matchmaker.TryPairAll()
}

// Disconnect removes a closed connection from all state. If it was paired,
// the orphaned partner is notified, re-queued, and immediately eligible for
// re-matching. Every send in this path is best-effort; a failure never
// aborts the cleanup.
func (l *Lifecycle) Disconnect(id string) {
	l.store.RemoveWaiting(id)

	if partner, roomID, ok := l.store.Unpair(id); ok {
		log.Printf("[lifecycle] %s left room %s, requeuing %s", id, roomID, partner)
		l.notifyPartnerGone(partner, roomID)
		l.store.Enqueue(partner)
		l.sendSearching(partner)
		l.matchmaker.TryPairAll()
		return
	}

	publishGauges(l.store)
}

// sendSearching tells a client it is in the waiting queue. Failures are
// swallowed: an unreachable client is cleaned up by its own disconnect.
func (l *Lifecycle) sendSearching(id string) {
	msg, err := protocol.NewServerMessage(protocol.TypeSearching, protocol.SearchingMsg{})
	if err != nil {
		log.Printf("[lifecycle] build searching message: %v", err)
		return
	}
	_ = l.sender.SendMessage(id, msg)
}

// notifyPartnerGone sends a best-effort partner_disconnect carrying the room
// that just dissolved.
func (l *Lifecycle) notifyPartnerGone(partner, roomID string) {
	msg, err := protocol.NewServerMessage(protocol.TypePartnerDisconnect, protocol.PartnerDisconnectMsg{RoomID: roomID})
	if err != nil {
		log.Printf("[lifecycle] build partner_disconnect message: %v", err)
		return
	}
	_ = l.sender.SendMessage(partner, msg)
}
