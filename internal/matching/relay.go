package matching

import (
	"log"

	"github.com/driftchat/drift/internal/metrics"
	"github.com/driftchat/drift/internal/protocol"
)

// waitingNotice is the system text sent back to a client that chats without
// a partner.
const waitingNotice = "Waiting for a partner..."

// Relay routes chat and typing events from a connection to its current
// partner. It only reads partner state; it never mutates the queue or the
// partner/room maps, and every delivery is best-effort.
type Relay struct {
	store  *Store
	sender Sender
}

// NewRelay creates a Relay over the given store and sender.
func NewRelay(store *Store, sender Sender) *Relay {
	return &Relay{store: store, sender: sender}
}

// Chat forwards text from the sender to its partner. A partnerless sender
// gets a local system notice instead. Delivery failures are swallowed; a
// dead partner is cleaned up by its own disconnect path, not by the relay.
func (r *Relay) Chat(from, text string) {
	partner, ok := r.store.Partner(from)
	if !ok {
		notice, err := protocol.NewServerMessage(protocol.TypeSystem, protocol.SystemMsg{Text: waitingNotice})
		if err != nil {
			log.Printf("[relay] build system notice: %v", err)
			return
		}
		_ = r.sender.SendMessage(from, notice)
		metrics.MessagesRelayedTotal.WithLabelValues("system").Inc()
		return
	}

	msg, err := protocol.NewServerMessage(protocol.TypeChat, protocol.ServerChatMsg{Text: text})
	if err != nil {
		log.Printf("[relay] build chat message: %v", err)
		return
	}
	if err := r.sender.SendMessage(partner, msg); err != nil {
		log.Printf("[relay] chat to %s undeliverable: %v", partner, err)
		return
	}
	metrics.MessagesRelayedTotal.WithLabelValues("chat").Inc()
}

// Typing forwards a typing indicator to the sender's partner, or does
// nothing if there is none.
func (r *Relay) Typing(from string) {
	partner, ok := r.store.Partner(from)
	if !ok {
		return
	}

	msg, err := protocol.NewServerMessage(protocol.TypeTyping, protocol.ServerTypingMsg{})
	if err != nil {
		log.Printf("[relay] build typing message: %v", err)
		return
	}
	if err := r.sender.SendMessage(partner, msg); err != nil {
		return
	}
	metrics.MessagesRelayedTotal.WithLabelValues("typing").Inc()
}
