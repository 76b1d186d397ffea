// Package protocol defines the WebSocket message types and structures used for
// communication between the client and server. All messages are serialized as
// JSON and follow a consistent envelope format with a type discriminator.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeChat   = "chat"
	TypeTyping = "typing"
	TypeNext   = "next"
	TypePing   = "ping"
)

// Server -> Client message types. TypeChat and TypeTyping are shared with the
// inbound direction: the relay forwards them under the same discriminator.
const (
	TypeSearching         = "searching"
	TypeMatched           = "matched"
	TypePartnerDisconnect = "partner_disconnect"
	TypeSystem            = "system"
	TypePong              = "pong"
)

// ---------------------------------------------------------------------------
// Envelope — used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements the json.Unmarshaler interface. It captures the
// full raw bytes and extracts only the "type" field so that the rest of the
// payload can be decoded later into the appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	// Capture the full raw message for deferred parsing.
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	// Extract only the type field.
	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// ChatMsg is a text message sent by the client for relay to its partner.
type ChatMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TypingMsg signals that the client is typing. It carries no payload; the
// indicator is relayed as-is and expires client-side.
type TypingMsg struct {
	Type string `json:"type"`
}

// NextMsg is sent by the client to leave its current pairing and re-enter
// the waiting queue.
type NextMsg struct {
	Type string `json:"type"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// SearchingMsg tells the client it is in the waiting queue.
type SearchingMsg struct {
	Type string `json:"type"`
}

// MatchedMsg tells the client it has been paired, carrying the shared room id.
type MatchedMsg struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

// ServerChatMsg is a text message relayed from the partner.
type ServerChatMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ServerTypingMsg relays the partner's typing indicator.
type ServerTypingMsg struct {
	Type string `json:"type"`
}

// PartnerDisconnectMsg tells the client its partner left the room, either by
// disconnecting or by requesting the next partner.
type PartnerDisconnectMsg struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

// SystemMsg is a local notice from the server to one client, never relayed.
type SystemMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// It returns the message type string and the decoded struct.
//
// There is no error path: payloads that are not parseable JSON (or whose
// fields do not decode) degrade to a chat message whose text is the raw
// payload, preserving compatibility with clients that send bare text. Valid
// JSON carrying an unrecognized or missing type yields a nil message, which
// callers are expected to ignore.
func ParseClientMessage(data []byte) (string, interface{}) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return TypeChat, ChatMsg{Type: TypeChat, Text: string(data)}
	}

	switch env.Type {
	case TypeChat:
		var m ChatMsg
		if err := json.Unmarshal(env.Raw, &m); err != nil {
			return TypeChat, ChatMsg{Type: TypeChat, Text: string(data)}
		}
		return TypeChat, m
	case TypeTyping:
		return TypeTyping, TypingMsg{Type: TypeTyping}
	case TypeNext:
		return TypeNext, NextMsg{Type: TypeNext}
	case TypePing:
		return TypePing, PingMsg{Type: TypePing}
	default:
		return env.Type, nil
	}
}

// NewServerMessage creates a JSON-encoded byte slice for a server message.
// The msgType is injected into the payload under the "type" key. The payload
// should be one of the server message structs; this function marshals it to
// JSON, injects the type field, and returns the final bytes.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	// Marshal the payload struct to a generic map so we can ensure the "type"
	// field is present and correct.
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}
