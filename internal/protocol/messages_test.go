package protocol

import (
	"encoding/json"
	"testing"
)

// ---------------------------------------------------------------------------
// Test: Parsing valid client messages
// ---------------------------------------------------------------------------

func TestParseClientMessage_Chat(t *testing.T) {
	msgType, msg := ParseClientMessage([]byte(`{"type":"chat","text":"Hello!"}`))

	if msgType != TypeChat {
		t.Fatalf("expected type %q, got %q", TypeChat, msgType)
	}
	cm, ok := msg.(ChatMsg)
	if !ok {
		t.Fatalf("expected ChatMsg, got %T", msg)
	}
	if cm.Text != "Hello!" {
		t.Errorf("expected text %q, got %q", "Hello!", cm.Text)
	}
}

func TestParseClientMessage_AllTypes(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		wantType string
	}{
		{"chat", `{"type":"chat","text":"hi"}`, TypeChat},
		{"typing", `{"type":"typing"}`, TypeTyping},
		{"next", `{"type":"next"}`, TypeNext},
		{"ping", `{"type":"ping"}`, TypePing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msgType, msg := ParseClientMessage([]byte(tc.input))
			if msgType != tc.wantType {
				t.Errorf("expected type %q, got %q", tc.wantType, msgType)
			}
			if msg == nil {
				t.Error("expected non-nil message")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Test: Malformed payloads degrade to chat messages
// ---------------------------------------------------------------------------

func TestParseClientMessage_BareTextFallsBackToChat(t *testing.T) {
	raw := "just plain text, no JSON here"

	msgType, msg := ParseClientMessage([]byte(raw))
	if msgType != TypeChat {
		t.Fatalf("expected fallback to %q, got %q", TypeChat, msgType)
	}
	cm, ok := msg.(ChatMsg)
	if !ok {
		t.Fatalf("expected ChatMsg, got %T", msg)
	}
	if cm.Text != raw {
		t.Errorf("fallback text should be the raw payload, got %q", cm.Text)
	}
}

func TestParseClientMessage_BadFieldTypeFallsBackToChat(t *testing.T) {
	raw := `{"type":"chat","text":12345}`

	msgType, msg := ParseClientMessage([]byte(raw))
	if msgType != TypeChat {
		t.Fatalf("expected fallback to %q, got %q", TypeChat, msgType)
	}
	cm := msg.(ChatMsg)
	if cm.Text != raw {
		t.Errorf("fallback text should be the raw payload, got %q", cm.Text)
	}
}

// ---------------------------------------------------------------------------
// Test: Unrecognized and missing types are ignored, not rejected
// ---------------------------------------------------------------------------

func TestParseClientMessage_UnknownTypeIgnored(t *testing.T) {
	msgType, msg := ParseClientMessage([]byte(`{"type":"teleport","target":"mars"}`))
	if msgType != "teleport" {
		t.Errorf("expected the unknown type to be reported, got %q", msgType)
	}
	if msg != nil {
		t.Errorf("unknown types should yield a nil message, got %v", msg)
	}
}

func TestParseClientMessage_MissingTypeIgnored(t *testing.T) {
	msgType, msg := ParseClientMessage([]byte(`{"text":"no discriminator"}`))
	if msgType != "" {
		t.Errorf("expected empty type, got %q", msgType)
	}
	if msg != nil {
		t.Errorf("valid JSON without a type should yield a nil message, got %v", msg)
	}
}

// ---------------------------------------------------------------------------
// Test: Server message construction
// ---------------------------------------------------------------------------

func TestNewServerMessage_Matched(t *testing.T) {
	data, err := NewServerMessage(TypeMatched, MatchedMsg{RoomID: "room-uuid-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if result["type"] != TypeMatched {
		t.Errorf("expected type %q, got %v", TypeMatched, result["type"])
	}
	if result["roomId"] != "room-uuid-1" {
		t.Errorf("expected roomId %q, got %v", "room-uuid-1", result["roomId"])
	}
}

func TestNewServerMessage_InjectsTypeOverPayload(t *testing.T) {
	// The discriminator always wins, even if the payload struct carried a
	// stale Type value.
	data, err := NewServerMessage(TypeSystem, SystemMsg{Type: "bogus", Text: "notice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if result["type"] != TypeSystem {
		t.Errorf("expected type %q, got %v", TypeSystem, result["type"])
	}
	if result["text"] != "notice" {
		t.Errorf("expected text %q, got %v", "notice", result["text"])
	}
}

// ---------------------------------------------------------------------------
// Test: Envelope edge cases
// ---------------------------------------------------------------------------

func TestEnvelope_InvalidJSON(t *testing.T) {
	var env Envelope
	if err := json.Unmarshal([]byte(`{invalid json}`), &env); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestEnvelope_CapturesRawPayload(t *testing.T) {
	input := []byte(`{"type":"chat","text":"hi"}`)
	var env Envelope
	if err := json.Unmarshal(input, &env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Type != TypeChat {
		t.Errorf("expected type %q, got %q", TypeChat, env.Type)
	}
	if string(env.Raw) != string(input) {
		t.Errorf("raw payload not preserved: %s", env.Raw)
	}
}
