package matching

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
)

// fakeSender records decoded outbound frames per connection and can be told
// to fail sends to specific connections, simulating an unreachable peer.
type fakeSender struct {
	mu   sync.Mutex
	sent map[string][]map[string]interface{}
	fail map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		sent: make(map[string][]map[string]interface{}),
		fail: make(map[string]bool),
	}
}

func (f *fakeSender) SendMessage(id string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail[id] {
		return fmt.Errorf("send to %s failed", id)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("fake sender: bad frame for %s: %w", id, err)
	}
	f.sent[id] = append(f.sent[id], m)
	return nil
}

func (f *fakeSender) failOn(id string) {
	f.mu.Lock()
	f.fail[id] = true
	f.mu.Unlock()
}

// messages returns the decoded frames delivered to id, oldest first.
func (f *fakeSender) messages(id string) []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]interface{}, len(f.sent[id]))
	copy(out, f.sent[id])
	return out
}

// types returns just the type discriminators delivered to id.
func (f *fakeSender) types(id string) []string {
	msgs := f.messages(id)
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i], _ = m["type"].(string)
	}
	return out
}

// lastOfType returns the most recent frame of the given type sent to id.
func (f *fakeSender) lastOfType(t *testing.T, id, msgType string) map[string]interface{} {
	t.Helper()
	msgs := f.messages(id)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i]["type"] == msgType {
			return msgs[i]
		}
	}
	t.Fatalf("no %q message delivered to %s (got %v)", msgType, id, f.types(id))
	return nil
}

func TestTryPairAll_PairsTwoOldest(t *testing.T) {
	store := NewStore()
	sender := newFakeSender()
	mm := NewMatchmaker(store, sender)

	store.Enqueue("c1")
	store.Enqueue("c2")
	store.Enqueue("c3")

	mm.TryPairAll()

	if p, _ := store.Partner("c1"); p != "c2" {
		t.Errorf("expected c1 paired with c2, got %q", p)
	}
	if _, ok := store.Partner("c3"); ok {
		t.Error("c3 should remain unpaired")
	}
	if store.WaitingLen() != 1 {
		t.Errorf("expected c3 left waiting, queue length %d", store.WaitingLen())
	}

	m1 := sender.lastOfType(t, "c1", "matched")
	m2 := sender.lastOfType(t, "c2", "matched")
	if m1["roomId"] == "" || m1["roomId"] != m2["roomId"] {
		t.Errorf("both sides should share one room id, got %v and %v", m1["roomId"], m2["roomId"])
	}
	assertInvariants(t, store)
}

func TestTryPairAll_EmptyAndSingleAreNoops(t *testing.T) {
	store := NewStore()
	sender := newFakeSender()
	mm := NewMatchmaker(store, sender)

	mm.TryPairAll()

	store.Enqueue("c1")
	mm.TryPairAll()

	if store.WaitingLen() != 1 {
		t.Errorf("lone client should stay queued, queue length %d", store.WaitingLen())
	}
	if len(sender.messages("c1")) != 0 {
		t.Errorf("no messages expected, got %v", sender.types("c1"))
	}
}

func TestTryPairAll_DrainsWholeQueue(t *testing.T) {
	store := NewStore()
	sender := newFakeSender()
	mm := NewMatchmaker(store, sender)

	for i := 1; i <= 4; i++ {
		store.Enqueue(fmt.Sprintf("c%d", i))
	}

	mm.TryPairAll()

	if store.WaitingLen() != 0 {
		t.Errorf("expected an empty queue, got length %d", store.WaitingLen())
	}
	if store.PairedCount() != 4 {
		t.Errorf("expected 4 paired connections, got %d", store.PairedCount())
	}

	// Room ids are unique per pairing event.
	r1 := sender.lastOfType(t, "c1", "matched")["roomId"]
	r3 := sender.lastOfType(t, "c3", "matched")["roomId"]
	if r1 == r3 {
		t.Errorf("distinct pairs must not share a room id: %v", r1)
	}
	assertInvariants(t, store)
}

func TestTryPairAll_RollbackWhenFirstNotifyFails(t *testing.T) {
	store := NewStore()
	sender := newFakeSender()
	mm := NewMatchmaker(store, sender)

	sender.failOn("c1")
	store.Enqueue("c1")
	store.Enqueue("c2")

	mm.TryPairAll()

	if store.PairedCount() != 0 {
		t.Errorf("failed notify must undo the pairing, %d connections still paired", store.PairedCount())
	}
	if store.WaitingLen() != 1 {
		t.Fatalf("the healthy side should be requeued, queue length %d", store.WaitingLen())
	}
	if len(sender.messages("c2")) != 0 {
		t.Errorf("c2 should not have been notified, got %v", sender.types("c2"))
	}
	assertInvariants(t, store)

	// A healthy newcomer pairs with the requeued survivor.
	store.Enqueue("c3")
	mm.TryPairAll()

	if p, _ := store.Partner("c2"); p != "c3" {
		t.Errorf("expected c2 paired with c3 after rollback, got %q", p)
	}
	assertInvariants(t, store)
}

func TestTryPairAll_RollbackWhenSecondNotifyFails(t *testing.T) {
	store := NewStore()
	sender := newFakeSender()
	mm := NewMatchmaker(store, sender)

	sender.failOn("c2")
	store.Enqueue("c1")
	store.Enqueue("c2")

	mm.TryPairAll()

	if store.PairedCount() != 0 {
		t.Errorf("failed notify must undo the pairing, %d connections still paired", store.PairedCount())
	}
	if store.WaitingLen() != 1 {
		t.Fatalf("the notified side should be requeued, queue length %d", store.WaitingLen())
	}

	// c1 was told it matched, so it must also learn the partner vanished.
	got := sender.types("c1")
	want := []string{"matched", "partner_disconnect"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected c1 to receive %v, got %v", want, got)
	}

	matched := sender.lastOfType(t, "c1", "matched")
	gone := sender.lastOfType(t, "c1", "partner_disconnect")
	if matched["roomId"] != gone["roomId"] {
		t.Errorf("partner_disconnect should name the undone room: %v vs %v", matched["roomId"], gone["roomId"])
	}
	assertInvariants(t, store)
}

func TestTryPairAll_EncodeFailureRequeuesBothSides(t *testing.T) {
	store := NewStore()
	sender := newFakeSender()
	mm := NewMatchmaker(store, sender)
	mm.encode = func(msgType string, payload interface{}) ([]byte, error) {
		return nil, fmt.Errorf("encode %s failed", msgType)
	}

	store.Enqueue("c1")
	store.Enqueue("c2")

	mm.TryPairAll()

	if store.PairedCount() != 0 {
		t.Errorf("no pairing should survive, %d connections still paired", store.PairedCount())
	}
	if store.WaitingLen() != 2 {
		t.Fatalf("both sides should be back in the queue, length %d", store.WaitingLen())
	}
	if len(sender.messages("c1"))+len(sender.messages("c2")) != 0 {
		t.Errorf("no frames should have been sent, got %v and %v", sender.types("c1"), sender.types("c2"))
	}
	assertInvariants(t, store)

	// Original order is preserved for the next pass.
	a, b, ok := store.DequeuePair()
	if !ok || a != "c1" || b != "c2" {
		t.Errorf("expected (c1, c2) at the head of the queue, got (%s, %s)", a, b)
	}
}

func TestTryPairAll_SurvivorJumpsQueueAfterRollback(t *testing.T) {
	store := NewStore()
	sender := newFakeSender()
	mm := NewMatchmaker(store, sender)

	// c1 is unreachable; c3 is already waiting behind the doomed pair.
	sender.failOn("c1")
	store.Enqueue("c1")
	store.Enqueue("c2")
	store.Enqueue("c3")

	mm.TryPairAll()

	// c2 re-entered at the front and paired with c3 in the same pass.
	if p, _ := store.Partner("c2"); p != "c3" {
		t.Errorf("expected survivor c2 paired with c3, got %q", p)
	}
	if store.WaitingLen() != 0 {
		t.Errorf("expected empty queue, got length %d", store.WaitingLen())
	}
	assertInvariants(t, store)
}
