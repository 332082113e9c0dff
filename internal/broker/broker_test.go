package broker

import (
	"testing"
	"time"

	"github.com/sgarila/dirigent/pkg/models"
)

func TestSendReceiveFIFO(t *testing.T) {
	b := New()

	first := models.NewMessage("a1", "a2", models.MessageTypeRequest, map[string]any{"n": 1})
	second := models.NewMessage("a1", "a2", models.MessageTypeRequest, map[string]any{"n": 2})

	if !b.Send(first) || !b.Send(second) {
		t.Fatal("sends should succeed")
	}
	if first.Status != models.MessageStatusDelivered {
		t.Errorf("status after send = %q, want delivered", first.Status)
	}
	if got := b.QueueSize("a2"); got != 2 {
		t.Fatalf("queue size = %d, want 2", got)
	}

	msg := b.Receive("a2")
	if msg == nil || msg.ID != first.ID {
		t.Fatal("receive should return the oldest message")
	}
	if msg.Status != models.MessageStatusProcessed {
		t.Errorf("status after receive = %q, want processed", msg.Status)
	}
	if msg = b.Receive("a2"); msg == nil || msg.ID != second.ID {
		t.Fatal("second receive should return the second message")
	}
	if b.Receive("a2") != nil {
		t.Error("empty queue should return nil")
	}
}

func TestSendFullQueueRejects(t *testing.T) {
	b := New(WithMaxQueueSize(1))

	if !b.Send(models.NewMessage("a1", "a2", models.MessageTypeRequest, nil)) {
		t.Fatal("first send should succeed")
	}
	rejected := models.NewMessage("a1", "a2", models.MessageTypeRequest, nil)
	if b.Send(rejected) {
		t.Fatal("send to full queue should fail")
	}
	if rejected.Status != models.MessageStatusFailed {
		t.Errorf("rejected status = %q, want failed", rejected.Status)
	}
	if got := b.QueueSize("a2"); got != 1 {
		t.Errorf("queue size = %d, want 1", got)
	}

	// Draining frees capacity for the receiver.
	b.Receive("a2")
	if !b.Send(models.NewMessage("a1", "a2", models.MessageTypeRequest, nil)) {
		t.Error("send after drain should succeed")
	}
}

func TestHandlerInvokedAndPanicContained(t *testing.T) {
	b := New()

	var seen []string
	b.RegisterHandler("a2", func(msg *models.Message) {
		seen = append(seen, msg.ID)
	})
	b.RegisterHandler("a2", func(msg *models.Message) {
		panic("handler bug")
	})

	msg := models.NewMessage("a1", "a2", models.MessageTypeRequest, nil)
	if !b.Send(msg) {
		t.Fatal("send should succeed despite panicking handler")
	}
	if len(seen) != 1 || seen[0] != msg.ID {
		t.Errorf("handler saw %v, want [%s]", seen, msg.ID)
	}
	// The message still sits on the queue for the receiver to consume.
	if got := b.QueueSize("a2"); got != 1 {
		t.Errorf("queue size = %d, want 1", got)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	b := New()
	for i := 0; i < 3; i++ {
		b.Send(models.NewMessage("a1", "a2", models.MessageTypeRequest, nil))
	}

	if got := len(b.Peek("a2", 2)); got != 2 {
		t.Errorf("peek(2) returned %d messages, want 2", got)
	}
	if got := len(b.Peek("a2", 0)); got != 3 {
		t.Errorf("peek(0) returned %d messages, want all 3", got)
	}
	if got := b.QueueSize("a2"); got != 3 {
		t.Errorf("queue size after peek = %d, want 3", got)
	}
}

func TestGetByID(t *testing.T) {
	b := New()
	msg := models.NewMessage("a1", "a2", models.MessageTypeRequest, nil)
	b.Send(msg)

	got, ok := b.Get(msg.ID)
	if !ok || got.ID != msg.ID {
		t.Fatal("sent message should be retrievable by ID")
	}
	if _, ok := b.Get("msg_unknown"); ok {
		t.Error("unknown ID should not be found")
	}
}

func TestBroadcastClonesPerRecipient(t *testing.T) {
	b := New(WithMaxQueueSize(1))
	// Pre-fill one recipient so its clone is rejected.
	b.Send(models.NewMessage("x", "a3", models.MessageTypeRequest, nil))

	msg := models.NewMessage("a1", "", models.MessageTypeBroadcast, map[string]any{"note": "hello"})
	sent := b.Broadcast(msg, []string{"a2", "a3", "a4"})
	if sent != 2 {
		t.Fatalf("broadcast delivered %d, want 2", sent)
	}

	got := b.Receive("a2")
	if got.ID == msg.ID {
		t.Error("broadcast clone should have a fresh ID")
	}
	if got.ReceiverID != "a2" {
		t.Errorf("clone receiver = %q, want a2", got.ReceiverID)
	}
	// Mutating one clone's payload must not leak into another's.
	got.Payload["note"] = "changed"
	if other := b.Receive("a4"); other.Payload["note"] != "hello" {
		t.Error("clone payloads should be independent")
	}
}

func TestCleanupExpired(t *testing.T) {
	b := New()

	old := models.NewMessage("a1", "a2", models.MessageTypeRequest, nil)
	b.Send(old)
	old.CreatedAt = time.Now().Add(-2 * time.Hour)
	fresh := models.NewMessage("a1", "a2", models.MessageTypeRequest, nil)
	b.Send(fresh)

	if removed := b.CleanupExpired(time.Hour); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if old.Status != models.MessageStatusExpired {
		t.Errorf("old status = %q, want expired", old.Status)
	}
	if got := b.Receive("a2"); got == nil || got.ID != fresh.ID {
		t.Error("fresh message should survive cleanup")
	}
}

func TestStats(t *testing.T) {
	b := New(WithMaxQueueSize(1))
	b.Send(models.NewMessage("a1", "a2", models.MessageTypeRequest, nil))
	b.Send(models.NewMessage("a1", "a2", models.MessageTypeRequest, nil)) // rejected
	b.Send(models.NewMessage("a1", "a3", models.MessageTypeRequest, nil))
	b.Receive("a3")

	stats := b.Stats()
	if stats.TotalSent != 2 || stats.TotalDelivered != 2 || stats.TotalFailed != 1 {
		t.Errorf("counters = %d/%d/%d, want 2/2/1",
			stats.TotalSent, stats.TotalDelivered, stats.TotalFailed)
	}
	if stats.TotalPending != 1 || stats.PendingByAgent["a2"] != 1 {
		t.Errorf("pending = %d (a2=%d), want 1 (a2=1)",
			stats.TotalPending, stats.PendingByAgent["a2"])
	}
	if stats.HistorySize != 2 {
		t.Errorf("history size = %d, want 2", stats.HistorySize)
	}
}
