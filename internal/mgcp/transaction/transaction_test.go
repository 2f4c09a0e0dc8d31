package transaction

import (
	"testing"
	"time"

	"github.com/sebas/mgcpgw/internal/mgcp/message"
)

func TestTransactionLifecycle(t *testing.T) {
	req := &message.Request{Verb: message.CRCX, TransactionID: 42}
	start := time.Unix(0, 0)
	tr := New(req, start)

	if tr.State != InProgress {
		t.Fatalf("new transaction state = %v, want IN_PROGRESS", tr.State)
	}

	tr.Complete(&message.Response{TransactionID: 42, Code: 200})
	if tr.State != Completed || !tr.State.IsTerminal() {
		t.Fatalf("state after Complete = %v", tr.State)
	}
}

func TestTransactionExpired(t *testing.T) {
	req := &message.Request{TransactionID: 1}
	start := time.Unix(0, 0)
	tr := New(req, start)

	if tr.Expired(start.Add(29*time.Second), 30*time.Second) {
		t.Error("should not be expired before timeout elapses")
	}
	if !tr.Expired(start.Add(31*time.Second), 30*time.Second) {
		t.Error("should be expired after timeout elapses")
	}

	tr.Fail(406, "timeout")
	if tr.Expired(start.Add(60*time.Second), 30*time.Second) {
		t.Error("a terminal transaction is never expired")
	}
}

func TestRecentBufferEviction(t *testing.T) {
	buf := NewRecentBuffer(2)
	t1 := &Transaction{ID: 1}
	t2 := &Transaction{ID: 2}
	t3 := &Transaction{ID: 3}

	buf.Put(t1)
	buf.Put(t2)
	buf.Put(t3) // evicts t1 (least recently used)

	if _, ok := buf.Get(1); ok {
		t.Error("expected id 1 to be evicted")
	}
	if _, ok := buf.Get(2); !ok {
		t.Error("expected id 2 to still be present")
	}
	if _, ok := buf.Get(3); !ok {
		t.Error("expected id 3 to still be present")
	}
	if buf.Len() != 2 {
		t.Errorf("Len() = %d, want 2", buf.Len())
	}
}

func TestRecentBufferRefreshesRecency(t *testing.T) {
	buf := NewRecentBuffer(2)
	buf.Put(&Transaction{ID: 1})
	buf.Put(&Transaction{ID: 2})

	buf.Get(1) // touch 1 so 2 becomes the LRU entry
	buf.Put(&Transaction{ID: 3})

	if _, ok := buf.Get(2); ok {
		t.Error("expected id 2 to be evicted after id 1 was refreshed")
	}
	if _, ok := buf.Get(1); !ok {
		t.Error("expected id 1 to survive since it was refreshed")
	}
}
