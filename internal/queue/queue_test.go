package queue

import (
	"testing"
	"time"

	"github.com/kartikbazzad/tskv/internal/errors"
	"github.com/kartikbazzad/tskv/internal/types"
)

func TestQueue_FIFOOrder(t *testing.T) {
	q := New(4)

	for i := uint64(1); i <= 3; i++ {
		if err := q.Push(&Entry{QID: types.QID{Node: "n", Counter: i}}); err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}

	for i := uint64(1); i <= 3; i++ {
		e, ok := q.BlockingPop()
		if !ok {
			t.Fatal("BlockingPop: queue closed early")
		}
		if e.QID.Counter != i {
			t.Fatalf("pop %d: got counter %d", i, e.QID.Counter)
		}
	}
}

func TestQueue_Backpressure(t *testing.T) {
	q := New(1)

	if err := q.Push(&Entry{}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := q.Push(&Entry{}); err != errors.ErrQueueFull {
		t.Fatalf("Push over capacity: got %v, want ErrQueueFull", err)
	}
}

func TestQueue_BlockingPopBlocks(t *testing.T) {
	q := New(1)

	popped := make(chan *Entry, 1)
	go func() {
		e, _ := q.BlockingPop()
		popped <- e
	}()

	select {
	case <-popped:
		t.Fatal("BlockingPop returned with empty queue")
	case <-time.After(20 * time.Millisecond):
	}

	want := &Entry{QID: types.QID{Node: "n", Counter: 42}}
	if err := q.Push(want); err != nil {
		t.Fatalf("Push: %v", err)
	}

	select {
	case got := <-popped:
		if got != want {
			t.Fatal("popped a different entry")
		}
	case <-time.After(time.Second):
		t.Fatal("BlockingPop did not wake up")
	}
}

func TestQueue_Stop(t *testing.T) {
	q := New(2)
	q.Push(&Entry{QID: types.QID{Counter: 1}})
	q.Stop()

	if err := q.Push(&Entry{}); err != errors.ErrQueueStopped {
		t.Fatalf("Push after Stop: got %v, want ErrQueueStopped", err)
	}

	// Remaining entries drain, then ok flips false
	if e, ok := q.BlockingPop(); !ok || e.QID.Counter != 1 {
		t.Fatalf("drain: got (%v, %v)", e, ok)
	}
	if _, ok := q.BlockingPop(); ok {
		t.Fatal("BlockingPop after drain must report closed")
	}
}
