package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSlotResolveOnce(t *testing.T) {
	s := newSlot()
	first := Result{Place: &PlaceOrderResult{OrderID: uuid.New()}}
	s.resolve(first)
	s.resolve(Result{Err: ErrOrderNotFound}) // ignored

	res, ok := s.Wait(time.Second)
	if !ok {
		t.Fatalf("resolved slot timed out")
	}
	if res.Place == nil || res.Place.OrderID != first.Place.OrderID {
		t.Errorf("second resolve overwrote the first")
	}
}

func TestSlotTimeout(t *testing.T) {
	s := newSlot()
	if _, ok := s.Wait(10 * time.Millisecond); ok {
		t.Fatalf("unresolved slot returned a result")
	}

	// A late resolution is delivered to nobody but must not block the
	// resolver - the channel is buffered.
	done := make(chan struct{})
	go func() {
		s.resolve(Result{Err: ErrOrderNotFound})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("late resolve blocked")
	}
}

func TestSlotResolveBeforeWait(t *testing.T) {
	s := newSlot()
	s.resolve(Result{Cancel: &CancelOrderResult{OrderID: uuid.New()}})

	res, ok := s.Wait(time.Second)
	if !ok || res.Cancel == nil {
		t.Fatalf("early resolution lost: ok=%v res=%+v", ok, res)
	}
}
