package ardrone

import (
	"sync/atomic"
	"testing"
	"time"
)

// recordingHooks counts ticks and lets the test control the connect
// outcome.
type recordingHooks struct {
	ticks        atomic.Int32
	connectState ServiceState
	disconnected atomic.Bool
}

func (h *recordingHooks) tick(reason WakeupReason)     { h.ticks.Add(1) }
func (h *recordingHooks) connectHook() ServiceState    { return h.connectState }
func (h *recordingHooks) disconnectHook()              { h.disconnected.Store(true) }

func TestServiceConnectThenTicksOnWakeup(t *testing.T) {
	h := &recordingHooks{connectState: StateConnected}
	s := newService(nil, "test", h)

	s.Connect()
	defer s.Disconnect()

	if s.State() != StateConnected {
		t.Fatalf("state = %v, want connected", s.State())
	}

	s.Wakeup(WakeupDataAvailable)
	deadline := time.Now().Add(time.Second)
	for h.ticks.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if h.ticks.Load() == 0 {
		t.Fatal("expected at least one tick after wakeup")
	}
}

func TestServiceConnectFailureTearsDownWorker(t *testing.T) {
	h := &recordingHooks{connectState: StateDisconnected}
	s := newService(nil, "test", h)

	s.Connect()

	if s.State() != StateDisconnected {
		t.Fatalf("state = %v, want disconnected", s.State())
	}
}

func TestServiceDisconnectRunsHook(t *testing.T) {
	h := &recordingHooks{connectState: StateConnected}
	s := newService(nil, "test", h)

	s.Connect()
	s.Disconnect()

	if !h.disconnected.Load() {
		t.Fatal("expected disconnectHook to run")
	}
	if s.State() != StateDisconnected {
		t.Fatalf("state = %v, want disconnected", s.State())
	}
}

func TestWakeupReasonAccumulatesAndClears(t *testing.T) {
	var seen []WakeupReason
	h := &funcHooks{
		tickFn: func(r WakeupReason) { seen = append(seen, r) },
	}
	s := newService(nil, "test", h)
	s.canSleep.Store(false)

	s.Wakeup(WakeupDataAvailable)
	s.Wakeup(WakeupUpdate)
	s.canTick.Store(true)

	// Drive one loop iteration manually instead of racing the real
	// goroutine, to assert the exact accumulated+cleared value.
	s.mu.Lock()
	reason := s.reason
	s.reason = 0
	s.mu.Unlock()

	if reason&uint32(WakeupDataAvailable) == 0 || reason&uint32(WakeupUpdate) == 0 {
		t.Fatalf("expected both bits accumulated, got %b", reason)
	}

	s.mu.Lock()
	cleared := s.reason
	s.mu.Unlock()
	if cleared != 0 {
		t.Fatalf("expected reason cleared, got %b", cleared)
	}
}

type funcHooks struct {
	tickFn func(WakeupReason)
}

func (h *funcHooks) tick(reason WakeupReason) {
	if h.tickFn != nil {
		h.tickFn(reason)
	}
}
func (h *funcHooks) connectHook() ServiceState { return StateConnected }
func (h *funcHooks) disconnectHook()           {}

