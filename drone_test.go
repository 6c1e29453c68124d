package ardrone

import (
	"testing"
	"time"
)

type stubService struct {
	name    string
	state   ServiceState
	options uint32
	seen    int
}

func (s *stubService) Name() string               { return s.name }
func (s *stubService) State() ServiceState        { return s.state }
func (s *stubService) Connect()                   { s.state = StateConnected }
func (s *stubService) Disconnect()                { s.state = StateDisconnected }
func (s *stubService) Wakeup(reason WakeupReason) {}
func (s *stubService) NavdataOptions() uint32     { return s.options }
func (s *stubService) onNavdata(nd *Navdata)      { s.seen++ }

func TestDroneAddAndGetService(t *testing.T) {
	d := NewDrone("192.168.1.1")
	svc := &stubService{name: "at"}
	d.AddService(svc)

	got, ok := d.GetService("at")
	if !ok || got != svc {
		t.Fatal("expected to retrieve the registered service by name")
	}

	_, ok = d.GetService("missing")
	if ok {
		t.Fatal("expected lookup of unregistered name to fail")
	}
}

func TestDroneRequiredNavdataOptionsAggregates(t *testing.T) {
	d := NewDrone("192.168.1.1")
	d.AddService(&stubService{name: "a", options: 0b0001})
	d.AddService(&stubService{name: "b", options: 0b0110})

	if got := d.RequiredNavdataOptions(); got != 0b0111 {
		t.Fatalf("RequiredNavdataOptions = %b, want %b", got, 0b0111)
	}
}

// TestDronePublishNavdataFansOutOnceConnected exercises the split drawn
// from ARDrone.cpp: publishNavdata only stores a frame, Update is what
// dispatches it, and external subscribers only see frames once the
// coordinator itself has reached Connected.
func TestDronePublishNavdataFansOutOnceConnected(t *testing.T) {
	d := NewDrone("192.168.1.1")

	var received int
	d.Subscribe(func(svc Service, nd *Navdata) { received++ })

	d.state.Store(int32(DroneConnected))

	d.publishNavdata(nil, &Navdata{Sequence: 1})
	d.Update()
	d.publishNavdata(nil, &Navdata{Sequence: 2})
	d.Update()

	if received != 2 {
		t.Fatalf("received %d navdata callbacks, want 2", received)
	}
	if d.State() != DroneConnected {
		t.Fatalf("state = %v, want connected", d.State())
	}
}

// TestDroneNavdataObserverFiresWhileConnecting exercises the other half
// of that split: a registered navdataObserver service sees every frame
// even before the coordinator has promoted to Connected, while external
// subscribers stay silent until then.
func TestDroneNavdataObserverFiresWhileConnecting(t *testing.T) {
	d := NewDrone("192.168.1.1")
	obs := &stubService{name: "obs", state: StateConnecting}
	d.AddService(obs)
	d.at.state.Store(int32(StateConnecting))
	d.nav.state.Store(int32(StateConnecting))
	d.cfg.state.Store(int32(StateConnecting))

	var received int
	d.Subscribe(func(svc Service, nd *Navdata) { received++ })

	d.state.Store(int32(DroneConnecting))
	d.mu.Lock()
	d.lastMessage = time.Now()
	d.mu.Unlock()

	d.publishNavdata(nil, &Navdata{Sequence: 1, State: NavdataStateBootstrap})
	d.Update()

	if obs.seen != 1 {
		t.Fatalf("observer saw %d frames, want 1", obs.seen)
	}
	if received != 0 {
		t.Fatalf("external subscriber saw %d frames while connecting, want 0", received)
	}
}

func TestDroneLastNavdata(t *testing.T) {
	d := NewDrone("192.168.1.1")
	if _, ok := d.LastNavdata(); ok {
		t.Fatal("expected no last navdata before anything published")
	}

	d.publishNavdata(nil, &Navdata{Sequence: 7})
	nd, ok := d.LastNavdata()
	if !ok || nd.Sequence != 7 {
		t.Fatalf("LastNavdata = %+v, %v", nd, ok)
	}
}

