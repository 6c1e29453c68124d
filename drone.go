package ardrone

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-ardrone/drone2/internal/tracing"
)

// DroneState is the coordinator's own connection state, distinct from
// any one service's ServiceState.
type DroneState int32

const (
	DroneDisconnected DroneState = iota
	DroneConnecting
	DroneConnectionFailed
	DroneConnected
)

func (d DroneState) String() string {
	switch d {
	case DroneDisconnected:
		return "disconnected"
	case DroneConnecting:
		return "connecting"
	case DroneConnectionFailed:
		return "connection-failed"
	case DroneConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// connectGracePeriod is how long Update tolerates a still-Connecting
// service without a fresh navdata frame before declaring the overall
// connection failed.
const connectGracePeriod = 2100 * time.Millisecond

// NavdataSubscriber receives every published telemetry frame together
// with the service that produced it.
type NavdataSubscriber func(svc Service, nd *Navdata)

// navdataObserver is implemented by services that want a first look at
// every navdata frame regardless of the coordinator's own state (control
// and config use this to drive their own state machines even while the
// coordinator itself is still Connecting).
type navdataObserver interface {
	onNavdata(nd *Navdata)
}

// Drone coordinates the set of services that make up one connection to
// an AR.Drone 2.0: it owns their lifecycle, aggregates the navdata
// options each wants enabled, and fans out published telemetry to
// subscribers.
type Drone struct {
	host string

	mu       sync.Mutex
	services []Service
	byName   map[string]Service

	at  *ATService
	nav *NavdataService
	cfg *ConfigService

	state atomic.Int32

	subMu       sync.Mutex
	subscribers []NavdataSubscriber

	lastNavdata     *Navdata
	lastNavdataFrom Service
	freshData       bool
	lastMessage     time.Time

	needsNavdataOptionsUpdate bool
	pushedNavdataOptions      uint32
	demoFlag                  bool
}

// NewDrone constructs a coordinator for the drone reachable at host
// (typically "192.168.1.1" for a stock AR.Drone 2.0 access point) and
// eagerly builds the three services every session needs: AT, Navdata
// and Config. Additional services (Control, Video, a custom planner)
// are registered separately with AddService.
func NewDrone(host string) *Drone {
	d := &Drone{host: host, byName: make(map[string]Service)}
	d.at = NewATService(d, host)
	d.nav = NewNavdataService(d, host)
	d.cfg = NewConfigService(d, host, d.at)
	d.AddService(d.at)
	d.AddService(d.nav)
	d.AddService(d.cfg)
	return d
}

// Host returns the drone's configured address.
func (d *Drone) Host() string { return d.host }

// AT returns the drone's own AT command service, constructed eagerly
// by NewDrone. Additional services (Control, Video) are built against
// this instance rather than a service of their own.
func (d *Drone) AT() *ATService { return d.at }

// NavdataService returns the drone's own telemetry service.
func (d *Drone) NavdataService() *NavdataService { return d.nav }

// ConfigService returns the drone's own configuration service.
func (d *Drone) ConfigService() *ConfigService { return d.cfg }

// State returns the coordinator's own connection state.
func (d *Drone) State() DroneState { return DroneState(d.state.Load()) }

// AddService registers svc under its own name; GetService then returns
// svc for that name. A service added earlier under the same name is not
// removed: it stays in the list that Connect, Update and Disconnect
// walk. Additional services may only be added while Disconnected.
func (d *Drone) AddService(svc Service) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if DroneState(d.state.Load()) != DroneDisconnected {
		return
	}
	d.services = append(d.services, svc)
	d.byName[svc.Name()] = svc
}

// GetService returns the registered service for name, if any.
func (d *Drone) GetService(name string) (Service, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	svc, ok := d.byName[name]
	return svc, ok
}

// Subscribe registers fn to receive published navdata. While the
// drone is Connecting (not yet Connected), external subscribers
// registered here are held back; only services implementing
// navdataObserver see frames during that window. fn starts receiving
// frames once the coordinator reaches Connected.
func (d *Drone) Subscribe(fn NavdataSubscriber) {
	d.subMu.Lock()
	d.subscribers = append(d.subscribers, fn)
	d.subMu.Unlock()
}

// LastNavdata returns the most recently published frame, if any.
func (d *Drone) LastNavdata() (*Navdata, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastNavdata == nil {
		return nil, false
	}
	nd := *d.lastNavdata
	return &nd, true
}

// Connect starts every registered service and drives Update until the
// coordinator settles into Connected or ConnectionFailed.
func (d *Drone) Connect() {
	d.ConnectContext(context.Background())
}

// ConnectContext is Connect wrapped in a span covering the full
// handshake — service startup, the priming AT commands, and the
// Update loop until the coordinator settles — so a slow or failing
// connect shows up as one trace rather than scattered child spans.
func (d *Drone) ConnectContext(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "ardrone.connect")
	defer span.End()

	d.connectAsync()
	for d.State() == DroneConnecting {
		d.Update()
	}
}

// connectAsync starts every registered service without waiting for the
// result; call Update (directly, or via Connect) to drive the
// handshake to completion.
func (d *Drone) connectAsync() {
	if d.State() != DroneDisconnected {
		return
	}
	d.state.Store(int32(DroneConnecting))

	d.mu.Lock()
	d.lastMessage = time.Now()
	d.needsNavdataOptionsUpdate = true
	d.pushedNavdataOptions = 0
	d.demoFlag = false
	d.mu.Unlock()

	d.at.Connect()
	d.nav.Connect()

	// Undocumented, but the drone's own companion app sends these at
	// startup; this mirrors that rather than guessing at their effect.
	d.at.Send(NewATCommand("PMODE", uint32(2)))
	d.at.Send(NewATCommand("MISC", uint32(2), uint32(20), uint32(2000), uint32(3000)))

	d.cfg.Connect()

	d.mu.Lock()
	services := append([]Service(nil), d.services...)
	d.mu.Unlock()
	for _, svc := range services {
		svc.Connect()
	}
}

// Disconnect tears down every registered service, AT/Navdata/Config last.
func (d *Drone) Disconnect() {
	if d.State() == DroneDisconnected {
		return
	}

	d.mu.Lock()
	services := append([]Service(nil), d.services...)
	d.mu.Unlock()

	for _, svc := range services {
		if svc == Service(d.at) || svc == Service(d.nav) || svc == Service(d.cfg) {
			continue
		}
		svc.Disconnect()
	}
	d.cfg.Disconnect()
	d.nav.Disconnect()
	d.at.Disconnect()

	d.state.Store(int32(DroneDisconnected))
}

// Update drives the coordinator: while Connecting it promotes to
// Connected once every service has settled, or to ConnectionFailed if a
// service drops or the connect grace period elapses without fresh
// telemetry. Every call also pushes an updated navdata-options mask
// when the aggregate changes, runs each service's host-thread update
// hook, and dispatches any freshly published navdata. Call this from
// the host's own loop at whatever rate suits the application; it never
// blocks on the network.
func (d *Drone) Update() {
	state := d.State()
	if state != DroneConnected && state != DroneConnecting {
		return
	}

	d.mu.Lock()
	services := append([]Service(nil), d.services...)
	d.mu.Unlock()

	if state == DroneConnecting {
		hasConnecting := false
		for _, svc := range services {
			switch svc.State() {
			case StateDisconnected, StateDisconnecting:
				d.state.Store(int32(DroneConnectionFailed))
				return
			case StateConnecting:
				hasConnecting = true
			}
		}

		if hasConnecting {
			d.mu.Lock()
			elapsed := time.Since(d.lastMessage)
			d.mu.Unlock()
			if elapsed >= connectGracePeriod {
				d.state.Store(int32(DroneConnectionFailed))
				return
			}
		} else {
			d.state.Store(int32(DroneConnected))
			state = DroneConnected
		}
	}

	d.mu.Lock()
	needsUpdate := d.needsNavdataOptionsUpdate
	d.mu.Unlock()
	if needsUpdate {
		options := uint32(1) << uint(TagDemo)
		for _, svc := range services {
			options |= svc.NavdataOptions()
		}

		d.mu.Lock()
		changed := options != d.pushedNavdataOptions
		if changed {
			d.pushedNavdataOptions = options
		}
		d.needsNavdataOptionsUpdate = false
		d.mu.Unlock()

		if changed {
			d.cfg.Send("general:navdata_options", strconv.FormatUint(uint64(options), 10), nil)
		}
	}

	for _, svc := range services {
		if u, ok := svc.(updater); ok {
			u.update()
		}
	}

	d.mu.Lock()
	fresh := d.freshData
	nd := d.lastNavdata
	from := d.lastNavdataFrom
	d.freshData = false
	d.mu.Unlock()

	if !fresh {
		return
	}

	for _, svc := range services {
		if obs, ok := svc.(navdataObserver); ok {
			obs.onNavdata(nd)
		}
	}

	if state == DroneConnected {
		d.subMu.Lock()
		subs := append([]NavdataSubscriber(nil), d.subscribers...)
		d.subMu.Unlock()
		for _, sub := range subs {
			sub(from, nd)
		}
	}
}

// setNeedsNavdataOptionsUpdate flags that the aggregated navdata-options
// mask must be recomputed and, if changed, re-pushed on the next Update.
func (d *Drone) setNeedsNavdataOptionsUpdate() {
	d.mu.Lock()
	d.needsNavdataOptionsUpdate = true
	d.mu.Unlock()
}

// publishNavdata is called by NavdataService on every accepted frame.
// While still Connecting, a bootstrap frame (no options attached yet)
// triggers a one-shot "general:navdata_demo" config write so the drone
// starts sending full telemetry; the latch only clears again if that
// write fails, so it is never resent on every subsequent bootstrap
// frame. The frame itself is only stored here — Update is what
// actually promotes the coordinator and dispatches it to subscribers.
func (d *Drone) publishNavdata(from Service, nd *Navdata) {
	if d.State() == DroneConnecting && nd.IsBootstrap() {
		d.mu.Lock()
		alreadySent := d.demoFlag
		d.mu.Unlock()

		if !alreadySent {
			d.mu.Lock()
			d.demoFlag = true
			d.mu.Unlock()
			d.cfg.Send("general:navdata_demo", "TRUE", func(err error) {
				if err != nil {
					d.mu.Lock()
					d.demoFlag = false
					d.mu.Unlock()
				}
			})
		}
	}

	d.mu.Lock()
	d.lastNavdata = nd
	d.lastNavdataFrom = from
	d.freshData = true
	d.lastMessage = time.Now()
	d.mu.Unlock()
}

// ServiceAs type-asserts a registered Service to a concrete type, e.g.
//
//	if ctl, ok := d.GetService("control"); ok {
//		cs, _ := ardrone.ServiceAs[*ControlService](ctl)
//	}
func ServiceAs[T Service](svc Service) (T, bool) {
	t, ok := svc.(T)
	return t, ok
}

// RequiredNavdataOptions aggregates the navdata-options bitmap every
// registered service wants enabled, ORed together with the Demo tag
// (which is always requested).
func (d *Drone) RequiredNavdataOptions() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	bits := uint32(1) << uint(TagDemo)
	for _, svc := range d.services {
		bits |= svc.NavdataOptions()
	}
	return bits
}
