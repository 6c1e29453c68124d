package ardrone

import (
	"sync"
	"sync/atomic"
	"time"
)

// FlyState mirrors the drone's own flight state, derived from the
// control-state nibble in OptionDemo.CtrlState (bits 16+).
type FlyState int32

const (
	FlyStateLanded FlyState = iota
	FlyStateTakingOff
	FlyStateFlying
	FlyStateLanding
	FlyStateEmergency
)

func (f FlyState) String() string {
	switch f {
	case FlyStateLanded:
		return "landed"
	case FlyStateTakingOff:
		return "taking-off"
	case FlyStateFlying:
		return "flying"
	case FlyStateLanding:
		return "landing"
	case FlyStateEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// controlState values are the drone's own ctrl_state enum, carried in
// the top 16 bits of OptionDemo.CtrlState.
const (
	controlStateDefault uint32 = iota
	controlStateInit
	controlStateLanded
	controlStateFlying
	controlStateHovering
	controlStateTest
	controlStateTakeOff
	controlStateGotoFix
	controlStateLanding
	controlStateLooping
)

const (
	refMagicBits    uint32 = (1 << 18) | (1 << 20) | (1 << 22) | (1 << 24) | (1 << 28)
	refFlyingBit    uint32 = 1 << 9
	refEmergencyBit uint32 = 1 << 8
)

// pilotCommand is the latched piloting vector, continuously re-sent
// every control tick (not a one-shot event) exactly as AT*PCMD is
// meant to be used: the drone treats silence as "go to neutral", so
// the caller's last SetPiloting wins until replaced.
type pilotCommand struct {
	X, Y, Z, Yaw float32
}

// ControlService owns the piloting watchdog: it re-sends the current
// REF/PCMD state on every tick, which — because the worker loop's
// condvar wait caps at 10ms — happens well above the 33 Hz floor the
// drone's own internal watchdog requires to avoid an automatic
// landing.
type ControlService struct {
	*service

	at *ATService

	mu         sync.Mutex
	direction  pilotCommand
	hover      bool
	wantFlying bool
	wantFtrim  bool
	emergency  bool
	hasNavdata bool

	flyState atomic.Int32
	lastTick time.Time
}

// NewControlService constructs the control service. at is the drone's
// AT service, used to send REF/PCMD commands.
func NewControlService(drone *Drone, at *ATService) *ControlService {
	s := &ControlService{at: at}
	s.service = newService(drone, "control", s)
	return s
}

func (s *ControlService) connectHook() ServiceState {
	s.mu.Lock()
	s.direction = pilotCommand{}
	s.hover = true
	s.wantFlying = false
	s.wantFtrim = false
	s.emergency = false
	s.hasNavdata = false
	s.mu.Unlock()
	s.flyState.Store(int32(FlyStateLanded))
	s.lastTick = time.Time{}
	return StateConnected
}

func (s *ControlService) disconnectHook() {}

// SetPiloting latches the piloting vector sent on every subsequent
// tick until replaced. Each component is clamped to [-1, 1]; a
// non-negligible x/z request clears the hover flag, mirroring
// SetDirection.
func (s *ControlService) SetPiloting(x, y, z, yaw float32) {
	x = clamp11(x)
	y = clamp11(y)
	z = clamp11(z)
	yaw = clamp11(yaw)

	s.mu.Lock()
	s.direction = pilotCommand{X: x, Y: y, Z: z, Yaw: yaw}
	if absf32(x) > 0.01 || absf32(z) > 0.01 {
		s.hover = false
	}
	s.mu.Unlock()
}

func clamp11(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Hover zeroes the horizontal (x, z) components of the latched
// direction and re-asserts the hover flag, i.e. "stop moving and hold
// position"; the vertical (y) component and the yaw rate are kept.
func (s *ControlService) Hover() {
	s.mu.Lock()
	s.direction.X = 0
	s.direction.Z = 0
	s.hover = true
	s.mu.Unlock()
}

// Ftrim requests a flat-trim calibration on the next tick after the
// first navdata frame. AT*FTRIM is sent only if the drone is observed
// Landed at that tick; otherwise the request is dropped.
func (s *ControlService) Ftrim() {
	s.mu.Lock()
	s.wantFtrim = true
	s.mu.Unlock()
}

// TakeOff latches the flying-request bit, but only while the last
// observed FlyState is Landed, a request isn't already pending and the
// emergency latch is clear — repeating the call while already flying
// (or mid take-off) is a no-op, matching the drone's own idempotent
// handling.
func (s *ControlService) TakeOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wantFlying || s.emergency || FlyState(s.flyState.Load()) != FlyStateLanded {
		return
	}
	s.wantFlying = true
	s.direction = pilotCommand{}
	s.hover = true
}

// Land clears the flying-request bit, but only once the drone is
// actually observed Flying.
func (s *ControlService) Land() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wantFlying && FlyState(s.flyState.Load()) == FlyStateFlying {
		s.wantFlying = false
	}
}

// SetEmergency latches (or clears) the emergency bit. While latched,
// every other piloting command is suppressed and any pending
// take-off request is cancelled.
func (s *ControlService) SetEmergency(v bool) {
	s.mu.Lock()
	changed := s.emergency != v
	s.emergency = v
	if v {
		s.wantFlying = false
	}
	s.mu.Unlock()
	if changed {
		emergencyLatchTransitions.Inc()
	}
}

// HasEmergency reports whether the emergency bit is currently latched.
func (s *ControlService) HasEmergency() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emergency
}

// IsHovering reports whether the drone is currently commanded to hold
// position rather than move under an active direction vector.
func (s *ControlService) IsHovering() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hover
}

// GetDirection returns the currently latched piloting vector (x, z, y
// in AT*PCMD's own axis order).
func (s *ControlService) GetDirection() (x, z, y float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direction.X, s.direction.Z, s.direction.Y
}

// GetAngularSpeed returns the currently latched yaw rate.
func (s *ControlService) GetAngularSpeed() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direction.Yaw
}

// FlyState returns the last flight state observed from navdata.
func (s *ControlService) FlyState() FlyState { return FlyState(s.flyState.Load()) }

// onNavdata is called by the Drone coordinator for every navdata
// frame. It mirrors ProcessNavdata: FlyState is derived from the top
// 16 bits of OptionDemo.CtrlState, and a freshly raised emergency bit
// in the frame's own state word auto-latches (and cancels any pending
// take-off) regardless of whether SetEmergency was ever called.
func (s *ControlService) onNavdata(nd *Navdata) {
	s.mu.Lock()
	if opt, ok := nd.Option(TagDemo); ok {
		if demo, ok := opt.(OptionDemo); ok {
			s.hasNavdata = true
			switch demo.CtrlState >> 16 {
			case controlStateFlying, controlStateGotoFix, controlStateHovering, controlStateLooping:
				s.flyState.Store(int32(FlyStateFlying))
			case controlStateLanding:
				s.flyState.Store(int32(FlyStateLanding))
			case controlStateTakeOff:
				s.flyState.Store(int32(FlyStateTakingOff))
			default:
				s.flyState.Store(int32(FlyStateLanded))
			}
		}
	}

	if nd.IsEmergency() && !s.emergency {
		s.emergency = true
		s.wantFlying = false
		emergencyLatchTransitions.Inc()
	}
	s.mu.Unlock()
}

func (s *ControlService) tick(reason WakeupReason) {
	s.mu.Lock()
	hasNavdata := s.hasNavdata
	wantFtrim := s.wantFtrim
	landed := FlyState(s.flyState.Load()) == FlyStateLanded
	s.mu.Unlock()

	if !hasNavdata {
		// Keep the drone's watchdog fed while we wait for the first
		// navdata frame, exactly as the original does.
		s.at.Send(NewATCommand("PCMD", uint32(0), float32(0), float32(0), float32(0), float32(0)))
		s.at.Send(NewATCommand("REF", refMagicBits))
		return
	}

	if wantFtrim {
		s.mu.Lock()
		s.wantFtrim = false
		s.mu.Unlock()
		if landed {
			s.at.Send(NewATCommand("FTRIM"))
		}
	}

	now := time.Now()
	if !s.lastTick.IsZero() {
		controlTickInterval.Observe(now.Sub(s.lastTick).Seconds())
	}
	s.lastTick = now
	s.sendNow()
}

// sendNow emits the current PCMD/REF pair: REF always carries the
// flying/emergency bits, while PCMD — the actual piloting vector — is
// withheld while the emergency bit is latched.
func (s *ControlService) sendNow() {
	s.mu.Lock()
	dir := s.direction
	hover := s.hover
	wantFlying := s.wantFlying
	emergency := s.emergency
	s.mu.Unlock()

	if !emergency {
		hoverBit := uint32(0)
		if !hover {
			hoverBit = 1
		}
		s.at.Send(NewATCommand("PCMD", hoverBit, dir.X, dir.Z, dir.Y, dir.Yaw))
	}

	ref := refMagicBits
	if wantFlying {
		ref |= refFlyingBit
	}
	if emergency {
		ref |= refEmergencyBit
	}
	s.at.Send(NewATCommand("REF", ref))
}
