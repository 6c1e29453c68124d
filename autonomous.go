package ardrone

import (
	"sync"
	"time"
)

// AutonomousState mirrors ARAutonomousService's state machine.
type AutonomousState int32

const (
	AutonomousBootstrapping AutonomousState = iota
	AutonomousWaitingForGPS
	AutonomousRunning
	AutonomousFinished
)

// Thresholds reproduced literally from
// original_source/Source/ARAutonomousService.cpp — not retuned.
const (
	headingThresholdDegrees = 4.5
	distanceThresholdMeters = 4.5
	altitudeThresholdMM     = 250

	cooldownFtrim      = 500 * time.Millisecond
	cooldownTakeOff    = 2 * time.Second
	cooldownCalibrate  = 5 * time.Second
	cooldownWaitingGPS = 2 * time.Second
)

// Waypoint is one queued MoveTo target.
type Waypoint struct {
	Location Location
	Altitude int32 // millimeters
}

// AutonomousService is a thin consumer of the core services: it
// subscribes to navdata, drives Control through takeoff/calibration,
// and walks a FIFO queue of waypoints. It is not part of the protocol
// core — an application is free to pilot the drone directly through
// ControlService instead.
type AutonomousService struct {
	drone   *Drone
	control *ControlService
	at      *ATService

	mu        sync.Mutex
	state     AutonomousState
	waypoints []Waypoint
	current   *Waypoint
	lastStep  time.Time
	lastGPS   Location
	haveGPS   bool
}

// NewAutonomousService constructs the planner against drone's already
// registered control and AT services.
func NewAutonomousService(drone *Drone, control *ControlService, at *ATService) *AutonomousService {
	a := &AutonomousService{drone: drone, control: control, at: at}
	drone.Subscribe(func(svc Service, nd *Navdata) { a.onNavdata(nd) })
	return a
}

// Enqueue appends a waypoint to the FIFO queue.
func (a *AutonomousService) Enqueue(w Waypoint) {
	a.mu.Lock()
	a.waypoints = append(a.waypoints, w)
	a.mu.Unlock()
}

// State returns the planner's current state.
func (a *AutonomousService) State() AutonomousState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *AutonomousService) onNavdata(nd *Navdata) {
	if gps, ok := nd.Option(TagGPS); ok {
		if g, ok := gps.(OptionGPS); ok {
			a.mu.Lock()
			a.lastGPS = g.Location
			a.haveGPS = true
			a.mu.Unlock()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case AutonomousBootstrapping:
		if a.cooldownElapsed(cooldownCalibrate) {
			a.control.TakeOff()
			a.lastStep = time.Now()
			a.state = AutonomousWaitingForGPS
		}

	case AutonomousWaitingForGPS:
		if a.haveGPS && a.cooldownElapsed(cooldownWaitingGPS) {
			a.state = AutonomousRunning
			a.lastStep = time.Now()
		}

	case AutonomousRunning:
		a.stepRunning(nd)
	}
}

// stepRunning checks arrival at the current (or next) waypoint and
// lands once the queue is empty. It issues no steering commands: the
// drone moves only under whatever direction Control has latched.
// Caller holds a.mu.
func (a *AutonomousService) stepRunning(nd *Navdata) {
	if a.current == nil {
		if len(a.waypoints) == 0 {
			a.control.Land()
			a.state = AutonomousFinished
			return
		}
		wp := a.waypoints[0]
		a.waypoints = a.waypoints[1:]
		a.current = &wp
	}

	if !a.haveGPS {
		return
	}

	distance := a.lastGPS.Distance(a.current.Location)
	heading := a.lastGPS.Heading(a.current.Location)

	var altitude int32
	if demo, ok := nd.Option(TagDemo); ok {
		if d, ok := demo.(OptionDemo); ok {
			altitude = d.Altitude
		}
	}
	altDiff := altitude - a.current.Altitude
	if altDiff < 0 {
		altDiff = -altDiff
	}

	if distance <= distanceThresholdMeters && float64(altDiff) <= altitudeThresholdMM {
		a.current = nil
		return
	}

	_ = heading // computed but unused: this planner leaves piloting to Control's latched vector.
}

func (a *AutonomousService) cooldownElapsed(d time.Duration) bool {
	return a.lastStep.IsZero() || time.Since(a.lastStep) >= d
}

