package ardrone

import (
	"strings"
	"sync"
)

// atDatagramLimit is the largest UDP payload the AT service will emit
// in one Send call; a pending line that would push the buffer over
// this is flushed first.
const atDatagramLimit = 1000

// ATService owns the UDP 5556 AT command channel: callers enqueue
// commands from any goroutine via Send, and each worker tick drains the
// whole queue, packing the lines in order into as many datagrams of at
// most atDatagramLimit bytes as it needs.
type ATService struct {
	*service

	sock socket

	mu       sync.Mutex
	sequence uint32
	pending  []string
}

// NewATService constructs the AT service for the drone at host.
func NewATService(drone *Drone, host string) *ATService {
	s := &ATService{sock: newUDPSocket(host, 5556)}
	s.service = newService(drone, "at", s)
	return s
}

// Send enqueues cmd for transmission and wakes the worker.
func (s *ATService) Send(cmd *ATCommand) {
	s.mu.Lock()
	line := cmd.Line(s.sequence)
	s.sequence++
	s.pending = append(s.pending, line)
	s.mu.Unlock()
	s.Wakeup(WakeupUpdate)
}

func (s *ATService) connectHook() ServiceState {
	s.mu.Lock()
	s.sequence = 1
	s.pending = nil
	s.mu.Unlock()
	if err := s.sock.Connect(); err != nil {
		return StateDisconnected
	}
	return StateConnected
}

func (s *ATService) disconnectHook() {
	s.sock.Disconnect()
}

func (s *ATService) tick(reason WakeupReason) {
	s.mu.Lock()
	queue := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(queue) == 0 {
		return
	}

	var buf strings.Builder
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		_ = s.sock.Send([]byte(buf.String()))
		atDatagramsSent.Inc()
		buf.Reset()
	}

	for _, line := range queue {
		if buf.Len()+len(line) > atDatagramLimit {
			flush()
		}
		buf.WriteString(line)
	}
	flush()
}

