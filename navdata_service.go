package ardrone

import "encoding/binary"

const navdataBufferSize = 4096

// NavdataService owns the UDP 5554 telemetry feed: it sends the
// four-byte handshake datagram to open the stream, parses every
// frame the drone sends back, verifies the checksum on full-option
// frames, drops stale/duplicate sequences, and publishes the result
// through the owning Drone.
//
// Checksum verification happens before sequence dedup: a frame that
// fails its checksum never advances lastSeq, so a corrupted frame can
// never suppress a later, valid one with the same or a lower
// sequence number. See DESIGN.md for why this departs from the
// original's check order.
type NavdataService struct {
	*service

	sock   socket
	opened bool
	lastSeq uint32
}

// NewNavdataService constructs the navdata service for the drone at host.
func NewNavdataService(drone *Drone, host string) *NavdataService {
	s := &NavdataService{sock: newUDPSocket(host, 5554)}
	s.service = newService(drone, "navdata", s)
	return s
}

func (s *NavdataService) connectHook() ServiceState {
	s.opened = false
	s.lastSeq = 0
	if err := s.sock.Connect(); err != nil {
		return StateDisconnected
	}
	return StateConnecting
}

func (s *NavdataService) disconnectHook() {
	s.sock.Disconnect()
}

func (s *NavdataService) open() {
	var handshake [4]byte
	binary.LittleEndian.PutUint32(handshake[:], 1)
	_ = s.sock.Send(handshake[:])
	s.opened = true
}

func (s *NavdataService) tick(reason WakeupReason) {
	if !s.opened {
		s.open()
	}

	buf := make([]byte, navdataBufferSize)
	n, err := s.sock.Receive(buf)
	if err != nil {
		if err == ErrTimeout {
			s.open()
			return
		}
		s.SetState(StateDisconnected)
		return
	}

	nd, checksumOK, ok := decodeNavdataFrame(buf[:n])
	if !ok {
		return
	}

	if nd.IsBootstrap() {
		if nd.Sequence <= s.lastSeq {
			return
		}
		s.lastSeq = nd.Sequence
		s.SetState(StateConnected)
		s.drone.publishNavdata(s, &nd)
		return
	}

	if !checksumOK {
		navdataChecksumFailures.Inc()
		return
	}
	if nd.Sequence <= s.lastSeq {
		navdataSequenceDrops.Inc()
		return
	}

	s.lastSeq = nd.Sequence
	s.SetState(StateConnected)
	s.setNavdataOptions(optionsBitmap(nd.Options))
	s.drone.publishNavdata(s, &nd)
}

func optionsBitmap(options []NavdataOption) uint32 {
	var bits uint32
	for _, o := range options {
		if o.Tag() <= 31 {
			bits |= 1 << uint(o.Tag())
		}
	}
	return bits
}

