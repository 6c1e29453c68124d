package ardrone

import (
	"errors"
	"net"
	"os"
	"strconv"
	"time"
)

const socketTimeout = 2 * time.Second

// ErrTimeout is returned by Socket.Receive when no data arrived within
// the deadline. Services interpret this per their own recovery rule
// (re-send a handshake, skip a tick, etc.) rather than treating it as
// a broken connection.
var ErrTimeout = errors.New("ardrone: socket read timeout")

// socket is the minimal transport every service needs. udpSocket and
// tcpSocket below are the two concrete implementations; services hold
// a socket so tests can substitute a fake without opening real ports.
type socket interface {
	Connect() error
	Disconnect()
	Send(data []byte) error
	Receive(buf []byte) (int, error)
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

// udpSocket wraps a connected UDP datagram socket with 2s read/write
// deadlines, mirroring ARSocket's SO_RCVTIMEO/SO_SNDTIMEO.
type udpSocket struct {
	raddr string
	conn  *net.UDPConn
}

func newUDPSocket(host string, port int) *udpSocket {
	return &udpSocket{raddr: net.JoinHostPort(host, strconv.Itoa(port))}
}

func (s *udpSocket) Connect() error {
	addr, err := net.ResolveUDPAddr("udp", s.raddr)
	if err != nil {
		return err
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *udpSocket) Disconnect() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *udpSocket) Send(data []byte) error {
	if s.conn == nil {
		return net.ErrClosed
	}
	s.conn.SetWriteDeadline(time.Now().Add(socketTimeout))
	_, err := s.conn.Write(data)
	return err
}

func (s *udpSocket) Receive(buf []byte) (int, error) {
	if s.conn == nil {
		return 0, net.ErrClosed
	}
	s.conn.SetReadDeadline(time.Now().Add(socketTimeout))
	n, err := s.conn.Read(buf)
	if err != nil {
		if isTimeout(err) {
			return 0, ErrTimeout
		}
		return 0, err
	}
	return n, nil
}

// tcpSocket wraps a TCP stream socket with the same deadline policy,
// used by the config and video services.
type tcpSocket struct {
	raddr string
	conn  net.Conn
}

func newTCPSocket(host string, port int) *tcpSocket {
	return &tcpSocket{raddr: net.JoinHostPort(host, strconv.Itoa(port))}
}

func (s *tcpSocket) Connect() error {
	conn, err := net.DialTimeout("tcp", s.raddr, socketTimeout)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *tcpSocket) Disconnect() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *tcpSocket) Send(data []byte) error {
	if s.conn == nil {
		return net.ErrClosed
	}
	s.conn.SetWriteDeadline(time.Now().Add(socketTimeout))
	_, err := s.conn.Write(data)
	return err
}

func (s *tcpSocket) Receive(buf []byte) (int, error) {
	if s.conn == nil {
		return 0, net.ErrClosed
	}
	s.conn.SetReadDeadline(time.Now().Add(socketTimeout))
	n, err := s.conn.Read(buf)
	if err != nil {
		if isTimeout(err) {
			return 0, ErrTimeout
		}
		return 0, err
	}
	return n, nil
}

