package ardrone

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/go-ardrone/drone2/internal/tracing"
)

// NavdataStateCommandMask is the navdata state bit the drone flips to
// acknowledge a pending AT*CONFIG write (ARDRONE_COMMAND_MASK).
const NavdataStateCommandMask uint32 = 1 << 6

// configIDs are the session/application/user identifiers the drone
// expects prefixed to every config write. The original hardcodes a
// literal example triple; this port treats them as session state and
// generates them once per connection instead — see DESIGN.md.
type configIDs struct {
	Session, Application, User string
}

func newConfigIDs() configIDs {
	gen := func() string {
		var b [4]byte
		_, _ = rand.Read(b[:])
		return hex.EncodeToString(b[:])
	}
	return configIDs{Session: gen(), Application: gen(), User: gen()}
}

const configSendMaxRetries = 3
const configSendRetryTicks = 30 // ~300ms at a 10ms tick cadence

// configRequest is either a Send (write one key/value, wait for ack)
// or a Fetch (read back the full config dump over TCP).
type configRequest struct {
	isFetch bool
	key     string
	value   string
	done    func(raw string, err error)
	span    trace.Span
}

// ConfigService owns AR.Drone's configuration protocol: writing
// key/value pairs via the AT channel with a navdata-bit ACK handshake
// (3-phase: send AT*CONFIG, wait for the ack bit, send AT*CTRL to
// clear it), and fetching the full current configuration by opening a
// TCP connection to port 5559 after requesting a dump via AT*CTRL
// (2-phase: request, then read the NUL-terminated response). On
// connect it also performs the original's own bootstrap handshake:
// write "custom:session_id"="-all", then fetch the full dump, only
// reaching Connected once both succeed.
type ConfigService struct {
	*service

	at   *ATService
	sock socket
	host string
	ids  configIDs

	mu         sync.Mutex
	queue      []*configRequest
	current    *configRequest
	phase      int
	droneState uint32
	retries    int
	ticks      int
	configMap  map[string]string
}

// NewConfigService constructs the config service. at is the drone's AT
// service, used to send AT*CONFIG/AT*CTRL commands.
func NewConfigService(drone *Drone, host string, at *ATService) *ConfigService {
	s := &ConfigService{at: at, host: host, sock: newTCPSocket(host, 5559)}
	s.service = newService(drone, "config", s)
	return s
}

// connectHook opens the TCP socket synchronously (mirroring the
// original's blocking Socket::Connect), then returns Connecting and
// lets the session-id write / config fetch chain — driven by tick and
// onNavdata — carry the service the rest of the way to Connected.
func (s *ConfigService) connectHook() ServiceState {
	if err := s.sock.Connect(); err != nil {
		return StateDisconnected
	}

	s.ids = newConfigIDs()
	s.mu.Lock()
	s.queue = nil
	s.current = nil
	s.droneState = 0
	s.configMap = make(map[string]string)
	s.mu.Unlock()

	s.Send("custom:session_id", "-all", func(err error) {
		if err != nil {
			s.SetState(StateDisconnected)
			return
		}
		s.Fetch(func(_ string, err error) {
			if err != nil {
				s.SetState(StateDisconnected)
				return
			}
			s.SetState(StateConnected)
		})
	})

	return StateConnecting
}

func (s *ConfigService) disconnectHook() {
	s.sock.Disconnect()
}

// Send queues a key/value write; done is invoked on completion or
// failure (context deadline via retry exhaustion).
func (s *ConfigService) Send(key, value string, done func(err error)) {
	s.SendContext(context.Background(), key, value, done)
}

// SendContext is Send with a span covering the whole 3-phase write
// handshake, started here and ended once completeCurrent resolves the
// request (success or exhausted retries).
func (s *ConfigService) SendContext(ctx context.Context, key, value string, done func(err error)) {
	_, span := tracing.StartSpan(ctx, "ardrone.config.send")
	req := &configRequest{key: key, value: value, span: span}
	if done != nil {
		req.done = func(_ string, err error) { done(err) }
	}
	s.enqueue(req)
}

// Fetch queues a config dump read; done receives the raw NUL-stripped
// text.
func (s *ConfigService) Fetch(done func(raw string, err error)) {
	s.FetchContext(context.Background(), done)
}

// FetchContext is Fetch with a span covering the 2-phase read.
func (s *ConfigService) FetchContext(ctx context.Context, done func(raw string, err error)) {
	_, span := tracing.StartSpan(ctx, "ardrone.config.fetch")
	req := &configRequest{isFetch: true, done: done, span: span}
	s.enqueue(req)
}

// GetConfig returns a value previously read back by Fetch or written by
// a completed Send, if any.
func (s *ConfigService) GetConfig(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.configMap[key]
	return v, ok
}

func (s *ConfigService) enqueue(req *configRequest) {
	s.mu.Lock()
	s.queue = append(s.queue, req)
	s.mu.Unlock()
	s.Wakeup(WakeupUpdate)
}

// onNavdata mirrors ProcessNavdata: every frame unconditionally
// updates the service's view of the drone's command-ack bit,
// regardless of what request (if any) is in flight.
func (s *ConfigService) onNavdata(nd *Navdata) {
	s.mu.Lock()
	s.droneState = nd.State
	s.mu.Unlock()
}

func (s *ConfigService) ackSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.droneState&NavdataStateCommandMask != 0
}

func (s *ConfigService) tick(reason WakeupReason) {
	s.mu.Lock()
	if s.current == nil {
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		s.current = s.queue[0]
		s.queue = s.queue[1:]
		s.phase = 0
		s.retries = 0
		s.ticks = 0
	}
	req := s.current
	s.mu.Unlock()

	if req.isFetch {
		s.tickFetch(req)
		return
	}
	s.tickSend(req)
}

// tickSend drives the 3-phase write handshake (CommandSendState in the
// original): Send -> Ack -> AckClear.
// phase 0 (Send): issue AT*CONFIG_IDS then AT*CONFIG(key,value).
// phase 1 (Ack): wait, with bounded retries, for the ack bit to be set.
// phase 2 (AckClear): send AT*CTRL=5 to clear the ack bit, then wait
// for it to actually clear before committing the write.
func (s *ConfigService) tickSend(req *configRequest) {
	switch s.phase {
	case 0:
		s.at.Send(NewATCommand("CONFIG_IDS", s.ids.Session, s.ids.Application, s.ids.User))
		s.at.Send(NewATCommand("CONFIG", req.key, req.value))
		s.mu.Lock()
		s.phase = 1
		s.ticks = 0
		s.mu.Unlock()

	case 1:
		if s.ackSet() {
			s.mu.Lock()
			s.phase = 2
			s.ticks = 0
			s.mu.Unlock()
			s.at.Send(NewATCommand("CTRL", uint32(5), uint32(0)))
			return
		}
		if s.bumpTicksExhausted(req, func() { s.at.Send(NewATCommand("CONFIG", req.key, req.value)) }) {
			return
		}

	case 2:
		if !s.ackSet() {
			s.mu.Lock()
			if s.configMap == nil {
				s.configMap = make(map[string]string)
			}
			s.configMap[req.key] = req.value
			s.mu.Unlock()
			s.completeCurrent("", nil)
			return
		}
		if s.bumpTicksExhausted(req, func() { s.at.Send(NewATCommand("CTRL", uint32(5), uint32(0))) }) {
			return
		}
	}
}

// bumpTicksExhausted advances the retry/timeout bookkeeping shared by
// both wait phases of tickSend. It reports whether the request was
// just failed out (retries exhausted), in which case the caller must
// not touch s.current further; otherwise it may have re-sent retry via
// onTimeout.
func (s *ConfigService) bumpTicksExhausted(req *configRequest, onTimeout func()) bool {
	s.mu.Lock()
	s.ticks++
	ticks := s.ticks
	s.mu.Unlock()

	if ticks < configSendRetryTicks {
		return false
	}

	s.mu.Lock()
	s.retries++
	retries := s.retries
	s.ticks = 0
	s.mu.Unlock()

	if retries > configSendMaxRetries {
		configRetriesExhausted.Inc()
		s.completeCurrent("", fmt.Errorf("ardrone: config ack timeout for %q after %d retries", req.key, retries-1))
		return true
	}
	onTimeout()
	return false
}

// tickFetch drives the 2-phase read (HandleRequestConfig in the
// original): phase 0 first clears a pending ack bit if one is still
// set from a prior command, then requests the dump; phase 1 reads from
// the TCP socket until a NUL terminator closes the response.
func (s *ConfigService) tickFetch(req *configRequest) {
	switch s.phase {
	case 0:
		if s.ackSet() {
			s.at.Send(NewATCommand("CTRL", uint32(5), uint32(0)))
			return
		}
		s.at.Send(NewATCommand("CTRL", uint32(4), uint32(0)))
		s.mu.Lock()
		s.phase = 1
		s.mu.Unlock()

	case 1:
		var buf bytes.Buffer
		chunk := make([]byte, 4096)
		for {
			n, err := s.sock.Receive(chunk)
			if n > 0 {
				buf.Write(chunk[:n])
				if i := bytes.IndexByte(buf.Bytes(), 0); i >= 0 {
					raw := buf.String()[:i]
					s.mu.Lock()
					s.configMap = parseConfigDump(raw)
					s.mu.Unlock()
					s.completeCurrent(raw, nil)
					return
				}
			}
			if err != nil {
				if err == ErrTimeout {
					s.completeCurrent("", fmt.Errorf("ardrone: config fetch timed out"))
					return
				}
				s.completeCurrent("", err)
				return
			}
		}
	}
}

// parseConfigDump parses the "key = value\n..." text the drone returns
// from a config fetch into a lookup map, mirroring ParseConfig.
func parseConfigDump(raw string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		i := strings.IndexByte(line, '=')
		if i < 0 {
			continue
		}
		key := strings.TrimSpace(line[:i])
		value := strings.TrimSpace(line[i+1:])
		if key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func (s *ConfigService) completeCurrent(raw string, err error) {
	s.mu.Lock()
	req := s.current
	s.current = nil
	s.phase = 0
	s.retries = 0
	s.ticks = 0
	s.mu.Unlock()
	if req == nil {
		return
	}
	if req.span != nil {
		if err != nil {
			req.span.RecordError(err)
		}
		req.span.End()
	}
	if req.done != nil {
		req.done(raw, err)
	}
}
