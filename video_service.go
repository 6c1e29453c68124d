package ardrone

import (
	"bytes"
	"sync"
)

const (
	paveSignature  = "PaVE"
	paveHeaderSize = 64
	videoBufferCap = 32 * 1024 * 1024
)

// PAVE frame/control type values, per ARVideoService.h.
const (
	paveFrameTypeUnknown uint8 = iota
	paveFrameTypeIDRFrame
	paveFrameTypeIFrame
	paveFrameTypePFrame
)

const (
	paveControlTypeData          uint8 = 0
	paveControlTypeAdvertisement uint8 = 1 << 0
	paveControlTypeLastFrame     uint8 = 1 << 1
)

// VideoFrame is one decoded PaVE frame's payload.
type VideoFrame struct {
	FrameNumber uint32
	FrameType   uint8
	Timestamp   uint32
	Payload     []byte
}

type paveHeader struct {
	Version              uint8
	VideoCodec           uint8
	HeaderSize           uint16
	PayloadSize          uint32
	EncodedWidth         uint16
	EncodedHeight        uint16
	DisplayWidth         uint16
	DisplayHeight        uint16
	FrameNumber          uint32
	Timestamp            uint32
	TotalChunks          uint8
	ChunkIndex           uint8
	FrameType            uint8
	Control              uint8
	StreamBytePositionLW uint32
	StreamBytePositionUW uint32
	StreamID             uint16
	TotalSlices          uint8
	SliceIndex           uint8
	Header1Size          uint8
	Header2Size          uint8
	AdvertisedSize       uint32
}

// decodePaveHeader decodes the 64-byte PaVE header starting at the
// signature. Caller has already verified the signature bytes.
func decodePaveHeader(buf []byte) paveHeader {
	c := &cursor{buf: buf, off: 4} // skip the 4-byte signature
	var h paveHeader
	h.Version = c.u8()
	h.VideoCodec = c.u8()
	h.HeaderSize = c.u16()
	h.PayloadSize = c.u32()
	h.EncodedWidth = c.u16()
	h.EncodedHeight = c.u16()
	h.DisplayWidth = c.u16()
	h.DisplayHeight = c.u16()
	h.FrameNumber = c.u32()
	h.Timestamp = c.u32()
	h.TotalChunks = c.u8()
	h.ChunkIndex = c.u8()
	h.FrameType = c.u8()
	h.Control = c.u8()
	h.StreamBytePositionLW = c.u32()
	h.StreamBytePositionUW = c.u32()
	h.StreamID = c.u16()
	h.TotalSlices = c.u8()
	h.SliceIndex = c.u8()
	h.Header1Size = c.u8()
	h.Header2Size = c.u8()
	c.skip(2) // reserved2
	h.AdvertisedSize = c.u32()
	return h
}

// VideoService owns the TCP 5555 video stream. The worker tick only
// appends freshly received bytes to a bounded ring-style buffer;
// framing (finding PaVE boundaries, extracting complete frames,
// compacting the buffer) runs in update(), driven by the host's
// Drone.Update() call, exactly mirroring the original's split between
// the socket-reading thread and the host-thread frame extraction.
type VideoService struct {
	*service

	sock   socket
	onFrame func(VideoFrame)

	mu  sync.Mutex
	buf []byte
}

// NewVideoService constructs the video service for the drone at host.
// onFrame, if non-nil, is invoked synchronously from Drone.Update()
// for every fully decoded frame.
func NewVideoService(drone *Drone, host string, onFrame func(VideoFrame)) *VideoService {
	s := &VideoService{sock: newTCPSocket(host, 5555), onFrame: onFrame}
	s.service = newService(drone, "video", s)
	s.SetCanSleep(false)
	return s
}

func (s *VideoService) connectHook() ServiceState {
	s.mu.Lock()
	s.buf = s.buf[:0]
	s.mu.Unlock()
	if err := s.sock.Connect(); err != nil {
		return StateDisconnected
	}
	return StateConnected
}

func (s *VideoService) disconnectHook() {
	s.sock.Disconnect()
}

func (s *VideoService) tick(reason WakeupReason) {
	chunk := make([]byte, 65536)
	n, err := s.sock.Receive(chunk)
	if err != nil {
		if err == ErrTimeout {
			return
		}
		// Reconnect the socket in place; the service itself stays up and
		// update() resynchronizes on the next PaVE signature.
		s.sock.Disconnect()
		if err := s.sock.Connect(); err != nil {
			s.SetState(StateDisconnected)
			return
		}
		s.SetState(StateConnected)
		return
	}
	if n == 0 {
		return
	}

	s.mu.Lock()
	if len(s.buf)+n > videoBufferCap {
		// Drop the stream's oldest bytes rather than grow unbounded;
		// the next keyframe resync will recover framing.
		overflow := len(s.buf) + n - videoBufferCap
		if overflow < len(s.buf) {
			s.buf = s.buf[overflow:]
		} else {
			s.buf = s.buf[:0]
		}
	}
	s.buf = append(s.buf, chunk[:n]...)
	s.mu.Unlock()
}

// update extracts every complete frame currently buffered and invokes
// onFrame for each, then compacts the buffer by advancing past each
// consumed frame's start offset (frameBegin), not past (header size -
// frameBegin) — the corrected compaction arithmetic. See DESIGN.md.
//
// Two filters mirror VideoService::Update's own frames list: control
// frames (advertisements, end-of-stream markers) never reach onFrame,
// and the arrival of a fresh keyframe (IDR or I frame) discards any
// frames still pending dispatch from this same call — a decoder can't
// make use of a delta frame that predates the keyframe it depends on.
func (s *VideoService) update() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []VideoFrame

	for {
		frameBegin := bytes.Index(s.buf, []byte(paveSignature))
		if frameBegin < 0 {
			if len(s.buf) > paveHeaderSize {
				s.buf = s.buf[len(s.buf)-paveHeaderSize+1:]
			}
			break
		}
		if frameBegin > 0 {
			videoKeyframeResyncs.Inc()
			s.buf = s.buf[frameBegin:]
			frameBegin = 0
		}

		if len(s.buf) < paveHeaderSize {
			break
		}
		h := decodePaveHeader(s.buf)
		headerSize := int(h.HeaderSize)
		if headerSize < paveHeaderSize {
			headerSize = paveHeaderSize
		}
		total := headerSize + int(h.PayloadSize)
		if len(s.buf) < total {
			break
		}

		if h.Control == paveControlTypeData {
			if h.FrameType == paveFrameTypeIDRFrame || h.FrameType == paveFrameTypeIFrame {
				if len(pending) > 0 {
					videoBacklogDiscards.Add(float64(len(pending)))
				}
				pending = pending[:0]
			}

			payload := make([]byte, h.PayloadSize)
			copy(payload, s.buf[headerSize:total])
			pending = append(pending, VideoFrame{
				FrameNumber: h.FrameNumber,
				FrameType:   h.FrameType,
				Timestamp:   h.Timestamp,
				Payload:     payload,
			})
		}

		s.buf = s.buf[frameBegin+total:]
	}

	if s.onFrame != nil {
		for _, f := range pending {
			s.onFrame(f)
		}
	}
}

