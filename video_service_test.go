package ardrone

import (
	"encoding/binary"
	"testing"
)

func buildPaveFrame(t *testing.T, frameNumber uint32, payload []byte) []byte {
	t.Helper()
	return buildPaveFrameTyped(t, frameNumber, paveFrameTypePFrame, paveControlTypeData, payload)
}

func buildPaveFrameTyped(t *testing.T, frameNumber uint32, frameType, control uint8, payload []byte) []byte {
	t.Helper()
	buf := make([]byte, paveHeaderSize+len(payload))
	copy(buf[0:4], paveSignature)
	buf[4] = 1 // version
	buf[5] = 0 // codec
	binary.LittleEndian.PutUint16(buf[6:8], paveHeaderSize)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(payload)))
	binary.LittleEndian.PutUint32(buf[20:24], frameNumber)
	buf[30] = frameType
	buf[31] = control
	copy(buf[paveHeaderSize:], payload)
	return buf
}

func TestVideoServiceExtractsFramesAndCompacts(t *testing.T) {
	var got []VideoFrame
	v := &VideoService{onFrame: func(f VideoFrame) { got = append(got, f) }}
	v.service = newService(nil, "video", v)

	f1 := buildPaveFrame(t, 1, []byte("hello"))
	f2 := buildPaveFrame(t, 2, []byte("world!!"))

	v.mu.Lock()
	v.buf = append(append([]byte{}, f1...), f2...)
	v.mu.Unlock()

	v.update()

	if len(got) != 2 {
		t.Fatalf("expected 2 frames extracted, got %d", len(got))
	}
	if got[0].FrameNumber != 1 || string(got[0].Payload) != "hello" {
		t.Fatalf("frame 0 = %+v", got[0])
	}
	if got[1].FrameNumber != 2 || string(got[1].Payload) != "world!!" {
		t.Fatalf("frame 1 = %+v", got[1])
	}

	v.mu.Lock()
	remaining := len(v.buf)
	v.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected buffer fully compacted, %d bytes remain", remaining)
	}
}

func TestVideoServiceResyncsPastGarbage(t *testing.T) {
	var got []VideoFrame
	v := &VideoService{onFrame: func(f VideoFrame) { got = append(got, f) }}
	v.service = newService(nil, "video", v)

	garbage := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	frame := buildPaveFrame(t, 42, []byte("x"))

	v.mu.Lock()
	v.buf = append(append([]byte{}, garbage...), frame...)
	v.mu.Unlock()

	v.update()

	if len(got) != 1 || got[0].FrameNumber != 42 {
		t.Fatalf("expected frame 42 after resync, got %+v", got)
	}
}

func TestVideoServiceWaitsForMoreDataOnIncompleteFrame(t *testing.T) {
	v := &VideoService{}
	v.service = newService(nil, "video", v)

	frame := buildPaveFrame(t, 1, []byte("hello"))

	v.mu.Lock()
	v.buf = append([]byte{}, frame[:len(frame)-2]...)
	v.mu.Unlock()

	v.update()

	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.buf) == 0 {
		t.Fatal("expected incomplete frame bytes to remain buffered")
	}
}

func TestVideoServiceFiltersNonDataControlFrames(t *testing.T) {
	var got []VideoFrame
	v := &VideoService{onFrame: func(f VideoFrame) { got = append(got, f) }}
	v.service = newService(nil, "video", v)

	advert := buildPaveFrameTyped(t, 1, paveFrameTypeUnknown, paveControlTypeAdvertisement, []byte("advert"))
	lastFrame := buildPaveFrameTyped(t, 2, paveFrameTypeUnknown, paveControlTypeLastFrame, nil)
	data := buildPaveFrame(t, 3, []byte("payload"))

	v.mu.Lock()
	v.buf = append(append(append([]byte{}, advert...), lastFrame...), data...)
	v.mu.Unlock()

	v.update()

	if len(got) != 1 || got[0].FrameNumber != 3 {
		t.Fatalf("expected only the data frame dispatched, got %+v", got)
	}
}

func TestVideoServiceKeyframeDiscardsPendingBacklog(t *testing.T) {
	var got []VideoFrame
	v := &VideoService{onFrame: func(f VideoFrame) { got = append(got, f) }}
	v.service = newService(nil, "video", v)

	p1 := buildPaveFrameTyped(t, 1, paveFrameTypePFrame, paveControlTypeData, []byte("p1"))
	p2 := buildPaveFrameTyped(t, 2, paveFrameTypePFrame, paveControlTypeData, []byte("p2"))
	keyframe := buildPaveFrameTyped(t, 3, paveFrameTypeIDRFrame, paveControlTypeData, []byte("idr"))
	p3 := buildPaveFrameTyped(t, 4, paveFrameTypePFrame, paveControlTypeData, []byte("p3"))

	v.mu.Lock()
	v.buf = append(append(append(append([]byte{}, p1...), p2...), keyframe...), p3...)
	v.mu.Unlock()

	v.update()

	if len(got) != 2 {
		t.Fatalf("expected only the keyframe and the frame after it, got %d frames: %+v", len(got), got)
	}
	if got[0].FrameNumber != 3 || got[1].FrameNumber != 4 {
		t.Fatalf("expected frames 3,4 after backlog discard, got %+v", got)
	}
}

