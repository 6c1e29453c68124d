package ardrone

import (
	"strings"
	"testing"
)

func TestATCommandLine(t *testing.T) {
	cases := []struct {
		name string
		cmd  *ATCommand
		seq  uint32
		want string
	}{
		{
			name: "quoted strings",
			cmd:  NewATCommand("CONFIG", "general:navdata_demo", "TRUE"),
			seq:  7,
			want: `AT*CONFIG=7,"general:navdata_demo","TRUE"` + "\r",
		},
		{
			name: "unsigned integer",
			cmd:  NewATCommand("REF", uint32(290718208)),
			seq:  1,
			want: "AT*REF=1,290718208\r",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cmd.Line(tc.seq); got != tc.want {
				t.Fatalf("Line() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestATCommandFloatBitcast(t *testing.T) {
	cmd := NewATCommand("PCMD", true, float32(0.5), float32(-0.5))
	line := cmd.Line(1)
	// 0.5f and -0.5f bitcast to fixed, well-known patterns.
	if !strings.Contains(line, "1056964608") {
		t.Fatalf("expected bitcast of 0.5f in %q", line)
	}
	if !strings.Contains(line, "-1090519040") {
		t.Fatalf("expected bitcast of -0.5f in %q", line)
	}
}

// fakeSocket lets the AT service tick be exercised without a real UDP
// port; it records every datagram passed to Send.
type fakeSocket struct {
	sent [][]byte
}

func (f *fakeSocket) Connect() error { return nil }
func (f *fakeSocket) Disconnect()    {}
func (f *fakeSocket) Send(data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.sent = append(f.sent, cp)
	return nil
}
func (f *fakeSocket) Receive(buf []byte) (int, error) { return 0, ErrTimeout }

func TestATServiceBatchesUnderDatagramLimit(t *testing.T) {
	fs := &fakeSocket{}
	s := &ATService{sock: fs}
	s.service = newService(nil, "at", s)
	s.sequence = 1

	s.Send(NewATCommand("FTRIM"))
	s.Send(NewATCommand("REF", uint32(290718208)))
	s.Send(NewATCommand("PCMD", uint32(1), float32(0), float32(0), float32(0), float32(0)))

	s.tick(WakeupUpdate)

	if len(fs.sent) != 1 {
		t.Fatalf("expected a single batched datagram, got %d", len(fs.sent))
	}
	if len(fs.sent[0]) > atDatagramLimit {
		t.Fatalf("datagram exceeds limit: %d bytes", len(fs.sent[0]))
	}
}

func TestATServiceFlushesBeforeExceedingLimit(t *testing.T) {
	fs := &fakeSocket{}
	s := &ATService{sock: fs}
	s.service = newService(nil, "at", s)
	s.sequence = 1

	// 980 chars plus the 15 bytes of `AT*CONFIG=1,""\r` framing is a
	// 995-byte line: it fits alone, but two do not.
	long := strings.Repeat("a", atDatagramLimit-20)
	s.Send(NewATCommand("CONFIG", long))
	s.Send(NewATCommand("CONFIG", long))

	s.tick(WakeupUpdate)

	if len(fs.sent) != 2 {
		t.Fatalf("expected two datagrams once the first line nearly fills the limit, got %d", len(fs.sent))
	}
	for _, d := range fs.sent {
		if len(d) > atDatagramLimit {
			t.Fatalf("datagram exceeds limit: %d bytes", len(d))
		}
	}
}

