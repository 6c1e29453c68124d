package ardrone

const navdataMagic = 0x55667788

// Navdata state bits (NAVDATA_STATE), per original_source/Source/ARNavdataService.h.
const (
	NavdataStateFlying      uint32 = 1 << 0
	NavdataStateBootstrap   uint32 = 1 << 11
	NavdataStateEmergency   uint32 = 1 << 31
)

// Navdata is one decoded telemetry frame. Options is nil for a
// bootstrap frame (the drone hasn't been configured to emit the full
// option set yet).
type Navdata struct {
	State    uint32
	Sequence uint32
	Vision   uint32
	Options  []NavdataOption
}

// Option returns the first option with the given tag, if present.
func (n *Navdata) Option(tag NavdataTag) (NavdataOption, bool) {
	for _, o := range n.Options {
		if o.Tag() == tag {
			return o, true
		}
	}
	return nil, false
}

// IsBootstrap reports whether the frame's NAVDATA_BOOTSTRAP state bit
// is set (the drone has not yet been sent the navdata configuration
// commands, so such a frame is decoded without options).
func (n *Navdata) IsBootstrap() bool { return n.State&NavdataStateBootstrap != 0 }

// IsEmergency reports the drone's own emergency-state bit.
func (n *Navdata) IsEmergency() bool { return n.State&NavdataStateEmergency != 0 }

// checksumOf sums every byte in buf as an unsigned accumulator; this
// is not a modular 8-bit checksum, it is a running sum of byte values
// into a uint32, exactly as original_source's CalculateChecksum does.
func checksumOf(buf []byte) uint32 {
	var sum uint32
	for _, b := range buf {
		sum += uint32(b)
	}
	return sum
}

// decodeNavdataFrame parses one received navdata datagram. The return
// value's checksumOK is only meaningful (and only checked) for
// non-bootstrap frames, which always end in a Checksum option.
func decodeNavdataFrame(buf []byte) (nd Navdata, checksumOK bool, ok bool) {
	if len(buf) < 16 {
		return Navdata{}, false, false
	}
	c := &cursor{buf: buf}
	magic := c.u32()
	if magic != navdataMagic {
		return Navdata{}, false, false
	}
	nd.State = c.u32()
	nd.Sequence = c.u32()
	nd.Vision = c.u32()

	if nd.IsBootstrap() {
		return nd, true, true
	}

	var options []NavdataOption
	checksumFound := false
	for c.remaining() >= 4 {
		tagStart := c.off
		tag := NavdataTag(c.u16())
		size := int(c.u16())
		if size < 4 || tagStart+size > len(buf) {
			break
		}
		if tag == TagChecksum {
			want := c.u32()
			got := checksumOf(buf[:tagStart])
			checksumFound = true
			checksumOK = got == want
			break
		}
		options = append(options, decodeOption(tag, size, c))
		c.off = tagStart + size
	}
	nd.Options = options
	return nd, checksumFound && checksumOK, true
}

