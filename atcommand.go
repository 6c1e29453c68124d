package ardrone

import (
	"math"
	"strconv"
	"strings"
)

// ATCommand builds one AT*NAME=seq,arg1,arg2...\r line. Arguments are
// appended in the order given; the accepted Go types mirror the
// operator<< overloads the original stringstream-based builder
// supported: strings are quoted, bools become 0/1, integers are
// decimal, and float32 is bitcast to its IEEE-754 bit pattern and sent
// as a signed decimal integer (the drone firmware expects the raw
// bits, not a human-readable float).
type ATCommand struct {
	name string
	args []string
}

// NewATCommand builds a command named name with the given arguments
// appended immediately.
func NewATCommand(name string, args ...interface{}) *ATCommand {
	c := &ATCommand{name: name}
	for _, a := range args {
		c.Arg(a)
	}
	return c
}

// Arg appends one more argument and returns c for chaining.
func (c *ATCommand) Arg(a interface{}) *ATCommand {
	switch v := a.(type) {
	case string:
		var b strings.Builder
		b.WriteByte('"')
		b.WriteString(v)
		b.WriteByte('"')
		c.args = append(c.args, b.String())
	case bool:
		if v {
			c.args = append(c.args, "1")
		} else {
			c.args = append(c.args, "0")
		}
	case int:
		c.args = append(c.args, strconv.Itoa(v))
	case int32:
		c.args = append(c.args, strconv.FormatInt(int64(v), 10))
	case uint32:
		c.args = append(c.args, strconv.FormatUint(uint64(v), 10))
	case float32:
		c.args = append(c.args, strconv.FormatInt(int64(int32(math.Float32bits(v))), 10))
	default:
		panic("ardrone: unsupported ATCommand argument type")
	}
	return c
}

// Line renders the wire form of the command for the given AT sequence
// number: "AT*NAME=seq,arg1,arg2\r".
func (c *ATCommand) Line(seq uint32) string {
	var b strings.Builder
	b.WriteString("AT*")
	b.WriteString(c.name)
	b.WriteByte('=')
	b.WriteString(strconv.FormatUint(uint64(seq), 10))
	for _, a := range c.args {
		b.WriteByte(',')
		b.WriteString(a)
	}
	b.WriteByte('\r')
	return b.String()
}

