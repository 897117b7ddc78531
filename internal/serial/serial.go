// Package serial implements the link port (SB, SC) with no partner
// attached: a transfer completes as soon as it is started and the outgoing
// byte is handed to a writer.
package serial

import (
	"io"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/bus"
)

type Bus interface {
	Peek(addr uint16) byte
	SetIO(addr uint16, value byte)
	RequestInterrupt(bit int)
}

const (
	scStart    = 0x80
	scInternal = 0x01
)

type Port struct {
	bus Bus
	out io.Writer
}

// New returns a port writing transferred bytes to w. A nil w discards them.
func New(b Bus, w io.Writer) *Port {
	if w == nil {
		w = io.Discard
	}
	return &Port{bus: b, out: w}
}

// SetWriter replaces the output writer.
func (p *Port) SetWriter(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	p.out = w
}

// OnIOWrite starts a transfer when SC is written with both the start and
// internal clock bits. The line reads back 0xFF since nothing is connected.
func (p *Port) OnIOWrite(addr uint16, value byte) {
	if addr != bus.SC || value&(scStart|scInternal) != scStart|scInternal {
		return
	}
	_, _ = p.out.Write([]byte{p.bus.Peek(bus.SB)})
	p.bus.SetIO(bus.SB, 0xFF)
	p.bus.SetIO(bus.SC, value&^scStart)
	p.bus.RequestInterrupt(bus.IntSerial)
}
