// Package timer implements the divider and the programmable timer
// (DIV, TIMA, TMA, TAC).
package timer

import "github.com/FabianRolfMatthiasNoll/gbcore/internal/bus"

type Bus interface {
	Peek(addr uint16) byte
	SetIO(addr uint16, value byte)
	RequestInterrupt(bit int)
}

// tacBit is the divider bit whose falling edge clocks TIMA, per TAC clock
// select: 4096, 262144, 65536 and 16384 Hz.
var tacBit = [4]uint16{1 << 9, 1 << 3, 1 << 5, 1 << 7}

// reloadDelay is the number of cycles TIMA reads 0 after an overflow before
// TMA is loaded and the interrupt raised.
const reloadDelay = 4

// Timer owns a 16-bit divider; DIV is its upper byte.
type Timer struct {
	bus    Bus
	div    uint16
	tac    byte
	reload int
}

func New(b Bus) *Timer {
	t := &Timer{bus: b}
	t.Reset()
	return t
}

// Reset clears the divider and takes TAC from the bus.
func (t *Timer) Reset() {
	t.div = 0
	t.reload = 0
	t.tac = t.bus.Peek(bus.TAC)
	t.bus.SetIO(bus.DIV, 0)
}

// Divider returns the full internal counter.
func (t *Timer) Divider() uint16 { return t.div }

func input(div uint16, tac byte) bool {
	return tac&0x04 != 0 && div&tacBit[tac&0x03] != 0
}

// Tick advances the divider one cycle at a time so every falling edge of
// the selected bit is seen.
func (t *Timer) Tick(cycles int) {
	for i := 0; i < cycles; i++ {
		if t.reload > 0 {
			t.reload--
			if t.reload == 0 {
				t.bus.SetIO(bus.TIMA, t.bus.Peek(bus.TMA))
				t.bus.RequestInterrupt(bus.IntTimer)
			}
		}
		before := input(t.div, t.tac)
		t.div++
		if before && !input(t.div, t.tac) {
			t.increment()
		}
	}
	t.bus.SetIO(bus.DIV, byte(t.div>>8))
}

func (t *Timer) increment() {
	if t.reload > 0 {
		return
	}
	tima := t.bus.Peek(bus.TIMA)
	if tima == 0xFF {
		t.bus.SetIO(bus.TIMA, 0)
		t.reload = reloadDelay
		return
	}
	t.bus.SetIO(bus.TIMA, tima+1)
}

// OnIOWrite handles the register writes that move the timer input: a DIV
// write clears the divider and a TAC write changes the selected bit; either
// can produce a falling edge. A TIMA write during the reload delay cancels
// the reload.
func (t *Timer) OnIOWrite(addr uint16, value byte) {
	switch addr {
	case bus.DIV:
		before := input(t.div, t.tac)
		t.div = 0
		t.bus.SetIO(bus.DIV, 0)
		if before {
			t.increment()
		}
	case bus.TAC:
		before := input(t.div, t.tac)
		t.tac = value & 0x07
		if before && !input(t.div, t.tac) {
			t.increment()
		}
	case bus.TIMA:
		t.reload = 0
	}
}
