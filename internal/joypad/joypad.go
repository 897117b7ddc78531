// Package joypad implements the input latch behind P1 (0xFF00).
package joypad

import (
	"fmt"
	"strings"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/bus"
)

// Button is a logical button. The low two bits of the value are its bit in
// the P1 nibble; bit 2 picks the group (0 direction pad, 1 action buttons).
type Button byte

const (
	Right Button = iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

var buttonNames = [...]string{"right", "left", "up", "down", "a", "b", "select", "start"}

func (b Button) String() string {
	if int(b) < len(buttonNames) {
		return buttonNames[b]
	}
	return fmt.Sprintf("button(%d)", int(b))
}

// ParseButton looks a button up by name, ignoring case.
func ParseButton(name string) (Button, bool) {
	for i, n := range buttonNames {
		if strings.EqualFold(n, name) {
			return Button(i), true
		}
	}
	return 0, false
}

// Group select bits in P1; a 0 bit selects the group.
const (
	selectDPad    = 1 << 4
	selectButtons = 1 << 5
)

type Bus interface {
	Peek(addr uint16) byte
	SetIO(addr uint16, value byte)
	RequestInterrupt(bit int)
}

type Joypad struct {
	bus     Bus
	pressed [2]byte // per group, 1 = held
	last    byte    // last published low nibble
}

func New(b Bus) *Joypad {
	j := &Joypad{bus: b, last: 0x0F}
	j.Clock()
	return j
}

// SetButton records the host's button state. P1 changes on the next Clock.
func (j *Joypad) SetButton(btn Button, pressed bool) {
	group, bit := btn>>2&1, byte(1)<<(btn&3)
	if pressed {
		j.pressed[group] |= bit
	} else {
		j.pressed[group] &^= bit
	}
}

// Pressed reports the recorded state of btn.
func (j *Joypad) Pressed(btn Button) bool {
	return j.pressed[btn>>2&1]&(1<<(btn&3)) != 0
}

// Clock recomputes the P1 low nibble for the selected groups and raises the
// joypad interrupt when any line goes from high to low.
func (j *Joypad) Clock() {
	p1 := j.bus.Peek(bus.P1)
	var held byte
	if p1&selectDPad == 0 {
		held |= j.pressed[0]
	}
	if p1&selectButtons == 0 {
		held |= j.pressed[1]
	}
	low := 0x0F &^ held
	j.bus.SetIO(bus.P1, p1&0x30|low)
	if j.last&^low != 0 {
		j.bus.RequestInterrupt(bus.IntJoypad)
	}
	j.last = low
}

// OnIOWrite re-evaluates P1 as soon as software changes the group select.
func (j *Joypad) OnIOWrite(addr uint16, value byte) {
	if addr == bus.P1 {
		j.Clock()
	}
}
