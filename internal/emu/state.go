package emu

import (
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/cart"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ppu"
)

// State is a copy of the machine's inspectable registers, small enough to
// print or graph.
type State struct {
	CPU     cpu.Registers
	IME     bool
	Run     cpu.RunState
	Ctrl    cart.Controller
	Mode    ppu.Mode
	LY      byte
	Frames  uint64
	Cycles  uint64
	Divider uint16
	Fault   error
}

// Snapshot copies the current State. It returns nil before a cartridge is
// loaded.
func (m *Machine) Snapshot() *State {
	if m.CPU == nil {
		return nil
	}
	return &State{
		CPU:     m.CPU.Registers,
		IME:     m.CPU.IME,
		Run:     m.CPU.State,
		Ctrl:    m.Cart.Ctrl,
		Mode:    m.PPU.Mode(),
		LY:      m.PPU.LY(),
		Frames:  m.PPU.Frames(),
		Cycles:  m.cycles,
		Divider: m.Timer.Divider(),
		Fault:   m.CPU.Fault(),
	}
}
