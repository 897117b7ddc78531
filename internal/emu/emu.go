// Package emu wires the components into a Machine and drives them from the
// CPU's cycle count.
package emu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/apu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/bus"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/cart"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/debug"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/joypad"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/logger"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ppu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/serial"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/timer"
)

// ErrNoCartridge is returned by the step drivers before a ROM is loaded.
var ErrNoCartridge = errors.New("emu: no cartridge loaded")

// ClockHz is the CPU clock; the cartridge clock advances one second per
// ClockHz cycles.
const ClockHz = 4194304

type Machine struct {
	cfg       Config
	log       logger.Logger
	serialOut io.Writer
	hook      debug.Hook
	cheats    debug.Cheats
	romPath   string

	Cart   *cart.Cartridge
	Bus    *bus.Bus
	CPU    *cpu.CPU
	PPU    *ppu.PPU
	APU    *apu.APU
	Timer  *timer.Timer
	Serial *serial.Port
	Joypad *joypad.Joypad

	cycles    uint64
	rtcCycles int
	lastFrame uint64
	palette   ppu.PaletteID
}

// New returns a machine with no cartridge; call LoadCartridge before
// stepping.
func New(cfg Config, opts ...Option) *Machine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = apu.DefaultSampleRate
	}
	m := &Machine{cfg: cfg, log: logger.Discard, palette: cfg.Palette}
	for _, o := range opts {
		o(m)
	}
	return m
}

// LoadCartridge maps rom and powers the machine on. Any previous cartridge
// is dropped.
func (m *Machine) LoadCartridge(rom []byte) error {
	c, err := cart.Load(rom)
	if err != nil {
		return fmt.Errorf("emu: %w", err)
	}
	h := c.Header
	m.log.Logf("cart", "%q %s, %d ROM banks, %d bytes RAM, cgb=%v", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes, h.CGB())
	if !cart.HeaderChecksumOK(rom) {
		m.log.Logf("cart", "header checksum mismatch (%02X)", h.HeaderChecksum)
	}
	if m.cfg.AutoPalette && !h.CGB() {
		m.palette = paletteForHeader(h)
		m.log.Logf("ppu", "palette %s for %q", m.palette, h.Title)
	}
	m.Cart = c
	m.wire()
	return nil
}

// LoadROMFromFile reads and loads a ROM image from disk.
func (m *Machine) LoadROMFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := m.LoadCartridge(data); err != nil {
		return err
	}
	m.romPath = path
	return nil
}

// ROMPath returns the path of the ROM loaded from disk, if any.
func (m *Machine) ROMPath() string { return m.romPath }

// Reset powers the machine off and on again with the same cartridge.
// Cartridge RAM and clock survive.
func (m *Machine) Reset() {
	if m.Cart == nil {
		return
	}
	m.Cart.Reset()
	m.wire()
}

// wire builds a fresh bus around the cartridge. Every listener is
// subscribed before the first register write.
func (m *Machine) wire() {
	b := bus.New(m.Cart)
	b.SetCGB(m.Cart.Header.CGB())

	m.Bus = b
	m.PPU = ppu.New(b)
	m.APU = apu.New(b, m.cfg.SampleRate)
	m.Timer = timer.New(b)
	m.Serial = serial.New(b, m.serialOut)
	m.Joypad = joypad.New(b)
	b.Subscribe(m.PPU)
	b.Subscribe(m.APU)
	b.Subscribe(m.Timer)
	b.Subscribe(m.Serial)
	b.Subscribe(m.Joypad)
	b.SetPatcher(&m.cheats)
	m.PPU.SetPalette(m.palette)

	m.CPU = cpu.New(b)
	if m.hook != nil {
		b.SetHook(m.hook)
		m.CPU.SetHook(m.hook)
	}

	if len(m.cfg.BootROM) >= 0x100 {
		b.SetBootROM(m.cfg.BootROM)
		m.CPU.Reset()
	} else {
		b.PostBoot()
		m.PPU.Reset()
		m.APU.Reset()
		m.Timer.Reset()
		m.Joypad.Clock()
		m.CPU.ResetNoBoot()
		if b.CGB() {
			m.CPU.A = 0x11
		}
	}
	m.cycles, m.rtcCycles = 0, 0
	m.lastFrame = m.PPU.Frames()
}

// SetPalette changes the monochrome palette immediately.
func (m *Machine) SetPalette(id ppu.PaletteID) {
	m.palette = id
	if m.PPU != nil {
		m.PPU.SetPalette(id)
	}
}

// Palette returns the monochrome palette in use.
func (m *Machine) Palette() ppu.PaletteID { return m.palette }

// SetSerialWriter redirects the link port output.
func (m *Machine) SetSerialWriter(w io.Writer) {
	m.serialOut = w
	if m.Serial != nil {
		m.Serial.SetWriter(w)
	}
}

// Step runs one CPU step and feeds its cycle cost to every other component.
// An illegal opcode is returned here and on every later call until Reset.
func (m *Machine) Step() (int, error) {
	if m.CPU == nil {
		return 0, ErrNoCartridge
	}
	if m.cfg.Trace {
		m.trace()
	}
	fault := m.CPU.Fault()
	n, err := m.CPU.Step()
	if err != nil {
		if fault == nil {
			m.log.Logf("cpu", "%v", err)
		}
		return 0, err
	}

	m.PPU.Tick(n)
	m.APU.Tick(n)
	m.Timer.Tick(n)
	m.Joypad.Clock()

	m.cycles += uint64(n)
	m.rtcCycles += n
	for m.rtcCycles >= ClockHz {
		m.rtcCycles -= ClockHz
		m.Cart.TickRTC(1)
	}
	if f := m.PPU.Frames(); f != m.lastFrame {
		m.lastFrame = f
		m.cheats.Pokes(m.Bus.Store)
	}
	return n, nil
}

// StepFrame runs until the PPU publishes a frame. With the display off it
// stops after one frame's worth of cycles instead.
func (m *Machine) StepFrame() error {
	if m.CPU == nil {
		return ErrNoCartridge
	}
	start := m.PPU.Frames()
	for elapsed := 0; elapsed < ppu.FrameCycles; {
		n, err := m.Step()
		if err != nil {
			return err
		}
		elapsed += n
		if m.PPU.Frames() != start {
			return nil
		}
	}
	return nil
}

// Run steps whole frames until frames have completed (frames <= 0 runs
// forever), the context is cancelled or the CPU faults. Cancellation is
// checked between frames.
func (m *Machine) Run(ctx context.Context, frames int) error {
	for i := 0; frames <= 0 || i < frames; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := m.StepFrame(); err != nil {
			return err
		}
	}
	return nil
}

// Cycles returns the clock cycles executed since power-on.
func (m *Machine) Cycles() uint64 { return m.cycles }

// Frame returns the last completed frame. The pointer stays valid until the
// next frame completes.
func (m *Machine) Frame() *ppu.Frame {
	if m.PPU == nil {
		return nil
	}
	return m.PPU.Frame()
}

// NextSample pops one stereo sample; silence when none is buffered.
func (m *Machine) NextSample() (left, right float32) {
	if m.APU == nil {
		return 0, 0
	}
	return m.APU.NextSample()
}

// BufferedSamples reports how many samples NextSample can return.
func (m *Machine) BufferedSamples() int {
	if m.APU == nil {
		return 0
	}
	return m.APU.Buffered()
}

// SetButton records a host button change; software sees it on the next step.
func (m *Machine) SetButton(b joypad.Button, pressed bool) {
	if m.Joypad != nil {
		m.Joypad.SetButton(b, pressed)
	}
}

// AddCheat parses and enables a Game Genie or GameShark code.
func (m *Machine) AddCheat(name, code string) error {
	c, err := debug.ParseCheat(name, code)
	if err != nil {
		return err
	}
	m.cheats.Add(c)
	m.log.Logf("cheat", "added %q at %04X", c.Name, c.Addr)
	return nil
}

// SetCheatEnabled toggles every cheat called name.
func (m *Machine) SetCheatEnabled(name string, on bool) { m.cheats.SetEnabled(name, on) }

// Cheats lists the installed cheats.
func (m *Machine) Cheats() []debug.Cheat { return m.cheats.List() }

// SaveBattery returns cartridge RAM for persistence, if the cartridge keeps
// it across power cycles.
func (m *Machine) SaveBattery() ([]byte, bool) {
	if m.Cart == nil || !m.Cart.HasBattery() {
		return nil, false
	}
	data := m.Cart.SaveRAM()
	return data, len(data) > 0
}

// LoadBattery restores RAM produced by SaveBattery.
func (m *Machine) LoadBattery(data []byte) bool {
	if m.Cart == nil || !m.Cart.HasBattery() {
		return false
	}
	m.Cart.LoadRAM(data)
	return true
}

func (m *Machine) trace() {
	c := m.CPU
	m.log.Logf("trace", "PC=%04X OP=%02X A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X IME=%t IF=%02X IE=%02X",
		c.PC, m.Bus.Peek(c.PC), c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L, c.SP, c.IME, m.Bus.Peek(bus.IF), m.Bus.Peek(bus.IE))
}
