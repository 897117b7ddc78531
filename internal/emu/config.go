package emu

import (
	"io"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/apu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/debug"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/logger"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ppu"
)

// Config contains settings that affect emulation behavior.
type Config struct {
	SampleRate  int           // APU output rate in Hz
	Palette     ppu.PaletteID // monochrome palette
	AutoPalette bool          // pick the palette from the cartridge title
	BootROM     []byte        // run from 0x0000 through this image; nil starts at 0x0100
	Trace       bool          // log every instruction
}

// DefaultConfig starts at 0x0100 in grey at 44100 Hz.
func DefaultConfig() Config {
	return Config{SampleRate: apu.DefaultSampleRate, Palette: ppu.PaletteGrey}
}

// Option configures a Machine beyond its Config.
type Option func(*Machine)

// WithLogger routes machine diagnostics to l.
func WithLogger(l logger.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// WithSerial sends bytes shifted out of the link port to w.
func WithSerial(w io.Writer) Option {
	return func(m *Machine) { m.serialOut = w }
}

// WithHook installs a debugger hook on the CPU and the bus.
func WithHook(h debug.Hook) Option {
	return func(m *Machine) { m.hook = h }
}
