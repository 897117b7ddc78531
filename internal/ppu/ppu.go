// Package ppu implements the pixel processing unit: the per-scanline mode
// state machine, the background/window/sprite compositor and a
// double-buffered frame handoff.
package ppu

import (
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/bus"
)

const (
	Width  = 160
	Height = 144

	oamDots      = 80
	transferDots = 172
	lineDots     = 456
	totalLines   = 154

	// FrameCycles is the length of one frame in CPU cycles.
	FrameCycles = lineDots * totalLines
)

// Mode is the value of the STAT mode bits.
type Mode byte

const (
	ModeHBlank Mode = iota
	ModeVBlank
	ModeOAM
	ModeTransfer
)

func (m Mode) String() string {
	switch m {
	case ModeHBlank:
		return "hblank"
	case ModeVBlank:
		return "vblank"
	case ModeOAM:
		return "oam"
	}
	return "transfer"
}

// STAT bits.
const (
	statLYCFlag   = 1 << 2
	statHBlankInt = 1 << 3
	statVBlankInt = 1 << 4
	statOAMInt    = 1 << 5
	statLYCInt    = 1 << 6
)

// Bus is the part of the memory bus the unit reads registers and video
// memory through.
type Bus interface {
	VRAMReader
	Peek(addr uint16) byte
	SetIO(addr uint16, value byte)
	RequestInterrupt(bit int)
	OAM() *[0xA0]byte
	CGB() bool
}

// Frame is one completed picture. Pix holds the shade index (monochrome) or
// palette-relative colour index (colour mode) of each pixel, row-major from
// the top-left; RGBA holds the resolved colours.
type Frame struct {
	Index uint64
	Pix   [Width * Height]byte
	RGBA  [Width * Height * 4]byte
}

// PPU is clocked by the machine in CPU cycles and subscribes to LCD register
// writes on the bus.
type PPU struct {
	bus Bus

	mode    Mode
	ly      byte
	dot     int // position within the current line
	winLine byte
	lcdOn   bool

	bufs   [2]Frame
	back   int
	frames uint64

	palette Palette
	bgRAM   colourRAM
	objRAM  colourRAM
}

func New(b Bus) *PPU {
	p := &PPU{bus: b, palette: Palettes[PaletteGrey]}
	p.bgRAM.reset()
	p.objRAM.reset()
	p.Reset()
	return p
}

// Reset rewinds to the start of a frame and takes the display state from
// the current LCDC value.
func (p *PPU) Reset() {
	p.ly, p.dot, p.winLine = 0, 0, 0
	p.lcdOn = p.bus.Peek(bus.LCDC)&lcdcDisplayOn != 0
	p.bus.SetIO(bus.LY, 0)
	if p.lcdOn {
		p.setMode(ModeOAM)
	} else {
		p.setMode(ModeHBlank)
	}
	p.compareLYC()
}

// SetPalette selects the monochrome output palette.
func (p *PPU) SetPalette(id PaletteID) {
	if id >= 0 && int(id) < len(Palettes) {
		p.palette = Palettes[id]
	}
}

func (p *PPU) Mode() Mode { return p.mode }
func (p *PPU) LY() byte   { return p.ly }
func (p *PPU) Dot() int   { return p.dot }

// Frames returns the number of frames completed since power-on.
func (p *PPU) Frames() uint64 { return p.frames }

// Frame returns the last completed frame. It stays unchanged until the next
// V-blank, when the buffers swap.
func (p *PPU) Frame() *Frame { return &p.bufs[p.back^1] }

// OnIOWrite reacts to LCD register writes after the bus has committed them.
func (p *PPU) OnIOWrite(addr uint16, value byte) {
	switch addr {
	case bus.LCDC:
		on := value&lcdcDisplayOn != 0
		switch {
		case p.lcdOn && !on:
			p.lcdOn = false
			p.ly, p.dot = 0, 0
			p.bus.SetIO(bus.LY, 0)
			p.setMode(ModeHBlank)
		case !p.lcdOn && on:
			p.lcdOn = true
			p.ly, p.dot, p.winLine = 0, 0, 0
			p.bus.SetIO(bus.LY, 0)
			p.enter(ModeOAM)
			p.compareLYC()
		}
	case bus.LYC:
		if p.lcdOn {
			p.compareLYC()
		}
	case bus.BCPS:
		if p.bus.CGB() {
			p.bus.SetIO(bus.BCPD, p.bgRAM[value&0x3F])
		}
	case bus.BCPD:
		if p.bus.CGB() {
			p.writePalette(&p.bgRAM, bus.BCPS, bus.BCPD, value)
		}
	case bus.OCPS:
		if p.bus.CGB() {
			p.bus.SetIO(bus.OCPD, p.objRAM[value&0x3F])
		}
	case bus.OCPD:
		if p.bus.CGB() {
			p.writePalette(&p.objRAM, bus.OCPS, bus.OCPD, value)
		}
	}
}

// writePalette stores value at the index held in the spec register and
// advances the index when its bit 7 asks for auto-increment.
func (p *PPU) writePalette(ram *colourRAM, specReg, dataReg uint16, value byte) {
	spec := p.bus.Peek(specReg)
	idx := spec & 0x3F
	ram[idx] = value
	if spec&0x80 != 0 {
		spec = spec&0x80 | (idx+1)&0x3F
		p.bus.SetIO(specReg, spec)
	}
	p.bus.SetIO(dataReg, ram[spec&0x3F])
}

// Tick advances the unit by cycles dots. A switched-off display holds at
// line 0 and raises nothing.
func (p *PPU) Tick(cycles int) {
	if !p.lcdOn {
		return
	}
	for cycles > 0 {
		step := p.boundary() - p.dot
		if step > cycles {
			p.dot += cycles
			return
		}
		p.dot += step
		cycles -= step
		p.advance()
	}
}

// boundary is the dot at which the current mode ends.
func (p *PPU) boundary() int {
	switch p.mode {
	case ModeOAM:
		return oamDots
	case ModeTransfer:
		return oamDots + transferDots
	}
	return lineDots
}

func (p *PPU) advance() {
	switch p.mode {
	case ModeOAM:
		p.enter(ModeTransfer)
	case ModeTransfer:
		p.renderLine()
		p.enter(ModeHBlank)
	case ModeHBlank:
		p.nextLine()
		if p.ly == Height {
			p.enter(ModeVBlank)
			p.bus.RequestInterrupt(bus.IntVBlank)
			p.publish()
		} else {
			p.enter(ModeOAM)
		}
	case ModeVBlank:
		p.nextLine()
		if p.ly == 0 {
			p.winLine = 0
			p.enter(ModeOAM)
		}
	}
}

func (p *PPU) nextLine() {
	p.dot = 0
	p.ly++
	if p.ly == totalLines {
		p.ly = 0
	}
	p.bus.SetIO(bus.LY, p.ly)
	p.compareLYC()
}

// publish swaps the frame buffers.
func (p *PPU) publish() {
	p.frames++
	p.bufs[p.back].Index = p.frames
	p.back ^= 1
}

// enter switches mode and raises the matching STAT interrupt when enabled.
func (p *PPU) enter(m Mode) {
	p.setMode(m)
	stat := p.bus.Peek(bus.STAT)
	var want byte
	switch m {
	case ModeHBlank:
		want = statHBlankInt
	case ModeVBlank:
		want = statVBlankInt
	case ModeOAM:
		want = statOAMInt
	}
	if stat&want != 0 {
		p.bus.RequestInterrupt(bus.IntSTAT)
	}
}

func (p *PPU) setMode(m Mode) {
	p.mode = m
	stat := p.bus.Peek(bus.STAT)
	p.bus.SetIO(bus.STAT, stat&^0x03|byte(m))
}

func (p *PPU) compareLYC() {
	stat := p.bus.Peek(bus.STAT)
	if p.ly != p.bus.Peek(bus.LYC) {
		p.bus.SetIO(bus.STAT, stat&^statLYCFlag)
		return
	}
	p.bus.SetIO(bus.STAT, stat|statLYCFlag)
	if stat&statLYCInt != 0 {
		p.bus.RequestInterrupt(bus.IntSTAT)
	}
}
