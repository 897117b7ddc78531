package ppu

import (
	"fmt"
	"image/color"
	"strings"
)

// Palette maps the four monochrome shades (0 lightest) to display colours.
type Palette struct {
	Name   string
	Shades [4]color.RGBA
}

func rgb(v uint32) color.RGBA {
	return color.RGBA{R: byte(v >> 16), G: byte(v >> 8), B: byte(v), A: 0xFF}
}

// PaletteID indexes Palettes.
type PaletteID int

const (
	PaletteGrey PaletteID = iota
	PaletteGreen
	PaletteSepia
	PaletteBlue
	PaletteRed
	PalettePastel
)

// Palettes holds the selectable monochrome palettes.
var Palettes = [...]Palette{
	PaletteGrey:   {"grey", [4]color.RGBA{rgb(0xFFFFFF), rgb(0xC0C0C0), rgb(0x606060), rgb(0x000000)}},
	PaletteGreen:  {"green", [4]color.RGBA{rgb(0xE0F8D0), rgb(0x88C070), rgb(0x346856), rgb(0x081820)}},
	PaletteSepia:  {"sepia", [4]color.RGBA{rgb(0xFFF0D8), rgb(0xD8B078), rgb(0x906038), rgb(0x302010)}},
	PaletteBlue:   {"blue", [4]color.RGBA{rgb(0xF0F8FF), rgb(0x88B0E8), rgb(0x3858A8), rgb(0x081038)}},
	PaletteRed:    {"red", [4]color.RGBA{rgb(0xFFF0F0), rgb(0xF09078), rgb(0xA83828), rgb(0x300808)}},
	PalettePastel: {"pastel", [4]color.RGBA{rgb(0xFFF8F0), rgb(0xF0C0D8), rgb(0x9888C8), rgb(0x383058)}},
}

func (id PaletteID) String() string {
	if id < 0 || int(id) >= len(Palettes) {
		return fmt.Sprintf("palette(%d)", int(id))
	}
	return Palettes[id].Name
}

// ParsePalette looks a palette up by name, ignoring case.
func ParsePalette(name string) (PaletteID, bool) {
	for i, p := range Palettes {
		if strings.EqualFold(p.Name, name) {
			return PaletteID(i), true
		}
	}
	return 0, false
}

// shade resolves colour index ci through a DMG palette register.
func shade(reg, ci byte) byte { return (reg >> (ci * 2)) & 0x03 }

// colourRAM is one bank of CGB palette memory: 8 palettes of 4 RGB555
// colours, little-endian.
type colourRAM [64]byte

func (c *colourRAM) reset() {
	for i := 0; i < len(c); i += 2 {
		c[i], c[i+1] = 0xFF, 0x7F
	}
}

func (c *colourRAM) rgba(pal, ci byte) color.RGBA {
	i := int(pal&7)*8 + int(ci&3)*2
	return decodeRGB555(c[i], c[i+1])
}

// decodeRGB555 widens each 5-bit channel to 8 bits.
func decodeRGB555(lo, hi byte) color.RGBA {
	v := uint16(lo) | uint16(hi)<<8
	r5 := byte(v & 0x1F)
	g5 := byte(v>>5) & 0x1F
	b5 := byte(v>>10) & 0x1F
	return color.RGBA{
		R: r5<<3 | r5>>2,
		G: g5<<3 | g5>>2,
		B: b5<<3 | b5>>2,
		A: 0xFF,
	}
}
