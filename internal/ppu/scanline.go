package ppu

import (
	"image/color"
	"slices"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/bus"
)

// LCDC bits.
const (
	lcdcBG        = 1 << 0 // DMG: BG and window on; CGB: BG master priority
	lcdcOBJ       = 1 << 1
	lcdcOBJTall   = 1 << 2
	lcdcBGMap     = 1 << 3
	lcdcTileData  = 1 << 4
	lcdcWindow    = 1 << 5
	lcdcWindowMap = 1 << 6
	lcdcDisplayOn = 1 << 7
)

const maxLineSprites = 10

// layer is one line of background/window output before palette lookup.
type layer struct {
	ci   [Width]byte
	attr [Width]byte
}

// Sprite is one decoded OAM entry, positioned in screen coordinates.
type Sprite struct {
	X, Y     int
	Tile     byte
	Attr     byte
	OAMIndex int
}

// renderLine composites the current line into the back buffer.
func (p *PPU) renderLine() {
	lcdc := p.bus.Peek(bus.LCDC)
	cgb := p.bus.CGB()
	y := int(p.ly)

	var bg layer
	if lcdc&lcdcBG != 0 || cgb {
		p.drawBackground(&bg, lcdc, cgb)
		if p.drawWindow(&bg, lcdc, cgb) {
			p.winLine++
		}
	}

	var objCI, objAttr [Width]byte
	if lcdc&lcdcOBJ != 0 {
		sprites := p.lineSprites(y, lcdc, cgb)
		p.composeSprites(sprites, y, lcdc, cgb, &bg, &objCI, &objAttr)
	}

	bgp := p.bus.Peek(bus.BGP)
	obp := [2]byte{p.bus.Peek(bus.OBP0), p.bus.Peek(bus.OBP1)}
	out := &p.bufs[p.back]
	for x := 0; x < Width; x++ {
		var c color.RGBA
		var ci byte
		switch {
		case objCI[x] != 0 && cgb:
			ci = objCI[x]
			c = p.objRAM.rgba(objAttr[x]&attrPalette, ci)
		case objCI[x] != 0:
			ci = shade(obp[objAttr[x]>>4&1], objCI[x])
			c = p.palette.Shades[ci]
		case cgb:
			ci = bg.ci[x]
			c = p.bgRAM.rgba(bg.attr[x]&attrPalette, ci)
		case lcdc&lcdcBG == 0:
			c = p.palette.Shades[0]
		default:
			ci = shade(bgp, bg.ci[x])
			c = p.palette.Shades[ci]
		}
		i := y*Width + x
		out.Pix[i] = ci
		out.RGBA[i*4+0] = c.R
		out.RGBA[i*4+1] = c.G
		out.RGBA[i*4+2] = c.B
		out.RGBA[i*4+3] = c.A
	}
}

// fillLayer writes tile pixels into l from screen column startX to the right
// edge, reading the map row that contains source line srcY, beginning
// discard pixels into tile column tileX.
func (p *PPU) fillLayer(l *layer, startX int, mapBase uint16, tileX byte, discard int, srcY byte, unsigned, cgb bool) {
	var q fifo
	f := newTileFetcher(p.bus, &q, cgb)
	var attr byte
	for x := startX; x < Width; x++ {
		if q.Len() == 0 {
			attr = f.Fetch(mapBase, tileX, srcY, unsigned)
			tileX = (tileX + 1) & 31
			for ; discard > 0; discard-- {
				q.Pop()
			}
		}
		ci, _ := q.Pop()
		l.ci[x] = ci
		l.attr[x] = attr
	}
}

func (p *PPU) drawBackground(l *layer, lcdc byte, cgb bool) {
	scx := p.bus.Peek(bus.SCX)
	srcY := p.ly + p.bus.Peek(bus.SCY)
	mapBase := uint16(0x9800)
	if lcdc&lcdcBGMap != 0 {
		mapBase = 0x9C00
	}
	p.fillLayer(l, 0, mapBase, scx>>3, int(scx&7), srcY, lcdc&lcdcTileData != 0, cgb)
}

// drawWindow overlays the window and reports whether any of it was visible
// on this line.
func (p *PPU) drawWindow(l *layer, lcdc byte, cgb bool) bool {
	wy, wx := p.bus.Peek(bus.WY), p.bus.Peek(bus.WX)
	if lcdc&lcdcWindow == 0 || p.ly < wy || wx > 166 {
		return false
	}
	mapBase := uint16(0x9800)
	if lcdc&lcdcWindowMap != 0 {
		mapBase = 0x9C00
	}
	startX, discard := int(wx)-7, 0
	if startX < 0 {
		startX, discard = 0, -startX
	}
	p.fillLayer(l, startX, mapBase, 0, discard, p.winLine, lcdc&lcdcTileData != 0, cgb)
	return true
}

// lineSprites selects up to ten OAM entries covering line y, in OAM order,
// then orders them by drawing priority: colour mode keeps OAM order,
// monochrome mode puts the smaller X first with OAM order breaking ties.
func (p *PPU) lineSprites(y int, lcdc byte, cgb bool) []Sprite {
	h := 8
	if lcdc&lcdcOBJTall != 0 {
		h = 16
	}
	oam := p.bus.OAM()
	list := make([]Sprite, 0, maxLineSprites)
	for i := 0; i < 40 && len(list) < maxLineSprites; i++ {
		sy := int(oam[i*4]) - 16
		if y < sy || y >= sy+h {
			continue
		}
		list = append(list, Sprite{
			Y:        sy,
			X:        int(oam[i*4+1]) - 8,
			Tile:     oam[i*4+2],
			Attr:     oam[i*4+3],
			OAMIndex: i,
		})
	}
	if !cgb {
		slices.SortStableFunc(list, func(a, b Sprite) int { return a.X - b.X })
	}
	return list
}

// composeSprites resolves, for each column, the highest-priority opaque
// sprite pixel and whether the background hides it.
func (p *PPU) composeSprites(list []Sprite, y int, lcdc byte, cgb bool, bg *layer, ci, attr *[Width]byte) {
	tall := lcdc&lcdcOBJTall != 0
	var taken [Width]bool
	for _, s := range list {
		row := y - s.Y
		if s.Attr&attrYFlip != 0 {
			if tall {
				row = 15 - row
			} else {
				row = 7 - row
			}
		}
		tile := s.Tile
		if tall {
			tile &= 0xFE
			if row >= 8 {
				tile++
			}
		}
		bank := 0
		if cgb && s.Attr&attrBank != 0 {
			bank = 1
		}
		addr := tileDataAddr(tile, byte(row&7), true)
		lo, hi := p.bus.VRAM(bank, addr), p.bus.VRAM(bank, addr+1)
		for px := 0; px < 8; px++ {
			x := s.X + px
			if x < 0 || x >= Width || taken[x] {
				continue
			}
			c := rowPixel(lo, hi, px, s.Attr&attrXFlip != 0)
			if c == 0 {
				continue
			}
			taken[x] = true
			if bgWins(bg.ci[x], bg.attr[x], s.Attr, lcdc, cgb) {
				continue
			}
			ci[x] = c
			attr[x] = s.Attr
		}
	}
}

func bgWins(bgCI, bgAttr, objAttr, lcdc byte, cgb bool) bool {
	if bgCI == 0 {
		return false
	}
	if cgb {
		if lcdc&lcdcBG == 0 {
			return false
		}
		return bgAttr&attrPriority != 0 || objAttr&attrPriority != 0
	}
	return objAttr&attrPriority != 0
}
