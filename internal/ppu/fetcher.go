package ppu

// VRAMReader reads video RAM from an explicit bank.
type VRAMReader interface {
	VRAM(bank int, addr uint16) byte
}

// fifo is a ring buffer of 2-bit colour indices.
type fifo struct {
	buf  [32]byte
	head int
	tail int
	size int
}

func (q *fifo) Clear()   { q.head, q.tail, q.size = 0, 0, 0 }
func (q *fifo) Len() int { return q.size }

func (q *fifo) Push(ci byte) bool {
	if q.size == len(q.buf) {
		return false
	}
	q.buf[q.tail] = ci & 0x03
	q.tail = (q.tail + 1) % len(q.buf)
	q.size++
	return true
}

func (q *fifo) Pop() (byte, bool) {
	if q.size == 0 {
		return 0, false
	}
	v := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return v, true
}

// CGB tile attribute bits, stored in VRAM bank 1 beside the tile map.
const (
	attrPalette  = 0x07
	attrBank     = 1 << 3
	attrXFlip    = 1 << 5
	attrYFlip    = 1 << 6
	attrPriority = 1 << 7
)

// tileFetcher pushes one row of a background or window tile into a fifo.
type tileFetcher struct {
	mem  VRAMReader
	fifo *fifo
	cgb  bool
}

func newTileFetcher(mem VRAMReader, q *fifo, cgb bool) *tileFetcher {
	return &tileFetcher{mem: mem, fifo: q, cgb: cgb}
}

// tileDataAddr returns the address of row fineY of tile. With unsigned
// addressing tiles start at 0x8000; otherwise the index is signed around
// 0x9000.
func tileDataAddr(tile, fineY byte, unsigned bool) uint16 {
	if unsigned {
		return 0x8000 + uint16(tile)*16 + uint16(fineY)*2
	}
	return uint16(int32(0x9000) + int32(int8(tile))*16 + int32(fineY)*2)
}

// Fetch reads the map entry at column tileX of the row containing line y,
// pushes its 8 pixels and returns the attribute byte (0 outside colour mode).
func (f *tileFetcher) Fetch(mapBase uint16, tileX, y byte, unsigned bool) byte {
	idx := mapBase + uint16(y>>3)*32 + uint16(tileX&31)
	tile := f.mem.VRAM(0, idx)
	var attr byte
	if f.cgb {
		attr = f.mem.VRAM(1, idx)
	}
	fineY := y & 7
	if attr&attrYFlip != 0 {
		fineY = 7 - fineY
	}
	bank := 0
	if attr&attrBank != 0 {
		bank = 1
	}
	addr := tileDataAddr(tile, fineY, unsigned)
	pushRow(f.fifo, f.mem.VRAM(bank, addr), f.mem.VRAM(bank, addr+1), attr&attrXFlip != 0)
	return attr
}

// pushRow decodes one 2bpp tile row, leftmost pixel first.
func pushRow(q *fifo, lo, hi byte, xflip bool) {
	for px := 0; px < 8; px++ {
		q.Push(rowPixel(lo, hi, px, xflip))
	}
}

func rowPixel(lo, hi byte, px int, xflip bool) byte {
	bit := byte(7 - px)
	if xflip {
		bit = byte(px)
	}
	return (hi>>bit)&1<<1 | (lo>>bit)&1
}
