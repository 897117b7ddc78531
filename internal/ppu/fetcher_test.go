package ppu

import "testing"

func TestFIFO(t *testing.T) {
	var q fifo
	if q.Len() != 0 {
		t.Fatal("new fifo not empty")
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("pop from empty should fail")
	}
	for i := 0; i < 32; i++ {
		if !q.Push(byte(i)) {
			t.Fatal("unexpected full")
		}
	}
	if q.Push(0) {
		t.Fatal("should be full")
	}
	for i := 0; i < 32; i++ {
		v, ok := q.Pop()
		if !ok {
			t.Fatal("unexpected empty")
		}
		if v != byte(i)&3 {
			t.Fatalf("got %d want %d", v, byte(i)&3)
		}
	}
}

// mockVRAM keys bytes by bank<<16 | addr.
type mockVRAM map[uint32]byte

func (m mockVRAM) VRAM(bank int, addr uint16) byte { return m[uint32(bank)<<16|uint32(addr)] }
func (m mockVRAM) set(bank int, addr uint16, v byte) { m[uint32(bank)<<16|uint32(addr)] = v }

func wantRow(t *testing.T, q *fifo, lo, hi byte, xflip bool) {
	t.Helper()
	if q.Len() != 8 {
		t.Fatalf("expected 8 pixels in fifo, got %d", q.Len())
	}
	for i := 0; i < 8; i++ {
		b := 7 - byte(i)
		if xflip {
			b = byte(i)
		}
		want := ((hi>>b)&1)<<1 | ((lo >> b) & 1)
		got, _ := q.Pop()
		if got != want {
			t.Fatalf("px %d got %d want %d", i, got, want)
		}
	}
}

func TestFetcherFetchesEightPixels(t *testing.T) {
	mem := mockVRAM{}
	mem.set(0, 0x9800, 0)
	mem.set(0, 0x8000, 0x55)
	mem.set(0, 0x8001, 0x33)
	var q fifo
	f := newTileFetcher(mem, &q, false)
	if attr := f.Fetch(0x9800, 0, 0, true); attr != 0 {
		t.Fatalf("attr got %02X want 00", attr)
	}
	wantRow(t, &q, 0x55, 0x33, false)
}

func TestFetcherSignedTileAddressing8800(t *testing.T) {
	mem := mockVRAM{}
	// Tile index 0xFF is -1 relative to 0x9000.
	mem.set(0, 0x9C00, 0xFF)
	fineY := byte(5)
	rowAddr := uint16(0x8FF0) + uint16(fineY)*2
	mem.set(0, rowAddr, 0xA5)
	mem.set(0, rowAddr+1, 0x5A)

	var q fifo
	f := newTileFetcher(mem, &q, false)
	f.Fetch(0x9C00, 0, fineY, false)
	wantRow(t, &q, 0xA5, 0x5A, false)
}

func TestFetcherMapRowAndColumn(t *testing.T) {
	mem := mockVRAM{}
	// Line 17 is map row 2, fine row 1; column 33 wraps to 1.
	mem.set(0, 0x9800+2*32+1, 3)
	mem.set(0, 0x8000+3*16+2, 0xF0)
	mem.set(0, 0x8000+3*16+3, 0x0F)
	var q fifo
	newTileFetcher(mem, &q, false).Fetch(0x9800, 33, 17, true)
	wantRow(t, &q, 0xF0, 0x0F, false)
}

func TestFetcherColourAttributes(t *testing.T) {
	mem := mockVRAM{}
	mem.set(0, 0x9800, 1)
	mem.set(1, 0x9800, attrBank|attrXFlip|attrYFlip|0x05)
	// Y flip turns fine row 0 into row 7, read from bank 1.
	mem.set(1, 0x8000+16+14, 0xC0)
	mem.set(1, 0x8000+16+15, 0x80)
	var q fifo
	attr := newTileFetcher(mem, &q, true).Fetch(0x9800, 0, 0, true)
	if attr&attrPalette != 5 {
		t.Fatalf("palette got %d want 5", attr&attrPalette)
	}
	wantRow(t, &q, 0xC0, 0x80, true)
}

func TestTileDataAddr(t *testing.T) {
	cases := []struct {
		tile, row byte
		unsigned  bool
		want      uint16
	}{
		{0x00, 0, true, 0x8000},
		{0x80, 3, true, 0x8806},
		{0x00, 0, false, 0x9000},
		{0x7F, 7, false, 0x97FE},
		{0x80, 0, false, 0x8800},
	}
	for _, c := range cases {
		if got := tileDataAddr(c.tile, c.row, c.unsigned); got != c.want {
			t.Fatalf("tile %02X row %d unsigned=%v: got %04X want %04X", c.tile, c.row, c.unsigned, got, c.want)
		}
	}
}
