package bus

import (
	"testing"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/debug"
)

type flatCart struct {
	rom [0x8000]byte
	ram [0x2000]byte
}

func (c *flatCart) Read(addr uint16) byte {
	if addr < 0x8000 {
		return c.rom[addr]
	}
	return c.ram[addr-0xA000]
}

func (c *flatCart) Write(addr uint16, v byte) {
	if addr >= 0xA000 {
		c.ram[addr-0xA000] = v
	}
}

func TestBus_ROMAndRAM(t *testing.T) {
	c := &flatCart{}
	c.rom[0x0100] = 0x42
	b := New(c)

	if got := b.Read(0x0100); got != 0x42 {
		t.Fatalf("ROM read got %02x, want 42", got)
	}

	b.Write(0xC000, 0x99)
	if got := b.Read(0xC000); got != 0x99 {
		t.Fatalf("RAM read got %02x, want 99", got)
	}

	// Echo RAM mirrors C000-DDFF
	b.Write(0xE000, 0x55)
	if got := b.Read(0xC000); got != 0x55 {
		t.Fatalf("Echo write did not mirror to WRAM: got %02x", got)
	}

	b.Write(0xFF80, 0xAB)
	if got := b.Read(0xFF80); got != 0xAB {
		t.Fatalf("HRAM read got %02x, want AB", got)
	}

	b.Write(0xA123, 0x77)
	if got := b.Read(0xA123); got != 0x77 {
		t.Fatalf("Ext RAM got %02x, want 77", got)
	}

	b.Write(0xFEA5, 0x12)
	if got := b.Read(0xFEA5); got != 0x00 {
		t.Fatalf("unusable region got %02x, want 00", got)
	}
}

func TestBus_NoCartridgeIsOpenBus(t *testing.T) {
	b := New(nil)
	if got := b.Read(0x0000); got != 0xFF {
		t.Fatalf("ROM without cart got %02x want FF", got)
	}
	if got := b.Read(0xB000); got != 0xFF {
		t.Fatalf("RAM without cart got %02x want FF", got)
	}
}

func TestBus_VRAM_OAM_InterruptRegs(t *testing.T) {
	b := New(&flatCart{})

	b.Write(0x8000, 0x11)
	if got := b.Read(0x8000); got != 0x11 {
		t.Fatalf("VRAM read got %02x, want 11", got)
	}
	b.Write(0xFE00, 0x22)
	if got := b.Read(0xFE00); got != 0x22 {
		t.Fatalf("OAM read got %02x, want 22", got)
	}

	b.Write(IF, 0x3F)
	if got := b.Read(IF); got != 0xE0|0x1F {
		t.Fatalf("IF read got %02x, want FF (E0|1F)", got)
	}
	if got := b.Peek(IF); got != 0x3F {
		t.Fatalf("IF raw got %02x, want 3F", got)
	}

	b.Write(IE, 0x1B)
	if got := b.Read(IE); got != 0x1B {
		t.Fatalf("IE read got %02x, want 1B", got)
	}
}

func TestBus_ListenersInOrderAfterCommit(t *testing.T) {
	b := New(&flatCart{})
	var order []string
	b.Subscribe(ListenerFunc(func(addr uint16, v byte) {
		if got := b.Peek(addr); got != v {
			t.Fatalf("listener saw stored %02x want committed %02x", got, v)
		}
		order = append(order, "first")
	}))
	b.Subscribe(ListenerFunc(func(addr uint16, v byte) { order = append(order, "second") }))

	b.Write(SCX, 0x12)
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("listener order got %v", order)
	}

	order = nil
	b.Write(0xC000, 1)
	if len(order) != 0 {
		t.Fatalf("WRAM write notified listeners: %v", order)
	}
	b.Write(IE, 1)
	if len(order) != 2 {
		t.Fatalf("IE write notified %d listeners want 2", len(order))
	}
}

func TestBus_StrobeAndReadOnlyBits(t *testing.T) {
	b := New(&flatCart{})
	var seen byte
	b.Subscribe(ListenerFunc(func(addr uint16, v byte) {
		if addr == NR14 {
			seen = b.Peek(NR14)
		}
	}))

	b.Write(NR14, 0x87)
	if seen&0x80 == 0 {
		t.Fatalf("listener did not see trigger bit")
	}
	if got := b.Peek(NR14); got != 0x07 {
		t.Fatalf("trigger bit not cleared: got %02x want 07", got)
	}
	if got := b.Read(NR14); got != 0xBF {
		t.Fatalf("NR14 read got %02x want BF", got)
	}

	b.SetIO(STAT, 0x02)
	b.Write(STAT, 0x45)
	if got := b.Peek(STAT); got != 0x42 {
		t.Fatalf("STAT mode bits changed by CPU: got %02x want 42", got)
	}
	b.Write(LY, 0x99)
	if got := b.Read(LY); got != 0x00 {
		t.Fatalf("LY written by CPU: got %02x", got)
	}
}

func TestBus_BitHelpers(t *testing.T) {
	b := New(&flatCart{})
	b.Store(LCDC, 0x91)
	b.WriteBit(LCDC, 0x80, false)
	if got := b.Peek(LCDC); got != 0x11 {
		t.Fatalf("WriteBit clear got %02x want 11", got)
	}
	b.WriteBit(LCDC, 0x02, true)
	if got := b.Peek(LCDC); got != 0x13 {
		t.Fatalf("WriteBit set got %02x want 13", got)
	}
	if !b.ReadBit(LCDC, 0x10) || b.ReadBit(LCDC, 0x80) {
		t.Fatalf("ReadBit mismatch for %02x", b.Peek(LCDC))
	}

	b.RequestInterrupt(IntTimer)
	b.RequestInterrupt(IntJoypad)
	if got := b.Peek(IF); got != 0x14 {
		t.Fatalf("IF after requests got %02x want 14", got)
	}
}

func TestBus_OAMDMA(t *testing.T) {
	b := New(&flatCart{})
	for i := 0; i < 0xA0; i++ {
		b.Write(0xC000+uint16(i), byte(i))
	}
	b.Write(DMA, 0xC0)
	for i := 0; i < 0xA0; i++ {
		if got := b.Read(0xFE00 + uint16(i)); got != byte(i) {
			t.Fatalf("OAM[%d] got %02x want %02x", i, got, byte(i))
		}
	}
}

func TestBus_BootROMOverlay(t *testing.T) {
	c := &flatCart{}
	c.rom[0x0000] = 0xAA
	b := New(c)
	boot := make([]byte, 0x100)
	boot[0] = 0x31
	b.SetBootROM(boot)

	if got := b.Read(0x0000); got != 0x31 {
		t.Fatalf("boot overlay got %02x want 31", got)
	}
	b.Write(BOOT, 0x01)
	if got := b.Read(0x0000); got != 0xAA {
		t.Fatalf("after FF50 write got %02x want AA", got)
	}
}

func TestBus_CGBBanks(t *testing.T) {
	b := New(&flatCart{})
	b.SetCGB(true)

	b.Write(0x8000, 0x01)
	b.Write(VBK, 1)
	b.Write(0x8000, 0x02)
	if got := b.VRAM(0, 0x8000); got != 0x01 {
		t.Fatalf("VRAM bank0 got %02x want 01", got)
	}
	if got := b.Read(0x8000); got != 0x02 {
		t.Fatalf("VRAM bank1 got %02x want 02", got)
	}
	if got := b.Read(VBK); got != 0xFF {
		t.Fatalf("VBK read got %02x want FF", got)
	}

	b.Write(SVBK, 0)
	b.Write(0xD000, 0x10)
	b.Write(SVBK, 2)
	b.Write(0xD000, 0x20)
	b.Write(SVBK, 1)
	if got := b.Read(0xD000); got != 0x10 {
		t.Fatalf("WRAM bank 0->1 got %02x want 10", got)
	}
}

func TestBus_HookAndPatch(t *testing.T) {
	c := &flatCart{}
	c.rom[0x0150] = 0x00
	b := New(c)
	bps := debug.NewBreakpoints(nil)
	bps.Add(debug.Breakpoint{Addr: 0xC000, Kind: debug.MemWrite})
	b.SetHook(bps)

	b.Write(0xC000, 1)
	if hit, ok := bps.Hit(); !ok || hit.Addr != 0xC000 {
		t.Fatalf("write breakpoint not reported")
	}

	var cs debug.Cheats
	cs.Add(debug.Cheat{Kind: debug.Patch, Addr: 0x0150, Replace: 0xC9, Enabled: true})
	b.SetPatcher(&cs)
	if got := b.Read(0x0150); got != 0xC9 {
		t.Fatalf("patched read got %02x want C9", got)
	}
	if got := b.Peek(0x0150); got != 0x00 {
		t.Fatalf("Peek should bypass patch, got %02x", got)
	}
}

func TestBus_FetchSkipsReadHook(t *testing.T) {
	c := &flatCart{}
	c.rom[0x0150] = 0x3E
	b := New(c)
	bps := debug.NewBreakpoints(nil)
	bps.Add(debug.Breakpoint{Addr: 0x0150, Kind: debug.MemRead})
	b.SetHook(bps)

	if got := b.Fetch(0x0150); got != 0x3E {
		t.Fatalf("fetch got %02x want 3E", got)
	}
	if _, ok := bps.Hit(); ok {
		t.Fatalf("fetch reported a read breakpoint")
	}
	b.Read(0x0150)
	if hit, ok := bps.Hit(); !ok || hit.Kind != debug.MemRead {
		t.Fatalf("data read not reported")
	}
}

func TestAddressDecodeError(t *testing.T) {
	err := AddressDecodeError{Addr: 0x1234}
	if err.Error() != "bus: no owner for address 1234" {
		t.Fatalf("message got %q", err.Error())
	}
}
