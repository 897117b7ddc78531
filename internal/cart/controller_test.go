package cart

import "testing"

// bankedROM returns a ROM whose every bank starts with its own bank number.
func bankedROM(cartType, romSizeCode, ramSizeCode byte) []byte {
	size, banks := decodeROMSize(romSizeCode)
	rom := buildROM("BANKS", cartType, romSizeCode, ramSizeCode, size)
	for bank := 1; bank < banks; bank++ {
		rom[bank*romBankSize] = byte(bank)
	}
	return rom
}

func mustLoad(t *testing.T, rom []byte) *Cartridge {
	t.Helper()
	c, err := Load(rom)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestMBC1_ROMBanking(t *testing.T) {
	c := mustLoad(t, bankedROM(0x01, 0x02, 0x00)) // 128 KiB, 8 banks

	if got := c.Read(0x4000); got != 0x01 {
		t.Fatalf("bank1 read got %02X want 01", got)
	}

	c.Write(0x2000, 0x05)
	if got := c.Read(0x4000); got != 0x05 {
		t.Fatalf("bank5 read got %02X want 05", got)
	}

	c.Write(0x2000, 0x00)
	if got := c.Read(0x4000); got != 0x01 {
		t.Fatalf("bank0->1 remap failed: got %02X", got)
	}
	if off := c.Ctrl.MapROM(0x4000); off != romBankSize {
		t.Fatalf("MapROM got %#x want %#x", off, romBankSize)
	}

	// 0x0D wraps modulo 8 banks
	c.Write(0x2000, 0x0D)
	if got := c.Read(0x4000); got != 0x05 {
		t.Fatalf("bank 13 mod 8 got %02X want 05", got)
	}
}

func TestMBC1_UpperBitsAndMode(t *testing.T) {
	c := mustLoad(t, bankedROM(0x01, 0x06, 0x00)) // 2 MiB, 128 banks

	c.Write(0x2000, 0x02)
	c.Write(0x4000, 0x01)
	if got := c.Read(0x4000); got != 0x22 {
		t.Fatalf("bank 0x22 read got %02X", got)
	}
	// 0x20 selects 0x21 since the low register never holds 0
	c.Write(0x2000, 0x00)
	if got := c.Read(0x4000); got != 0x21 {
		t.Fatalf("bank 0x20 read got %02X want 21", got)
	}
	if got := c.Read(0x0000); got != 0x00 {
		t.Fatalf("mode 0 fixed bank read got %02X", got)
	}
	c.Write(0x6000, 0x01)
	if got := c.Read(0x0000); got != 0x20 {
		t.Fatalf("mode 1 low window got %02X want 20", got)
	}
}

func TestMBC1_RAMBanking_Mode1(t *testing.T) {
	c := mustLoad(t, bankedROM(0x03, 0x02, 0x03)) // 32 KiB RAM

	if got := c.Read(0xA000); got != 0xFF {
		t.Fatalf("disabled RAM read got %02X want FF", got)
	}
	c.Write(0xA000, 0x11)

	c.Write(0x0000, 0x0A)
	if got := c.Read(0xA000); got != 0x00 {
		t.Fatalf("write while disabled was committed: %02X", got)
	}

	c.Write(0x6000, 0x01)
	c.Write(0x4000, 0x02)
	c.Write(0xA000, 0x77)
	if got := c.Read(0xA000); got != 0x77 {
		t.Fatalf("RAM bank2 RW failed: got %02X", got)
	}
	if off, ok := c.Ctrl.MapRAM(0xA000); !ok || off != 2*ramBankSize {
		t.Fatalf("MapRAM got %#x,%v want %#x,true", off, ok, 2*ramBankSize)
	}
	c.Write(0x4000, 0x00)
	if got := c.Read(0xA000); got != 0x00 {
		t.Fatalf("RAM bank0 got %02X want 00", got)
	}

	c.Write(0x0000, 0x00)
	if _, ok := c.Ctrl.MapRAM(0xA000); ok {
		t.Fatalf("MapRAM should deny access after disable")
	}
}

func TestMBC1_NoRAMDeclared(t *testing.T) {
	c := mustLoad(t, bankedROM(0x01, 0x01, 0x00))
	c.Write(0x0000, 0x0A)
	if _, ok := c.Ctrl.MapRAM(0xA000); ok {
		t.Fatalf("MapRAM allowed with zero RAM banks")
	}
	if got := c.Read(0xA000); got != 0xFF {
		t.Fatalf("read got %02X want FF", got)
	}
}

func TestMBC2_RAMEnableAndBankSelect(t *testing.T) {
	c := mustLoad(t, bankedROM(0x06, 0x03, 0x00)) // 256 KiB, 16 banks

	// bit 8 set: bank select, latch unaffected
	c.Write(0x0100, 0x0A)
	if c.Ctrl.RAMEnabled {
		t.Fatalf("RAM enabled through bank-select address")
	}
	if got := c.Read(0x4000); got != 0x0A {
		t.Fatalf("bank select via 0x0100 got %02X want 0A", got)
	}

	// bit 8 clear but wrong nibble
	c.Write(0x0000, 0x0B)
	if c.Ctrl.RAMEnabled {
		t.Fatalf("RAM enabled by low nibble 0xB")
	}
	c.Write(0x0000, 0x3A)
	if !c.Ctrl.RAMEnabled {
		t.Fatalf("RAM not enabled by 0x3A at 0x0000")
	}

	c.Write(0x2100, 0x00)
	if got := c.Read(0x4000); got != 0x01 {
		t.Fatalf("bank 0 select got %02X want 01", got)
	}

	c.Write(0xA000, 0xAB)
	if got := c.Read(0xA000); got != 0xFB {
		t.Fatalf("4-bit RAM read got %02X want FB", got)
	}
	// 512 nibbles mirror across the window
	if got := c.Read(0xA200); got != 0xFB {
		t.Fatalf("mirror read got %02X want FB", got)
	}
}

func TestMBC3_BanksAndRTCSelect(t *testing.T) {
	c := mustLoad(t, bankedROM(0x10, 0x05, 0x03)) // timer+RAM, 64 banks

	c.Write(0x2000, 0x2A)
	if got := c.Read(0x4000); got != 0x2A {
		t.Fatalf("bank 0x2A got %02X", got)
	}
	c.Write(0x2000, 0x00)
	if got := c.Read(0x4000); got != 0x01 {
		t.Fatalf("bank 0->1 got %02X", got)
	}

	c.Write(0x0000, 0x0A)
	c.Write(0x4000, 0x01)
	c.Write(0xA000, 0x42)

	c.Write(0x4000, 0x08)
	if _, ok := c.Ctrl.MapRAM(0xA000); ok {
		t.Fatalf("RAM mapped while clock register selected")
	}
	c.Write(0xA000, 0x15) // seconds
	c.Write(0x6000, 0x00)
	c.Write(0x6000, 0x01)
	if got := c.Read(0xA000); got != 0x15 {
		t.Fatalf("latched seconds got %02X want 15", got)
	}

	c.Write(0x4000, 0x01)
	if got := c.Read(0xA000); got != 0x42 {
		t.Fatalf("RAM bank1 after clock select got %02X want 42", got)
	}
}

func TestMBC5_NineBitBank(t *testing.T) {
	c := mustLoad(t, bankedROM(0x19, 0x08, 0x00)) // 8 MiB, 512 banks

	c.Write(0x2000, 0x05)
	c.Write(0x3000, 0x01)
	if off := c.Ctrl.MapROM(0x4000); off != 0x105*romBankSize {
		t.Fatalf("MapROM got %#x want %#x", off, 0x105*romBankSize)
	}
	c.Write(0x3000, 0x00)
	c.Write(0x2000, 0x00)
	if got := c.Read(0x4000); got != 0x00 {
		t.Fatalf("MBC5 bank 0 got %02X want 00", got)
	}
}

func TestNoController_RAM(t *testing.T) {
	c := mustLoad(t, buildROM("PLAIN", 0x08, 0x00, 0x02, 32*1024))
	c.Write(0x2000, 0x05) // ignored
	if off := c.Ctrl.MapROM(0x4000); off != 0x4000 {
		t.Fatalf("identity map got %#x", off)
	}
	c.Write(0xA010, 0x99)
	if got := c.Read(0xA010); got != 0x99 {
		t.Fatalf("ROM+RAM read got %02X want 99", got)
	}

	plain := mustLoad(t, buildROM("PLAIN", 0x00, 0x00, 0x00, 32*1024))
	plain.Write(0xA010, 0x99)
	if got := plain.Read(0xA010); got != 0xFF {
		t.Fatalf("ROM only RAM read got %02X want FF", got)
	}
}
