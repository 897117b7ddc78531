package cart

import "fmt"

// Kind selects the bank controller variant.
type Kind int

const (
	NoController Kind = iota
	MBC1
	MBC2
	MBC3
	MBC5
)

func (k Kind) String() string {
	switch k {
	case NoController:
		return "none"
	case MBC1:
		return "MBC1"
	case MBC2:
		return "MBC2"
	case MBC3:
		return "MBC3"
	case MBC5:
		return "MBC5"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

const (
	romBankSize = 0x4000
	ramBankSize = 0x2000
	mbc2RAMSize = 0x200
)

// Controller holds the banking state of every variant; Kind decides which
// fields are meaningful. All fields are plain values so the state can be
// inspected and copied.
type Controller struct {
	Kind Kind

	ROMBanks int // 16 KiB banks present in the image
	RAMSize  int // bytes of external RAM (512 nibbles for MBC2)

	RAMEnabled bool
	ROMBank    int  // MBC1 low 5 bits, MBC2 4 bits, MBC3 7 bits, MBC5 9 bits
	Upper      byte // MBC1 2-bit secondary register
	Mode       byte // MBC1 banking mode
	RAMBank    int  // MBC3 / MBC5
	RTCSelect  byte // MBC3: 0x08-0x0C while a clock register shadows RAM
	latchArm   byte

	RTC *RTC // MBC3 with timer only
}

// NewController returns a controller in its power-on state.
func NewController(kind Kind, romBanks, ramSize int) Controller {
	c := Controller{Kind: kind, ROMBanks: romBanks, RAMSize: ramSize, ROMBank: 1}
	switch kind {
	case NoController:
		c.RAMEnabled = true
	case MBC2:
		c.RAMSize = mbc2RAMSize
	}
	if c.ROMBanks < 2 {
		c.ROMBanks = 2
	}
	return c
}

func (c *Controller) romOffset(bank int, off uint16) int {
	return (bank%c.ROMBanks)*romBankSize + int(off)
}

// MapROM translates a CPU address in 0x0000-0x7FFF to an offset in the ROM
// image.
func (c *Controller) MapROM(addr uint16) int {
	addr &= 0x7FFF
	if addr < 0x4000 {
		if c.Kind == MBC1 && c.Mode == 1 {
			return c.romOffset(int(c.Upper)<<5, addr)
		}
		return int(addr)
	}
	off := addr - 0x4000
	switch c.Kind {
	case NoController:
		return int(addr)
	case MBC1:
		return c.romOffset(c.ROMBank|int(c.Upper)<<5, off)
	default:
		return c.romOffset(c.ROMBank, off)
	}
}

// MapRAM translates a CPU address in 0xA000-0xBFFF to an offset in external
// RAM. ok is false when the access must be ignored: RAM disabled, no RAM, or
// a clock register is selected.
func (c *Controller) MapRAM(addr uint16) (off int, ok bool) {
	if !c.RAMEnabled || c.RAMSize == 0 {
		return 0, false
	}
	rel := int(addr-0xA000) & (ramBankSize - 1)
	switch c.Kind {
	case MBC1:
		bank := 0
		if c.Mode == 1 {
			bank = int(c.Upper)
		}
		return (bank*ramBankSize + rel) % c.RAMSize, true
	case MBC2:
		return rel & (mbc2RAMSize - 1), true
	case MBC3:
		if c.RTCSelect != 0 {
			return 0, false
		}
		return (c.RAMBank*ramBankSize + rel) % c.RAMSize, true
	case MBC5:
		return (c.RAMBank*ramBankSize + rel) % c.RAMSize, true
	default:
		return rel % c.RAMSize, true
	}
}

// Write interprets a CPU write to 0x0000-0x7FFF as a control write.
func (c *Controller) Write(addr uint16, value byte) {
	switch c.Kind {
	case MBC1:
		c.writeMBC1(addr, value)
	case MBC2:
		c.writeMBC2(addr, value)
	case MBC3:
		c.writeMBC3(addr, value)
	case MBC5:
		c.writeMBC5(addr, value)
	}
}

func ramEnableValue(v byte) bool { return v&0x0F == 0x0A }

func (c *Controller) writeMBC1(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		c.RAMEnabled = ramEnableValue(value)
	case addr < 0x4000:
		c.ROMBank = int(value & 0x1F)
		if c.ROMBank == 0 {
			c.ROMBank = 1
		}
	case addr < 0x6000:
		c.Upper = value & 0x03
	case addr < 0x8000:
		c.Mode = value & 0x01
	}
}

// MBC2 decodes both registers from 0x0000-0x3FFF; address bit 8 picks which.
func (c *Controller) writeMBC2(addr uint16, value byte) {
	if addr >= 0x4000 {
		return
	}
	if addr&0x0100 == 0 {
		c.RAMEnabled = ramEnableValue(value)
		return
	}
	c.ROMBank = int(value & 0x0F)
	if c.ROMBank == 0 {
		c.ROMBank = 1
	}
}

func (c *Controller) writeMBC3(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		c.RAMEnabled = ramEnableValue(value)
	case addr < 0x4000:
		c.ROMBank = int(value & 0x7F)
		if c.ROMBank == 0 {
			c.ROMBank = 1
		}
	case addr < 0x6000:
		switch {
		case value <= 0x03:
			c.RAMBank = int(value)
			c.RTCSelect = 0
		case value >= 0x08 && value <= 0x0C:
			c.RTCSelect = value
		}
	case addr < 0x8000:
		if c.latchArm == 0x00 && value == 0x01 && c.RTC != nil {
			c.RTC.Latch()
		}
		c.latchArm = value
	}
}

// MBC5 allows bank 0 in the switchable window.
func (c *Controller) writeMBC5(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		c.RAMEnabled = ramEnableValue(value)
	case addr < 0x3000:
		c.ROMBank = c.ROMBank&0x100 | int(value)
	case addr < 0x4000:
		c.ROMBank = c.ROMBank&0xFF | int(value&0x01)<<8
	case addr < 0x6000:
		c.RAMBank = int(value & 0x0F)
	}
}
