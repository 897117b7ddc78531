package bus

// I/O register addresses.
const (
	P1   uint16 = 0xFF00
	SB   uint16 = 0xFF01
	SC   uint16 = 0xFF02
	DIV  uint16 = 0xFF04
	TIMA uint16 = 0xFF05
	TMA  uint16 = 0xFF06
	TAC  uint16 = 0xFF07
	IF   uint16 = 0xFF0F

	NR10 uint16 = 0xFF10
	NR11 uint16 = 0xFF11
	NR12 uint16 = 0xFF12
	NR13 uint16 = 0xFF13
	NR14 uint16 = 0xFF14
	NR21 uint16 = 0xFF16
	NR22 uint16 = 0xFF17
	NR23 uint16 = 0xFF18
	NR24 uint16 = 0xFF19
	NR30 uint16 = 0xFF1A
	NR31 uint16 = 0xFF1B
	NR32 uint16 = 0xFF1C
	NR33 uint16 = 0xFF1D
	NR34 uint16 = 0xFF1E
	NR41 uint16 = 0xFF20
	NR42 uint16 = 0xFF21
	NR43 uint16 = 0xFF22
	NR44 uint16 = 0xFF23
	NR50 uint16 = 0xFF24
	NR51 uint16 = 0xFF25
	NR52 uint16 = 0xFF26

	WaveRAM uint16 = 0xFF30

	LCDC uint16 = 0xFF40
	STAT uint16 = 0xFF41
	SCY  uint16 = 0xFF42
	SCX  uint16 = 0xFF43
	LY   uint16 = 0xFF44
	LYC  uint16 = 0xFF45
	DMA  uint16 = 0xFF46
	BGP  uint16 = 0xFF47
	OBP0 uint16 = 0xFF48
	OBP1 uint16 = 0xFF49
	WY   uint16 = 0xFF4A
	WX   uint16 = 0xFF4B
	VBK  uint16 = 0xFF4F
	BOOT uint16 = 0xFF50
	BCPS uint16 = 0xFF68
	BCPD uint16 = 0xFF69
	OCPS uint16 = 0xFF6A
	OCPD uint16 = 0xFF6B
	SVBK uint16 = 0xFF70

	IE uint16 = 0xFFFF
)

// Interrupt bits in IF/IE, in priority order.
const (
	IntVBlank = iota
	IntSTAT
	IntTimer
	IntSerial
	IntJoypad
)

// ioReadMask holds the bits that always read as 1 (unused or write-only).
var ioReadMask = [0x80]byte{
	0x00: 0xC0, 0x01: 0x00, 0x02: 0x7E, 0x03: 0xFF,
	0x07: 0xF8,
	0x08: 0xFF, 0x09: 0xFF, 0x0A: 0xFF, 0x0B: 0xFF, 0x0C: 0xFF, 0x0D: 0xFF, 0x0E: 0xFF,
	0x0F: 0xE0,
	0x10: 0x80, 0x11: 0x3F, 0x13: 0xFF, 0x14: 0xBF,
	0x15: 0xFF, 0x16: 0x3F, 0x18: 0xFF, 0x19: 0xBF,
	0x1A: 0x7F, 0x1B: 0xFF, 0x1C: 0x9F, 0x1D: 0xFF, 0x1E: 0xBF,
	0x1F: 0xFF, 0x20: 0xFF, 0x23: 0xBF,
	0x26: 0x70,
	0x27: 0xFF, 0x28: 0xFF, 0x29: 0xFF, 0x2A: 0xFF, 0x2B: 0xFF, 0x2C: 0xFF, 0x2D: 0xFF, 0x2E: 0xFF, 0x2F: 0xFF,
	0x41: 0x80,
	0x4C: 0xFF, 0x4D: 0xFF, 0x4E: 0xFF, 0x4F: 0xFF,
	0x50: 0xFF, 0x51: 0xFF, 0x52: 0xFF, 0x53: 0xFF, 0x54: 0xFF, 0x55: 0xFF, 0x56: 0xFF, 0x57: 0xFF,
	0x58: 0xFF, 0x59: 0xFF, 0x5A: 0xFF, 0x5B: 0xFF, 0x5C: 0xFF, 0x5D: 0xFF, 0x5E: 0xFF, 0x5F: 0xFF,
	0x60: 0xFF, 0x61: 0xFF, 0x62: 0xFF, 0x63: 0xFF, 0x64: 0xFF, 0x65: 0xFF, 0x66: 0xFF, 0x67: 0xFF,
	0x68: 0xFF, 0x69: 0xFF, 0x6A: 0xFF, 0x6B: 0xFF, 0x6C: 0xFF, 0x6D: 0xFF, 0x6E: 0xFF, 0x6F: 0xFF,
	0x70: 0xFF, 0x71: 0xFF, 0x72: 0xFF, 0x73: 0xFF, 0x74: 0xFF, 0x75: 0xFF, 0x76: 0xFF, 0x77: 0xFF,
	0x78: 0xFF, 0x79: 0xFF, 0x7A: 0xFF, 0x7B: 0xFF, 0x7C: 0xFF, 0x7D: 0xFF, 0x7E: 0xFF, 0x7F: 0xFF,
}

// cgbReadMask replaces ioReadMask entries for registers that exist in colour
// mode.
var cgbReadMask = map[uint16]byte{
	VBK:  0xFE,
	BCPS: 0x40,
	BCPD: 0x00,
	OCPS: 0x40,
	OCPD: 0x00,
	SVBK: 0xF8,
}

// ioReadOnly holds bits the CPU cannot change; the owning component updates
// them with SetIO.
var ioReadOnly = [0x80]byte{
	0x00: 0x0F,
	0x26: 0x0F,
	0x41: 0x07,
	0x44: 0xFF,
}

// ioStrobe holds write-only trigger bits that clear once listeners have seen
// the write.
var ioStrobe = [0x80]byte{
	0x14: 0x80,
	0x19: 0x80,
	0x1E: 0x80,
	0x23: 0x80,
}

// postBootIO is the register state the boot ROM leaves behind.
var postBootIO = map[uint16]byte{
	P1: 0xCF, IF: 0x01,
	NR11: 0x80, NR12: 0xF3,
	NR50: 0x77, NR51: 0xF3, NR52: 0x80,
	LCDC: 0x91, STAT: 0x05, BGP: 0xFC, OBP0: 0xFF, OBP1: 0xFF,
	BOOT: 0x01,
}
