package cart

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Header field offsets inside bank 0.
const (
	offLogo        = 0x0104
	offTitle       = 0x0134
	offCGB         = 0x0143
	offLicensee    = 0x0144
	offSGB         = 0x0146
	offType        = 0x0147
	offROMSize     = 0x0148
	offRAMSize     = 0x0149
	offDestination = 0x014A
	offOldLicensee = 0x014B
	offVersion     = 0x014C
	offChecksum    = 0x014D
	offGlobalSum   = 0x014E
	headerLen      = 0x0150
)

// bootLogo is the bitmap the boot ROM compares before starting a game.
var bootLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// cartType describes one value of the type byte at 0x0147.
type cartType struct {
	kind    Kind
	ram     bool
	battery bool
	timer   bool
	rumble  bool
}

var cartTypes = map[byte]cartType{
	0x00: {kind: NoController},
	0x08: {kind: NoController, ram: true},
	0x09: {kind: NoController, ram: true, battery: true},
	0x01: {kind: MBC1},
	0x02: {kind: MBC1, ram: true},
	0x03: {kind: MBC1, ram: true, battery: true},
	0x05: {kind: MBC2},
	0x06: {kind: MBC2, battery: true},
	0x0F: {kind: MBC3, timer: true, battery: true},
	0x10: {kind: MBC3, timer: true, ram: true, battery: true},
	0x11: {kind: MBC3},
	0x12: {kind: MBC3, ram: true},
	0x13: {kind: MBC3, ram: true, battery: true},
	0x19: {kind: MBC5},
	0x1A: {kind: MBC5, ram: true},
	0x1B: {kind: MBC5, ram: true, battery: true},
	0x1C: {kind: MBC5, rumble: true},
	0x1D: {kind: MBC5, rumble: true, ram: true},
	0x1E: {kind: MBC5, rumble: true, ram: true, battery: true},
}

// String names the type the way cartridge databases do, e.g. "MBC3+TIMER+RAM+BATTERY".
func (t cartType) String() string {
	parts := []string{"ROM"}
	if t.kind != NoController {
		parts[0] = t.kind.String()
	}
	for _, f := range []struct {
		on   bool
		name string
	}{{t.timer, "TIMER"}, {t.rumble, "RUMBLE"}, {t.ram, "RAM"}, {t.battery, "BATTERY"}} {
		if f.on {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 1 && t.kind == NoController {
		return "ROM ONLY"
	}
	return strings.Join(parts, "+")
}

// Header is the decoded cartridge header.
type Header struct {
	Title          string
	CGBFlag        byte
	NewLicensee    string // meaningful when OldLicensee is 0x33
	SGBFlag        byte
	CartType       byte
	ROMSizeCode    byte
	RAMSizeCode    byte
	Destination    byte
	OldLicensee    byte
	ROMVersion     byte
	HeaderChecksum byte
	GlobalChecksum uint16

	ROMSizeBytes int // 0 for an unknown size code
	ROMBanks     int
	RAMSizeBytes int
	CartTypeStr  string
	LogoOK       bool
}

// CGB reports whether the cartridge declares colour support.
func (h *Header) CGB() bool { return h.CGBFlag&0x80 != 0 }

// ParseHeader decodes the cartridge header. It fails only when rom is too
// short to contain one.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < headerLen {
		return nil, &LoadError{Reason: ErrHeaderTruncated, Size: len(rom)}
	}

	// Colour carts reuse the last title byte as the CGB flag.
	title := rom[offTitle : offCGB+1]
	if rom[offCGB]&0x80 != 0 {
		title = title[:len(title)-1]
	}

	h := &Header{
		Title:          strings.TrimRight(string(title), "\x00"),
		CGBFlag:        rom[offCGB],
		NewLicensee:    string(rom[offLicensee : offLicensee+2]),
		SGBFlag:        rom[offSGB],
		CartType:       rom[offType],
		ROMSizeCode:    rom[offROMSize],
		RAMSizeCode:    rom[offRAMSize],
		Destination:    rom[offDestination],
		OldLicensee:    rom[offOldLicensee],
		ROMVersion:     rom[offVersion],
		HeaderChecksum: rom[offChecksum],
		GlobalChecksum: binary.BigEndian.Uint16(rom[offGlobalSum:]),
		LogoOK:         bytes.Equal(rom[offLogo : offLogo+len(bootLogo)], bootLogo[:]),
	}
	h.ROMSizeBytes, h.ROMBanks = decodeROMSize(h.ROMSizeCode)
	h.RAMSizeBytes = decodeRAMSize(h.RAMSizeCode)
	h.CartTypeStr = cartTypeString(h.CartType)
	return h, nil
}

// headerSum is the boot ROM's checksum over the title through version bytes.
func headerSum(rom []byte) byte {
	var sum byte
	for _, v := range rom[offTitle : offVersion+1] {
		sum -= v + 1
	}
	return sum
}

// HeaderChecksumOK reports whether the byte at 0x014D matches the header.
func HeaderChecksumOK(rom []byte) bool {
	return len(rom) > offChecksum && headerSum(rom) == rom[offChecksum]
}

// decodeROMSize maps the size code to bytes and 16 KiB banks. Codes 0-8
// double from 32 KiB; 0x52-0x54 are the odd sizes a few carts declare.
func decodeROMSize(code byte) (size, banks int) {
	switch {
	case code <= 0x08:
		banks = 2 << code
	case code == 0x52:
		banks = 72
	case code == 0x53:
		banks = 80
	case code == 0x54:
		banks = 96
	default:
		return 0, 0
	}
	return banks * romBankSize, banks
}

var ramSizes = [...]int{0, 2 << 10, 8 << 10, 32 << 10, 128 << 10, 64 << 10}

func decodeRAMSize(code byte) int {
	if int(code) < len(ramSizes) {
		return ramSizes[code]
	}
	return 0
}

func cartTypeString(code byte) string {
	if t, ok := cartTypes[code]; ok {
		return t.String()
	}
	return fmt.Sprintf("unknown(%#02x)", code)
}
