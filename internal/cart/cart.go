// Package cart turns a ROM image into a mapped cartridge: header decoding,
// the bank controller variants and battery-backed RAM.
package cart

import (
	"errors"
	"fmt"
)

var (
	ErrHeaderTruncated   = errors.New("rom too small to contain header")
	ErrROMTooSmall       = errors.New("rom shorter than its header declares")
	ErrBadROMSize        = errors.New("unknown rom size code")
	ErrUnknownController = errors.New("unsupported cartridge controller")
)

// LoadError is returned when a ROM image cannot be mapped. Reason is one of
// the Err* sentinels above.
type LoadError struct {
	Reason error
	Size   int  // bytes supplied
	Want   int  // bytes declared, when known
	Code   byte // rejected header code, when known
}

func (e *LoadError) Error() string {
	switch {
	case errors.Is(e.Reason, ErrROMTooSmall):
		return fmt.Sprintf("cart: %v (%d < %d bytes)", e.Reason, e.Size, e.Want)
	case errors.Is(e.Reason, ErrUnknownController), errors.Is(e.Reason, ErrBadROMSize):
		return fmt.Sprintf("cart: %v (%#02x)", e.Reason, e.Code)
	}
	return fmt.Sprintf("cart: %v (%d bytes)", e.Reason, e.Size)
}

func (e *LoadError) Unwrap() error { return e.Reason }

// Cartridge owns the ROM image, external RAM and the bank controller.
type Cartridge struct {
	Header *Header
	Ctrl   Controller

	rom     []byte
	ram     []byte
	battery bool
}

// Load validates the header against the image and builds the matching
// controller.
func Load(rom []byte) (*Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	if h.ROMSizeBytes == 0 {
		return nil, &LoadError{Reason: ErrBadROMSize, Size: len(rom), Code: h.ROMSizeCode}
	}
	if len(rom) < h.ROMSizeBytes {
		return nil, &LoadError{Reason: ErrROMTooSmall, Size: len(rom), Want: h.ROMSizeBytes}
	}

	ct, ok := cartTypes[h.CartType]
	if !ok {
		return nil, &LoadError{Reason: ErrUnknownController, Size: len(rom), Code: h.CartType}
	}
	kind := ct.kind

	c := &Cartridge{
		Header:  h,
		Ctrl:    NewController(kind, h.ROMBanks, h.RAMSizeBytes),
		rom:     rom,
		battery: ct.battery,
	}
	if c.Ctrl.RAMSize > 0 {
		c.ram = make([]byte, c.Ctrl.RAMSize)
	}
	if ct.timer {
		c.Ctrl.RTC = &RTC{}
	}
	return c, nil
}

// Read serves 0x0000-0x7FFF and 0xA000-0xBFFF.
func (c *Cartridge) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		off := c.Ctrl.MapROM(addr)
		if off < len(c.rom) {
			return c.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr < 0xC000:
		if c.Ctrl.RTCSelect != 0 {
			if c.Ctrl.RTC == nil || !c.Ctrl.RAMEnabled {
				return 0xFF
			}
			return c.Ctrl.RTC.Read(c.Ctrl.RTCSelect)
		}
		off, ok := c.Ctrl.MapRAM(addr)
		if !ok {
			return 0xFF
		}
		if c.Ctrl.Kind == MBC2 {
			return c.ram[off] | 0xF0
		}
		return c.ram[off]
	}
	return 0xFF
}

// Write routes control writes to the controller and RAM writes to external
// RAM when mapped.
func (c *Cartridge) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		c.Ctrl.Write(addr, value)
	case addr >= 0xA000 && addr < 0xC000:
		if c.Ctrl.RTCSelect != 0 {
			if c.Ctrl.RTC != nil && c.Ctrl.RAMEnabled {
				c.Ctrl.RTC.Write(c.Ctrl.RTCSelect, value)
			}
			return
		}
		off, ok := c.Ctrl.MapRAM(addr)
		if !ok {
			return
		}
		if c.Ctrl.Kind == MBC2 {
			value &= 0x0F
		}
		c.ram[off] = value
	}
}

// Reset returns the controller to its power-on banking state. RAM and the
// clock are kept.
func (c *Cartridge) Reset() {
	rtc := c.Ctrl.RTC
	c.Ctrl = NewController(c.Ctrl.Kind, c.Header.ROMBanks, c.Header.RAMSizeBytes)
	c.Ctrl.RTC = rtc
}

// TickRTC advances the cartridge clock, if any, by seconds of emulated time.
func (c *Cartridge) TickRTC(seconds int) {
	if c.Ctrl.RTC != nil {
		c.Ctrl.RTC.Tick(seconds)
	}
}

// HasBattery reports whether RAM contents should outlive the session.
func (c *Cartridge) HasBattery() bool { return c.battery && (len(c.ram) > 0 || c.Ctrl.RTC != nil) }

// SaveRAM returns a copy of external RAM followed by the clock trailer for
// carts with a timer.
func (c *Cartridge) SaveRAM() []byte {
	out := append([]byte(nil), c.ram...)
	if c.Ctrl.RTC != nil {
		out = append(out, c.Ctrl.RTC.marshal()...)
	}
	return out
}

// LoadRAM restores data produced by SaveRAM. Short data fills a prefix.
func (c *Cartridge) LoadRAM(data []byte) {
	n := copy(c.ram, data)
	if c.Ctrl.RTC != nil && len(data)-n >= rtcSaveSize {
		c.Ctrl.RTC.unmarshal(data[n:])
	}
}
