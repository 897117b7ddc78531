// Package bus implements the 16-bit address space shared by every component.
// It routes CPU accesses to the cartridge, video RAM, work RAM, OAM, the I/O
// register block and high RAM, and notifies subscribed listeners after each
// I/O register write.
package bus

import (
	"fmt"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/debug"
)

// Cartridge is the part of the cartridge the bus needs: reads and writes in
// 0x0000-0x7FFF and 0xA000-0xBFFF. Bank translation is its own business.
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
}

// Listener observes writes to the I/O block (0xFF00-0xFF7F) and IE.
type Listener interface {
	OnIOWrite(addr uint16, value byte)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(addr uint16, value byte)

func (f ListenerFunc) OnIOWrite(addr uint16, value byte) { f(addr, value) }

// Patcher may replace the value of a cartridge ROM read.
type Patcher interface {
	Patch(addr uint16, value byte) byte
}

// AddressDecodeError reports an address no region claims. The memory map
// covers the whole space so this is an internal invariant violation and is
// raised with panic.
type AddressDecodeError struct {
	Addr uint16
}

func (e AddressDecodeError) Error() string {
	return fmt.Sprintf("bus: no owner for address %04X", e.Addr)
}

type Bus struct {
	cart Cartridge
	boot []byte

	vram     [2][0x2000]byte
	vramBank int
	wram     [8][0x1000]byte
	wramBank int
	oam      [0xA0]byte
	io       [0x80]byte
	hram     [0x7F]byte
	ie       byte

	cgb bool

	listeners []Listener
	hook      debug.Hook
	patch     Patcher
}

func New(cart Cartridge) *Bus {
	return &Bus{cart: cart, wramBank: 1}
}

// SetCGB switches on the colour-only registers (VRAM and WRAM banking,
// palette RAM ports).
func (b *Bus) SetCGB(on bool) { b.cgb = on }
func (b *Bus) CGB() bool     { return b.cgb }

// SetBootROM overlays rom on 0x0000-0x00FF (and 0x0200-0x08FF for colour boot
// ROMs) until a non-zero value is written to FF50.
func (b *Bus) SetBootROM(rom []byte) {
	b.boot = rom
	b.io[BOOT-0xFF00] = 0
}

// Subscribe appends l to the listener list. Listeners run in subscription
// order.
func (b *Bus) Subscribe(l Listener) { b.listeners = append(b.listeners, l) }

// SetHook installs the debugger hook fired before CPU reads and writes.
func (b *Bus) SetHook(h debug.Hook) { b.hook = h }

// SetPatcher installs a read patcher for cartridge ROM (cheat codes).
func (b *Bus) SetPatcher(p Patcher) { b.patch = p }

// PostBoot loads the I/O state the boot ROM leaves behind, for starting
// directly at 0x0100.
func (b *Bus) PostBoot() {
	for addr, v := range postBootIO {
		b.io[addr-0xFF00] = v
	}
	b.boot = nil
}

// Read is a CPU data read: it fires the hook and applies read masks and
// patches.
func (b *Bus) Read(addr uint16) byte {
	if b.hook != nil {
		b.hook.Trigger(addr, debug.MemRead)
	}
	return b.Fetch(addr)
}

// Fetch is a CPU opcode or operand read. It sees what Read sees but does
// not fire the MemRead hook; instruction fetches report as Execute.
func (b *Bus) Fetch(addr uint16) byte {
	v := b.read(addr)
	if addr < 0x8000 && b.patch != nil {
		v = b.patch.Patch(addr, v)
	}
	if addr >= 0xFF00 && addr < 0xFF80 {
		v |= b.readMask(addr)
	}
	return v
}

// Write is a CPU write: it fires the hook, commits the byte and notifies
// listeners for I/O addresses before returning.
func (b *Bus) Write(addr uint16, value byte) {
	if b.hook != nil {
		b.hook.Trigger(addr, debug.MemWrite)
	}
	switch {
	case addr >= 0xFF00 && addr < 0xFF80:
		b.writeIO(addr, value)
	case addr == IE:
		b.ie = value
		b.notify(addr, value)
	default:
		b.write(addr, value)
	}
}

// Peek reads the raw stored byte with no hook, mask or patch.
func (b *Bus) Peek(addr uint16) byte { return b.read(addr) }

// Store writes a byte with no hook and no listener notification. I/O
// read-only bits are overwritten too.
func (b *Bus) Store(addr uint16, value byte) {
	switch {
	case addr >= 0xFF00 && addr < 0xFF80:
		b.io[addr-0xFF00] = value
	case addr == IE:
		b.ie = value
	default:
		b.write(addr, value)
	}
}

// SetIO is Store restricted to the I/O block, used by components that own a
// register to publish status bits.
func (b *Bus) SetIO(addr uint16, value byte) {
	b.io[addr-0xFF00] = value
}

// ReadBit reports whether any bit of mask is set in the raw byte at addr.
func (b *Bus) ReadBit(addr uint16, mask byte) bool {
	return b.Peek(addr)&mask != 0
}

// WriteBit sets or clears the bits of mask at addr, preserving the others.
// It does not notify listeners.
func (b *Bus) WriteBit(addr uint16, mask byte, on bool) {
	v := b.Peek(addr)
	if on {
		v |= mask
	} else {
		v &^= mask
	}
	b.Store(addr, v)
}

// RequestInterrupt sets bit in IF.
func (b *Bus) RequestInterrupt(bit int) {
	b.io[IF-0xFF00] |= 1 << bit
}

// VRAM reads video RAM from an explicit bank, regardless of VBK.
func (b *Bus) VRAM(bank int, addr uint16) byte {
	return b.vram[bank&1][addr&0x1FFF]
}

func (b *Bus) OAM() *[0xA0]byte { return &b.oam }

func (b *Bus) bootActive() bool {
	return len(b.boot) > 0 && b.io[BOOT-0xFF00] == 0
}

func (b *Bus) readMask(addr uint16) byte {
	if b.cgb {
		if m, ok := cgbReadMask[addr]; ok {
			return m
		}
	}
	return ioReadMask[addr-0xFF00]
}

func (b *Bus) read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if b.bootActive() && (addr < 0x0100 || (addr >= 0x0200 && int(addr) < len(b.boot))) {
			return b.boot[addr]
		}
		if b.cart == nil {
			return 0xFF
		}
		return b.cart.Read(addr)
	case addr < 0xA000:
		return b.vram[b.vramBank][addr-0x8000]
	case addr < 0xC000:
		if b.cart == nil {
			return 0xFF
		}
		return b.cart.Read(addr)
	case addr < 0xD000:
		return b.wram[0][addr-0xC000]
	case addr < 0xE000:
		return b.wram[b.wramBank][addr-0xD000]
	case addr < 0xFE00:
		return b.read(addr - 0x2000)
	case addr < 0xFEA0:
		return b.oam[addr-0xFE00]
	case addr < 0xFF00:
		return 0x00
	case addr < 0xFF80:
		return b.io[addr-0xFF00]
	case addr < 0xFFFF:
		return b.hram[addr-0xFF80]
	case addr == IE:
		return b.ie
	}
	panic(AddressDecodeError{Addr: addr})
}

func (b *Bus) write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		if b.cart != nil {
			b.cart.Write(addr, value)
		}
	case addr < 0xA000:
		b.vram[b.vramBank][addr-0x8000] = value
	case addr < 0xC000:
		if b.cart != nil {
			b.cart.Write(addr, value)
		}
	case addr < 0xD000:
		b.wram[0][addr-0xC000] = value
	case addr < 0xE000:
		b.wram[b.wramBank][addr-0xD000] = value
	case addr < 0xFE00:
		b.write(addr-0x2000, value)
	case addr < 0xFEA0:
		b.oam[addr-0xFE00] = value
	case addr < 0xFF00:
		// unusable
	case addr < 0xFF80:
		b.io[addr-0xFF00] = value
	case addr < 0xFFFF:
		b.hram[addr-0xFF80] = value
	case addr == IE:
		b.ie = value
	default:
		panic(AddressDecodeError{Addr: addr})
	}
}

func (b *Bus) writeIO(addr uint16, value byte) {
	i := addr - 0xFF00
	ro := ioReadOnly[i]
	b.io[i] = b.io[i]&ro | value&^ro

	switch addr {
	case DMA:
		b.oamDMA(value)
	case VBK:
		if b.cgb {
			b.vramBank = int(value & 1)
		}
	case SVBK:
		if b.cgb {
			b.wramBank = int(value & 7)
			if b.wramBank == 0 {
				b.wramBank = 1
			}
		}
	}

	b.notify(addr, value)

	if s := ioStrobe[i]; s != 0 {
		b.io[i] &^= s
	}
}

func (b *Bus) notify(addr uint16, value byte) {
	for _, l := range b.listeners {
		l.OnIOWrite(addr, value)
	}
}

// oamDMA copies 160 bytes from value<<8 into OAM. The transfer completes
// immediately.
func (b *Bus) oamDMA(value byte) {
	src := uint16(value) << 8
	for i := uint16(0); i < 0xA0; i++ {
		b.oam[i] = b.read(src + i)
	}
}
