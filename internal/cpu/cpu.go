// Package cpu implements the SM83 instruction interpreter.
package cpu

import (
	"errors"
	"fmt"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/debug"
)

// ErrIllegalOpcode is wrapped by IllegalOpcodeError.
var ErrIllegalOpcode = errors.New("illegal opcode")

// IllegalOpcodeError reports one of the eleven opcode values the SM83 does
// not define. The CPU stays faulted until Reset.
type IllegalOpcodeError struct {
	PC     uint16
	Opcode byte
}

func (e *IllegalOpcodeError) Error() string {
	return fmt.Sprintf("cpu: illegal opcode %02X at %04X", e.Opcode, e.PC)
}

func (e *IllegalOpcodeError) Unwrap() error { return ErrIllegalOpcode }

// Bus is the memory the CPU runs against. Read and Write are CPU accesses;
// Peek and Store are used for IF/IE bookkeeping, which must not look like
// program accesses to a debugger.
type Bus interface {
	Read(addr uint16) byte
	Fetch(addr uint16) byte
	Write(addr uint16, value byte)
	Peek(addr uint16) byte
	Store(addr uint16, value byte)
}

// RunState is the CPU's execution state.
type RunState int

const (
	Running RunState = iota
	Halted
	Stopped
)

func (s RunState) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const (
	addrIF = 0xFF0F
	addrIE = 0xFFFF

	intJoypad = 1 << 4

	// cycles charged for an interrupt dispatch
	dispatchCycles = 20
)

// CPU executes one instruction per Step and reports its cost in clock cycles
// (4 per machine cycle). It does not advance any other component.
type CPU struct {
	Registers

	IME   bool
	State RunState

	// eiDelay counts down to the step after EI, when IME turns on.
	eiDelay int
	fault   error

	bus  Bus
	hook debug.Hook
}

// New creates a CPU with all registers zeroed, as at power-on before the boot
// ROM runs.
func New(b Bus) *CPU {
	return &CPU{bus: b}
}

// SetHook installs the debugger hook fired before each instruction fetch.
func (c *CPU) SetHook(h debug.Hook) { c.hook = h }

// SetPC allows tests or a boot stub to set the program counter.
func (c *CPU) SetPC(pc uint16) { c.PC = pc }

// Reset zeroes the CPU and clears any fault.
func (c *CPU) Reset() {
	c.Registers = Registers{}
	c.IME = false
	c.State = Running
	c.eiDelay = 0
	c.fault = nil
}

// ResetNoBoot sets registers to the DMG post-boot state.
// Useful when running without a boot ROM.
func (c *CPU) ResetNoBoot() {
	c.Reset()
	c.A, c.F = 0x01, 0xB0
	c.B, c.C = 0x00, 0x13
	c.D, c.E = 0x00, 0xD8
	c.H, c.L = 0x01, 0x4D
	c.SP = 0xFFFE
	c.PC = 0x0100
}

// Fault returns the error that stopped the CPU, if any.
func (c *CPU) Fault() error { return c.fault }

func (c *CPU) setZNHC(z, n, h, carry bool) {
	var f byte
	if z {
		f |= flagZ
	}
	if n {
		f |= flagN
	}
	if h {
		f |= flagH
	}
	if carry {
		f |= flagC
	}
	c.F = f
}

func (c *CPU) flag(f byte) bool { return c.F&f != 0 }

func (c *CPU) add8(a, b byte) (res byte, z, n, h, cy bool) {
	r := uint16(a) + uint16(b)
	res = byte(r)
	z = res == 0
	h = (a&0x0F)+(b&0x0F) > 0x0F
	cy = r > 0xFF
	return
}

func (c *CPU) adc8(a, b byte, carryIn bool) (res byte, z, n, h, cy bool) {
	ci := byte(0)
	if carryIn {
		ci = 1
	}
	r := uint16(a) + uint16(b) + uint16(ci)
	res = byte(r)
	z = res == 0
	h = (a&0x0F)+(b&0x0F)+ci > 0x0F
	cy = r > 0xFF
	return
}

func (c *CPU) sub8(a, b byte) (res byte, z, n, h, cy bool) {
	res = a - b
	z = res == 0
	n = true
	h = a&0x0F < b&0x0F
	cy = a < b
	return
}

func (c *CPU) sbc8(a, b byte, carryIn bool) (res byte, z, n, h, cy bool) {
	ci := byte(0)
	if carryIn {
		ci = 1
	}
	r := int16(a) - int16(b) - int16(ci)
	res = byte(r)
	z = res == 0
	n = true
	h = int16(a&0x0F)-int16(b&0x0F)-int16(ci) < 0
	cy = r < 0
	return
}

func (c *CPU) and8(a, b byte) (res byte, z, n, h, cy bool) {
	res = a & b
	return res, res == 0, false, true, false
}

func (c *CPU) xor8(a, b byte) (res byte, z, n, h, cy bool) {
	res = a ^ b
	return res, res == 0, false, false, false
}

func (c *CPU) or8(a, b byte) (res byte, z, n, h, cy bool) {
	res = a | b
	return res, res == 0, false, false, false
}

// alu applies ADD ADC SUB SBC AND XOR OR CP (selected by op) to A.
func (c *CPU) alu(op, v byte) {
	var res byte
	var z, n, h, cy bool
	switch op {
	case 0:
		res, z, n, h, cy = c.add8(c.A, v)
	case 1:
		res, z, n, h, cy = c.adc8(c.A, v, c.flag(flagC))
	case 2:
		res, z, n, h, cy = c.sub8(c.A, v)
	case 3:
		res, z, n, h, cy = c.sbc8(c.A, v, c.flag(flagC))
	case 4:
		res, z, n, h, cy = c.and8(c.A, v)
	case 5:
		res, z, n, h, cy = c.xor8(c.A, v)
	case 6:
		res, z, n, h, cy = c.or8(c.A, v)
	case 7:
		_, z, n, h, cy = c.sub8(c.A, v)
		res = c.A
	}
	c.A = res
	c.setZNHC(z, n, h, cy)
}

func (c *CPU) read8(addr uint16) byte     { return c.bus.Read(addr) }
func (c *CPU) write8(addr uint16, v byte) { c.bus.Write(addr, v) }

func (c *CPU) fetch8() byte {
	b := c.bus.Fetch(c.PC)
	c.PC++
	return b
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.fetch8())
	hi := uint16(c.fetch8())
	return lo | hi<<8
}

func (c *CPU) read16(addr uint16) uint16 {
	lo := uint16(c.read8(addr))
	hi := uint16(c.read8(addr + 1))
	return lo | hi<<8
}

func (c *CPU) write16(addr uint16, v uint16) {
	c.write8(addr, byte(v))
	c.write8(addr+1, byte(v>>8))
}

func (c *CPU) push16(v uint16) {
	c.SP--
	c.write8(c.SP, byte(v>>8))
	c.SP--
	c.write8(c.SP, byte(v))
}

func (c *CPU) pop16() uint16 {
	v := c.read16(c.SP)
	c.SP += 2
	return v
}

// r8 reads operand index i: B C D E H L (HL) A.
func (c *CPU) r8(i byte) byte {
	switch i {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.read8(c.Read16(HL))
	default:
		return c.A
	}
}

func (c *CPU) setR8(i, v byte) {
	switch i {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.write8(c.Read16(HL), v)
	default:
		c.A = v
	}
}

// rp reads pair index p: BC DE HL SP.
func (c *CPU) rp(p byte) uint16 {
	if p == 3 {
		return c.SP
	}
	return c.Read16(BC + Pair(p))
}

func (c *CPU) setRP(p byte, v uint16) {
	if p == 3 {
		c.SP = v
		return
	}
	c.Write16(BC+Pair(p), v)
}

// rp2 is rp with AF in place of SP, for PUSH and POP.
func (c *CPU) rp2(p byte) uint16 {
	if p == 3 {
		return c.Read16(AF)
	}
	return c.rp(p)
}

func (c *CPU) setRP2(p byte, v uint16) {
	if p == 3 {
		c.Write16(AF, v)
		return
	}
	c.setRP(p, v)
}

// cond evaluates NZ Z NC C.
func (c *CPU) cond(y byte) bool {
	switch y & 3 {
	case 0:
		return !c.flag(flagZ)
	case 1:
		return c.flag(flagZ)
	case 2:
		return !c.flag(flagC)
	default:
		return c.flag(flagC)
	}
}

// pending returns the enabled and requested interrupt bits.
func (c *CPU) pending() byte {
	return c.bus.Peek(addrIE) & c.bus.Peek(addrIF) & 0x1F
}

// serviceInterrupt dispatches the highest priority pending interrupt.
func (c *CPU) serviceInterrupt(pending byte) int {
	bit := 0
	for pending&(1<<bit) == 0 {
		bit++
	}
	c.bus.Store(addrIF, c.bus.Peek(addrIF)&^(1<<bit))
	c.IME = false
	c.eiDelay = 0
	c.push16(c.PC)
	c.PC = 0x40 + uint16(bit)*8
	return dispatchCycles
}

// Step runs one instruction, or one interrupt dispatch, or one idle machine
// cycle while halted or stopped. It returns the clock cycles consumed.
func (c *CPU) Step() (int, error) {
	if c.fault != nil {
		return 0, c.fault
	}

	switch c.State {
	case Stopped:
		if c.bus.Peek(addrIF)&intJoypad == 0 {
			return 4, nil
		}
		c.State = Running
	case Halted:
		if c.pending() == 0 {
			return 4, nil
		}
		// wakes even with IME clear, without servicing
		c.State = Running
	}

	if c.IME {
		if p := c.pending(); p != 0 {
			return c.serviceInterrupt(p), nil
		}
	}

	if c.hook != nil {
		c.hook.Trigger(c.PC, debug.Execute)
	}
	pc := c.PC
	op := c.fetch8()
	cycles := c.execute(op)
	if cycles == 0 {
		c.PC = pc
		c.fault = &IllegalOpcodeError{PC: pc, Opcode: op}
		return 0, c.fault
	}

	if c.eiDelay > 0 {
		c.eiDelay--
		if c.eiDelay == 0 {
			c.IME = true
		}
	}
	return cycles, nil
}

// execute runs op and returns its cost, or 0 for an illegal opcode. Opcodes
// are decoded from their octal fields x(7-6) y(5-3) z(2-0), p=y>>1, q=y&1.
func (c *CPU) execute(op byte) int {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	switch x {
	case 0:
		return c.execX0(y, z, p, q)
	case 1:
		if op == 0x76 { // HALT
			c.State = Halted
			return 4
		}
		c.setR8(y, c.r8(z))
		if y == 6 || z == 6 {
			return 8
		}
		return 4
	case 2:
		c.alu(y, c.r8(z))
		if z == 6 {
			return 8
		}
		return 4
	default:
		return c.execX3(y, z, p, q)
	}
}

func (c *CPU) execX0(y, z, p, q byte) int {
	switch z {
	case 0:
		switch y {
		case 0: // NOP
			return 4
		case 1: // LD (a16),SP
			c.write16(c.fetch16(), c.SP)
			return 20
		case 2: // STOP
			c.fetch8()
			c.State = Stopped
			return 4
		case 3: // JR r8
			off := int8(c.fetch8())
			c.PC = uint16(int32(c.PC) + int32(off))
			return 12
		default: // JR cc,r8
			off := int8(c.fetch8())
			if c.cond(y - 4) {
				c.PC = uint16(int32(c.PC) + int32(off))
				return 12
			}
			return 8
		}
	case 1:
		if q == 0 { // LD rr,d16
			c.setRP(p, c.fetch16())
			return 12
		}
		// ADD HL,rr
		hl, v := c.Read16(HL), c.rp(p)
		r := uint32(hl) + uint32(v)
		c.setZNHC(c.flag(flagZ), false, (hl&0x0FFF)+(v&0x0FFF) > 0x0FFF, r > 0xFFFF)
		c.Write16(HL, uint16(r))
		return 8
	case 2:
		var addr uint16
		switch p {
		case 0:
			addr = c.Read16(BC)
		case 1:
			addr = c.Read16(DE)
		case 2:
			addr = c.Read16(HL)
			c.Inc16(HL)
		case 3:
			addr = c.Read16(HL)
			c.Dec16(HL)
		}
		if q == 0 {
			c.write8(addr, c.A)
		} else {
			c.A = c.read8(addr)
		}
		return 8
	case 3:
		switch {
		case p == 3 && q == 0:
			c.SP++
		case p == 3:
			c.SP--
		case q == 0:
			c.Inc16(BC + Pair(p))
		default:
			c.Dec16(BC + Pair(p))
		}
		return 8
	case 4: // INC r
		old := c.r8(y)
		v := old + 1
		c.setR8(y, v)
		c.setZNHC(v == 0, false, old&0x0F == 0x0F, c.flag(flagC))
		if y == 6 {
			return 12
		}
		return 4
	case 5: // DEC r
		old := c.r8(y)
		v := old - 1
		c.setR8(y, v)
		c.setZNHC(v == 0, true, old&0x0F == 0, c.flag(flagC))
		if y == 6 {
			return 12
		}
		return 4
	case 6: // LD r,d8
		c.setR8(y, c.fetch8())
		if y == 6 {
			return 12
		}
		return 8
	default:
		c.execAccFlags(y)
		return 4
	}
}

// execAccFlags runs RLCA RRCA RLA RRA DAA CPL SCF CCF.
func (c *CPU) execAccFlags(y byte) {
	switch y {
	case 0: // RLCA
		cval := c.A >> 7
		c.A = c.A<<1 | cval
		c.setZNHC(false, false, false, cval == 1)
	case 1: // RRCA
		cval := c.A & 1
		c.A = c.A>>1 | cval<<7
		c.setZNHC(false, false, false, cval == 1)
	case 2: // RLA
		cval := c.A >> 7
		carry := byte(0)
		if c.flag(flagC) {
			carry = 1
		}
		c.A = c.A<<1 | carry
		c.setZNHC(false, false, false, cval == 1)
	case 3: // RRA
		cval := c.A & 1
		carry := byte(0)
		if c.flag(flagC) {
			carry = 1
		}
		c.A = c.A>>1 | carry<<7
		c.setZNHC(false, false, false, cval == 1)
	case 4: // DAA
		a := c.A
		cf := c.flag(flagC)
		if !c.flag(flagN) { // after addition
			if cf || a > 0x99 {
				a += 0x60
				cf = true
			}
			if c.flag(flagH) || a&0x0F > 9 {
				a += 0x06
			}
		} else { // after subtraction
			if cf {
				a -= 0x60
			}
			if c.flag(flagH) {
				a -= 0x06
			}
		}
		c.A = a
		c.setZNHC(a == 0, c.flag(flagN), false, cf)
	case 5: // CPL
		c.A = ^c.A
		c.F = c.F&(flagZ|flagC) | flagN | flagH
	case 6: // SCF
		c.F = c.F&flagZ | flagC
	case 7: // CCF
		c.F = c.F&flagZ | (c.F^flagC)&flagC
	}
}

func (c *CPU) execX3(y, z, p, q byte) int {
	switch z {
	case 0:
		switch y {
		case 4: // LDH (a8),A
			c.write8(0xFF00+uint16(c.fetch8()), c.A)
			return 12
		case 5: // ADD SP,r8
			c.SP = c.addSP(c.fetch8())
			return 16
		case 6: // LDH A,(a8)
			c.A = c.read8(0xFF00 + uint16(c.fetch8()))
			return 12
		case 7: // LD HL,SP+r8
			c.Write16(HL, c.addSP(c.fetch8()))
			return 12
		default: // RET cc
			if c.cond(y) {
				c.PC = c.pop16()
				return 20
			}
			return 8
		}
	case 1:
		if q == 0 { // POP rr
			c.setRP2(p, c.pop16())
			return 12
		}
		switch p {
		case 0: // RET
			c.PC = c.pop16()
			return 16
		case 1: // RETI
			c.PC = c.pop16()
			c.IME = true
			return 16
		case 2: // JP HL
			c.PC = c.Read16(HL)
			return 4
		default: // LD SP,HL
			c.SP = c.Read16(HL)
			return 8
		}
	case 2:
		switch y {
		case 4: // LD (C),A
			c.write8(0xFF00+uint16(c.C), c.A)
			return 8
		case 5: // LD (a16),A
			c.write8(c.fetch16(), c.A)
			return 16
		case 6: // LD A,(C)
			c.A = c.read8(0xFF00 + uint16(c.C))
			return 8
		case 7: // LD A,(a16)
			c.A = c.read8(c.fetch16())
			return 16
		default: // JP cc,a16
			addr := c.fetch16()
			if c.cond(y) {
				c.PC = addr
				return 16
			}
			return 12
		}
	case 3:
		switch y {
		case 0: // JP a16
			c.PC = c.fetch16()
			return 16
		case 1:
			return c.execCB(c.fetch8())
		case 6: // DI
			c.IME = false
			c.eiDelay = 0
			return 4
		case 7: // EI, effective after the next instruction
			if !c.IME && c.eiDelay == 0 {
				c.eiDelay = 2
			}
			return 4
		}
		return 0
	case 4:
		if y > 3 {
			return 0
		}
		// CALL cc,a16
		addr := c.fetch16()
		if c.cond(y) {
			c.push16(c.PC)
			c.PC = addr
			return 24
		}
		return 12
	case 5:
		if q == 0 { // PUSH rr
			c.push16(c.rp2(p))
			return 16
		}
		if p != 0 {
			return 0
		}
		// CALL a16
		addr := c.fetch16()
		c.push16(c.PC)
		c.PC = addr
		return 24
	case 6:
		c.alu(y, c.fetch8())
		return 8
	default: // RST
		c.push16(c.PC)
		c.PC = uint16(y) * 8
		return 16
	}
}

// addSP returns SP plus a signed offset; H and C come from the unsigned
// addition of the low byte.
func (c *CPU) addSP(d byte) uint16 {
	_, _, _, h, cy := c.add8(byte(c.SP), d)
	c.setZNHC(false, false, h, cy)
	return uint16(int32(c.SP) + int32(int8(d)))
}

func (c *CPU) execCB(cb byte) int {
	x, y, z := cb>>6, (cb>>3)&7, cb&7
	cycles := 8
	if z == 6 {
		cycles = 16
		if x == 1 {
			cycles = 12
		}
	}
	v := c.r8(z)
	switch x {
	case 0: // rotate/shift/swap
		var cflag byte
		switch y {
		case 0: // RLC
			cflag = v >> 7
			v = v<<1 | cflag
		case 1: // RRC
			cflag = v & 1
			v = v>>1 | cflag<<7
		case 2: // RL
			cflag = v >> 7
			cin := byte(0)
			if c.flag(flagC) {
				cin = 1
			}
			v = v<<1 | cin
		case 3: // RR
			cflag = v & 1
			cin := byte(0)
			if c.flag(flagC) {
				cin = 1
			}
			v = v>>1 | cin<<7
		case 4: // SLA
			cflag = v >> 7
			v <<= 1
		case 5: // SRA
			cflag = v & 1
			v = v>>1 | v&0x80
		case 6: // SWAP
			v = v<<4 | v>>4
		case 7: // SRL
			cflag = v & 1
			v >>= 1
		}
		c.setZNHC(v == 0, false, false, cflag == 1)
		c.setR8(z, v)
	case 1: // BIT y,r
		c.F = c.F&flagC | flagH
		if v&(1<<y) == 0 {
			c.F |= flagZ
		}
	case 2: // RES y,r
		c.setR8(z, v&^(1<<y))
	case 3: // SET y,r
		c.setR8(z, v|1<<y)
	}
	return cycles
}
