package cpu

import "fmt"

// Reg8 names one 8-bit register.
type Reg8 byte

const (
	RegA Reg8 = iota
	RegF
	RegB
	RegC
	RegD
	RegE
	RegH
	RegL
)

// Pair names a 16-bit register pair.
type Pair byte

const (
	AF Pair = iota
	BC
	DE
	HL
)

// Flag bits in F. The low nibble always reads 0.
const (
	flagZ byte = 1 << 7
	flagN byte = 1 << 6
	flagH byte = 1 << 5
	flagC byte = 1 << 4
)

// Registers is the SM83 register file.
type Registers struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte

	SP uint16
	PC uint16
}

func (r *Registers) ptr(reg Reg8) *byte {
	switch reg {
	case RegA:
		return &r.A
	case RegF:
		return &r.F
	case RegB:
		return &r.B
	case RegC:
		return &r.C
	case RegD:
		return &r.D
	case RegE:
		return &r.E
	case RegH:
		return &r.H
	case RegL:
		return &r.L
	}
	panic(fmt.Sprintf("cpu: invalid register %d", reg))
}

func (r *Registers) halves(p Pair) (hi, lo Reg8) {
	switch p {
	case AF:
		return RegA, RegF
	case BC:
		return RegB, RegC
	case DE:
		return RegD, RegE
	case HL:
		return RegH, RegL
	}
	panic(fmt.Sprintf("cpu: invalid register pair %d", p))
}

func (r *Registers) Read8(reg Reg8) byte { return *r.ptr(reg) }

// Write8 stores v; writes to F keep only the flag nibble.
func (r *Registers) Write8(reg Reg8, v byte) {
	if reg == RegF {
		v &= 0xF0
	}
	*r.ptr(reg) = v
}

func (r *Registers) Read16(p Pair) uint16 {
	hi, lo := r.halves(p)
	return uint16(r.Read8(hi))<<8 | uint16(r.Read8(lo))
}

func (r *Registers) Write16(p Pair, v uint16) {
	hi, lo := r.halves(p)
	r.Write8(hi, byte(v>>8))
	r.Write8(lo, byte(v))
}

// Inc16 increments the pair, carrying from the low byte into the high byte.
func (r *Registers) Inc16(p Pair) {
	hi, lo := r.halves(p)
	l := r.ptr(lo)
	*l++
	if *l == 0 {
		*r.ptr(hi)++
	}
}

// Dec16 decrements the pair, borrowing from the high byte.
func (r *Registers) Dec16(p Pair) {
	hi, lo := r.halves(p)
	l := r.ptr(lo)
	*l--
	if *l == 0xFF {
		*r.ptr(hi)--
	}
}

func (r Registers) String() string {
	return fmt.Sprintf("A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X PC=%04X",
		r.A, r.F, r.B, r.C, r.D, r.E, r.H, r.L, r.SP, r.PC)
}
