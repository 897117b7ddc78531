package cart

import (
	"encoding/binary"
	"time"
)

// nowUnix is swapped out by tests.
var nowUnix = func() int64 { return time.Now().Unix() }

// RTC is the MBC3 real-time clock. Software reads the latched copy and
// writes the live registers. The clock advances only when the machine calls
// Tick, so emulated time rather than wall time drives it.
type RTC struct {
	Sec, Min, Hour byte
	Day            uint16 // 9 bits
	Halt, Carry    bool

	latched [5]byte
}

const (
	rtcS  = 0x08
	rtcM  = 0x09
	rtcH  = 0x0A
	rtcDL = 0x0B
	rtcDH = 0x0C
)

func (r *RTC) regs() [5]byte {
	dh := byte(r.Day>>8) & 0x01
	if r.Halt {
		dh |= 0x40
	}
	if r.Carry {
		dh |= 0x80
	}
	return [5]byte{r.Sec, r.Min, r.Hour, byte(r.Day), dh}
}

// Latch copies the live registers into the readable copy.
func (r *RTC) Latch() { r.latched = r.regs() }

// Read returns the latched register sel (0x08-0x0C).
func (r *RTC) Read(sel byte) byte {
	switch sel {
	case rtcS:
		return r.latched[0] & 0x3F
	case rtcM:
		return r.latched[1] & 0x3F
	case rtcH:
		return r.latched[2] & 0x1F
	case rtcDL:
		return r.latched[3]
	case rtcDH:
		return r.latched[4] & 0xC1
	}
	return 0xFF
}

// Write sets the live register sel.
func (r *RTC) Write(sel, v byte) {
	switch sel {
	case rtcS:
		r.Sec = v & 0x3F
	case rtcM:
		r.Min = v & 0x3F
	case rtcH:
		r.Hour = v & 0x1F
	case rtcDL:
		r.Day = r.Day&0x100 | uint16(v)
	case rtcDH:
		r.Day = r.Day&0xFF | uint16(v&0x01)<<8
		r.Halt = v&0x40 != 0
		r.Carry = v&0x80 != 0
	}
}

// Tick advances the live clock by seconds unless halted. Out-of-range values
// written by software count up to their field limit and wrap without carry.
func (r *RTC) Tick(seconds int) {
	if r.Halt || seconds <= 0 {
		return
	}
	if r.Sec < 60 && r.Min < 60 && r.Hour < 24 {
		total := int64(r.Day)*86400 + int64(r.Hour)*3600 + int64(r.Min)*60 + int64(r.Sec) + int64(seconds)
		days := total / 86400
		if days > 0x1FF {
			r.Carry = true
			days &= 0x1FF
		}
		rem := total % 86400
		r.Day = uint16(days)
		r.Hour = byte(rem / 3600)
		r.Min = byte(rem % 3600 / 60)
		r.Sec = byte(rem % 60)
		return
	}
	for ; seconds > 0; seconds-- {
		r.Sec = (r.Sec + 1) & 0x3F
		if r.Sec != 60 {
			continue
		}
		r.Sec = 0
		r.Min = (r.Min + 1) & 0x3F
		if r.Min != 60 {
			continue
		}
		r.Min = 0
		r.Hour = (r.Hour + 1) & 0x1F
		if r.Hour != 24 {
			continue
		}
		r.Hour = 0
		r.Day++
		if r.Day > 0x1FF {
			r.Day = 0
			r.Carry = true
		}
	}
}

// rtcSaveSize is the clock trailer appended to battery RAM: live and latched
// registers as 32-bit little-endian words, then a 64-bit unix timestamp.
const rtcSaveSize = 48

func (r *RTC) marshal() []byte {
	out := make([]byte, rtcSaveSize)
	live := r.regs()
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(live[i]))
		binary.LittleEndian.PutUint32(out[20+i*4:], uint32(r.latched[i]))
	}
	binary.LittleEndian.PutUint64(out[40:], uint64(nowUnix()))
	return out
}

// unmarshal restores the registers and catches up on the wall time that
// passed since the save.
func (r *RTC) unmarshal(data []byte) {
	if len(data) < rtcSaveSize {
		return
	}
	for i := 0; i < 5; i++ {
		r.Write(byte(rtcS+i), byte(binary.LittleEndian.Uint32(data[i*4:])))
		r.latched[i] = byte(binary.LittleEndian.Uint32(data[20+i*4:]))
	}
	saved := int64(binary.LittleEndian.Uint64(data[40:]))
	if elapsed := nowUnix() - saved; saved > 0 && elapsed > 0 {
		r.Tick(int(elapsed))
	}
}
