// Package apu implements the sound unit: two pulse channels (the first with
// a frequency sweep), a wave channel and a noise channel, mixed to a stereo
// float32 stream at a fixed sample rate.
package apu

import (
	"math"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/bus"
)

// CPU frequency in Hz (DMG)
const cpuHz = 4194304

// Sub-clock thresholds in CPU cycles.
const (
	lengthCycles   = cpuHz / 256
	sweepCycles    = cpuHz / 128
	envelopeCycles = cpuHz / 64
)

const (
	DefaultSampleRate = 44100
	ringFrames        = 8192
)

const waveRAM = bus.WaveRAM

// Bus is the register access the unit needs. Control registers live on the
// bus; the unit reads them when they matter and publishes status with
// SetIO.
type Bus interface {
	Peek(addr uint16) byte
	SetIO(addr uint16, value byte)
}

// APU is clocked by the machine with CPU cycles and subscribes to sound
// register writes on the bus.
type APU struct {
	bus     Bus
	powered bool

	Ch1 *Square
	Ch2 *Square
	Ch3 *Wave
	Ch4 *Noise

	lengthAcc   int
	sweepAcc    int
	envelopeAcc int

	sampleRate int
	sampleAcc  int // cycles*sampleRate, fires at cpuHz

	hpL, hpR highPass
	out      ring
}

// highPass removes the DC level the channel DACs leave on the output, the
// job of the coupling capacitor on the real board.
type highPass struct {
	cap    float32
	charge float32 // fraction of cap kept per output sample
}

func newHighPass(sampleRate int) highPass {
	// 0.999958 per CPU cycle, as measured on DMG hardware.
	return highPass{charge: float32(math.Pow(0.999958, float64(cpuHz)/float64(sampleRate)))}
}

func (h *highPass) filter(in float32) float32 {
	out := in - h.cap
	h.cap = in - out*h.charge
	return out
}

func New(b Bus, sampleRate int) *APU {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	a := &APU{
		bus:        b,
		Ch1:        newSquare(b, bus.NR10, true),
		Ch2:        newSquare(b, bus.NR21-1, false),
		Ch3:        newWave(b, bus.NR30),
		Ch4:        newNoise(b, bus.NR41-1),
		sampleRate: sampleRate,
		out:        newRing(ringFrames),
		hpL:        newHighPass(sampleRate),
		hpR:        newHighPass(sampleRate),
	}
	a.Reset()
	return a
}

// Reset takes the power state from NR52 and clears the sub-clocks.
func (a *APU) Reset() {
	a.powered = a.bus.Peek(bus.NR52)&0x80 != 0
	a.lengthAcc, a.sweepAcc, a.envelopeAcc, a.sampleAcc = 0, 0, 0, 0
	a.hpL.cap, a.hpR.cap = 0, 0
	a.publishStatus()
}

func (a *APU) SampleRate() int { return a.sampleRate }

func (a *APU) channels() [4]Channel {
	return [4]Channel{a.Ch1, a.Ch2, a.Ch3, a.Ch4}
}

// OnIOWrite routes a committed register write to its channel. Trigger
// writes restart the channel before the bus clears the trigger bit.
func (a *APU) OnIOWrite(addr uint16, value byte) {
	if addr == bus.NR52 {
		a.setPower(value&0x80 != 0)
		return
	}
	if addr < bus.NR10 || addr > bus.NR51 {
		return
	}
	if !a.powered {
		// Registers ignore writes while the unit is off.
		a.bus.SetIO(addr, 0)
		return
	}
	switch {
	case addr <= bus.NR14:
		a.Ch1.write(addr-bus.NR10, value)
	case addr >= bus.NR21 && addr <= bus.NR24:
		a.Ch2.write(addr-(bus.NR21-1), value)
	case addr >= bus.NR30 && addr <= bus.NR34:
		a.Ch3.write(addr-bus.NR30, value)
	case addr >= bus.NR41 && addr <= bus.NR44:
		a.Ch4.write(addr-(bus.NR41-1), value)
	}
	a.publishStatus()
}

func (a *APU) setPower(on bool) {
	if a.powered == on {
		return
	}
	a.powered = on
	if !on {
		for addr := bus.NR10; addr <= bus.NR51; addr++ {
			a.bus.SetIO(addr, 0)
		}
		for _, c := range a.channels() {
			c.Restart()
		}
	}
	a.lengthAcc, a.sweepAcc, a.envelopeAcc = 0, 0, 0
	a.publishStatus()
}

// publishStatus mirrors the power flag and channel running bits into NR52.
func (a *APU) publishStatus() {
	var v byte
	if a.powered {
		v = 0x80
	}
	for i, c := range a.channels() {
		if c.Running() {
			v |= 1 << i
		}
	}
	a.bus.SetIO(bus.NR52, v)
}

// Tick advances the channel timers and sub-clocks by cycles and queues any
// samples that fell due. Each sub-clock keeps the remainder past its
// threshold.
func (a *APU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	if a.powered {
		for _, c := range a.channels() {
			c.clock(cycles)
		}
		a.lengthAcc += cycles
		for a.lengthAcc >= lengthCycles {
			a.lengthAcc -= lengthCycles
			for _, c := range a.channels() {
				c.TickLength()
			}
		}
		a.sweepAcc += cycles
		for a.sweepAcc >= sweepCycles {
			a.sweepAcc -= sweepCycles
			a.Ch1.TickSweep()
		}
		a.envelopeAcc += cycles
		for a.envelopeAcc >= envelopeCycles {
			a.envelopeAcc -= envelopeCycles
			a.Ch1.TickEnvelope()
			a.Ch2.TickEnvelope()
			a.Ch4.TickEnvelope()
		}
		a.publishStatus()
	}

	a.sampleAcc += cycles * a.sampleRate
	for a.sampleAcc >= cpuHz {
		a.sampleAcc -= cpuHz
		l, r := a.Mix()
		a.out.push(a.hpL.filter(l), a.hpR.filter(r))
	}
}

// dac maps a digital level 0-15 to [-1, 1].
func dac(v byte) float32 { return float32(v)/7.5 - 1 }

// Mix combines the channel outputs into one stereo pair using the NR51
// routing bits and the NR50 master volumes, each side scaled by (vol+1)/8.
// Stopped channels and channels whose DAC is off contribute nothing. A
// running channel at volume 0 still sits at the bottom of its DAC range;
// the high-pass filter on the sample stream centres that level.
func (a *APU) Mix() (left, right float32) {
	if !a.powered {
		return 0, 0
	}
	nr50, nr51 := a.bus.Peek(bus.NR50), a.bus.Peek(bus.NR51)
	for i, c := range a.channels() {
		if !c.Running() || !c.dacOn() {
			continue
		}
		s := dac(c.Output())
		if nr51&(1<<(i+4)) != 0 {
			left += s
		}
		if nr51&(1<<i) != 0 {
			right += s
		}
	}
	left *= float32(nr50>>4&0x07+1) / 8 / 4
	right *= float32(nr50&0x07+1) / 8 / 4
	return left, right
}

// NextSample pops the oldest queued sample pair. An empty queue yields
// silence.
func (a *APU) NextSample() (left, right float32) {
	l, r, ok := a.out.pop()
	if !ok {
		return 0, 0
	}
	return l, r
}

// Buffered returns the number of queued sample pairs.
func (a *APU) Buffered() int { return a.out.len() }
