package apu

// Channel is one sound generator. The APU drives the sub-clock methods;
// Restart runs when software writes the trigger bit.
type Channel interface {
	Restart()
	TickLength()
	Running() bool
	// Output is the current digital level, 0-15. A stopped channel or one
	// with its DAC off outputs 0.
	Output() byte

	dacOn() bool
	clock(cycles int)
	write(off uint16, value byte)
}

// voice carries the register window and the length counter every channel
// has. Offsets are relative to the channel's NRx0 address.
type voice struct {
	bus     Bus
	base    uint16
	running bool

	length    int
	lengthMax int
	lengthOn  bool // NRx4 bit 6: stop when the counter expires
}

func (v *voice) reg(off uint16) byte { return v.bus.Peek(v.base + off) }

// period11 is the 11-bit frequency value held in NRx3/NRx4.
func (v *voice) period11() uint16 { return uint16(v.reg(4)&0x07)<<8 | uint16(v.reg(3)) }

func (v *voice) Running() bool { return v.running }

// TickLength counts the length down and stops the channel when it reaches
// zero with the length enable set.
func (v *voice) TickLength() {
	if !v.lengthOn || v.length == 0 {
		return
	}
	v.length--
	if v.length == 0 {
		v.running = false
	}
}

func (v *voice) restartLength() {
	if v.length == 0 {
		v.length = v.lengthMax
	}
}

// envelope steps a channel's volume toward 0 or 15.
type envelope struct {
	volume    byte
	up        bool
	pace      byte
	countdown byte
}

func (e *envelope) load(nrx2 byte) {
	e.volume = nrx2 >> 4
	e.up = nrx2&0x08 != 0
	e.pace = nrx2 & 0x07
	e.countdown = e.pace
}

// TickEnvelope moves the volume one step each period, clamped to [0,15].
// Pace 0 freezes the volume.
func (e *envelope) TickEnvelope() {
	if e.pace == 0 {
		return
	}
	if e.countdown > 0 {
		e.countdown--
	}
	if e.countdown != 0 {
		return
	}
	e.countdown = e.pace
	switch {
	case e.up && e.volume < 15:
		e.volume++
	case !e.up && e.volume > 0:
		e.volume--
	}
}

var dutyTable = [4][8]byte{
	{0, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 0},
}

// Square is a pulse channel; channel 1 adds the frequency sweep.
type Square struct {
	voice
	envelope

	hasSweep    bool
	sweepOn     bool
	sweepTimer  byte
	sweepShadow uint16

	timer int
	phase int
}

func newSquare(b Bus, base uint16, sweep bool) *Square {
	return &Square{voice: voice{bus: b, base: base, lengthMax: 64}, hasSweep: sweep}
}

func (s *Square) dacOn() bool { return s.reg(2)&0xF8 != 0 }

func (s *Square) write(off uint16, value byte) {
	switch off {
	case 1:
		s.length = s.lengthMax - int(value&0x3F)
	case 2:
		if !s.dacOn() {
			s.running = false
		}
	case 4:
		s.lengthOn = value&0x40 != 0
		if value&0x80 != 0 {
			s.Restart()
		}
	}
}

// Restart reloads the length, envelope, sweep and frequency timer from the
// control registers and sets the channel running.
func (s *Square) Restart() {
	s.running = s.dacOn()
	s.restartLength()
	s.load(s.reg(2))
	s.timer = s.period()
	s.phase = 0
	if !s.hasSweep {
		return
	}
	nr10 := s.reg(0)
	s.sweepShadow = s.period11()
	s.sweepTimer = sweepPeriod(nr10)
	s.sweepOn = nr10&0x70 != 0 || nr10&0x07 != 0
	if nr10&0x07 != 0 {
		if _, ok := s.nextSweep(); !ok {
			s.running = false
		}
	}
}

func sweepPeriod(nr10 byte) byte {
	if p := nr10 >> 4 & 0x07; p != 0 {
		return p
	}
	return 8
}

// nextSweep computes shadow ± shadow>>shift; ok is false on overflow past
// the 11-bit range.
func (s *Square) nextSweep() (uint16, bool) {
	nr10 := s.reg(0)
	delta := s.sweepShadow >> (nr10 & 0x07)
	if nr10&0x08 != 0 {
		return s.sweepShadow - delta, true
	}
	f := s.sweepShadow + delta
	return f, f <= 2047
}

// TickSweep applies one sweep step. Overflow stops the channel and leaves
// the frequency registers untouched; otherwise the new frequency is written
// back into NRx3/NRx4.
func (s *Square) TickSweep() {
	if !s.hasSweep || !s.sweepOn || !s.running {
		return
	}
	if s.sweepTimer > 0 {
		s.sweepTimer--
	}
	if s.sweepTimer != 0 {
		return
	}
	nr10 := s.reg(0)
	s.sweepTimer = sweepPeriod(nr10)
	if nr10&0x70 == 0 {
		return
	}
	f, ok := s.nextSweep()
	if !ok {
		s.running = false
		return
	}
	if nr10&0x07 == 0 {
		return
	}
	s.sweepShadow = f
	s.bus.SetIO(s.base+3, byte(f))
	s.bus.SetIO(s.base+4, s.reg(4)&^0x07|byte(f>>8)&0x07)
	if _, ok := s.nextSweep(); !ok {
		s.running = false
	}
}

func (s *Square) period() int { return int(2048-s.period11()) * 4 }

func (s *Square) clock(cycles int) {
	s.timer -= cycles
	for s.timer <= 0 {
		s.timer += s.period()
		s.phase = (s.phase + 1) & 7
	}
}

func (s *Square) Output() byte {
	if !s.running || !s.dacOn() {
		return 0
	}
	duty := s.reg(1) >> 6
	return dutyTable[duty][s.phase] * s.volume
}

// Wave plays 32 4-bit samples from wave RAM.
type Wave struct {
	voice
	timer int
	pos   int
}

func newWave(b Bus, base uint16) *Wave {
	return &Wave{voice: voice{bus: b, base: base, lengthMax: 256}}
}

func (w *Wave) dacOn() bool { return w.reg(0)&0x80 != 0 }

func (w *Wave) write(off uint16, value byte) {
	switch off {
	case 0:
		if !w.dacOn() {
			w.running = false
		}
	case 1:
		w.length = w.lengthMax - int(value)
	case 4:
		w.lengthOn = value&0x40 != 0
		if value&0x80 != 0 {
			w.Restart()
		}
	}
}

func (w *Wave) Restart() {
	w.running = w.dacOn()
	w.restartLength()
	w.timer = w.period()
	w.pos = 0
}

func (w *Wave) period() int { return int(2048-w.period11()) * 2 }

func (w *Wave) clock(cycles int) {
	w.timer -= cycles
	for w.timer <= 0 {
		w.timer += w.period()
		w.pos = (w.pos + 1) & 31
	}
}

// waveShift maps the NR32 output level code to a right shift; code 0 mutes.
var waveShift = [4]byte{4, 0, 1, 2}

func (w *Wave) Output() byte {
	if !w.running || !w.dacOn() {
		return 0
	}
	b := w.bus.Peek(waveRAM + uint16(w.pos>>1))
	if w.pos&1 == 0 {
		b >>= 4
	}
	return (b & 0x0F) >> waveShift[w.reg(2)>>5&0x03]
}

// Noise outputs the low bit of a linear feedback shift register.
type Noise struct {
	voice
	envelope
	timer int
	lfsr  uint16
}

func newNoise(b Bus, base uint16) *Noise {
	return &Noise{voice: voice{bus: b, base: base, lengthMax: 64}, lfsr: 0x7FFF}
}

func (n *Noise) dacOn() bool { return n.reg(2)&0xF8 != 0 }

func (n *Noise) write(off uint16, value byte) {
	switch off {
	case 1:
		n.length = n.lengthMax - int(value&0x3F)
	case 2:
		if !n.dacOn() {
			n.running = false
		}
	case 4:
		n.lengthOn = value&0x40 != 0
		if value&0x80 != 0 {
			n.Restart()
		}
	}
}

func (n *Noise) Restart() {
	n.running = n.dacOn()
	n.restartLength()
	n.load(n.reg(2))
	n.timer = n.period()
	n.lfsr = 0x7FFF
}

var noiseDivisor = [8]int{8, 16, 32, 48, 64, 80, 96, 112}

func (n *Noise) period() int {
	nr43 := n.reg(3)
	return noiseDivisor[nr43&0x07] << (nr43 >> 4)
}

func (n *Noise) clock(cycles int) {
	n.timer -= cycles
	for n.timer <= 0 {
		n.timer += n.period()
		x := (n.lfsr ^ n.lfsr>>1) & 1
		n.lfsr = n.lfsr>>1 | x<<14
		if n.reg(3)&0x08 != 0 {
			n.lfsr = n.lfsr&^(1<<6) | x<<6
		}
	}
}

func (n *Noise) Output() byte {
	if !n.running || !n.dacOn() {
		return 0
	}
	return byte(^n.lfsr&1) * n.volume
}
