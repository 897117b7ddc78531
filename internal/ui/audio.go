package ui

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

// maxQueuedFrames bounds the handoff at about a quarter second at 44.1 kHz.
const maxQueuedFrames = 11025

// sampleQueue hands PCM from the game goroutine (which owns the Machine) to
// the audio player goroutine. It stores 16-bit little-endian stereo frames.
type sampleQueue struct {
	mu   sync.Mutex
	buf  []byte
	mono bool
}

// push converts one mixer output pair; frames beyond the bound are dropped.
func (q *sampleQueue) push(l, r float32) {
	if q.mono {
		m := (l + r) / 2
		l, r = m, m
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf)/4 >= maxQueuedFrames {
		return
	}
	q.buf = binary.LittleEndian.AppendUint16(q.buf, uint16(pcm16(l)))
	q.buf = binary.LittleEndian.AppendUint16(q.buf, uint16(pcm16(r)))
}

func (q *sampleQueue) buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) / 4
}

func (q *sampleQueue) clear() {
	q.mu.Lock()
	q.buf = q.buf[:0]
	q.mu.Unlock()
}

func pcm16(v float32) int16 {
	v = float32(math.Max(-1, math.Min(1, float64(v))))
	return int16(v * math.MaxInt16)
}

// queueStream implements io.Reader for audio.Player. It never blocks for
// long: an empty queue yields a short run of silence.
type queueStream struct {
	q         *sampleQueue
	muted     *atomic.Bool
	underruns int
}

func (s *queueStream) Read(p []byte) (int, error) {
	n := len(p) &^ 3
	if n == 0 {
		clear(p)
		return len(p), nil
	}
	if s.muted != nil && s.muted.Load() {
		s.q.clear()
		clear(p[:n])
		time.Sleep(5 * time.Millisecond)
		return n, nil
	}

	s.q.mu.Lock()
	got := copy(p[:n], s.q.buf)
	got &^= 3
	s.q.buf = s.q.buf[:copy(s.q.buf, s.q.buf[got:])]
	s.q.mu.Unlock()
	if got > 0 {
		return got, nil
	}

	s.underruns++
	silence := min(n, 256*4)
	clear(p[:silence])
	time.Sleep(2 * time.Millisecond)
	return silence, nil
}

// startAudio creates the player. The ebiten audio context is process wide,
// so an existing one is reused.
func (a *App) startAudio(rate int) error {
	ctx := audio.CurrentContext()
	if ctx == nil {
		ctx = audio.NewContext(rate)
	}
	a.audioQ = &sampleQueue{mono: !a.cfg.AudioStereo}
	p, err := ctx.NewPlayer(&queueStream{q: a.audioQ, muted: &a.muted})
	if err != nil {
		return err
	}
	p.SetBufferSize(time.Duration(a.cfg.AudioBufferMs) * time.Millisecond)
	p.Play()
	a.audioPlayer = p
	return nil
}

// pumpAudio drains the APU into the handoff queue. It runs on the game
// goroutine after the frame has been emulated.
func (a *App) pumpAudio() {
	if a.audioQ == nil || a.m.APU == nil {
		return
	}
	for a.m.APU.Buffered() > 0 {
		a.audioQ.push(a.m.NextSample())
	}
}
