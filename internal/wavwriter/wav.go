// Package wavwriter records machine audio to a WAV file. Audio is buffered
// in memory in its entirety and written when the recording is closed, so it
// suits headless runs and tests rather than long sessions.
package wavwriter

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/logger"
)

const bitDepth = 16

// Source is the part of the machine the recorder drains.
type Source interface {
	BufferedSamples() int
	NextSample() (left, right float32)
}

// WavWriter collects 16-bit stereo samples.
type WavWriter struct {
	filename string
	rate     int
	buffer   []int
	log      logger.Logger
}

func New(filename string, sampleRate int, log logger.Logger) (*WavWriter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("wavwriter: bad sample rate %d", sampleRate)
	}
	if log == nil {
		log = logger.Discard
	}
	return &WavWriter{filename: filename, rate: sampleRate, log: log}, nil
}

func toPCM(v float32) int {
	return int(math.Max(-1, math.Min(1, float64(v))) * math.MaxInt16)
}

// Add appends one stereo frame.
func (aw *WavWriter) Add(left, right float32) {
	aw.buffer = append(aw.buffer, toPCM(left), toPCM(right))
}

// Drain moves every sample src has buffered into the recording.
func (aw *WavWriter) Drain(src Source) {
	for n := src.BufferedSamples(); n > 0; n-- {
		aw.Add(src.NextSample())
	}
}

// Frames returns the number of stereo frames recorded.
func (aw *WavWriter) Frames() int { return len(aw.buffer) / 2 }

// Close writes the file.
func (aw *WavWriter) Close() (rerr error) {
	f, err := os.Create(aw.filename)
	if err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("wavwriter: %w", err)
		}
	}()

	enc := wav.NewEncoder(f, aw.rate, bitDepth, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: aw.rate},
		Data:           aw.buffer,
		SourceBitDepth: bitDepth,
	}
	aw.log.Logf("wavwriter", "writing %d frames to %s", aw.Frames(), aw.filename)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}
	return nil
}
