package audio

import (
	"time"
)

// Canonical format produced by the normalizer and expected by every backend.
const (
	CanonicalSampleRate = 16000
	CanonicalChannels   = 1
	CanonicalBitDepth   = 16
)

// Buffer is a decoded mono PCM stream with samples normalized to [-1,1].
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
	BitDepth   int
}

// NewBuffer wraps canonical mono samples.
func NewBuffer(samples []float32) *Buffer {
	return &Buffer{
		Samples:    samples,
		SampleRate: CanonicalSampleRate,
		Channels:   CanonicalChannels,
		BitDepth:   CanonicalBitDepth,
	}
}

// Duration is the total play time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return SamplesToDuration(len(b.Samples), b.SampleRate)
}

// Index converts an offset into a sample index clamped to the buffer.
func (b *Buffer) Index(d time.Duration) int {
	i := DurationToSamples(d, b.SampleRate)
	if i < 0 {
		return 0
	}
	if i > len(b.Samples) {
		return len(b.Samples)
	}
	return i
}

// Slice returns the samples between two offsets without copying.
func (b *Buffer) Slice(start, end time.Duration) []float32 {
	return b.Samples[b.Index(start):b.Index(end)]
}

// Canonical reports whether the buffer already matches the canonical format.
func (b *Buffer) Canonical() bool {
	return b.SampleRate == CanonicalSampleRate && b.Channels == CanonicalChannels
}

func SamplesToDuration(n, rate int) time.Duration {
	return time.Duration(int64(n) * int64(time.Second) / int64(rate))
}

func DurationToSamples(d time.Duration, rate int) int {
	return int(int64(d) * int64(rate) / int64(time.Second))
}
