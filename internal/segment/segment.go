// Package segment slices a decoded audio buffer into ordered, contiguous
// chunks for transcription.
package segment

import (
	"fmt"
	"iter"
	"time"

	"github.com/obiente/tranquitor/internal/audio"
)

// Segment is a slice of the source timeline together with its samples.
// Samples alias the source buffer; they are not copied.
type Segment struct {
	Index      int
	Start      time.Duration
	End        time.Duration
	Samples    []float32
	SampleRate int
}

// Duration returns End-Start.
func (s Segment) Duration() time.Duration { return s.End - s.Start }

// WAV encodes the segment's audio as a 16-bit mono WAV blob.
func (s Segment) WAV() ([]byte, error) {
	return audio.EncodeWAV(s.Samples, s.SampleRate)
}

func (s Segment) String() string {
	return fmt.Sprintf("segment %d: %s-%s", s.Index, s.Start, s.End)
}

// Range is a half-open [Start, End) interval of the source timeline.
type Range struct {
	Start time.Duration
	End   time.Duration
}

// Segmenter plans the cut points for a buffer.
type Segmenter interface {
	// Plan returns contiguous, non-empty ranges covering [0, buf.Duration()).
	Plan(buf *audio.Buffer) []Range
}

// Count returns ceil(total/d), the number of fixed-size chunks.
func Count(total, d time.Duration) int {
	if total <= 0 || d <= 0 {
		return 0
	}
	return int((total + d - 1) / d)
}

// Segments lazily yields the planned segments of buf. The sequence can be
// ranged over more than once. Ranges that map to no samples are skipped.
func Segments(s Segmenter, buf *audio.Buffer) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		if buf == nil {
			return
		}
		idx := 0
		for _, r := range s.Plan(buf) {
			samples := buf.Slice(r.Start, r.End)
			if r.End <= r.Start || len(samples) == 0 {
				continue
			}
			seg := Segment{Index: idx, Start: r.Start, End: r.End, Samples: samples, SampleRate: buf.SampleRate}
			idx++
			if !yield(seg) {
				return
			}
		}
	}
}

// Fixed cuts every Chunk; the last segment may be shorter.
type Fixed struct {
	Chunk time.Duration
}

func (f Fixed) Plan(buf *audio.Buffer) []Range {
	return fixedRanges(buf.Duration(), f.Chunk)
}

func fixedRanges(total, d time.Duration) []Range {
	n := Count(total, d)
	out := make([]Range, 0, n)
	for i := 0; i < n; i++ {
		start := time.Duration(i) * d
		out = append(out, Range{Start: start, End: min(start+d, total)})
	}
	return out
}
