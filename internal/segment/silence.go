package segment

import (
	"time"

	"github.com/obiente/tranquitor/internal/audio"
)

const defaultFrame = 20 * time.Millisecond

// SilenceAware behaves like Fixed but pulls each cut back, by at most Window,
// to the quietest Frame before the nominal boundary. No segment is longer
// than Chunk.
type SilenceAware struct {
	Chunk  time.Duration
	Window time.Duration
	Frame  time.Duration
}

func (s SilenceAware) Plan(buf *audio.Buffer) []Range {
	total := buf.Duration()
	if s.Chunk <= 0 || total <= 0 {
		return nil
	}
	frame := s.Frame
	if frame <= 0 {
		frame = defaultFrame
	}
	window := s.Window
	if window <= 0 || window >= s.Chunk {
		return fixedRanges(total, s.Chunk)
	}
	rms := audio.FrameRMS(buf.Samples, audio.DurationToSamples(frame, buf.SampleRate))

	var out []Range
	start := time.Duration(0)
	for start < total {
		nominal := start + s.Chunk
		if nominal >= total {
			out = append(out, Range{Start: start, End: total})
			break
		}
		cut := quietestCut(rms, frame, max(start, nominal-window), nominal)
		if cut <= start {
			cut = nominal
		}
		out = append(out, Range{Start: start, End: cut})
		start = cut
	}
	return out
}

// quietestCut returns the midpoint of the lowest-energy frame that lies
// fully inside [from, to], or to when there is none.
func quietestCut(rms []float64, frame, from, to time.Duration) time.Duration {
	best := -1
	first := int((from + frame - 1) / frame)
	for i := first; i < len(rms) && time.Duration(i+1)*frame <= to; i++ {
		if best < 0 || rms[i] < rms[best] {
			best = i
		}
	}
	if best < 0 {
		return to
	}
	return time.Duration(best)*frame + frame/2
}
