package audio

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// PeakNormalize scales samples so the loudest one sits at targetDBFS
// (e.g. -1). Silent input is returned unchanged.
func PeakNormalize(samples []float32, targetDBFS float64) []float32 {
	if len(samples) == 0 {
		return samples
	}
	f := toFloat64(samples)
	peak := math.Max(floats.Max(f), -floats.Min(f))
	if peak == 0 {
		return samples
	}
	gain := math.Pow(10, targetDBFS/20) / peak
	floats.Scale(gain, f)
	out := make([]float32, len(f))
	for i, v := range f {
		out[i] = float32(v)
	}
	return out
}

// FrameRMS returns the root-mean-square energy of consecutive frames of
// frameLen samples. The trailing partial frame is included.
func FrameRMS(samples []float32, frameLen int) []float64 {
	if frameLen <= 0 || len(samples) == 0 {
		return nil
	}
	out := make([]float64, 0, (len(samples)+frameLen-1)/frameLen)
	for start := 0; start < len(samples); start += frameLen {
		end := min(start+frameLen, len(samples))
		f := toFloat64(samples[start:end])
		out = append(out, floats.Norm(f, 2)/math.Sqrt(float64(len(f))))
	}
	return out
}

func toFloat64(samples []float32) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s)
	}
	return out
}
