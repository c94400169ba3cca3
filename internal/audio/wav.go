package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrInvalidWAV = errors.New("invalid wav file")

// DecodeWAV decodes a WAV stream into float32 samples. Multi-channel input is
// downmixed to mono; the sample rate is left untouched.
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, err
	}
	sr := int(dec.SampleRate)
	chans := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	if buf != nil {
		if sr == 0 && buf.Format != nil {
			sr = buf.Format.SampleRate
		}
		if chans == 0 && buf.Format != nil {
			chans = buf.Format.NumChannels
		}
		if buf.SourceBitDepth > 0 {
			bitDepth = buf.SourceBitDepth
		}
	}
	if sr == 0 {
		sr = CanonicalSampleRate
	}
	if chans <= 0 {
		chans = 1
	}
	if bitDepth <= 0 {
		bitDepth = CanonicalBitDepth
	}
	out := &Buffer{SampleRate: sr, Channels: 1, BitDepth: bitDepth}
	if buf == nil || len(buf.Data) == 0 {
		return out, nil
	}
	max := float32(int(1) << (bitDepth - 1))
	frames := len(buf.Data) / chans
	out.Samples = make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < chans; c++ {
			sum += float32(buf.Data[i*chans+c]) / max
		}
		out.Samples[i] = sum / float32(chans)
	}
	return out, nil
}

// DecodeWAVBytes decodes a WAV blob held in memory.
func DecodeWAVBytes(b []byte) (*Buffer, error) {
	return DecodeWAV(bytes.NewReader(b))
}

// DecodeWAVFile decodes a WAV file from disk.
func DecodeWAVFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeWAV(f)
}

// EncodeWAV encodes mono float32 samples as a 16-bit PCM WAV blob.
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		sampleRate = CanonicalSampleRate
	}
	ws := &seekBuffer{}
	enc := wav.NewEncoder(ws, sampleRate, CanonicalBitDepth, 1, 1)
	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           FloatToPCM16(samples),
		SourceBitDepth: CanonicalBitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return ws.Bytes(), nil
}

// FloatToPCM16 clamps and scales samples to the int16 range.
func FloatToPCM16(samples []float32) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int(v)
	}
	return out
}

// EncodePCM16LE renders samples as raw little-endian PCM16 (audio/l16 payloads).
func EncodePCM16LE(samples []float32) []byte {
	pcm := FloatToPCM16(samples)
	out := make([]byte, 2*len(pcm))
	for i, v := range pcm {
		u := uint16(int16(v))
		out[2*i] = byte(u)
		out[2*i+1] = byte(u >> 8)
	}
	return out
}

// ResampleLinear resamples PCM32F from inRate to outRate using linear interpolation.
func ResampleLinear(samples []float32, inRate, outRate int) []float32 {
	if inRate <= 0 || outRate <= 0 || inRate == outRate || len(samples) == 0 {
		if inRate == outRate {
			return append([]float32(nil), samples...)
		}
		return samples
	}
	ratio := float64(outRate) / float64(inRate)
	outLen := int(float64(len(samples)) * ratio)
	if outLen <= 1 {
		outLen = 1
	}
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		i0 := int(srcPos)
		if i0 >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(srcPos - float64(i0))
		s0 := samples[i0]
		s1 := samples[i0+1]
		out[i] = s0 + (s1-s0)*frac
	}
	return out
}

// seekBuffer is an in-memory io.WriteSeeker; the wav encoder seeks back to
// patch chunk sizes on Close.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if need := s.pos + len(p); need > len(s.buf) {
		s.buf = append(s.buf, make([]byte, need-len(s.buf))...)
	}
	n := copy(s.buf[s.pos:], p)
	s.pos += n
	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(s.pos) + offset
	case io.SeekEnd:
		abs = int64(len(s.buf)) + offset
	default:
		return 0, errors.New("seekBuffer: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("seekBuffer: negative position")
	}
	s.pos = int(abs)
	return abs, nil
}

func (s *seekBuffer) Bytes() []byte { return s.buf }
