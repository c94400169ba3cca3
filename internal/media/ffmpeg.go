package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/obiente/tranquitor/internal/audio"
)

var ErrFFmpegNotFound = errors.New("ffmpeg not found")

// Normalizer turns a source into a canonical mono 16 kHz buffer. Any file it
// writes goes to scratch; the caller owns cleanup.
type Normalizer interface {
	Normalize(ctx context.Context, src Source, scratch *Scratch) (*audio.Buffer, error)
}

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// FFmpegNormalizer decodes anything ffmpeg understands. Plain WAV input is
// decoded in-process and never touches ffmpeg.
type FFmpegNormalizer struct {
	Path      string // ffmpeg binary, default "ffmpeg"
	LowPassHz int    // 0 disables the low-pass filter
	Loudnorm  bool   // peak-normalize to -1 dBFS after decoding
	Runner    Runner
	Log       zerolog.Logger
}

const peakTargetDBFS = -1.0

func (n *FFmpegNormalizer) Normalize(ctx context.Context, src Source, scratch *Scratch) (*audio.Buffer, error) {
	if strings.EqualFold(filepath.Ext(src.Path), ".wav") {
		buf, err := audio.DecodeWAVFile(src.Path)
		if err == nil {
			n.Log.Debug().Str("path", src.Path).Int("rate", buf.SampleRate).Msg("normalize: decoded wav in-process")
			return n.finish(buf), nil
		}
		n.Log.Debug().Err(err).Str("path", src.Path).Msg("normalize: in-process wav decode failed, using ffmpeg")
	}

	bin := n.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	runner := n.Runner
	if runner == nil {
		if _, err := exec.LookPath(bin); err != nil {
			return nil, &DecodeError{Path: src.Path, Err: fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)}
		}
		runner = execRunner{}
	}

	out := scratch.Path("normalized.wav")
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", src.Path,
		"-vn",
		"-ac", strconv.Itoa(audio.CanonicalChannels),
		"-ar", strconv.Itoa(audio.CanonicalSampleRate),
		"-sample_fmt", "s16",
	}
	if n.LowPassHz > 0 {
		args = append(args, "-af", fmt.Sprintf("lowpass=f=%d", n.LowPassHz))
	}
	args = append(args, "-f", "wav", out)

	n.Log.Debug().Str("path", src.Path).Str("kind", string(src.Kind)).Strs("args", args).Msg("normalize: running ffmpeg")
	if output, err := runner.Run(ctx, bin, args...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &DecodeError{Path: src.Path, Err: fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output)))}
	}
	buf, err := audio.DecodeWAVFile(out)
	if err != nil {
		return nil, &DecodeError{Path: src.Path, Err: err}
	}
	return n.finish(buf), nil
}

func (n *FFmpegNormalizer) finish(buf *audio.Buffer) *audio.Buffer {
	// Decoded buffers are already mono, so only the rate can be off.
	if !buf.Canonical() {
		buf.Samples = audio.ResampleLinear(buf.Samples, buf.SampleRate, audio.CanonicalSampleRate)
		buf.SampleRate = audio.CanonicalSampleRate
		buf.Channels = audio.CanonicalChannels
	}
	buf.BitDepth = audio.CanonicalBitDepth
	if n.Loudnorm {
		buf.Samples = audio.PeakNormalize(buf.Samples, peakTargetDBFS)
	}
	return buf
}
