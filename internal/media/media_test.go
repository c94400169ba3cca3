package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/obiente/tranquitor/internal/audio"
)

func TestKindOf(t *testing.T) {
	cases := map[string]Kind{
		"clase.MP4":       KindVideo,
		"x/y/reunion.mkv": KindVideo,
		"a.mov":           KindVideo,
		"nota.mp3":        KindAudio,
		"voz.WAV":         KindAudio,
		"pista.flac":      KindAudio,
		"memo.m4a":        KindAudio,
	}
	for path, want := range cases {
		got, err := KindOf(path)
		if err != nil || got != want {
			t.Errorf("KindOf(%q) = %q, %v", path, got, err)
		}
	}
	if _, err := KindOf("notes.txt"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestNewSourceMissing(t *testing.T) {
	_, err := NewSource(filepath.Join(t.TempDir(), "nope.mp3"))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestScratchClose(t *testing.T) {
	s, err := NewScratch(t.TempDir(), "run")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(filepath.Base(s.Dir()), "tranquitor-run-") {
		t.Fatalf("unexpected dir %s", s.Dir())
	}
	if err := os.WriteFile(s.Path("chunk.wav"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := os.Stat(s.Dir()); !os.IsNotExist(err) {
		t.Fatalf("scratch dir still present: %v", err)
	}
}

func writeWAV(t *testing.T, path string, n, rate int) {
	t.Helper()
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.25
	}
	b, err := audio.EncodeWAV(samples, rate)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNormalizeWAVInProcess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voz.wav")
	writeWAV(t, path, 8000, 8000)
	src, err := NewSource(path)
	if err != nil {
		t.Fatal(err)
	}
	scratch, _ := NewScratch(dir, "")
	defer scratch.Close()

	n := &FFmpegNormalizer{Loudnorm: true, Runner: failRunner{}, Log: zerolog.Nop()}
	buf, err := n.Normalize(context.Background(), src, scratch)
	if err != nil {
		t.Fatal(err)
	}
	if buf.SampleRate != audio.CanonicalSampleRate || len(buf.Samples) != 16000 {
		t.Fatalf("got %d Hz, %d samples", buf.SampleRate, len(buf.Samples))
	}
	if buf.Samples[100] < 0.85 {
		t.Fatalf("loudness not normalized: %f", buf.Samples[100])
	}
}

func TestNormalizeCanonicalWAVKeepsSamples(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voz.wav")
	writeWAV(t, path, 16000, audio.CanonicalSampleRate)
	src, err := NewSource(path)
	if err != nil {
		t.Fatal(err)
	}
	scratch, _ := NewScratch(dir, "")
	defer scratch.Close()

	n := &FFmpegNormalizer{Runner: failRunner{}, Log: zerolog.Nop()}
	buf, err := n.Normalize(context.Background(), src, scratch)
	if err != nil {
		t.Fatal(err)
	}
	if !buf.Canonical() || len(buf.Samples) != 16000 {
		t.Fatalf("got %d Hz, %d channels, %d samples", buf.SampleRate, buf.Channels, len(buf.Samples))
	}
	if d := buf.Samples[100] - 0.25; d > 1e-3 || d < -1e-3 {
		t.Fatalf("sample altered: %f", buf.Samples[100])
	}
}

type fakeRunner struct {
	calls [][]string
	write func(out string) error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if err := f.write(args[len(args)-1]); err != nil {
		return []byte("Invalid data found when processing input"), err
	}
	return nil, nil
}

type failRunner struct{}

func (failRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return []byte("boom"), errors.New("exit status 1")
}

func TestNormalizeWithFFmpeg(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clase.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := NewSource(path)
	if err != nil {
		t.Fatal(err)
	}
	scratch, _ := NewScratch(dir, "")
	defer scratch.Close()

	r := &fakeRunner{write: func(out string) error {
		writeWAV(t, out, 32000, audio.CanonicalSampleRate)
		return nil
	}}
	n := &FFmpegNormalizer{Path: "ffmpeg", LowPassHz: 7000, Runner: r, Log: zerolog.Nop()}
	buf, err := n.Normalize(context.Background(), src, scratch)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Duration().Seconds() != 2 {
		t.Fatalf("duration %s", buf.Duration())
	}
	args := strings.Join(r.calls[0], " ")
	for _, want := range []string{"-ac 1", "-ar 16000", "-vn", "lowpass=f=7000", scratch.Dir()} {
		if !strings.Contains(args, want) {
			t.Errorf("ffmpeg args missing %q: %s", want, args)
		}
	}
}

func TestNormalizeDecodeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roto.mp3")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, _ := NewSource(path)
	scratch, _ := NewScratch(dir, "")
	defer scratch.Close()

	n := &FFmpegNormalizer{Runner: failRunner{}, Log: zerolog.Nop()}
	_, err := n.Normalize(context.Background(), src, scratch)
	var de *DecodeError
	if !errors.As(err, &de) || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected DecodeError with ffmpeg output, got %v", err)
	}
}

func TestConvertDir(t *testing.T) {
	in, out := t.TempDir(), filepath.Join(t.TempDir(), "mp3")
	for _, name := range []string{"a.flac", "b.FLAC", "c.txt"} {
		if err := os.WriteFile(filepath.Join(in, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	r := &fakeRunner{write: func(out string) error {
		if strings.HasSuffix(out, "b.mp3") {
			return errors.New("exit status 1")
		}
		return os.WriteFile(out, []byte("mp3"), 0o644)
	}}
	c := &Converter{Runner: r, Log: zerolog.Nop()}
	rep, err := c.ConvertDir(context.Background(), in, out, "flac", "mp3")
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Converted) != 1 || filepath.Base(rep.Converted[0]) != "a.mp3" {
		t.Fatalf("converted = %v", rep.Converted)
	}
	if len(rep.Failed) != 1 {
		t.Fatalf("failed = %v", rep.Failed)
	}
	if len(r.calls) != 2 {
		t.Fatalf("ffmpeg ran %d times", len(r.calls))
	}
}

func TestProbeWithoutTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.mp3")
	if err := os.WriteFile(path, []byte(strings.Repeat("sin etiquetas ", 40)), 0o644); err != nil {
		t.Fatal(err)
	}
	tags, err := Probe(path)
	if err != nil {
		t.Fatal(err)
	}
	if tags != (Tags{}) {
		t.Fatalf("unexpected tags %+v", tags)
	}
}
