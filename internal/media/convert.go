package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Converter re-encodes files between container formats with ffmpeg.
type Converter struct {
	Path   string
	Runner Runner
	Log    zerolog.Logger
}

// ConvertReport summarizes a directory conversion.
type ConvertReport struct {
	Converted []string
	Failed    map[string]error
}

// ConvertFile re-encodes in to out; the output format follows out's extension.
func (c *Converter) ConvertFile(ctx context.Context, in, out string) error {
	bin := c.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	runner := c.Runner
	if runner == nil {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
		}
		runner = execRunner{}
	}
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", in, "-vn", out}
	if output, err := runner.Run(ctx, bin, args...); err != nil {
		return fmt.Errorf("convert %s: %w: %s", in, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ConvertDir converts every file in inDir whose extension is from into outDir
// with extension to. A file that fails is recorded and the rest continue.
func (c *Converter) ConvertDir(ctx context.Context, inDir, outDir, from, to string) (ConvertReport, error) {
	from = "." + strings.TrimPrefix(strings.ToLower(from), ".")
	to = "." + strings.TrimPrefix(strings.ToLower(to), ".")
	report := ConvertReport{Failed: map[string]error{}}

	entries, err := os.ReadDir(inDir)
	if err != nil {
		return report, fmt.Errorf("read %s: %w", inDir, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return report, fmt.Errorf("create %s: %w", outDir, err)
	}
	for _, e := range entries {
		if e.IsDir() || strings.ToLower(filepath.Ext(e.Name())) != from {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		in := filepath.Join(inDir, e.Name())
		out := filepath.Join(outDir, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))+to)
		if err := c.ConvertFile(ctx, in, out); err != nil {
			c.Log.Warn().Err(err).Str("file", e.Name()).Msg("convert: failed")
			report.Failed[in] = err
			continue
		}
		c.Log.Info().Str("file", e.Name()).Str("out", filepath.Base(out)).Msg("convert: done")
		report.Converted = append(report.Converted, out)
	}
	return report, nil
}
