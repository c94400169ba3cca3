package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/obiente/tranquitor/internal/transcript"
)

// outputPath picks the transcript path: explicit, else the input path with
// the format's extension and an optional suffix.
func outputPath(explicit, input string, f transcript.Format, suffix string) string {
	if explicit != "" {
		return explicit
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + suffix + "." + string(f)
}

// formatFor resolves the -format flag, falling back to the output extension
// and then to json.
func formatFor(flagValue, out string) (transcript.Format, error) {
	if flagValue != "" {
		return transcript.ParseFormat(flagValue)
	}
	if ext := filepath.Ext(out); ext != "" {
		if f, err := transcript.ParseFormat(ext); err == nil {
			return f, nil
		}
	}
	return transcript.FormatJSON, nil
}

func writeTranscript(path string, f transcript.Format, meta transcript.Metadata, t transcript.Transcript) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tranquitor-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := transcript.Write(tmp, f, meta, t); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
