// Package media identifies input files and turns them into canonical audio
// buffers.
package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind tells whether a source needs its audio stream demuxed from video.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

var ErrUnsupported = errors.New("unsupported media type")

var kinds = map[string]Kind{
	".mp4":  KindVideo,
	".mkv":  KindVideo,
	".avi":  KindVideo,
	".mov":  KindVideo,
	".webm": KindVideo,
	".mp3":  KindAudio,
	".wav":  KindAudio,
	".ogg":  KindAudio,
	".m4a":  KindAudio,
	".flac": KindAudio,
	".aac":  KindAudio,
	".opus": KindAudio,
}

// KindOf classifies a path by its extension.
func KindOf(path string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if k, ok := kinds[ext]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
}

// IsMedia reports whether path has a recognized media extension.
func IsMedia(path string) bool {
	_, err := KindOf(path)
	return err == nil
}

// Source is an input file for one run.
type Source struct {
	Path string
	Kind Kind
	Size int64
}

// Name is the file name without directory or extension.
func (s Source) Name() string {
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NewSource validates that path exists and has a known media extension.
func NewSource(path string) (Source, error) {
	kind, err := KindOf(path)
	if err != nil {
		return Source{}, &DecodeError{Path: path, Err: err}
	}
	fi, err := os.Stat(path)
	if err != nil {
		return Source{}, &DecodeError{Path: path, Err: err}
	}
	if fi.IsDir() {
		return Source{}, &DecodeError{Path: path, Err: errors.New("is a directory")}
	}
	return Source{Path: path, Kind: kind, Size: fi.Size()}, nil
}

// DecodeError reports a source that could not be demuxed or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
