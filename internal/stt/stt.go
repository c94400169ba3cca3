// Package stt adapts speech-to-text backends to per-segment transcription.
package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/obiente/tranquitor/internal/segment"
)

var (
	// ErrNotUnderstood is returned by a Recognizer that heard no speech it
	// could transcribe with confidence.
	ErrNotUnderstood = errors.New("audio not understood")
	// ErrUnavailable means the backend is missing configuration or support.
	ErrUnavailable = errors.New("backend unavailable")
)

// Recognizer sends one segment to a speech-to-text backend.
// Any error other than ErrNotUnderstood is treated as a service failure.
type Recognizer interface {
	Recognize(ctx context.Context, seg segment.Segment, language string) (string, error)
	Name() string
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, seg segment.Segment, language string) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, seg segment.Segment, language string) (string, error) {
	return f(ctx, seg, language)
}

func (f RecognizerFunc) Name() string { return "func" }

// httpStatusError reads the body of a failed response into an error.
func httpStatusError(backend string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s http %d: %s", backend, resp.StatusCode, strings.TrimSpace(string(b)))
}
