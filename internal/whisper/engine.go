package whisper

import "errors"

// ErrUnavailable is returned by NewEngine when the binary was built without
// the whisper_cpp tag.
var ErrUnavailable = errors.New("whisper: built without whisper_cpp tag")

// Engine is a small interface for local whisper transcription.
// The real implementation is backed by whisper.cpp (build tag: whisper_cpp).
type Engine interface {
	// Process runs transcription over 16 kHz mono PCM32F samples.
	// Returns (text, language).
	Process(samples []float32) (string, string, error)
	// SetLanguage configures the language for transcription. Use "auto" for auto-detection.
	SetLanguage(lang string)
	Close() error
}
