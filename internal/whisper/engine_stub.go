//go:build !whisper_cpp

package whisper

// NewEngine fails without cgo whisper.cpp support so callers can fall back
// to a remote backend.
func NewEngine(modelPath string, threads int) (Engine, error) { return nil, ErrUnavailable }
