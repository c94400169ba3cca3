package stt

import (
	"context"
	"strings"
	"sync"

	"github.com/obiente/tranquitor/internal/segment"
	"github.com/obiente/tranquitor/internal/whisper"
)

// Local runs segments through an in-process whisper engine.
type Local struct {
	mu     sync.Mutex
	engine whisper.Engine
}

func NewLocal(modelPath string, threads int) (*Local, error) {
	eng, err := whisper.NewEngine(modelPath, threads)
	if err != nil {
		return nil, err
	}
	return &Local{engine: eng}, nil
}

func (l *Local) Name() string { return "whisper" }

func (l *Local) Recognize(ctx context.Context, seg segment.Segment, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engine.SetLanguage(language)
	text, _, err := l.engine.Process(seg.Samples)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNotUnderstood
	}
	return text, nil
}

func (l *Local) Close() error { return l.engine.Close() }
