//go:build whisper_cpp

package whisper

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog/log"
)

// minSamples is 100ms at 16kHz; shorter input is not worth a model pass.
const minSamples = 1600

type engineCPP struct {
	model    whisperpkg.Model
	threads  uint
	language string     // configured language ("auto" for auto-detection)
	mu       sync.Mutex // whisper.cpp contexts must not run concurrently on one model
}

// NewEngine loads a ggml model. threads <= 0 uses one thread per CPU.
func NewEngine(modelPath string, threads int) (Engine, error) {
	if threads <= 0 {
		threads = runtime.NumCPU()
		log.Info().Int("threads", threads).Msg("whisper: using default thread count (CPU cores)")
	} else {
		log.Info().Int("threads", threads).Msg("whisper: using configured thread count")
	}

	m, err := whisperpkg.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	log.Info().Str("model", modelPath).Msg("whisper: model loaded successfully")
	return &engineCPP{
		model:    m,
		threads:  uint(threads),
		language: "auto",
	}, nil
}

func (e *engineCPP) Close() error {
	if e.model != nil {
		e.model.Close()
	}
	return nil
}

func (e *engineCPP) SetLanguage(lang string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if lang == "" {
		lang = "auto"
	}
	e.language = lang
	log.Info().Str("language", lang).Msg("whisper: language configured")
}

func (e *engineCPP) Process(samples []float32) (string, string, error) {
	if len(samples) < minSamples {
		log.Debug().Int("samples", len(samples)).Msg("whisper: skipping too-short audio")
		return "", "", nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, err := e.model.NewContext()
	if err != nil {
		return "", "", fmt.Errorf("create context: %w", err)
	}
	ctx.SetThreads(e.threads)
	if err := ctx.SetLanguage(e.language); err != nil {
		return "", "", fmt.Errorf("set language %q: %w", e.language, err)
	}
	ctx.SetSplitOnWord(true)
	ctx.SetTokenTimestamps(false)
	ctx.SetMaxSegmentLength(0)
	ctx.SetMaxTokensPerSegment(0)

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		log.Error().Err(err).Int("samples", len(samples)).Msg("whisper: process failed")
		return "", "", fmt.Errorf("process audio: %w", err)
	}

	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if err != nil {
			if err == io.EOF {
				break
			}
			log.Warn().Err(err).Msg("whisper: error reading segment")
			break
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			segments = append(segments, text)
		}
	}

	full := strings.TrimSpace(strings.Join(segments, " "))
	lang := ctx.Language()
	if lang == "" || lang == "auto" {
		lang = ctx.DetectedLanguage()
	}

	log.Debug().
		Str("lang", lang).
		Int("segments", len(segments)).
		Int("samples", len(samples)).
		Msg("whisper: transcription complete")
	return full, lang, nil
}
