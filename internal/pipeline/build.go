package pipeline

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/obiente/tranquitor/internal/config"
	"github.com/obiente/tranquitor/internal/media"
	"github.com/obiente/tranquitor/internal/store"
	"github.com/obiente/tranquitor/internal/stt"
)

// OptionsFrom maps configuration onto run options. Fine segmentation is left
// off; callers opt in per run.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		ChunkDuration: cfg.ChunkDuration(),
		Language:      cfg.Language,
		Timeout:       cfg.RunTimeout(),
		Workers:       cfg.Workers,
		SilenceAware:  cfg.SilenceAware,
	}
}

// New wires an Orchestrator for cfg: ffmpeg normalization, the configured
// backend wrapped in a retrying client, and the sqlite cache when CachePath
// is set. The returned func releases the cache and any local engine.
func New(cfg config.Config, log zerolog.Logger) (*Orchestrator, func(), error) {
	rec, err := stt.New(cfg.Backend, cfg.STT())
	if err != nil {
		return nil, nil, err
	}
	var closers []io.Closer
	if c, ok := rec.(io.Closer); ok {
		closers = append(closers, c)
	}

	o := &Orchestrator{
		Normalizer: &media.FFmpegNormalizer{
			Path:      cfg.FFmpegPath,
			LowPassHz: cfg.LowPassHz,
			Loudnorm:  cfg.Loudnorm,
			Log:       log,
		},
		Transcriber: stt.NewClient(rec,
			stt.WithRetries(cfg.Retries),
			stt.WithBackoff(2*time.Second),
			stt.WithMaxBytes(cfg.MaxChunkBytes),
			stt.WithLogger(log),
		),
		ScratchDir: cfg.ScratchDir,
		Log:        log,
	}
	if cfg.CachePath != "" {
		cache, err := store.Open(cfg.CachePath)
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
			return nil, nil, err
		}
		o.Cache = cache
		closers = append(closers, cache)
	}
	release := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("pipeline: release")
			}
		}
	}
	return o, release, nil
}
