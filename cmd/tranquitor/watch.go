package main

import (
	"context"
	"flag"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/obiente/tranquitor/internal/config"
	"github.com/obiente/tranquitor/internal/media"
	"github.com/obiente/tranquitor/internal/pipeline"
	"github.com/obiente/tranquitor/internal/transcript"
	"github.com/obiente/tranquitor/internal/watch"
)

func runWatch(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	var dir, format string
	var settle time.Duration
	fs.StringVar(&dir, "dir", ".", "Directory to watch")
	fs.StringVar(&format, "format", "json", "Output format: json|txt|md")
	fs.DurationVar(&settle, "settle", 2*time.Second, "Time a file size must stay unchanged")
	fs.StringVar(&cfg.Language, "lang", cfg.Language, "Language code")
	fs.Parse(args)

	f, err := transcript.ParseFormat(format)
	if err != nil {
		log.Error().Err(err).Msg("watch")
		return 2
	}
	orch, release, err := pipeline.New(cfg, log.Logger)
	if err != nil {
		log.Error().Err(err).Msg("backend setup failed")
		return 1
	}
	defer release()
	opts := pipeline.OptionsFrom(cfg)

	ctx, cancel := interrupts(nil)
	defer cancel()

	w := &watch.Watcher{
		Dir:    dir,
		Settle: settle,
		Log:    log.Logger,
		Handle: transcribeNext(orch, f, opts),
	}
	if err := w.Run(ctx); err != nil {
		log.Error().Err(err).Msg("watch")
		return 1
	}
	return 0
}

type runner interface {
	Run(ctx context.Context, src media.Source, opts pipeline.Options, ctl *pipeline.Control) (*pipeline.Result, error)
}

// transcribeNext writes a transcript beside each new file, including the
// empty one of a zero-length input and the partial one of a stopped run.
func transcribeNext(r runner, f transcript.Format, opts pipeline.Options) func(ctx context.Context, path string) error {
	return func(ctx context.Context, path string) error {
		src, err := media.NewSource(path)
		if err != nil {
			return err
		}
		res, err := r.Run(ctx, src, opts, nil)
		if res != nil {
			out := outputPath("", path, f, "")
			if werr := writeTranscript(out, f, res.Meta, res.Transcript); werr != nil {
				return werr
			}
			log.Info().Str("path", out).Str("state", res.State.String()).Msg("watch: transcript written")
		}
		return err
	}
}
