package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/obiente/tranquitor/internal/config"
	"github.com/obiente/tranquitor/internal/media"
	"github.com/obiente/tranquitor/internal/pipeline"
	"github.com/obiente/tranquitor/internal/transcript"
)

func runTranscribe(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("transcribe", flag.ExitOnError)
	var (
		in, out, fineOut, format string
		fine                     int
	)
	fs.StringVar(&in, "input", "", "Input media file (-i)")
	fs.StringVar(&in, "i", "", "Input media file")
	fs.StringVar(&out, "output", "", "Transcript output path (-o)")
	fs.StringVar(&out, "o", "", "Transcript output path")
	fs.StringVar(&format, "format", "", "Output format: json|txt|md (default from -o, else json)")
	fs.StringVar(&cfg.Language, "lang", cfg.Language, "Language code")
	fs.IntVar(&cfg.ChunkSeconds, "chunk", cfg.ChunkSeconds, "Chunk length in seconds")
	fs.IntVar(&fine, "fine", 0, "Also write a transcript resegmented into windows of this many seconds")
	fs.StringVar(&fineOut, "fine-output", "", "Path of the resegmented transcript (default <input>_fino.<format>)")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Speech backend: google|openai|cloudflare|whisper")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Segments transcribed concurrently")
	fs.BoolVar(&cfg.SilenceAware, "silence", cfg.SilenceAware, "Move chunk cuts into nearby pauses")
	fs.IntVar(&cfg.RunTimeoutMinutes, "timeout", cfg.RunTimeoutMinutes, "Whole-run timeout in minutes (0 disables)")
	fs.StringVar(&cfg.CachePath, "cache", cfg.CachePath, "sqlite transcript cache path (empty disables)")
	fs.Parse(args)

	if in == "" {
		log.Error().Msg("missing -input/-i media path")
		fs.Usage()
		return 2
	}
	f, err := formatFor(format, out)
	if err != nil {
		log.Error().Err(err).Msg("transcribe")
		return 2
	}
	src, err := media.NewSource(in)
	if err != nil {
		log.Error().Err(err).Msg("transcribe")
		return 1
	}

	orch, release, err := pipeline.New(cfg, log.Logger)
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.Backend).Msg("backend setup failed")
		return 1
	}
	defer release()

	opts := pipeline.OptionsFrom(cfg)
	opts.FineDuration = time.Duration(fine) * time.Second

	ctl := pipeline.NewControl(pipeline.Observer{
		Progress: func(p pipeline.Progress) {
			ev := log.Info().Str("stage", p.Stage.String())
			if p.Total > 0 {
				ev = ev.Int("current", p.Current).Int("total", p.Total).Dur("remaining", p.Remaining.Round(time.Second))
			}
			ev.Msg(p.Label)
		},
		Segment: func(s transcript.Segment) {
			if s.Status != transcript.StatusOK {
				log.Warn().Int("segment", s.Index).Str("status", s.Status.String()).Msg(s.Text)
			}
		},
	})
	ctx, cancel := interrupts(ctl.Cancel)
	defer cancel()

	res, runErr := orch.Run(ctx, src, opts, ctl)
	var de *media.DecodeError
	if errors.As(runErr, &de) {
		log.Error().Err(runErr).Msg("cannot decode input")
		return 1
	}
	if res == nil {
		log.Error().Err(runErr).Msg("transcribe")
		return 1
	}

	outPath := outputPath(out, in, f, "")
	if err := writeTranscript(outPath, f, res.Meta, res.Transcript); err != nil {
		log.Error().Err(err).Msg("write transcript")
		return 1
	}
	if res.Fine != nil {
		p := outputPath(fineOut, in, f, "_fino")
		if err := writeTranscript(p, f, res.Meta, res.Fine); err != nil {
			log.Error().Err(err).Msg("write resegmented transcript")
			return 1
		}
		log.Info().Str("path", p).Int("segments", len(res.Fine)).Msg("resegmented transcript written")
	}

	counts := res.Transcript.Counts()
	log.Info().
		Str("path", outPath).
		Int("ok", counts[transcript.StatusOK]).
		Int("empty", counts[transcript.StatusEmpty]).
		Int("failed", counts[transcript.StatusFailed]).
		Bool("cached", res.Cached).
		Msg("transcript written")

	switch {
	case errors.Is(runErr, pipeline.ErrCancelled):
		fmt.Fprintln(os.Stderr, "cancelled: partial transcript written")
		return 130
	case runErr != nil:
		log.Error().Err(runErr).Msg("run did not complete, partial transcript written")
		return 1
	}
	return 0
}
