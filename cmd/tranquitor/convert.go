package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/obiente/tranquitor/internal/config"
	"github.com/obiente/tranquitor/internal/media"
)

func runConvert(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	var in, out, from, to string
	fs.StringVar(&in, "in", "", "Input directory")
	fs.StringVar(&out, "out", "", "Output directory")
	fs.StringVar(&from, "from", "flac", "Source extension")
	fs.StringVar(&to, "to", "mp3", "Target extension")
	fs.Parse(args)

	if in == "" || out == "" {
		log.Error().Msg("convert needs -in and -out")
		fs.Usage()
		return 2
	}
	ctx, cancel := interrupts(nil)
	defer cancel()

	c := &media.Converter{Path: cfg.FFmpegPath, Log: log.Logger}
	report, err := c.ConvertDir(ctx, in, out, from, to)
	if err != nil {
		log.Error().Err(err).Msg("convert")
		return 1
	}
	for name, ferr := range report.Failed {
		log.Warn().Err(ferr).Str("file", name).Msg("conversion failed")
	}
	log.Info().Int("converted", len(report.Converted)).Int("failed", len(report.Failed)).Msg("conversion finished")
	if len(report.Failed) > 0 {
		return 1
	}
	return 0
}
