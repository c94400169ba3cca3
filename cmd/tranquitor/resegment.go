package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/obiente/tranquitor/internal/config"
	"github.com/obiente/tranquitor/internal/transcript"
)

func runResegment(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("resegment", flag.ExitOnError)
	var in, out, format string
	fine := cfg.FineSeconds
	fs.StringVar(&in, "i", "", "Input JSON transcript")
	fs.StringVar(&out, "o", "", "Output path (default <input>_fino.<format>)")
	fs.StringVar(&format, "format", "", "Output format: json|txt|md")
	fs.IntVar(&fine, "fine", fine, "Window length in seconds")
	fs.Parse(args)

	if in == "" || fine <= 0 {
		log.Error().Msg("resegment needs -i and a positive -fine")
		fs.Usage()
		return 2
	}
	f, err := formatFor(format, out)
	if err != nil {
		log.Error().Err(err).Msg("resegment")
		return 2
	}

	file, err := os.Open(in)
	if err != nil {
		log.Error().Err(err).Msg("resegment")
		return 1
	}
	t, err := transcript.ReadJSON(file)
	file.Close()
	if err != nil {
		log.Error().Err(err).Str("path", in).Msg("read transcript")
		return 1
	}

	fineT := transcript.Resegment(t, time.Duration(fine)*time.Second)
	path := outputPath(out, in, f, "_fino")
	if err := writeTranscript(path, f, transcript.Metadata{Source: in}, fineT); err != nil {
		log.Error().Err(err).Msg("write transcript")
		return 1
	}
	log.Info().Str("path", path).Int("coarse", len(t)).Int("fine", len(fineT)).Msg("transcript resegmented")
	return 0
}
