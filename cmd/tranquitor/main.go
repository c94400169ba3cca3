// Command tranquitor transcribes audio and video files in fixed-length
// chunks and writes timestamped transcripts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/obiente/tranquitor/internal/config"
)

const usage = `usage: tranquitor <command> [flags]

commands:
  transcribe   transcribe one media file
  resegment    split a JSON transcript into finer windows
  convert      batch-convert a directory with ffmpeg
  watch        transcribe media files as they appear in a directory
  worker       consume transcription jobs from RabbitMQ

run "tranquitor <command> -h" for the flags of a command.
`

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(level); err == nil && level != "" {
		lvl = l
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	log.Logger = log.Level(lvl)
}

// interrupts calls soft on the first SIGINT/SIGTERM and cancels the returned
// context on the second.
func interrupts(soft func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sig)
		select {
		case <-sig:
		case <-ctx.Done():
			return
		}
		if soft != nil {
			log.Warn().Msg("interrupt: finishing the current segment, press Ctrl-C again to abort")
			soft()
		} else {
			cancel()
			return
		}
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	args := os.Args[2:]
	var code int
	switch os.Args[1] {
	case "transcribe":
		code = runTranscribe(cfg, args)
	case "resegment":
		code = runResegment(cfg, args)
	case "convert":
		code = runConvert(cfg, args)
	case "watch":
		code = runWatch(cfg, args)
	case "worker":
		code = runWorker(cfg, args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		code = 2
	}
	os.Exit(code)
}
