package stt

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/obiente/tranquitor/internal/segment"
	"github.com/obiente/tranquitor/internal/transcript"
)

const (
	// DefaultMaxBytes mirrors the upload limit of the hosted whisper APIs.
	DefaultMaxBytes = 24 << 20
	wavHeaderBytes  = 44
)

// Client turns Recognizer results and failures into transcript segments.
// It never returns an error: a failed segment is recorded and the run goes on.
type Client struct {
	rec      Recognizer
	retries  int
	backoff  time.Duration
	maxBytes int
	log      zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetries sets how many extra attempts a failing call gets.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the base delay between attempts; attempt k waits k*d.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithMaxBytes sets the advisory size above which a warning is logged.
func WithMaxBytes(n int) Option {
	return func(c *Client) { c.maxBytes = n }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func NewClient(rec Recognizer, opts ...Option) *Client {
	c := &Client{
		rec:      rec,
		retries:  2,
		backoff:  2 * time.Second,
		maxBytes: DefaultMaxBytes,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend names the wrapped recognizer.
func (c *Client) Backend() string { return c.rec.Name() }

// Transcribe recognizes one segment.
func (c *Client) Transcribe(ctx context.Context, seg segment.Segment, language string) transcript.Segment {
	out := transcript.Segment{Index: seg.Index, Start: seg.Start, End: seg.End}
	log := c.log.With().Int("segment", seg.Index).Str("backend", c.rec.Name()).Logger()

	if size := wavHeaderBytes + 2*len(seg.Samples); c.maxBytes > 0 && size > c.maxBytes {
		log.Warn().Int("bytes", size).Int("limit", c.maxBytes).Msg("stt: segment exceeds backend size limit, the call will likely fail")
	}

	var err error
	var text string
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			log.Warn().Err(err).Int("attempt", attempt+1).Msg("stt: retrying segment")
			if !sleep(ctx, time.Duration(attempt)*c.backoff) {
				break
			}
		}
		text, err = c.rec.Recognize(ctx, seg, language)
		if err == nil || errors.Is(err, ErrNotUnderstood) || errors.Is(err, ErrUnavailable) || ctx.Err() != nil {
			break
		}
	}

	switch {
	case err == nil && strings.TrimSpace(text) != "":
		out.Text = strings.TrimSpace(text)
		out.Status = transcript.StatusOK
	case err == nil || errors.Is(err, ErrNotUnderstood):
		log.Debug().Msg("stt: audio not understood")
		out.Text = transcript.NotUnderstoodText
		out.Status = transcript.StatusEmpty
	default:
		log.Error().Err(err).Msg("stt: segment failed")
		out.Text = transcript.RequestErrorText + ": " + err.Error()
		out.Status = transcript.StatusFailed
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
