// Package pipeline drives a media file through normalization, segmentation
// and per-segment transcription into an ordered transcript.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/obiente/tranquitor/internal/media"
	"github.com/obiente/tranquitor/internal/segment"
	"github.com/obiente/tranquitor/internal/transcript"
)

var (
	ErrCancelled = errors.New("run cancelled")
	ErrTimeout   = errors.New("run timed out")
)

// Transcriber turns one segment into a transcript segment without failing.
type Transcriber interface {
	Transcribe(ctx context.Context, seg segment.Segment, language string) transcript.Segment
	Backend() string
}

// Cache stores finished transcripts by content.
type Cache interface {
	Key(path, language string, chunk time.Duration, backend, mode string) (string, error)
	Get(ctx context.Context, key string) (transcript.Transcript, bool, error)
	Put(ctx context.Context, key string, t transcript.Transcript) error
}

type Options struct {
	ChunkDuration time.Duration
	// FineDuration > 0 also produces a resegmented transcript.
	FineDuration time.Duration
	Language     string
	// Timeout bounds the whole run; zero means none.
	Timeout time.Duration
	// Workers > 1 transcribes segments concurrently.
	Workers      int
	SilenceAware bool
	// SilenceWindow is how far back a cut may move; defaults to a sixth of
	// the chunk.
	SilenceWindow time.Duration
}

func (o Options) withDefaults() Options {
	if o.ChunkDuration <= 0 {
		o.ChunkDuration = 30 * time.Second
	}
	if o.Language == "" {
		o.Language = "es"
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.SilenceAware && o.SilenceWindow <= 0 {
		o.SilenceWindow = o.ChunkDuration / 6
	}
	return o
}

func (o Options) segmenter() segment.Segmenter {
	if o.SilenceAware {
		return segment.SilenceAware{Chunk: o.ChunkDuration, Window: o.SilenceWindow}
	}
	return segment.Fixed{Chunk: o.ChunkDuration}
}

// mode names the segmentation strategy for cache keys.
func (o Options) mode() string {
	if o.SilenceAware {
		return fmt.Sprintf("silence%d", o.SilenceWindow.Milliseconds())
	}
	return "fixed"
}

type Result struct {
	RunID      string
	State      Stage
	Transcript transcript.Transcript
	// Fine is set when Options.FineDuration > 0.
	Fine   transcript.Transcript
	Source media.Source
	Meta   transcript.Metadata
	Cached bool
}

type Orchestrator struct {
	Normalizer  media.Normalizer
	Transcriber Transcriber
	Cache       Cache
	// ScratchDir is the parent of per-run scratch directories.
	ScratchDir string
	Log        zerolog.Logger
}

// Run transcribes src. ctl may be nil.
//
// On cancellation and timeout the partial transcript is returned together
// with ErrCancelled or ErrTimeout. A decode failure returns a *media.DecodeError.
// Scratch storage is always removed before Run returns.
func (o *Orchestrator) Run(ctx context.Context, src media.Source, opts Options, ctl *Control) (*Result, error) {
	opts = opts.withDefaults()
	if ctl == nil {
		ctl = NewControl(Observer{})
	}
	runID := uuid.NewString()
	ctl.reset(runID)
	started := time.Now()
	log := o.Log.With().Str("run", runID).Str("source", src.Name()).Logger()

	res := &Result{RunID: runID, State: StageIdle, Source: src, Transcript: transcript.Transcript{}}
	res.Meta = o.metadata(src, opts)

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	finish := func(stage Stage, err error) (*Result, error) {
		res.State = stage
		ctl.advance(started, func(p *Progress) { p.Stage = stage })
		ev := log.Info()
		if err != nil && stage != StageCancelled {
			ev = log.Error().Err(err)
		}
		ev.Str("state", stage.String()).Int("segments", len(res.Transcript)).Dur("elapsed", time.Since(started)).Msg("pipeline: run finished")
		return res, err
	}
	fail := func(err error) (*Result, error) {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return finish(StageFailed, fmt.Errorf("%w after %s: %w", ErrTimeout, opts.Timeout, err))
		case ctx.Err() != nil:
			return finish(StageCancelled, ErrCancelled)
		}
		return finish(StageFailed, err)
	}

	var cacheKey string
	if o.Cache != nil {
		if key, err := o.Cache.Key(src.Path, opts.Language, opts.ChunkDuration, o.Transcriber.Backend(), opts.mode()); err != nil {
			log.Warn().Err(err).Msg("pipeline: cache key")
		} else if t, ok, err := o.Cache.Get(runCtx, key); err != nil {
			log.Warn().Err(err).Msg("pipeline: cache lookup")
			cacheKey = key
		} else if ok {
			log.Info().Int("segments", len(t)).Msg("pipeline: cache hit")
			res.Transcript, res.Cached = t, true
			ctl.advance(started, func(p *Progress) { p.Current, p.Total = len(t), len(t) })
			o.assemble(res, opts, ctl, started)
			return finish(StageDone, nil)
		} else {
			cacheKey = key
		}
	}

	scratch, err := media.NewScratch(o.ScratchDir, runID)
	if err != nil {
		return finish(StageFailed, err)
	}
	defer func() {
		if err := scratch.Close(); err != nil {
			log.Warn().Err(err).Str("dir", scratch.Dir()).Msg("pipeline: scratch cleanup")
		}
	}()

	ctl.advance(started, func(p *Progress) { p.Stage = StageNormalizing })
	buf, err := o.Normalizer.Normalize(runCtx, src, scratch)
	if err != nil {
		return fail(err)
	}
	log.Debug().Dur("duration", buf.Duration()).Int("rate", buf.SampleRate).Msg("pipeline: normalized")
	if res.Meta.Duration == 0 {
		res.Meta.Duration = buf.Duration()
	}

	ctl.advance(started, func(p *Progress) { p.Stage = StageSegmenting })
	seg := opts.segmenter()
	total := len(seg.Plan(buf))

	ctl.advance(started, func(p *Progress) { p.Stage, p.Current, p.Total = StageTranscribing, 0, total })
	res.Transcript = o.transcribe(runCtx, segment.Segments(seg, buf), total, opts, ctl, started)

	// A cancel seen after the last segment started leaves nothing skipped.
	skipped := len(res.Transcript) < total
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return finish(StageFailed, fmt.Errorf("%w after %s", ErrTimeout, opts.Timeout))
	case skipped && (ctl.Cancelled() || ctx.Err() != nil):
		return finish(StageCancelled, ErrCancelled)
	}

	o.assemble(res, opts, ctl, started)
	if cacheKey != "" && res.Transcript.Counts()[transcript.StatusFailed] == 0 {
		if err := o.Cache.Put(runCtx, cacheKey, res.Transcript); err != nil {
			log.Warn().Err(err).Msg("pipeline: cache store")
		}
	}
	return finish(StageDone, nil)
}

func (o *Orchestrator) assemble(res *Result, opts Options, ctl *Control, started time.Time) {
	ctl.advance(started, func(p *Progress) { p.Stage = StageAssembling })
	res.Transcript.Sort()
	if opts.FineDuration > 0 {
		res.Fine = transcript.Resegment(res.Transcript, opts.FineDuration)
	}
}

// transcribe runs the segments through opts.Workers workers. A worker checks
// the cancel flag and the run deadline before starting each segment, so no
// new backend call begins once either trips. Results are ordered by index.
func (o *Orchestrator) transcribe(ctx context.Context, segs iter.Seq[segment.Segment], total int, opts Options, ctl *Control, started time.Time) transcript.Transcript {
	stopped := func() bool { return ctl.Cancelled() || ctx.Err() != nil }

	jobs := make(chan segment.Segment)
	go func() {
		defer close(jobs)
		for s := range segs {
			if stopped() {
				return
			}
			select {
			case jobs <- s:
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		mu  sync.Mutex
		out = make(transcript.Transcript, 0, total)
		wg  sync.WaitGroup
	)
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				if stopped() {
					continue
				}
				ts := o.Transcriber.Transcribe(ctx, s, opts.Language)
				o.Log.Debug().Int("segment", ts.Index).Str("status", ts.Status.String()).Msg("pipeline: segment done")

				mu.Lock()
				out = append(out, ts)
				done := len(out)
				mu.Unlock()
				ctl.segment(ts)
				ctl.advance(started, func(p *Progress) {
					if done > p.Current {
						p.Current = done
					}
				})
			}
		}()
	}
	wg.Wait()
	out.Sort()
	return out
}

func (o *Orchestrator) metadata(src media.Source, opts Options) transcript.Metadata {
	meta := transcript.Metadata{
		Source:    src.Name(),
		Language:  opts.Language,
		Generated: time.Now().Format(time.RFC3339),
	}
	if o.Transcriber != nil {
		meta.Backend = o.Transcriber.Backend()
	}
	tags, err := media.Probe(src.Path)
	if err != nil {
		o.Log.Debug().Err(err).Msg("pipeline: probe tags")
		return meta
	}
	meta.Title, meta.Artist, meta.Album = tags.Title, tags.Artist, tags.Album
	return meta
}
