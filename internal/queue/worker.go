package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/obiente/tranquitor/internal/media"
	"github.com/obiente/tranquitor/internal/pipeline"
	"github.com/obiente/tranquitor/internal/transcript"
)

// Job asks for one file to be transcribed. Zero fields fall back to the
// worker defaults.
type Job struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	Language     string `json:"language,omitempty"`
	ChunkSeconds int    `json:"chunk_seconds,omitempty"`
	FineSeconds  int    `json:"fine_seconds,omitempty"`
}

type JobResult struct {
	ID         string          `json:"id"`
	RunID      string          `json:"run_id,omitempty"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Transcript json.RawMessage `json:"transcript,omitempty"`
	Fine       json.RawMessage `json:"fine,omitempty"`
	// Text is the recognized speech without timestamps or placeholders.
	Text string `json:"text,omitempty"`
}

// Runner is satisfied by *pipeline.Orchestrator.
type Runner interface {
	Run(ctx context.Context, src media.Source, opts pipeline.Options, ctl *pipeline.Control) (*pipeline.Result, error)
}

type Publisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

type Worker struct {
	Runner      Runner
	Publisher   Publisher
	ResultQueue string
	Defaults    pipeline.Options
	Log         zerolog.Logger
}

// Handle runs the job in body and reports its outcome. Undecodable bodies
// produce a failed result rather than an error.
func (w *Worker) Handle(ctx context.Context, body []byte) JobResult {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return JobResult{Status: pipeline.StageFailed.String(), Error: fmt.Sprintf("decode job: %v", err)}
	}
	out := JobResult{ID: job.ID}
	log := w.Log.With().Str("job", job.ID).Str("path", job.Path).Logger()

	src, err := media.NewSource(job.Path)
	if err != nil {
		out.Status, out.Error = pipeline.StageFailed.String(), err.Error()
		return out
	}
	opts := w.Defaults
	if job.Language != "" {
		opts.Language = job.Language
	}
	if job.ChunkSeconds > 0 {
		opts.ChunkDuration = time.Duration(job.ChunkSeconds) * time.Second
	}
	if job.FineSeconds > 0 {
		opts.FineDuration = time.Duration(job.FineSeconds) * time.Second
	}

	log.Info().Msg("worker: job started")
	res, err := w.Runner.Run(ctx, src, opts, nil)
	if res != nil {
		out.RunID = res.RunID
		out.Status = res.State.String()
		out.Transcript = encode(res.Transcript)
		out.Text = res.Transcript.Text()
		if res.Fine != nil {
			out.Fine = encode(res.Fine)
		}
	}
	if err != nil {
		out.Error = err.Error()
		if out.Status == "" {
			out.Status = pipeline.StageFailed.String()
		}
	}
	log.Info().Str("status", out.Status).Msg("worker: job finished")
	return out
}

// Serve handles deliveries until the channel closes or ctx ends. Every
// delivery is acked once its result is published; a publish failure requeues it.
func (w *Worker) Serve(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.Log.Debug().Int("bytes", len(d.Body)).Msg("worker: job received")
			if err := w.process(ctx, d.Body); err != nil {
				w.Log.Error().Err(err).Msg("worker: publish result")
				_ = d.Nack(false, true)
				continue
			}
			if err := d.Ack(false); err != nil {
				w.Log.Error().Err(err).Msg("worker: ack")
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, body []byte) error {
	res := w.Handle(ctx, body)
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return w.Publisher.Publish(ctx, w.ResultQueue, b)
}

func encode(t transcript.Transcript) json.RawMessage {
	b, err := transcript.Marshal(t)
	if err != nil {
		return nil
	}
	return b
}
