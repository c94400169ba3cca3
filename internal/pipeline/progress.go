package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/obiente/tranquitor/internal/transcript"
)

// Stage is a state of the run state machine.
type Stage int

const (
	StageIdle Stage = iota
	StageNormalizing
	StageSegmenting
	StageTranscribing
	StageAssembling
	StageDone
	StageFailed
	StageCancelled
)

var stageNames = [...]string{"idle", "normalizing", "segmenting", "transcribing", "assembling", "done", "failed", "cancelled"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Terminal reports whether no further transitions follow s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed || s == StageCancelled
}

func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Progress is a snapshot of one run.
type Progress struct {
	RunID     string        `json:"run_id"`
	Stage     Stage         `json:"stage"`
	Current   int           `json:"current"`
	Total     int           `json:"total"`
	Elapsed   time.Duration `json:"elapsed"`
	Remaining time.Duration `json:"remaining"`
	Label     string        `json:"label"`
}

// Observer receives run events. Either func may be nil. Calls are serialized.
type Observer struct {
	Progress func(Progress)
	Segment  func(transcript.Segment)
}

// Control is the handle shared between a run and whoever drives it: it
// carries the cancellation flag and fans progress out to the observer.
type Control struct {
	cancel atomic.Bool

	mu   sync.Mutex
	obs  Observer
	last Progress
}

func NewControl(obs Observer) *Control {
	return &Control{obs: obs}
}

// Cancel asks the run to stop before its next segment. In-flight backend
// calls are allowed to finish.
func (c *Control) Cancel() { c.cancel.Store(true) }

func (c *Control) Cancelled() bool { return c.cancel.Load() }

// Snapshot returns the latest progress.
func (c *Control) Snapshot() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Control) reset(runID string) {
	c.cancel.Store(false)
	c.mu.Lock()
	c.last = Progress{RunID: runID, Stage: StageIdle, Label: labelFor(StageIdle, 0, 0)}
	c.mu.Unlock()
}

// advance applies fn to the current progress, stamps timing and notifies.
func (c *Control) advance(started time.Time, fn func(p *Progress)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.last
	fn(&p)
	p.Elapsed = time.Since(started)
	p.Remaining = remaining(p.Elapsed, p.Current, p.Total)
	if p.Stage.Terminal() {
		p.Remaining = 0
	}
	p.Label = labelFor(p.Stage, p.Current, p.Total)
	c.last = p
	if c.obs.Progress != nil {
		c.obs.Progress(p)
	}
}

func (c *Control) segment(s transcript.Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.obs.Segment != nil {
		c.obs.Segment(s)
	}
}

func remaining(elapsed time.Duration, current, total int) time.Duration {
	if current <= 0 || total <= current {
		return 0
	}
	return elapsed / time.Duration(current) * time.Duration(total-current)
}

func labelFor(s Stage, current, total int) string {
	switch s {
	case StageIdle:
		return "waiting"
	case StageNormalizing:
		return "normalizing audio"
	case StageSegmenting:
		return "splitting audio into segments"
	case StageTranscribing:
		return fmt.Sprintf("transcribing segment %d of %d", min(current+1, total), total)
	case StageAssembling:
		return "assembling transcript"
	case StageDone:
		return fmt.Sprintf("done: %d segments", total)
	case StageFailed:
		return "failed"
	case StageCancelled:
		return fmt.Sprintf("cancelled after %d of %d segments", current, total)
	}
	return s.String()
}
