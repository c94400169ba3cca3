// Package watch transcribes media files as they land in a directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/obiente/tranquitor/internal/media"
)

// Handler processes one settled file.
type Handler func(ctx context.Context, path string) error

type Watcher struct {
	Dir string
	// Settle is how long a file's size must stay unchanged before it is
	// handed to Handle.
	Settle time.Duration
	Poll   time.Duration
	Handle Handler
	Log    zerolog.Logger
}

// Run blocks until ctx ends. Files are handled one at a time.
func (w *Watcher) Run(ctx context.Context) error {
	settle, poll := w.Settle, w.Poll
	if settle <= 0 {
		settle = 2 * time.Second
	}
	if poll <= 0 {
		poll = settle / 4
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}
	w.Log.Info().Str("dir", w.Dir).Dur("settle", settle).Msg("watch: started")

	pending := newTracker(settle)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					pending.forget(ev.Name)
				}
				continue
			}
			if !media.IsMedia(ev.Name) {
				continue
			}
			w.Log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("watch: event")
			pending.touch(ev.Name, time.Now())
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Log.Warn().Err(err).Msg("watch: watcher error")
		case now := <-ticker.C:
			for _, path := range pending.ready(now, fileSize) {
				if ctx.Err() != nil {
					return nil
				}
				w.Log.Info().Str("file", path).Msg("watch: file settled")
				if err := w.Handle(ctx, path); err != nil {
					w.Log.Error().Err(err).Str("file", path).Msg("watch: handle failed")
				}
			}
		}
	}
}

func fileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

type entry struct {
	seen time.Time
	size int64
}

// tracker debounces files until their size stops changing.
type tracker struct {
	settle time.Duration
	files  map[string]entry
}

func newTracker(settle time.Duration) *tracker {
	return &tracker{settle: settle, files: map[string]entry{}}
}

func (t *tracker) touch(path string, now time.Time) {
	e, ok := t.files[path]
	if !ok {
		e.size = -1
	}
	e.seen = now
	t.files[path] = e
}

func (t *tracker) forget(path string) { delete(t.files, path) }

// ready returns, in name order, the files whose size matched the previous
// poll and that saw no event for settle. They are removed from the tracker.
func (t *tracker) ready(now time.Time, size func(string) (int64, error)) []string {
	var out []string
	for path, e := range t.files {
		n, err := size(path)
		if err != nil {
			delete(t.files, path)
			continue
		}
		if n != e.size {
			e.size = n
			e.seen = now
			t.files[path] = e
			continue
		}
		if n > 0 && now.Sub(e.seen) >= t.settle {
			out = append(out, path)
			delete(t.files, path)
		}
	}
	sort.Strings(out)
	return out
}
