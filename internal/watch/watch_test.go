package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTrackerWaitsForStableSize(t *testing.T) {
	sizes := map[string]int64{"a.mp3": 10}
	size := func(p string) (int64, error) {
		n, ok := sizes[p]
		if !ok {
			return 0, errors.New("gone")
		}
		return n, nil
	}
	tr := newTracker(time.Second)
	t0 := time.Unix(0, 0)
	tr.touch("a.mp3", t0)

	if got := tr.ready(t0.Add(2*time.Second), size); len(got) != 0 {
		t.Fatalf("first poll only records the size, got %v", got)
	}
	sizes["a.mp3"] = 20
	if got := tr.ready(t0.Add(4*time.Second), size); len(got) != 0 {
		t.Fatalf("size changed, got %v", got)
	}
	if got := tr.ready(t0.Add(4500*time.Millisecond), size); len(got) != 0 {
		t.Fatalf("not settled yet, got %v", got)
	}
	got := tr.ready(t0.Add(5*time.Second), size)
	if len(got) != 1 || got[0] != "a.mp3" {
		t.Fatalf("got %v", got)
	}
	if got := tr.ready(t0.Add(10*time.Second), size); len(got) != 0 {
		t.Fatalf("file handed out twice: %v", got)
	}
}

func TestTrackerDropsVanishedFiles(t *testing.T) {
	tr := newTracker(time.Millisecond)
	tr.touch("x.wav", time.Now())
	tr.ready(time.Now(), func(string) (int64, error) { return 0, os.ErrNotExist })
	if len(tr.files) != 0 {
		t.Fatal("vanished file still tracked")
	}
}

func TestWatcherHandlesNewMedia(t *testing.T) {
	dir := t.TempDir()
	handled := make(chan string, 4)
	w := &Watcher{
		Dir:    dir,
		Settle: 50 * time.Millisecond,
		Poll:   10 * time.Millisecond,
		Handle: func(_ context.Context, path string) error {
			handled <- path
			return nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "clase.mp3")
	if err := os.WriteFile(target, []byte("not really audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-handled:
		if got != target {
			t.Fatalf("handled %s", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("file never handled")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
