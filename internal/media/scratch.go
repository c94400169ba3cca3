package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Scratch is a private temporary directory for one run. Close removes it
// and everything inside; it is safe to call more than once.
type Scratch struct {
	dir  string
	once sync.Once
	err  error
}

// NewScratch creates base/tranquitor-<id>. An empty base uses os.TempDir and
// an empty id gets a fresh uuid.
func NewScratch(base, id string) (*Scratch, error) {
	if base == "" {
		base = os.TempDir()
	}
	if id == "" {
		id = uuid.NewString()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("scratch base: %w", err)
	}
	dir, err := os.MkdirTemp(base, "tranquitor-"+id+"-")
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}
	return &Scratch{dir: dir}, nil
}

// Dir is the scratch directory path.
func (s *Scratch) Dir() string { return s.dir }

// Path joins name onto the scratch directory.
func (s *Scratch) Path(name string) string { return filepath.Join(s.dir, name) }

func (s *Scratch) Close() error {
	s.once.Do(func() {
		s.err = os.RemoveAll(s.dir)
	})
	return s.err
}
