package store

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"lukechampine.com/blake3"
)

// HashReader returns the hex blake3-256 digest of r.
func HashReader(r io.Reader) (string, error) {
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("calculating blake3 hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile hashes the content of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return HashReader(f)
}

// Key identifies a transcript by media content and the settings that shape
// it: language, chunk length, backend and segmentation mode. Two copies of
// one file under different names share a key.
func (c *Cache) Key(path, language string, chunk time.Duration, backend, mode string) (string, error) {
	sum, err := HashFile(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%d:%s:%s", sum, language, chunk.Milliseconds(), backend, mode), nil
}
