package media

import (
	"os"

	"github.com/dhowden/tag"
)

// Tags is the subset of embedded metadata shown alongside a transcript.
type Tags struct {
	Title  string
	Artist string
	Album  string
	Format string
}

// Probe reads embedded tags (ID3, MP4, FLAC, OGG). Files without tags yield
// zero Tags and a nil error only when the file could be opened.
func Probe(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, err
	}
	defer f.Close()
	m, err := tag.ReadFrom(f)
	if err != nil {
		if err == tag.ErrNoTagsFound {
			return Tags{}, nil
		}
		return Tags{}, err
	}
	return Tags{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Format: string(m.Format()),
	}, nil
}
