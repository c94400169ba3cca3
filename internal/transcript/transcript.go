// Package transcript holds the timestamped result of a transcription run and
// the codecs used to persist it.
package transcript

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Texts stored in place of recognized speech.
const (
	NotUnderstoodText = "No se pudo entender el audio"
	RequestErrorText  = "Error al solicitar resultados del servicio de reconocimiento de voz"
	NoSpeechText      = "[sin voz]"
)

// Status tells a consumer whether a segment carries real speech.
type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "vacio"
	case StatusFailed:
		return "error"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseStatus is the inverse of Status.String. The empty string is StatusOK.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ok":
		return StatusOK, nil
	case "vacio", "empty":
		return StatusEmpty, nil
	case "error", "failed":
		return StatusFailed, nil
	default:
		return StatusOK, fmt.Errorf("unknown segment status %q", s)
	}
}

// Segment is the recognized text for one time range of the source.
type Segment struct {
	Index  int
	Start  time.Duration
	End    time.Duration
	Text   string
	Status Status
}

// Duration returns the length of the segment's range.
func (s Segment) Duration() time.Duration { return s.End - s.Start }

func (s Segment) String() string {
	return fmt.Sprintf("[%s - %s] %s", FormatTimestamp(s.Start), FormatTimestamp(s.End), s.Text)
}

// Transcript is an ordered list of segments.
type Transcript []Segment

// Sort restores start-offset order (index breaks ties).
func (t Transcript) Sort() {
	sort.SliceStable(t, func(i, j int) bool {
		if t[i].Start == t[j].Start {
			return t[i].Index < t[j].Index
		}
		return t[i].Start < t[j].Start
	})
}

// Counts returns how many segments carry each status.
func (t Transcript) Counts() map[Status]int {
	out := map[Status]int{}
	for _, s := range t {
		out[s.Status]++
	}
	return out
}

// Text joins the text of all OK segments.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t))
	for _, s := range t {
		if s.Status == StatusOK && s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}

// FormatTimestamp renders an offset as HH:MM:SS, truncating fractions.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// ParseTimestamp parses HH:MM:SS (or MM:SS) offsets.
func ParseTimestamp(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	var total int64
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}
