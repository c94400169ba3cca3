package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

type record struct {
	Inicio string `json:"inicio"`
	Fin    string `json:"fin"`
	Texto  string `json:"texto"`
	Estado string `json:"estado,omitempty"`
}

// WriteJSON writes the transcript as an indented array of
// {"inicio","fin","texto"} objects. Non-OK segments also carry "estado".
func WriteJSON(w io.Writer, t Transcript) error {
	recs := make([]record, 0, len(t))
	for _, s := range t {
		r := record{Inicio: FormatTimestamp(s.Start), Fin: FormatTimestamp(s.End), Texto: s.Text}
		if s.Status != StatusOK {
			r.Estado = s.Status.String()
		}
		recs = append(recs, r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(recs)
}

// Marshal returns the compact JSON form of t for embedding in messages.
func Marshal(t Transcript) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, t); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Compact(&out, buf.Bytes()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// ReadJSON parses the output of WriteJSON.
func ReadJSON(r io.Reader) (Transcript, error) {
	var recs []record
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode transcript json: %w", err)
	}
	out := make(Transcript, 0, len(recs))
	for i, rec := range recs {
		start, err := ParseTimestamp(rec.Inicio)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		end, err := ParseTimestamp(rec.Fin)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		st, err := ParseStatus(rec.Estado)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		out = append(out, Segment{Index: i, Start: start, End: end, Text: rec.Texto, Status: st})
	}
	return out, nil
}

// WriteText writes one "[HH:MM:SS - HH:MM:SS]\n<text>\n\n" block per segment.
func WriteText(w io.Writer, t Transcript) error {
	var b bytes.Buffer
	for _, s := range t {
		fmt.Fprintf(&b, "[%s - %s]\n%s\n\n", FormatTimestamp(s.Start), FormatTimestamp(s.End), s.Text)
	}
	_, err := w.Write(b.Bytes())
	return err
}

// Metadata decorates the markdown rendering.
type Metadata struct {
	Title     string
	Artist    string
	Album     string
	Source    string
	Backend   string
	Language  string
	Generated string
	Duration  time.Duration
}

// WriteMarkdown renders a human-readable report of the transcript.
func WriteMarkdown(w io.Writer, meta Metadata, t Transcript) error {
	var b strings.Builder
	if meta.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", meta.Title)
	} else {
		b.WriteString("# Transcripción\n\n")
	}
	if meta.Artist != "" {
		fmt.Fprintf(&b, "- Artist: %s\n", meta.Artist)
	}
	if meta.Album != "" {
		fmt.Fprintf(&b, "- Album: %s\n", meta.Album)
	}
	if meta.Source != "" {
		fmt.Fprintf(&b, "- Source: `%s`\n", meta.Source)
	}
	if meta.Backend != "" {
		fmt.Fprintf(&b, "- Backend: `%s`\n", meta.Backend)
	}
	if meta.Language != "" {
		fmt.Fprintf(&b, "- Language: `%s`\n", meta.Language)
	}
	if meta.Generated != "" {
		fmt.Fprintf(&b, "- Generated: %s\n", meta.Generated)
	}
	if meta.Duration > 0 {
		fmt.Fprintf(&b, "- Duration: %s\n", meta.Duration.Truncate(time.Second))
	}
	counts := t.Counts()
	if n := counts[StatusEmpty] + counts[StatusFailed]; n > 0 {
		fmt.Fprintf(&b, "- Gaps: %d not understood, %d failed\n", counts[StatusEmpty], counts[StatusFailed])
	}
	b.WriteString("\n---\n\n")

	for _, s := range t {
		marker := ""
		if s.Status != StatusOK {
			marker = "_(" + s.Status.String() + ")_ "
		}
		fmt.Fprintf(&b, "[%s-%s] %s%s\n\n", FormatTimestamp(s.Start), FormatTimestamp(s.End), marker, strings.TrimSpace(s.Text))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Format names an output encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
)

// ParseFormat accepts json, txt/text and md/markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "json":
		return FormatJSON, nil
	case "txt", "text":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Write encodes t in the requested format.
func Write(w io.Writer, f Format, meta Metadata, t Transcript) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, t)
	case FormatText:
		return WriteText(w, t)
	case FormatMarkdown:
		return WriteMarkdown(w, meta, t)
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}
