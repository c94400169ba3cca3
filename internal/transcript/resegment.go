package transcript

import (
	"strings"
	"time"
	"unicode"
)

// Resegment splits every segment longer than d into ceil(duration/d) windows
// of length d (the last one may be shorter) and spreads the segment's text
// over them.
//
// Text is divided by sentences (terminated by '.', '!' or '?') when there are
// at least as many sentences as windows, otherwise by words. Units are handed
// out in order, proportionally to each window's share of the segment's
// duration. This is a heuristic: abbreviations such as "Sr." end a sentence,
// and no attempt is made to align words with the audio. A window that ends up
// with no text gets NoSpeechText and StatusEmpty.
//
// Segments that are not StatusOK keep their text and status in every window.
// Segments no longer than d are copied unchanged, so resegmenting with the
// original chunk duration is the identity.
func Resegment(t Transcript, d time.Duration) Transcript {
	if d <= 0 {
		return append(Transcript(nil), t...)
	}
	out := make(Transcript, 0, len(t))
	for _, s := range t {
		dur := s.Duration()
		if dur <= d {
			s.Index = len(out)
			out = append(out, s)
			continue
		}
		n := int((dur + d - 1) / d)
		windows := make([][2]time.Duration, n)
		for i := range windows {
			start := s.Start + time.Duration(i)*d
			windows[i] = [2]time.Duration{start, min(start+d, s.End)}
		}

		var texts []string
		if s.Status == StatusOK {
			texts = apportion(s.Text, windows, dur)
		}
		for i, w := range windows {
			fine := Segment{Index: len(out), Start: w[0], End: w[1], Status: s.Status, Text: s.Text}
			if s.Status == StatusOK {
				fine.Text = texts[i]
				if fine.Text == "" {
					fine.Text = NoSpeechText
					fine.Status = StatusEmpty
				}
			}
			out = append(out, fine)
		}
	}
	return out
}

func apportion(text string, windows [][2]time.Duration, total time.Duration) []string {
	units := SplitSentences(text)
	if len(units) < len(windows) {
		units = strings.Fields(text)
	}
	out := make([]string, len(windows))
	u := int64(len(units))
	prev := 0
	var cum time.Duration
	for i, w := range windows {
		cum += w[1] - w[0]
		next := int((u*int64(cum) + int64(total)/2) / int64(total))
		if i == len(windows)-1 {
			next = len(units)
		}
		if next < prev {
			next = prev
		}
		out[i] = strings.Join(units[prev:next], " ")
		prev = next
	}
	return out
}

// SplitSentences breaks text after runs of '.', '!' or '?' that are followed
// by whitespace or the end of the text. Terminators stay with their sentence.
func SplitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		j := i
		for j+1 < len(runes) && isTerminator(runes[j+1]) {
			j++
		}
		if j+1 == len(runes) || unicode.IsSpace(runes[j+1]) {
			if s := strings.TrimSpace(string(runes[start : j+1])); s != "" {
				out = append(out, s)
			}
			start = j + 1
		}
		i = j
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
