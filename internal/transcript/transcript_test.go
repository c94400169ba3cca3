package transcript

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"
)

func sec(n int) time.Duration { return time.Duration(n) * time.Second }

func TestFormatTimestamp(t *testing.T) {
	cases := map[time.Duration]string{
		0:                       "00:00:00",
		sec(75):                 "00:01:15",
		sec(3600 + 62):          "01:01:02",
		1500 * time.Millisecond: "00:00:01",
		-sec(3):                 "00:00:00",
	}
	for d, want := range cases {
		if got := FormatTimestamp(d); got != want {
			t.Errorf("FormatTimestamp(%s) = %q, want %q", d, got, want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	d, err := ParseTimestamp("01:02:03")
	if err != nil || d != sec(3723) {
		t.Fatalf("got %s, %v", d, err)
	}
	if d, _ := ParseTimestamp("02:05"); d != sec(125) {
		t.Fatalf("MM:SS got %s", d)
	}
	for _, bad := range []string{"", "10", "aa:bb:cc", "1:2:3:4", "00:-1:00"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	tr := Transcript{
		{Start: 0, End: sec(30), Text: "Hola <mundo>", Status: StatusOK},
		{Start: sec(30), End: sec(45), Text: NotUnderstoodText, Status: StatusEmpty},
	}
	var b bytes.Buffer
	if err := WriteJSON(&b, tr); err != nil {
		t.Fatal(err)
	}
	want := `[
  {
    "inicio": "00:00:00",
    "fin": "00:00:30",
    "texto": "Hola <mundo>"
  },
  {
    "inicio": "00:00:30",
    "fin": "00:00:45",
    "texto": "No se pudo entender el audio",
    "estado": "vacio"
  }
]
`
	if b.String() != want {
		t.Fatalf("json mismatch:\n%s", b.String())
	}

	back, err := ReadJSON(&b)
	if err != nil {
		t.Fatal(err)
	}
	if back[1].Status != StatusEmpty || back[0].End != sec(30) || back[0].Text != "Hola <mundo>" {
		t.Fatalf("read back %+v", back)
	}
}

func TestWriteText(t *testing.T) {
	tr := Transcript{{Start: sec(60), End: sec(75), Text: "fin"}}
	var b bytes.Buffer
	if err := WriteText(&b, tr); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), "[00:01:00 - 00:01:15]\nfin\n\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriteMarkdownMarksGaps(t *testing.T) {
	tr := Transcript{
		{Start: 0, End: sec(30), Text: "uno"},
		{Start: sec(30), End: sec(60), Text: RequestErrorText, Status: StatusFailed},
	}
	var b bytes.Buffer
	if err := WriteMarkdown(&b, Metadata{Title: "Clase"}, tr); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	for _, want := range []string{"# Clase", "1 failed", "[00:00:30-00:01:00] _(error)_"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Hola. Buenos días.", []string{"Hola.", "Buenos días."}},
		{"¿Qué tal? ¡Bien! Y tú...", []string{"¿Qué tal?", "¡Bien!", "Y tú..."}},
		{"versión 2.5 lista", []string{"versión 2.5 lista"}},
		{"  ", nil},
	}
	for _, c := range cases {
		if got := SplitSentences(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("SplitSentences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestResegmentSentences(t *testing.T) {
	tr := Transcript{{Start: 0, End: sec(20), Text: "Hola. Buenos días."}}
	got := Resegment(tr, sec(10))
	want := Transcript{
		{Index: 0, Start: 0, End: sec(10), Text: "Hola."},
		{Index: 1, Start: sec(10), End: sec(20), Text: "Buenos días."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v", got)
	}
}

func TestResegmentIdempotentAtChunkSize(t *testing.T) {
	tr := Transcript{
		{Index: 0, Start: 0, End: sec(30), Text: "uno dos tres"},
		{Index: 1, Start: sec(30), End: sec(60), Text: NotUnderstoodText, Status: StatusEmpty},
		{Index: 2, Start: sec(60), End: sec(75), Text: "cuatro."},
	}
	if got := Resegment(tr, sec(30)); !reflect.DeepEqual(got, tr) {
		t.Fatalf("not idempotent: %+v", got)
	}
}

func TestResegmentWordsAndNoSpeech(t *testing.T) {
	tr := Transcript{{Start: 0, End: sec(25), Text: "a b c d e f"}}
	got := Resegment(tr, sec(10))
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[2].Start != sec(20) || got[2].End != sec(25) {
		t.Fatalf("last window = %s-%s", got[2].Start, got[2].End)
	}
	var words []string
	for _, s := range got {
		if s.Text == "" || s.End <= s.Start {
			t.Fatalf("malformed fine segment %+v", s)
		}
		words = append(words, strings.Fields(s.Text)...)
	}
	if strings.Join(words, " ") != "a b c d e f" {
		t.Fatalf("text lost: %q", words)
	}

	sparse := Resegment(Transcript{{Start: 0, End: sec(30), Text: "solo"}}, sec(10))
	empties := 0
	for _, s := range sparse {
		if s.Text == NoSpeechText {
			if s.Status != StatusEmpty {
				t.Fatalf("no-speech window has status %s", s.Status)
			}
			empties++
		}
	}
	if empties != 2 {
		t.Fatalf("expected 2 no-speech windows, got %+v", sparse)
	}
}

func TestResegmentKeepsFailureStatus(t *testing.T) {
	tr := Transcript{{Start: 0, End: sec(20), Text: RequestErrorText, Status: StatusFailed}}
	for _, s := range Resegment(tr, sec(10)) {
		if s.Status != StatusFailed || s.Text != RequestErrorText {
			t.Fatalf("got %+v", s)
		}
	}
}
