package stt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/obiente/tranquitor/internal/segment"
	"github.com/obiente/tranquitor/internal/transcript"
)

func testSegment() segment.Segment {
	return segment.Segment{
		Index:      3,
		Start:      60 * time.Second,
		End:        75 * time.Second,
		Samples:    make([]float32, 1600),
		SampleRate: 16000,
	}
}

func TestClientOK(t *testing.T) {
	rec := RecognizerFunc(func(ctx context.Context, seg segment.Segment, lang string) (string, error) {
		if lang != "es" {
			t.Errorf("language = %q", lang)
		}
		return "  hola mundo ", nil
	})
	got := NewClient(rec).Transcribe(context.Background(), testSegment(), "es")
	if got.Status != transcript.StatusOK || got.Text != "hola mundo" {
		t.Fatalf("got %+v", got)
	}
	if got.Index != 3 || got.Start != 60*time.Second || got.End != 75*time.Second {
		t.Fatalf("bounds not carried: %+v", got)
	}
}

func TestClientWarnsOnOversizedSegment(t *testing.T) {
	var calls int32
	rec := RecognizerFunc(func(context.Context, segment.Segment, string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "hola", nil
	})
	var logs bytes.Buffer
	got := NewClient(rec, WithMaxBytes(100), WithLogger(zerolog.New(&logs))).Transcribe(context.Background(), testSegment(), "es")
	if got.Status != transcript.StatusOK || calls != 1 {
		t.Fatalf("oversized segment not sent: %+v calls=%d", got, calls)
	}
	out := logs.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "exceeds backend size limit") || !strings.Contains(out, `"bytes":3244`) {
		t.Fatalf("log = %s", out)
	}

	logs.Reset()
	NewClient(rec, WithLogger(zerolog.New(&logs))).Transcribe(context.Background(), testSegment(), "es")
	if strings.Contains(logs.String(), "exceeds backend size limit") {
		t.Fatalf("warned under the default limit: %s", logs.String())
	}
}

func TestClientNotUnderstood(t *testing.T) {
	var calls int32
	rec := RecognizerFunc(func(context.Context, segment.Segment, string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", ErrNotUnderstood
	})
	got := NewClient(rec, WithBackoff(0)).Transcribe(context.Background(), testSegment(), "es")
	if got.Status != transcript.StatusEmpty || got.Text != transcript.NotUnderstoodText {
		t.Fatalf("got %+v", got)
	}
	if calls != 1 {
		t.Fatalf("not understood should not be retried, calls = %d", calls)
	}
}

func TestClientBlankTextIsEmpty(t *testing.T) {
	rec := RecognizerFunc(func(context.Context, segment.Segment, string) (string, error) { return "   ", nil })
	got := NewClient(rec).Transcribe(context.Background(), testSegment(), "es")
	if got.Status != transcript.StatusEmpty {
		t.Fatalf("status = %v", got.Status)
	}
}

func TestClientRetriesThenFails(t *testing.T) {
	var calls int32
	rec := RecognizerFunc(func(context.Context, segment.Segment, string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", errors.New("connection reset")
	})
	got := NewClient(rec, WithRetries(2), WithBackoff(time.Millisecond)).Transcribe(context.Background(), testSegment(), "es")
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if got.Status != transcript.StatusFailed {
		t.Fatalf("status = %v", got.Status)
	}
	if !strings.HasPrefix(got.Text, transcript.RequestErrorText) || !strings.Contains(got.Text, "connection reset") {
		t.Fatalf("text = %q", got.Text)
	}
}

func TestClientRetryRecovers(t *testing.T) {
	var calls int32
	rec := RecognizerFunc(func(context.Context, segment.Segment, string) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", errors.New("503")
		}
		return "bien", nil
	})
	got := NewClient(rec, WithBackoff(time.Millisecond)).Transcribe(context.Background(), testSegment(), "es")
	if got.Status != transcript.StatusOK || got.Text != "bien" {
		t.Fatalf("got %+v", got)
	}
}

func TestClientCancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	rec := RecognizerFunc(func(context.Context, segment.Segment, string) (string, error) {
		atomic.AddInt32(&calls, 1)
		cancel()
		return "", errors.New("boom")
	})
	got := NewClient(rec, WithRetries(5), WithBackoff(time.Hour)).Transcribe(ctx, testSegment(), "es")
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
	if got.Status != transcript.StatusFailed {
		t.Fatalf("status = %v", got.Status)
	}
}

func TestGoogleRecognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("lang"); got != "es-ES" {
			t.Errorf("lang = %q", got)
		}
		if got := r.URL.Query().Get("key"); got != "k" {
			t.Errorf("key = %q", got)
		}
		if ct := r.Header.Get("Content-Type"); ct != "audio/l16; rate=16000" {
			t.Errorf("content-type = %q", ct)
		}
		b, _ := io.ReadAll(r.Body)
		if len(b) != 3200 {
			t.Errorf("body = %d bytes", len(b))
		}
		io.WriteString(w, "{\"result\":[]}\n")
		io.WriteString(w, `{"result":[{"alternative":[{"transcript":"hola"},{"transcript":"hola a todos","confidence":0.9}],"final":true}],"result_index":0}`+"\n")
	}))
	defer srv.Close()

	g := NewGoogle("k", time.Second)
	g.endpoint = srv.URL
	text, err := g.Recognize(context.Background(), testSegment(), "es")
	if err != nil {
		t.Fatal(err)
	}
	if text != "hola a todos" {
		t.Fatalf("text = %q", text)
	}
}

func TestGoogleNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "{\"result\":[]}\n")
	}))
	defer srv.Close()
	g := NewGoogle("k", time.Second)
	g.endpoint = srv.URL
	if _, err := g.Recognize(context.Background(), testSegment(), "es"); !errors.Is(err, ErrNotUnderstood) {
		t.Fatalf("err = %v", err)
	}
}

func TestGoogleHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusForbidden)
	}))
	defer srv.Close()
	g := NewGoogle("k", time.Second)
	g.endpoint = srv.URL
	_, err := g.Recognize(context.Background(), testSegment(), "es")
	if err == nil || !strings.Contains(err.Error(), "403") || errors.Is(err, ErrNotUnderstood) {
		t.Fatalf("err = %v", err)
	}
}

func TestGoogleLocale(t *testing.T) {
	cases := map[string]string{"": "es-ES", "es": "es-ES", "fr": "fr-FR", "en": "en-US", "es-MX": "es-MX"}
	for in, want := range cases {
		if got := GoogleLocale(in); got != want {
			t.Errorf("GoogleLocale(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenAIRecognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal(err)
		}
		if r.FormValue("model") != "whisper-1" || r.FormValue("language") != "es" {
			t.Errorf("form = %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		if hdr.Filename != "chunk_0003.wav" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		io.WriteString(w, `{"text":"buenos dias"}`)
	}))
	defer srv.Close()
	o := NewOpenAI("sk", "", time.Second)
	o.endpoint = srv.URL
	text, err := o.Recognize(context.Background(), testSegment(), "es")
	if err != nil || text != "buenos dias" {
		t.Fatalf("text = %q err = %v", text, err)
	}
}

func TestCloudflareRecognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/acct/ai/run/@cf/openai/whisper" {
			t.Errorf("path = %q", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		if len(b) < 44 || string(b[:4]) != "RIFF" {
			t.Errorf("body is not a wav file")
		}
		io.WriteString(w, `{"success":true,"errors":[],"result":{"text":"adios"}}`)
	}))
	defer srv.Close()
	c := NewCloudflare("acct", "tok", "", time.Second)
	c.base = srv.URL
	text, err := c.Recognize(context.Background(), testSegment(), "es")
	if err != nil || text != "adios" {
		t.Fatalf("text = %q err = %v", text, err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	for _, name := range []string{"google", "openai", "cloudflare"} {
		if _, err := New(name, Settings{}); !errors.Is(err, ErrUnavailable) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
	if _, err := New("nope", Settings{}); err == nil {
		t.Error("unknown backend accepted")
	}
	if _, err := New("whisper", Settings{WhisperModelPath: "/nonexistent/model.bin"}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("whisper without a model: err = %v", err)
	}
}
