package stt

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/obiente/tranquitor/internal/audio"
	"github.com/obiente/tranquitor/internal/segment"
)

const googleEndpoint = "https://www.google.com/speech-api/v2/recognize"

// Google calls the Chromium web speech endpoint with raw 16-bit PCM.
type Google struct {
	key      string
	endpoint string
	http     *http.Client
}

func NewGoogle(key string, timeout time.Duration) *Google {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Google{key: key, endpoint: googleEndpoint, http: &http.Client{Timeout: timeout}}
}

func (g *Google) Name() string { return "google" }

type googleResponse struct {
	Result []struct {
		Alternative []struct {
			Transcript string   `json:"transcript"`
			Confidence *float64 `json:"confidence"`
		} `json:"alternative"`
		Final bool `json:"final"`
	} `json:"result"`
}

func (g *Google) Recognize(ctx context.Context, seg segment.Segment, language string) (string, error) {
	if g.key == "" {
		return "", fmt.Errorf("google: %w: missing api key", ErrUnavailable)
	}
	q := url.Values{}
	q.Set("client", "chromium")
	q.Set("output", "json")
	q.Set("lang", GoogleLocale(language))
	q.Set("key", g.key)

	body := audio.EncodePCM16LE(seg.Samples)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "audio/l16; rate="+strconv.Itoa(seg.SampleRate))

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", httpStatusError("google", resp)
	}
	return parseGoogle(bufio.NewScanner(resp.Body))
}

// parseGoogle reads the newline separated JSON objects the endpoint streams
// and returns the most confident alternative of the first non-empty result.
func parseGoogle(sc *bufio.Scanner) (string, error) {
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var gr googleResponse
		if err := json.Unmarshal([]byte(line), &gr); err != nil {
			return "", fmt.Errorf("google: decode response: %w", err)
		}
		for _, r := range gr.Result {
			best, bestConf := "", -1.0
			for _, alt := range r.Alternative {
				conf := 0.0
				if alt.Confidence != nil {
					conf = *alt.Confidence
				}
				if strings.TrimSpace(alt.Transcript) != "" && conf > bestConf {
					best, bestConf = alt.Transcript, conf
				}
			}
			if best != "" {
				return best, nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", ErrNotUnderstood
}

var googleRegions = map[string]string{
	"en": "en-US",
	"pt": "pt-BR",
	"zh": "zh-CN",
	"ja": "ja-JP",
	"ko": "ko-KR",
}

// GoogleLocale expands a bare language code ("es") into a locale ("es-ES").
func GoogleLocale(language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		return "es-ES"
	}
	if strings.Contains(language, "-") {
		return language
	}
	language = strings.ToLower(language)
	if r, ok := googleRegions[language]; ok {
		return r
	}
	return language + "-" + strings.ToUpper(language)
}
