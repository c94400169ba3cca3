package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/obiente/tranquitor/internal/segment"
)

const cloudflareBase = "https://api.cloudflare.com/client/v4/accounts"

// Cloudflare Workers AI backend.
// POST {base}/{account_id}/ai/run/{model} with a bearer API token.
type Cloudflare struct {
	accountID string
	apiToken  string
	model     string
	base      string
	http      *http.Client
}

func NewCloudflare(accountID, apiToken, model string, timeout time.Duration) *Cloudflare {
	if model == "" {
		model = "@cf/openai/whisper"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Cloudflare{accountID: accountID, apiToken: apiToken, model: model, base: cloudflareBase, http: &http.Client{Timeout: timeout}}
}

func (c *Cloudflare) Name() string { return "cloudflare" }

type cfResp struct {
	Success bool            `json:"success"`
	Errors  []any           `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type cfWhisperResult struct {
	Text string `json:"text"`
}

func (c *Cloudflare) Recognize(ctx context.Context, seg segment.Segment, _ string) (string, error) {
	if c.accountID == "" || c.apiToken == "" {
		return "", fmt.Errorf("cloudflare: %w: missing account or token", ErrUnavailable)
	}
	wav, err := seg.WAV()
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/%s/ai/run/%s", c.base, c.accountID, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(wav))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", httpStatusError("cloudflare", resp)
	}
	var cr cfResp
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if !cr.Success {
		return "", fmt.Errorf("cloudflare response not successful: %v", cr.Errors)
	}
	var wr cfWhisperResult
	if err := json.Unmarshal(cr.Result, &wr); err != nil {
		return "", fmt.Errorf("cloudflare unexpected result: %w", err)
	}
	return wr.Text, nil
}
