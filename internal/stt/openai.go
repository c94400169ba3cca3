package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/obiente/tranquitor/internal/segment"
)

const openAIEndpoint = "https://api.openai.com/v1/audio/transcriptions"

// OpenAI speech-to-text via audio.transcriptions.
type OpenAI struct {
	apiKey   string
	model    string
	endpoint string
	http     *http.Client
}

func NewOpenAI(apiKey, model string, timeout time.Duration) *OpenAI {
	if model == "" {
		model = "whisper-1"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &OpenAI{apiKey: apiKey, model: model, endpoint: openAIEndpoint, http: &http.Client{Timeout: timeout}}
}

func (o *OpenAI) Name() string { return "openai" }

type openAIResp struct {
	Text string `json:"text"`
}

func (o *OpenAI) Recognize(ctx context.Context, seg segment.Segment, language string) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("openai: %w: missing api key", ErrUnavailable)
	}
	wav, err := seg.WAV()
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", o.model); err != nil {
		return "", err
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", err
	}
	if language != "" {
		if err := mw.WriteField("language", language); err != nil {
			return "", err
		}
	}
	fw, err := mw.CreateFormFile("file", fmt.Sprintf("chunk_%04d.wav", seg.Index))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(wav); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := o.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", httpStatusError("openai", resp)
	}
	var or openAIResp
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return "", err
	}
	return or.Text, nil
}
