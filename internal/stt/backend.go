package stt

import (
	"fmt"
	"strings"
	"time"
)

// Settings carries the credentials every backend may need.
type Settings struct {
	GoogleAPIKey     string
	OpenAIAPIKey     string
	OpenAIModel      string
	CFAccountID      string
	CFAPIToken       string
	CFModel          string
	WhisperModelPath string
	WhisperThreads   int
	Timeout          time.Duration
}

// New builds the Recognizer registered under name.
func New(name string, s Settings) (Recognizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "google":
		if s.GoogleAPIKey == "" {
			return nil, fmt.Errorf("google: %w: GOOGLE_API_KEY is required", ErrUnavailable)
		}
		return NewGoogle(s.GoogleAPIKey, s.Timeout), nil
	case "openai":
		if s.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai: %w: OPENAI_API_KEY is required", ErrUnavailable)
		}
		return NewOpenAI(s.OpenAIAPIKey, s.OpenAIModel, s.Timeout), nil
	case "cloudflare", "cf":
		if s.CFAccountID == "" || s.CFAPIToken == "" {
			return nil, fmt.Errorf("cloudflare: %w: CF_ACCOUNT_ID and CF_API_TOKEN are required", ErrUnavailable)
		}
		return NewCloudflare(s.CFAccountID, s.CFAPIToken, s.CFModel, s.Timeout), nil
	case "whisper", "local":
		l, err := NewLocal(s.WhisperModelPath, s.WhisperThreads)
		if err != nil {
			return nil, fmt.Errorf("whisper: %w: %v", ErrUnavailable, err)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown stt backend %q", name)
	}
}
