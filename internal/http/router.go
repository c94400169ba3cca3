package http

import (
	"encoding/json"
	"net/http"

	"github.com/obiente/tranquitor/internal/ws"
)

// NewRouter serves the health probe and the transcription websocket.
func NewRouter(wss *ws.Server, backend string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "backend": backend})
	})
	mux.HandleFunc("/ws/transcribe", wss.Handle)
	return mux
}
