package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/obiente/tranquitor/internal/media"
	"github.com/obiente/tranquitor/internal/pipeline"
	"github.com/obiente/tranquitor/internal/transcript"
)

const readTimeout = 60 * time.Second

// Runner is satisfied by *pipeline.Orchestrator.
type Runner interface {
	Run(ctx context.Context, src media.Source, opts pipeline.Options, ctl *pipeline.Control) (*pipeline.Result, error)
}

type Server struct {
	ctx      context.Context
	runner   Runner
	defaults pipeline.Options
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	rooms    map[string]map[*peer]struct{}
}

// peer serializes writes to one connection; progress arrives from pipeline
// goroutines while the read loop answers control messages.
type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *peer) send(v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := p.conn.WriteJSON(v); err != nil {
		log.Debug().Err(err).Msg("ws write failed")
	}
}

// NewServer returns a server whose runs inherit ctx.
func NewServer(ctx context.Context, runner Runner, defaults pipeline.Options) *Server {
	return &Server{
		ctx:      ctx,
		runner:   runner,
		defaults: defaults,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024 * 16,
			WriteBufferSize: 1024 * 16,
		},
		rooms: make(map[string]map[*peer]struct{}),
	}
}

// session is the state of one connection: at most one active run, and at
// most one room it observes.
type session struct {
	s    *Server
	p    *peer
	room string

	mu   sync.Mutex
	ctl  *pipeline.Control
	done chan struct{}
}

func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(readTimeout)); return nil })

	sess := &session{s: s, p: &peer{conn: conn}}
	defer sess.close()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("ws read error")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		if mt != websocket.TextMessage {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.p.send(map[string]any{"type": "error", "detail": "invalid json"})
			continue
		}
		switch msg["type"] {
		case "ping":
			sess.p.send(map[string]any{"type": "pong", "ts": msg["ts"]})
		case "start":
			sess.start(msg)
		case "cancel":
			if sess.cancel() {
				sess.p.send(map[string]any{"type": "cancelling"})
			} else {
				sess.p.send(map[string]any{"type": "error", "detail": "no active run"})
			}
		case "stop":
			sess.cancel()
			sess.wait()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stopped"),
				time.Now().Add(time.Second))
			return
		case "join_room":
			rid, _ := msg["room_id"].(string)
			if rid == "" {
				sess.p.send(map[string]any{"type": "error", "detail": "room_id required"})
				break
			}
			s.leaveRoom(sess.room, sess.p)
			s.joinRoom(rid, sess.p)
			sess.room = rid
			sess.p.send(map[string]any{"type": "room_joined", "room_id": rid})
		case "leave_room":
			s.leaveRoom(sess.room, sess.p)
			sess.room = ""
			sess.p.send(map[string]any{"type": "room_left"})
		default:
			sess.p.send(map[string]any{"type": "error", "detail": "unknown message type"})
		}
	}
}

func (sess *session) start(msg map[string]any) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.done != nil {
		select {
		case <-sess.done:
		default:
			sess.p.send(map[string]any{"type": "error", "detail": "a run is already active"})
			return
		}
	}

	path, _ := msg["path"].(string)
	src, err := media.NewSource(path)
	if err != nil {
		sess.p.send(map[string]any{"type": "error", "detail": err.Error()})
		return
	}
	opts := sess.s.defaults
	if v, ok := msg["language"].(string); ok && v != "" {
		opts.Language = v
	}
	if v := asFloat(msg["chunk_seconds"]); v > 0 {
		opts.ChunkDuration = time.Duration(v * float64(time.Second))
	}
	if v := asFloat(msg["fine_seconds"]); v > 0 {
		opts.FineDuration = time.Duration(v * float64(time.Second))
	}

	var (
		once  sync.Once
		runID string
	)
	ctl := pipeline.NewControl(pipeline.Observer{
		Progress: func(p pipeline.Progress) {
			once.Do(func() {
				runID = p.RunID
				sess.emit(runID, map[string]any{"type": "started", "run_id": runID, "source": src.Name()})
			})
			sess.emit(runID, progressPayload(p))
		},
		Segment: func(seg transcript.Segment) {
			sess.emit(runID, segmentPayload(runID, seg))
		},
	})
	done := make(chan struct{})
	sess.ctl, sess.done = ctl, done

	log.Info().Str("source", src.Path).Str("language", opts.Language).Dur("chunk", opts.ChunkDuration).Msg("ws: run requested")
	go func() {
		defer close(done)
		res, err := sess.s.runner.Run(sess.s.ctx, src, opts, ctl)
		sess.emit(runID, donePayload(res, err))
	}()
}

// emit sends v to the session and to every observer of the run's room.
func (sess *session) emit(runID string, v map[string]any) {
	sess.p.send(v)
	if runID != "" {
		sess.s.broadcast(runID, sess.p, v)
	}
}

func (sess *session) cancel() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.ctl == nil || sess.done == nil {
		return false
	}
	select {
	case <-sess.done:
		return false
	default:
	}
	sess.ctl.Cancel()
	return true
}

func (sess *session) wait() {
	sess.mu.Lock()
	done := sess.done
	sess.mu.Unlock()
	if done != nil {
		<-done
	}
}

// close cancels any active run cooperatively and leaves the room. The run
// goroutine still finishes its in-flight segment and removes its scratch.
func (sess *session) close() {
	sess.cancel()
	sess.s.leaveRoom(sess.room, sess.p)
}

func progressPayload(p pipeline.Progress) map[string]any {
	return map[string]any{
		"type":         "progress",
		"run_id":       p.RunID,
		"stage":        p.Stage.String(),
		"current":      p.Current,
		"total":        p.Total,
		"elapsed_ms":   p.Elapsed.Milliseconds(),
		"remaining_ms": p.Remaining.Milliseconds(),
		"label":        p.Label,
	}
}

func segmentPayload(runID string, seg transcript.Segment) map[string]any {
	out := map[string]any{
		"type":   "segment",
		"run_id": runID,
		"index":  seg.Index,
		"inicio": transcript.FormatTimestamp(seg.Start),
		"fin":    transcript.FormatTimestamp(seg.End),
		"texto":  seg.Text,
	}
	if seg.Status != transcript.StatusOK {
		out["estado"] = seg.Status.String()
	}
	return out
}

func donePayload(res *pipeline.Result, err error) map[string]any {
	out := map[string]any{"type": "done", "state": pipeline.StageFailed.String()}
	if res != nil {
		out["run_id"] = res.RunID
		out["state"] = res.State.String()
		if b, mErr := transcript.Marshal(res.Transcript); mErr == nil {
			out["transcript"] = json.RawMessage(b)
		}
		if res.Fine != nil {
			if b, mErr := transcript.Marshal(res.Fine); mErr == nil {
				out["fine"] = json.RawMessage(b)
			}
		}
	}
	if err != nil {
		out["error"] = err.Error()
		var de *media.DecodeError
		switch {
		case errors.As(err, &de):
			out["kind"] = "decode"
		case errors.Is(err, pipeline.ErrTimeout):
			out["kind"] = "timeout"
		case errors.Is(err, pipeline.ErrCancelled):
			out["kind"] = "cancelled"
		}
	}
	return out
}

func (s *Server) joinRoom(room string, p *peer) {
	if room == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.rooms[room]
	if m == nil {
		m = make(map[*peer]struct{})
		s.rooms[room] = m
	}
	m[p] = struct{}{}
}

func (s *Server) leaveRoom(room string, p *peer) {
	if room == "" || p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.rooms[room]; m != nil {
		delete(m, p)
		if len(m) == 0 {
			delete(s.rooms, room)
		}
	}
}

func (s *Server) broadcast(room string, sender *peer, payload map[string]any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for p := range s.rooms[room] {
		if p == sender {
			continue
		}
		p.send(payload)
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f
	default:
		return 0
	}
}
