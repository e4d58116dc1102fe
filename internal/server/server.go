package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/good-listener/backend/vision/internal/pipeline"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/screen"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/trace"
)

// Pipeline is the part of the frame pipeline the server reads from.
type Pipeline interface {
	Snapshot() (pipeline.State, uint64)
	SetSaving(enabled bool)
	Events() <-chan pipeline.Event
	Recent(n int) []pipeline.Entry
}

// Message types.
type Message struct {
	Type string `json:"type"`
}

type FrameMessage struct {
	Type     string   `json:"type"`
	Session  string   `json:"session"`
	Frame    uint64   `json:"frame"`
	Score    float64  `json:"score"`
	Text     string   `json:"text,omitempty"`
	NewLines []string `json:"new_lines,omitempty"`
}

type KeyframeMessage struct {
	Type    string  `json:"type"`
	Session string  `json:"session"`
	Frame   uint64  `json:"frame"`
	Score   float64 `json:"score"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Frame   uint64 `json:"frame,omitempty"`
	Message string `json:"message"`
}

type StatusMessage struct {
	Type    string `json:"type"`
	Frame   uint64 `json:"frame"`
	Saving  bool   `json:"saving"`
	Version uint64 `json:"version"`
}

// FrameResponse is the body of GET /api/frame.
type FrameResponse struct {
	*pipeline.FrameResult
	TextPreview string `json:"text_preview"`
	Saving      bool   `json:"saving"`
	Version     uint64 `json:"version"`
}

// KeyframeResponse is the body of GET /api/keyframe.
type KeyframeResponse struct {
	Frame      uint64    `json:"frame"`
	Score      float64   `json:"score"`
	ObservedAt time.Time `json:"observed_at"`
}

// client is one WebSocket connection. Events are queued on send and written in order
// by a single goroutine.
type client struct {
	limiter *rate.Limiter
	send    chan any
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	pipe  Pipeline
	mu    sync.RWMutex
	conns map[*websocket.Conn]*client
}

// New creates a server and starts forwarding pipeline events to WebSocket clients.
func New(pipe Pipeline) *Server {
	s := &Server{
		pipe:  pipe,
		conns: make(map[*websocket.Conn]*client),
	}
	go s.broadcastEvents()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/frame", s.handleFrame)
	mux.HandleFunc("GET /api/frame/image", s.handleFrameImage)
	mux.HandleFunc("GET /api/keyframe", s.handleKeyframe)
	mux.HandleFunc("GET /api/keyframe/image", s.handleKeyframeImage)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/saving/start", s.handleSavingStart)
	mux.HandleFunc("POST /api/saving/stop", s.handleSavingStop)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

// Connections returns the number of open WebSocket clients.
func (s *Server) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	c := &client{
		limiter: rate.NewLimiter(rate.Limit(WSMessageRate), WSMessageBurst),
		send:    make(chan any, WSSendBuffer),
	}
	s.mu.Lock()
	s.conns[conn] = c
	s.mu.Unlock()
	go writeEvents(conn, c.send)

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		close(c.send)
	}()

	ctx := r.Context()
	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var msg json.RawMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !c.limiter.Allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "status":
			state, version := s.pipe.Snapshot()
			status := StatusMessage{Type: "status", Saving: state.Saving, Version: version}
			if state.Last != nil {
				status.Frame = state.Last.Frame
			}
			_ = wsjson.Write(ctx, conn, status)
		case "saving_start", "saving_stop":
			s.pipe.SetSaving(base.Type == "saving_start")
			_ = wsjson.Write(ctx, conn, Message{Type: base.Type})
		}
	}
}

func (s *Server) broadcastEvents() {
	for evt := range s.pipe.Events() {
		var msg any
		switch evt.Type {
		case pipeline.EventFrame:
			msg = FrameMessage{Type: evt.Type, Session: evt.Session, Frame: evt.Frame, Score: evt.Score, Text: evt.Text, NewLines: evt.NewLines}
		case pipeline.EventKeyframe:
			msg = KeyframeMessage{Type: evt.Type, Session: evt.Session, Frame: evt.Frame, Score: evt.Score}
		case pipeline.EventOCRError:
			msg = ErrorMessage{Type: evt.Type, Frame: evt.Frame, Message: evt.Error}
		default:
			continue
		}

		s.mu.RLock()
		for _, c := range s.conns {
			select {
			case c.send <- msg:
			default:
				slog.Debug("websocket client lagging, event dropped", "type", evt.Type, "frame", evt.Frame)
			}
		}
		s.mu.RUnlock()
	}
}

// writeEvents writes queued events to conn until send is closed.
func writeEvents(conn *websocket.Conn, send <-chan any) {
	for msg := range send {
		ctx, cancel := context.WithTimeout(context.Background(), WSWriteTimeout)
		_ = wsjson.Write(ctx, conn, msg)
		cancel()
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	state, version := s.pipe.Snapshot()
	if state.Last == nil {
		http.Error(w, "no frame captured yet", http.StatusNotFound)
		return
	}

	writeJSON(w, FrameResponse{
		FrameResult: state.Last,
		TextPreview: preview(state.Last.Text, TextPreviewLimit),
		Saving:      state.Saving,
		Version:     version,
	})
}

func (s *Server) handleFrameImage(w http.ResponseWriter, r *http.Request) {
	state, version := s.pipe.Snapshot()
	if state.Last == nil || state.Image == nil {
		http.Error(w, "no frame captured yet", http.StatusNotFound)
		return
	}
	writePNG(w, r, state.Image, fmt.Sprintf(`"frame-%d-%d"`, state.Last.Frame, version))
}

func (s *Server) handleKeyframe(w http.ResponseWriter, _ *http.Request) {
	state, _ := s.pipe.Snapshot()
	if !state.HasKeyframe {
		http.Error(w, "no keyframe in the current window", http.StatusNotFound)
		return
	}
	writeJSON(w, KeyframeResponse{
		Frame:      state.Keyframe.Ordinal,
		Score:      state.Keyframe.Score,
		ObservedAt: state.Keyframe.ObservedAt,
	})
}

func (s *Server) handleKeyframeImage(w http.ResponseWriter, r *http.Request) {
	state, _ := s.pipe.Snapshot()
	if !state.HasKeyframe || state.KeyframeImage == nil {
		http.Error(w, "no keyframe in the current window", http.StatusNotFound)
		return
	}
	writePNG(w, r, state.KeyframeImage, fmt.Sprintf(`"keyframe-%d"`, state.Keyframe.Ordinal))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	n := DefaultHistoryEntries
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "n must be a positive integer", http.StatusBadRequest)
			return
		}
		n = min(parsed, MaxHistoryEntries)
	}
	writeJSON(w, s.pipe.Recent(n))
}

func (s *Server) handleSavingStart(w http.ResponseWriter, _ *http.Request) {
	s.pipe.SetSaving(true)
	writeJSON(w, map[string]string{"status": "saving_started"})
}

func (s *Server) handleSavingStop(w http.ResponseWriter, _ *http.Request) {
	s.pipe.SetSaving(false)
	writeJSON(w, map[string]string{"status": "saving_stopped"})
}

// preview cuts s to at most limit bytes on a rune boundary.
func preview(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

// writePNG encodes img, answering 304 when the client already holds etag.
func writePNG(w http.ResponseWriter, r *http.Request, img *image.RGBA, etag string) {
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, err := screen.EncodePNG(img)
	if err != nil {
		trace.Logger(r.Context()).Error("encode frame", "error", err)
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
