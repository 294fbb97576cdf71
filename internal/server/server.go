package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clippy-ai/clippy-ctl/internal/builder"
	"github.com/clippy-ai/clippy-ctl/internal/logging"
	"github.com/clippy-ai/clippy-ctl/internal/logsink"
	"github.com/clippy-ai/clippy-ctl/internal/mount"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

// Source is the build being served.
type Source interface {
	State() builder.State
	Send(ctx context.Context, message string) error
	Logs() *logsink.Sink
}

type inbound struct {
	Type  string `json:"type"`
	Input string `json:"input,omitempty"`
}

type outbound struct {
	Type    string         `json:"type"`
	State   *builder.State `json:"state,omitempty"`
	Lines   []string       `json:"lines,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Server serves one build over HTTP.
type Server struct {
	src      Source
	upgrader websocket.Upgrader
	http     *http.Server

	mu     sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// New creates a server for src listening on addr.
func New(addr string, src Source) *Server {
	s := &Server{
		src:  src,
		subs: make(map[int]chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameHost,
		},
	}
	s.http = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// sameHost accepts websocket upgrades from pages served by this host.
func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://") == r.Host
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/mount", s.handleMount)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Notify wakes every websocket client to resend state. Wire it to the
// build's change notifications.
func (s *Server) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Server) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting viewer", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("failed to write response", "error", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.src.State())
}

func (s *Server) handleMount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mount.Project(s.src.State().Tree))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	if s.src.State().Generating {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "generation in progress"})
		return
	}

	if err := s.src.Send(r.Context(), msg); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	sink := s.src.Logs()
	logWake, cancelLogs := sink.Subscribe(16)
	defer cancelLogs()
	stateWake, cancelState := s.subscribe()
	defer cancelState()

	writeCh := make(chan outbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		write := func(out outbound) bool {
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return false
			}
			return conn.WriteJSON(out) == nil
		}

		st := s.src.State()
		sent := len(st.Logs)
		if !write(outbound{Type: "state", State: &st}) {
			cancel()
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if !write(out) {
					cancel()
					return
				}
			case _, ok := <-logWake:
				if !ok {
					return
				}
				lines := sink.Since(sent)
				if len(lines) == 0 {
					continue
				}
				sent += len(lines)
				if !write(outbound{Type: "log", Lines: lines}) {
					cancel()
					return
				}
			case <-stateWake:
				st := s.src.State()
				st.Logs = nil
				if !write(outbound{Type: "state", State: &st}) {
					cancel()
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	push := func(out outbound) {
		select {
		case writeCh <- out:
		case <-ctx.Done():
		}
	}

	for {
		var in inbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}

		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			push(outbound{Type: "pong"})
		case "send":
			input := strings.TrimSpace(in.Input)
			if input == "" {
				push(outbound{Type: "error", Message: "input is required"})
				continue
			}
			go func() {
				if err := s.src.Send(ctx, input); err != nil {
					push(outbound{Type: "error", Message: err.Error()})
				}
			}()
		default:
			push(outbound{Type: "error", Message: "unknown message type"})
		}
	}
}
