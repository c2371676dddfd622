package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vibe-virtuoso/backend/internal/control"
	"github.com/vibe-virtuoso/backend/internal/dispatch"
	"github.com/vibe-virtuoso/backend/internal/gesture"
	"github.com/vibe-virtuoso/backend/internal/instrument"
	"github.com/vibe-virtuoso/backend/internal/session"
	"github.com/vibe-virtuoso/backend/internal/supervisor"
	"github.com/vibe-virtuoso/backend/internal/timers"
)

// Frames arrive as base64 data URIs, so allow for large messages.
const readLimit = 16 << 20

// Supervisor is the part of the instrument supervisor the server drives.
type Supervisor interface {
	control.Switcher
	Status() supervisor.Status
	Scope() *timers.Group
}

type Server struct {
	broadcaster    *Broadcaster
	sessions       *session.Manager
	supervisor     Supervisor
	registry       *instrument.Registry
	dispatcher     *dispatch.Dispatcher
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	authToken      string
}

func NewServer(broadcaster *Broadcaster, sessions *session.Manager, sup Supervisor, registry *instrument.Registry, dispatcher *dispatch.Dispatcher, allowedOrigins []string, authToken string) *Server {
	s := &Server{
		broadcaster:    broadcaster,
		sessions:       sessions,
		supervisor:     sup,
		registry:       registry,
		dispatcher:     dispatcher,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		authToken:      authToken,
	}

	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/instrument", s.handleInstrument)
	mux.HandleFunc("/api/instruments", s.handleInstruments)
	mux.HandleFunc("/api/play", s.handlePlay)
	mux.HandleFunc("/api/voice", s.handleVoice)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns every route wrapped with the security headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return securityHeaders(mux)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		metricRejected.WithLabelValues("unauthorized").Inc()
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	c, err := s.broadcaster.AddClient(conn)
	if err != nil {
		metricRejected.WithLabelValues("capacity").Inc()
		log.Printf("ws rejecting %s: %v", r.RemoteAddr, err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}
	conn.SetReadLimit(readLimit)

	cs := s.sessions.Connect()
	log.Printf("WebSocket client connected: %s (session %s)", r.RemoteAddr, cs.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		s.sessions.Disconnect(cs.ID)
		s.broadcaster.RemoveClient(c)
		log.Printf("WebSocket client disconnected: %s", r.RemoteAddr)
	}()

	s.broadcaster.Send(c, newSupervisorState(s.supervisor.Status()))

	// One reader per connection keeps replies in frame order.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		reply := s.sessions.Handle(ctx, cs.ID, data)
		if reply == nil {
			continue
		}
		if !s.broadcaster.Send(c, reply) {
			log.Printf("ws send to %s failed, dropping connection", r.RemoteAddr)
			return
		}
	}
}

func (s *Server) handleInstrument(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Stopping must finish its kill sequence even if the caller hangs up.
	ctx := context.WithoutCancel(r.Context())

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.supervisor.Status())
	case http.MethodPost:
		var req instrumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error()})
			return
		}
		st, err := s.supervisor.Switch(ctx, req.Instrument)
		if err != nil {
			writeJSON(w, switchErrorStatus(err), errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, st)
	case http.MethodDelete:
		writeJSON(w, http.StatusOK, s.supervisor.Stop(ctx))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func switchErrorStatus(err error) int {
	if errors.Is(err, instrument.ErrUnknownInstrument) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.registry.List())
}

// handlePlay triggers one gesture without a camera. Notes played on the
// running instrument are released with it.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error()})
		return
	}
	kind, err := gesture.ParseKind(req.Gesture)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	st := s.supervisor.Status()
	inst := st.Instrument
	if req.Instrument != "" {
		if inst, err = instrument.Parse(req.Instrument); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}
	if inst == "" {
		inst = instrument.Default
	}

	var scope *timers.Group
	if inst == st.Instrument {
		scope = s.supervisor.Scope()
	}

	ev := gesture.Event{Kind: kind, Count: int(kind), Confidence: 1, Timestamp: time.Now()}
	res := s.dispatcher.Dispatch(ev, inst, scope)

	resp := playResponse{Outcome: res.Outcome.String(), Instrument: inst, Note: res.Note}
	status := http.StatusOK
	if res.Err != nil {
		resp.Error = res.Err.Error()
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req voiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error()})
		return
	}
	action, ok := control.VoiceAction(req.Text)
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: fmt.Sprintf("no instrument in %q", req.Text)})
		return
	}
	st, err := action.Apply(context.WithoutCancel(r.Context()), s.supervisor)
	if err != nil {
		writeJSON(w, switchErrorStatus(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.Snapshots())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Sessions:   s.sessions.Count(),
		Clients:    s.broadcaster.ClientCount(),
		Supervisor: s.supervisor.Status(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	if r.Header.Get("X-Vibe-Virtuoso-Token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// NewHTTPServer builds the listening server for host:port.
func NewHTTPServer(host string, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
