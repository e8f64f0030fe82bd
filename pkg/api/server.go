// Package api exposes the chatroom core to external UI collaborators over
// a local HTTP/WebSocket surface. Every endpoint is authenticated with a
// named server key passed in the CcApiKey header.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"cognichoir/pkg/apikey"
	"cognichoir/pkg/chat"
	"cognichoir/pkg/monitor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Loopback server for a decoupled UI
	},
}

// ServerConfig is the api section of config.json.
type ServerConfig struct {
	Port int `json:"port"` // Default: 9453
}

// SafeConn serializes concurrent writers on one WebSocket connection.
type SafeConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (sc *SafeConn) WriteMessage(messageType int, data []byte) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.Conn.WriteMessage(messageType, data)
}

// Server is the local API surface. It doubles as a monitor so transcript
// events reach WebSocket subscribers without a second wiring path.
type Server struct {
	cfg    ServerConfig
	rooms  *chat.Manager
	keys   *apikey.ServerKeyManager
	server *http.Server

	mu          sync.RWMutex
	connections map[*SafeConn]struct{}
}

// NewServer builds the API server. It does not listen until Start.
func NewServer(cfg ServerConfig, rooms *chat.Manager, keys *apikey.ServerKeyManager) *Server {
	return &Server{
		cfg:         cfg,
		rooms:       rooms,
		keys:        keys,
		connections: make(map[*SafeConn]struct{}),
	}
}

// Start implements monitor.Monitor. The listener runs in its own goroutine.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /hello", s.auth(s.handleHello))
	mux.HandleFunc("GET /rooms", s.auth(s.handleListRooms))
	mux.HandleFunc("GET /rooms/{name}/messages", s.auth(s.handleGetMessages))
	mux.HandleFunc("POST /rooms/{name}/messages", s.auth(s.handlePostMessage))
	mux.HandleFunc("POST /rooms/{name}/generate", s.auth(s.handleGenerate))
	mux.HandleFunc("GET /ws", s.auth(s.handleWebSocket))

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	slog.Info("Local API listening", "port", s.cfg.Port)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Local API server error", "error", err)
		}
	}()

	return nil
}

// Stop implements monitor.Monitor.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// OnEvent implements monitor.Monitor by broadcasting the transcript event
// to every connected WebSocket subscriber.
func (s *Server) OnEvent(ev monitor.TranscriptEvent) {
	payload := map[string]any{
		"type":      "message",
		"kind":      ev.Kind,
		"room":      ev.Room,
		"sender":    ev.Sender,
		"content":   ev.Content,
		"timestamp": ev.Timestamp,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal transcript event", "error", err)
		return
	}

	s.mu.RLock()
	conns := make([]*SafeConn, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Debug("Dropping dead WebSocket subscriber", "error", err)
			s.removeConn(conn)
		}
	}
}

// auth gates a handler behind server key validation. The key value travels
// in the CcApiKey header; WebSocket clients that cannot set headers may use
// the ccapikey query parameter instead.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get("CcApiKey")
		if provided == "" {
			provided = r.URL.Query().Get("ccapikey")
		}
		if provided == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}
		if !s.keys.Validate(provided) {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "hello, authenticated user!"})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rooms": s.rooms.List()})
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	room, ok := s.rooms.Get(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "Chatroom not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": room.Messages()})
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	room, ok := s.rooms.Get(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "Chatroom not found")
		return
	}

	var body struct {
		Sender  string `json:"sender"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Sender == "" || body.Content == "" {
		writeError(w, http.StatusBadRequest, "sender and content are required")
		return
	}

	msg, err := room.AddMessage(body.Sender, body.Content)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	room, ok := s.rooms.Get(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "Chatroom not found")
		return
	}

	var body struct {
		RoleName string `json:"role_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.RoleName == "" {
		writeError(w, http.StatusBadRequest, "role_name is required")
		return
	}

	msg, err := room.GenerateBotResponse(r.Context(), body.RoleName)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WS upgrade failed", "error", err)
		return
	}

	conn := &SafeConn{Conn: rawConn}

	s.mu.Lock()
	s.connections[conn] = struct{}{}
	s.mu.Unlock()

	slog.Info("WebSocket subscriber connected", "remote", r.RemoteAddr)

	defer func() {
		s.removeConn(conn)
		conn.Close()
	}()

	// Subscribers are read-only; drain until the peer goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) removeConn(conn *SafeConn) {
	s.mu.Lock()
	delete(s.connections, conn)
	s.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
