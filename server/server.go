// Package server provides the HTTP and WebSocket API for veritas.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/newsrag/veritas/internal/models"
	"github.com/newsrag/veritas/internal/types"
	"github.com/newsrag/veritas/pkg/indexer"
	"github.com/newsrag/veritas/pkg/llm"
	"github.com/newsrag/veritas/pkg/verifier"
)

type Config struct {
	Addr      string
	FeedURLs  []string
	Streaming bool
}

// Server exposes verification and indexing over HTTP, plus a WebSocket
// conversational endpoint.
type Server struct {
	config   Config
	verifier *verifier.Verifier
	indexer  *indexer.Indexer
	chat     *llm.ChatEngine
	store    types.Store
	logger   *zap.Logger
	server   *http.Server
	upgrader websocket.Upgrader
}

func NewServer(config Config, vf *verifier.Verifier, ix *indexer.Indexer, chat *llm.ChatEngine, store types.Store, logger *zap.Logger) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		config:   config,
		verifier: vf,
		indexer:  ix,
		chat:     chat,
		store:    store,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Be careful with this in production
			},
		},
	}
}

// Router builds the chi router with all endpoints mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/api/v1/verify", s.handleVerify)
	r.Post("/api/v1/index", s.handleIndex)
	r.Get("/ws", s.handleWebSocket)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.config.Addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", s.config.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type verifyRequest struct {
	Message string           `json:"message"`
	History []models.Message `json:"history,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	verdict, err := s.verifier.Verify(r.Context(), req.History, req.Message)
	if err != nil {
		s.logger.Error("verification failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, verdict)
}

type indexRequest struct {
	Feeds []string `json:"feeds,omitempty"`
	URL   string   `json:"url,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL != "" {
		status, err := s.indexer.IndexURL(r.Context(), req.URL)
		if err != nil {
			s.logger.Error("indexing failed", zap.String("url", req.URL), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]string{"url": req.URL, "status": string(status)})
		return
	}

	feeds := req.Feeds
	if len(feeds) == 0 {
		feeds = s.config.FeedURLs
	}
	if len(feeds) == 0 {
		s.respondError(w, http.StatusBadRequest, "no feeds configured")
		return
	}

	summary, err := s.indexer.IndexFeeds(r.Context(), feeds)
	if err != nil {
		s.logger.Error("feed indexing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, summary)
}

// Message is one WebSocket frame.
type Message struct {
	Type    string           `json:"type"`
	Content string           `json:"content"`
	History []models.Message `json:"history,omitempty"`
	Data    interface{}      `json:"data,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", zap.Error(err))
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendMessage(conn, "error", "invalid message")
			continue
		}

		s.handleMessage(r.Context(), conn, msg)
	}
}

func (s *Server) handleMessage(ctx context.Context, conn *websocket.Conn, msg Message) {
	switch msg.Type {
	case "index":
		s.sendMessage(conn, "status", "indexing feeds")
		summary, err := s.indexer.IndexFeeds(ctx, s.config.FeedURLs)
		if err != nil {
			s.sendMessage(conn, "error", err.Error())
			return
		}
		s.sendData(conn, "indexed", summary)

	case "chat":
		// Plain RAG chat over the indexed sources, without the verifier agent.
		results, err := s.store.Query(ctx, msg.Content)
		if err != nil {
			s.sendMessage(conn, "error", err.Error())
			return
		}

		if s.config.Streaming {
			err = s.chat.ChatStream(ctx, msg.Content, results, func(chunk string) {
				s.sendMessage(conn, "stream", chunk)
			})
			if err != nil {
				s.sendMessage(conn, "error", err.Error())
				return
			}
			s.sendData(conn, "done", map[string][]string{"sources": llm.FormatSources(results)})
			return
		}

		answer, err := s.chat.Chat(ctx, msg.Content, results)
		if err != nil {
			s.sendMessage(conn, "error", err.Error())
			return
		}
		s.sendMessage(conn, "response", answer)

	default:
		s.sendMessage(conn, "status", "verifying")
		verdict, err := s.verifier.Verify(ctx, msg.History, msg.Content)
		if err != nil {
			s.sendMessage(conn, "error", err.Error())
			return
		}
		if err := conn.WriteJSON(Message{Type: "response", Content: verdict.Answer, Data: verdict}); err != nil {
			s.logger.Debug("websocket write failed", zap.Error(err))
		}
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType, content string) {
	if err := conn.WriteJSON(Message{Type: msgType, Content: content}); err != nil {
		s.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (s *Server) sendData(conn *websocket.Conn, msgType string, data interface{}) {
	if err := conn.WriteJSON(Message{Type: msgType, Data: data}); err != nil {
		s.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("response encoding failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
