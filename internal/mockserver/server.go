// Package mockserver is a stand-in for the recommendation server, used for local
// development and end-to-end tests. Replies are chosen by keywords in the message so
// every response shape the client understands can be triggered by hand.
package mockserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xperiencelabs/archat/internal/logging"
	"github.com/xperiencelabs/archat/internal/protocol"
)

// Keywords that select a reply shape
const (
	KeywordImages  = "show"
	KeywordSimilar = "similar"
	KeywordScrape  = "scrape"
	KeywordRotate  = "rotate"
	KeywordError   = "error"
)

// Server answers /start, /chat, /recommend/ and /static/
type Server struct {
	logger *logging.Logger

	mu       sync.Mutex
	sessions map[string]int
}

// New creates a server with no sessions
func New(logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger().WithComponent("mockserver")
	}
	return &Server{logger: logger, sessions: make(map[string]int)}
}

// Handler routes the server endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(protocol.EndpointStart, s.logged(s.handleStart))
	mux.HandleFunc(protocol.EndpointChat, s.logged(s.handleChat))
	mux.HandleFunc(protocol.EndpointRecommend, s.logged(s.handleRecommend))
	mux.HandleFunc(protocol.StaticPath, s.logged(s.handleStatic))
	return mux
}

// Sessions returns the number of sessions opened so far
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) logged(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.logger.LogHTTPRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) openSession() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = 0
	s.mu.Unlock()
	return id
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": s.openSession()})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var req protocol.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": fmt.Sprintf("invalid JSON: %v", err)})
		return
	}

	s.mu.Lock()
	count, known := s.sessions[req.SessionID]
	if known {
		s.sessions[req.SessionID] = count + 1
	}
	s.mu.Unlock()
	if !known {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "unknown session"})
		return
	}

	if strings.Contains(strings.ToLower(req.Message), KeywordError) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"detail": "the recommendation engine is unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, s.reply(req.SessionID, req.Message))
}

// reply builds the chat response for message
func (s *Server) reply(sessionID, message string) map[string]any {
	lower := strings.ToLower(message)
	resp := map[string]any{"session_id": sessionID}

	switch {
	case strings.Contains(lower, KeywordRotate):
		resp["session_id"] = s.openSession()
		resp["assistant_response"] = "Your session was refreshed."

	case strings.Contains(lower, KeywordSimilar):
		resp["assistant_response"] = "Here are similar pieces."
		resp["internal_data"] = map[string]any{
			"images": []string{"similar/1.jpg", "similar/2.jpg"},
		}

	case strings.Contains(lower, KeywordScrape):
		resp["content_scrapped"] = "Scraped: the Oslo sofa is 210 cm wide."

	case strings.Contains(lower, KeywordImages):
		resp["assistant_response"] = "These would fit your room."
		resp["content"] = []map[string]string{
			{"image_2d": "catalog/oslo.jpg", "image_3d": "catalog/oslo.glb"},
			{"image_2d": "catalog/bergen.jpg"},
		}

	default:
		resp["assistant_response"] = fmt.Sprintf("You said %q. Ask me to show you something.", message)
	}
	return resp
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile(protocol.UploadFieldName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "file part is required"})
		return
	}
	defer file.Close()

	size, _ := io.Copy(io.Discard, file)
	writeJSON(w, http.StatusOK, map[string]any{
		"recommendation": fmt.Sprintf("Based on %s (%d bytes) we recommend the walnut armchair.", header.Filename, size),
	})
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := path.Base(r.URL.Path)
	switch path.Ext(name) {
	case ".glb":
		w.Header().Set("Content-Type", "model/gltf-binary")
	case ".jpg", ".jpeg":
		w.Header().Set("Content-Type", "image/jpeg")
	default:
		http.NotFound(w, r)
		return
	}
	io.WriteString(w, "placeholder "+name)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
