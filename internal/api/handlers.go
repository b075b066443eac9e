package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/huythanhnguyen/ai-agent/internal/agent"
	"github.com/huythanhnguyen/ai-agent/pkg/models"
)

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

type ChatResponse struct {
	models.AgentResponse
	SessionID string `json:"session_id"`
}

type FeedbackRequest struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id,omitempty"`
	Rating    int            `json:"rating,omitempty"`
	Comment   string         `json:"comment,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

type HealthResponse struct {
	Status    string  `json:"status"`
	Version   string  `json:"version"`
	Timestamp float64 `json:"timestamp"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, "message is required", http.StatusBadRequest)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	resp := s.service.Process(r.Context(), agent.Request{
		Message:   req.Message,
		SessionID: sessionID,
		UserID:    req.UserID,
		Provider:  req.Provider,
		RequestID: middleware.GetReqID(r.Context()),
	})

	s.writeJSON(w, ChatResponse{
		AgentResponse: resp,
		SessionID:     sessionID,
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		s.writeError(w, "session_id is required", http.StatusBadRequest)
		return
	}

	data := map[string]any{
		"rating":  req.Rating,
		"comment": req.Comment,
	}
	for k, v := range req.Extra {
		data[k] = v
	}

	if err := s.service.Feedback(r.Context(), req.SessionID, req.UserID, data); err != nil {
		s.logger.Error().Err(err).Msg("failed to store feedback")
		s.writeError(w, "failed to store feedback", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, map[string]string{"status": "success", "message": "Feedback received"})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.logger.Error().Err(err).Msg("failed to clear session")
		s.writeError(w, "failed to clear session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCustomerProfile(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.service.CustomerProfile(r.Context(), chi.URLParam(r, "userID")))
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.service.Suggestions(r.Context(), chi.URLParam(r, "userID")))
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.service.Category(r.Context(), chi.URLParam(r, "categoryID")))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, HealthResponse{
		Status:    "ok",
		Version:   s.config.Version,
		Timestamp: float64(time.Now().UnixMilli()) / 1000,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
