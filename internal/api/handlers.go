package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/session"
)

// chatRequest is the body of POST /chat.
type chatRequest struct {
	From string `json:"from"`
	Text string `json:"text"`
}

// chatHandler runs one conversation turn and returns the reply without
// sending it over any transport (POST /chat).
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	req.From = strings.TrimSpace(req.From)
	if req.From == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("from is required"))
		return
	}

	reply, err := s.handler.Turn(r.Context(), req.From, req.Text)
	if err != nil {
		slog.Error("Server.chatHandler: turn failed", "error", err, "conversationID", req.From)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}
	if reply == nil {
		slog.Debug("Server.chatHandler: no reply", "conversationID", req.From)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(reply))
}

// getSessionHandler returns the stored session (GET /sessions/{id}).
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Load(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	if err != nil {
		slog.Error("Server.getSessionHandler: failed to load session", "error", err, "conversationID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sess))
}

// deleteSessionHandler forgets a conversation (DELETE /sessions/{id}).
func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		slog.Error("Server.deleteSessionHandler: failed to delete session", "error", err, "conversationID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete session"))
		return
	}
	slog.Info("Server.deleteSessionHandler: session deleted", "conversationID", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session deleted", nil))
}

func (s *Server) receiptsHandler(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.receipts.GetReceipts()
	if err != nil {
		slog.Error("Server.receiptsHandler: failed to fetch receipts", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch receipts"))
		return
	}
	slog.Debug("Server.receiptsHandler: receipts fetched", "count", len(receipts))
	writeJSONResponse(w, http.StatusOK, models.Success(receipts))
}

// healthHandler reports liveness. A failing session backend marks the
// service degraded.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := s.sessions.Load(ctx, "health-probe"); err != nil && !errors.Is(err, session.ErrNotFound) {
		slog.Warn("Server.healthHandler: session backend unavailable", "error", err)
		health["status"] = "degraded"
		health["error"] = "Session store unavailable"
	}

	status := http.StatusOK
	if health["status"] == "degraded" {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, health)
}
