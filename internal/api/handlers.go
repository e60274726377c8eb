package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carechat/internal/core"
	"carechat/internal/store"
)

type APIHandler struct {
	sessions *core.SessionManager
}

func NewAPIHandler(sm *core.SessionManager) *APIHandler {
	return &APIHandler{sessions: sm}
}

type CreateChatRequest struct {
	Question *string `json:"question,omitempty"`
}

func (h *APIHandler) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	// An empty body is a valid "new empty chat" request.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	session := h.sessions.CreateSession()

	if req.Question != nil && *req.Question != "" {
		if _, err := h.sessions.SubmitTo(session.ID, *req.Question); err != nil {
			log.Printf("Error submitting first question for chat %s: %v", session.ID, err)
			writeSubmitError(w, err)
			return
		}
		// Re-read so the response carries the title and both messages.
		reloaded, err := h.sessions.GetSession(session.ID)
		if err != nil {
			log.Printf("Error reloading chat %s: %v", session.ID, err)
			http.Error(w, "Failed to create chat", http.StatusInternalServerError)
			return
		}
		session = reloaded
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.sessions.Sessions())
}

func (h *APIHandler) GetChatDetailsHandler(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	session, err := h.sessions.GetSession(chatID)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			http.Error(w, "Chat not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting chat %s: %v", chatID, err)
		http.Error(w, "Failed to get chat details", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(session)
}

type PostQuestionRequest struct {
	Question string `json:"question"`
}

func (h *APIHandler) PostQuestionHandler(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	var req PostQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "Question cannot be empty", http.StatusBadRequest)
		return
	}

	response, err := h.sessions.SubmitTo(chatID, req.Question)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			http.Error(w, "Chat not found", http.StatusNotFound)
			return
		}
		log.Printf("Error submitting question for chat %s: %v", chatID, err)
		writeSubmitError(w, err)
		return
	}
	json.NewEncoder(w).Encode(response)
}

func writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNoActiveSession):
		http.Error(w, "No active chat", http.StatusConflict)
	case errors.Is(err, store.ErrStoreUnavailable):
		http.Error(w, "Storage is unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, core.ErrEmbeddingFailure):
		http.Error(w, "Embedding provider failed", http.StatusBadGateway)
	default:
		http.Error(w, "Failed to process question", http.StatusInternalServerError)
	}
}
