// Package handlers provides HTTP handlers for the conversation REST API
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appchat "github.com/huynhbao103/dietchat/internal/application/chat"
	domain "github.com/huynhbao103/dietchat/internal/domain/chat"
	"github.com/huynhbao103/dietchat/internal/ports/outbound"
	apperrors "github.com/huynhbao103/dietchat/pkg/errors"
)

// ChatAPIHandlers handles conversation API requests
type ChatAPIHandlers struct {
	orchestrator *appchat.Orchestrator
	store        outbound.ChatStore
	logger       *zap.Logger
}

// NewChatAPIHandlers creates a new chat API handlers instance
func NewChatAPIHandlers(
	orchestrator *appchat.Orchestrator,
	store outbound.ChatStore,
	logger *zap.Logger,
) *ChatAPIHandlers {
	return &ChatAPIHandlers{
		orchestrator: orchestrator,
		store:        store,
		logger:       logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// MessageRequest represents a user message submission
type MessageRequest struct {
	Message string `json:"message"`
}

// ContextDecisionRequest represents the ambient-context decision
type ContextDecisionRequest struct {
	UseContext bool `json:"use_context"`
}

// PreferencesRequest represents the confirmed preference selection
type PreferencesRequest struct {
	CookingMethods []string `json:"cooking_methods"`
	Allergies      []string `json:"allergies"`
}

// sessionView is the conversation snapshot returned after every mutation
type sessionView struct {
	State            string                          `json:"state"`
	Turns            []domain.Turn                   `json:"turns"`
	Title            string                          `json:"title"`
	ChatID           string                          `json:"chat_id,omitempty"`
	AwaitingContinue bool                            `json:"awaiting_continue"`
	ContextDecided   bool                            `json:"context_decided"`
	UseContext       bool                            `json:"use_context"`
	PendingPrompt    *domain.PendingPreferencePrompt `json:"pending_prompt,omitempty"`
}

func (h *ChatAPIHandlers) view() sessionView {
	pref := h.orchestrator.Preference()
	return sessionView{
		State:            string(h.orchestrator.State()),
		Turns:            h.orchestrator.Turns(),
		Title:            h.orchestrator.Title(),
		ChatID:           h.orchestrator.ChatID(),
		AwaitingContinue: h.orchestrator.AwaitingContinue(),
		ContextDecided:   pref.Decided(),
		UseContext:       pref.UseAmbient(),
		PendingPrompt:    h.orchestrator.PendingPrompt(),
	}
}

// SubmitMessage handles POST /api/v1/chat/message
func (h *ChatAPIHandlers) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorJSON(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if err := h.orchestrator.Submit(r.Context(), req.Message); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: h.view()})
}

// DecideContext handles POST /api/v1/chat/context-decision
func (h *ChatAPIHandlers) DecideContext(w http.ResponseWriter, r *http.Request) {
	var req ContextDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorJSON(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if err := h.orchestrator.Decide(r.Context(), req.UseContext); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: h.view()})
}

// SetContextPreference handles PUT /api/v1/chat/context-decision, the
// explicit settings change between exchanges
func (h *ChatAPIHandlers) SetContextPreference(w http.ResponseWriter, r *http.Request) {
	var req ContextDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorJSON(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if err := h.orchestrator.SetPreference(req.UseContext); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: h.view()})
}

// ContinueToPreferences handles POST /api/v1/chat/continue
func (h *ChatAPIHandlers) ContinueToPreferences(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.orchestrator.ContinueToPreferences()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: prompt})
}

// ConfirmPreferences handles POST /api/v1/chat/preferences
func (h *ChatAPIHandlers) ConfirmPreferences(w http.ResponseWriter, r *http.Request) {
	var req PreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorJSON(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if err := h.orchestrator.ConfirmPreferences(r.Context(), req.CookingMethods, req.Allergies); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: h.view()})
}

// CancelPreferences handles POST /api/v1/chat/preferences/cancel
func (h *ChatAPIHandlers) CancelPreferences(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.CancelPreferences(r.Context()); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: h.view()})
}

// NewSession handles POST /api/v1/chat/new
func (h *ChatAPIHandlers) NewSession(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.StartNewSession()
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: h.view()})
}

// GetState handles GET /api/v1/chat/state
func (h *ChatAPIHandlers) GetState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: h.view()})
}

// ListSessions handles GET /api/v1/chat/sessions
func (h *ChatAPIHandlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	chats, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list saved sessions", zap.Error(err))
		h.writeErrorJSON(w, http.StatusBadGateway, "Failed to list saved sessions")
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]interface{}{
		"sessions": chats,
	}})
}

// LoadSession handles POST /api/v1/chat/sessions/{id}/load
func (h *ChatAPIHandlers) LoadSession(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	if chatID == "" {
		h.writeErrorJSON(w, http.StatusBadRequest, "Session id is required")
		return
	}

	chats, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to fetch saved sessions", zap.Error(err))
		h.writeErrorJSON(w, http.StatusBadGateway, "Failed to fetch saved sessions")
		return
	}

	for _, saved := range chats {
		if saved.ID == chatID {
			h.orchestrator.LoadSession(saved)
			h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: h.view()})
			return
		}
	}

	h.writeErrorJSON(w, http.StatusNotFound, "Session not found")
}

// DeleteSession handles DELETE /api/v1/chat/sessions/{id}
func (h *ChatAPIHandlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	if chatID == "" {
		h.writeErrorJSON(w, http.StatusBadRequest, "Session id is required")
		return
	}

	if err := h.store.Delete(r.Context(), chatID); err != nil {
		if apperrors.Is(err, apperrors.CodeChatNotFound) {
			h.writeErrorJSON(w, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.Error("Failed to delete saved session",
			zap.String("chat_id", chatID),
			zap.Error(err))
		h.writeErrorJSON(w, http.StatusBadGateway, "Failed to delete saved session")
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Session deleted"})
}

// writeDomainError maps conversation-state errors to HTTP status codes
func (h *ChatAPIHandlers) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		h.writeErrorJSON(w, http.StatusBadRequest, "Message must not be empty")
	case errors.Is(err, domain.ErrSessionBusy):
		h.writeErrorJSON(w, http.StatusConflict, "A response is already in progress")
	case errors.Is(err, domain.ErrAwaitingDecision):
		h.writeErrorJSON(w, http.StatusConflict, "The context question must be answered first")
	case errors.Is(err, domain.ErrNoDecisionPending):
		h.writeErrorJSON(w, http.StatusConflict, "No context question is pending")
	case errors.Is(err, domain.ErrNoPendingPrompt), errors.Is(err, domain.ErrPromptResolved):
		h.writeErrorJSON(w, http.StatusConflict, "No preference prompt is open")
	default:
		if appErr, ok := err.(*apperrors.AppError); ok {
			h.writeErrorJSON(w, appErr.StatusCode(), appErr.Message)
			return
		}
		h.logger.Error("Unhandled conversation error", zap.Error(err))
		h.writeErrorJSON(w, http.StatusInternalServerError, "Internal server error")
	}
}

// writeJSON writes a JSON response
func (h *ChatAPIHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeErrorJSON writes a JSON error response
func (h *ChatAPIHandlers) writeErrorJSON(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   message,
	})
}
