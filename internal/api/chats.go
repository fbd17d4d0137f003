package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/chatkeep/internal/config"
	"github.com/ashureev/chatkeep/internal/conversation"
	"github.com/ashureev/chatkeep/internal/domain"
	"github.com/ashureev/chatkeep/internal/identity"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Conversations is the conversation service as seen by the HTTP layer.
type Conversations interface {
	CreateSession(ctx context.Context, ownerID, text string) (string, error)
	GetSession(ctx context.Context, sessionID, ownerID string) (*domain.Session, error)
	ListSessions(ctx context.Context, ownerID string) ([]domain.SessionSummary, error)
	AppendTurn(ctx context.Context, sessionID, ownerID string, req conversation.AppendRequest) (int, error)
}

var _ Conversations = (*conversation.Service)(nil)

// ChatHandler handles chat session endpoints. All of them require a verified user.
type ChatHandler struct {
	svc     Conversations
	cfg     *config.Config
	limiter func(http.Handler) http.Handler
}

// NewChatHandler creates a chat handler. limiter may be nil to disable write throttling.
func NewChatHandler(svc Conversations, cfg *config.Config, limiter func(http.Handler) http.Handler) *ChatHandler {
	return &ChatHandler{svc: svc, cfg: cfg, limiter: limiter}
}

type createChatRequest struct {
	Text string `json:"text"`
}

type appendChatRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Img      string `json:"img"`
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(identity.RequireUser)

		r.Get("/api/chats/{id}", h.GetChat)
		r.Get("/api/userchats", h.ListChats)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			if h.limiter != nil {
				r.Use(h.limiter)
			}
			r.Post("/api/chats", h.CreateChat)
			r.Put("/api/chats/{id}", h.AppendChat)
		})
	})
}

// CreateChat starts a new session from the user's first message.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req createChatRequest
	if !decodeJSON(w, r, h.maxBodySize(), &req) {
		return
	}

	id, err := h.svc.CreateSession(r.Context(), userID, req.Text)
	if err != nil {
		if domain.IsValidation(err) {
			Error(w, http.StatusBadRequest, "missing required fields")
			return
		}
		h.logFailure(r, "Error creating chat", err)
		Error(w, http.StatusInternalServerError, "error creating chat")
		return
	}

	slog.Info("Chat created", "user_id", userID, "session_id", id)
	JSON(w, http.StatusCreated, map[string]string{"id": id})
}

// GetChat returns one of the user's sessions with its full history.
// Missing and foreign sessions produce the same response as a storage failure.
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "id")

	session, err := h.svc.GetSession(r.Context(), sessionID, userID)
	if err != nil {
		h.logFailure(r, "Error fetching chat", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "error fetching chat")
		return
	}

	JSON(w, http.StatusOK, session)
}

// ListChats returns the user's session summaries in creation order.
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	chats, err := h.svc.ListSessions(r.Context(), userID)
	if err != nil {
		h.logFailure(r, "Error fetching userchats", err)
		Error(w, http.StatusInternalServerError, "error fetching userchats")
		return
	}

	JSON(w, http.StatusOK, chats)
}

// AppendChat records a question/answer exchange on one of the user's sessions.
func (h *ChatHandler) AppendChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "id")

	var req appendChatRequest
	if !decodeJSON(w, r, h.maxBodySize(), &req) {
		return
	}

	n, err := h.svc.AppendTurn(r.Context(), sessionID, userID, conversation.AppendRequest{
		Question: req.Question,
		Answer:   req.Answer,
		Image:    req.Img,
	})
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			Error(w, http.StatusBadRequest, ve.Error())
			return
		}
		h.logFailure(r, "Error adding conversations", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "error adding conversations")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"appended": n,
	})
}

func (h *ChatHandler) maxBodySize() int64 {
	if h.cfg != nil && h.cfg.MaxRequestBodySize > 0 {
		return h.cfg.MaxRequestBodySize
	}
	return defaultMaxRequestBodySize
}

// logFailure logs the full error server-side. Not-found outcomes are expected
// traffic and logged below error level.
func (h *ChatHandler) logFailure(r *http.Request, msg string, err error, attrs ...any) {
	attrs = append(attrs,
		"user_id", identity.UserIDFromContext(r.Context()),
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"error", err,
	)
	if errors.Is(err, domain.ErrNotFound) {
		slog.Info(msg, attrs...)
		return
	}
	slog.Error(msg, attrs...)
}
