// Package conversation sequences the session store and the per-user session
// index. It is the only component that writes to both.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/chatkeep/internal/domain"
	"github.com/ashureev/chatkeep/internal/store"
)

// Service creates, reads and extends chat sessions on behalf of an owner.
type Service struct {
	sessions store.SessionStore
	index    store.IndexStore
	logger   *slog.Logger
}

// NewService creates a conversation service over the two stores.
func NewService(sessions store.SessionStore, index store.IndexStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{sessions: sessions, index: index, logger: logger}
}

// AppendRequest is one exchange to record in a session.
type AppendRequest struct {
	Question string // optional; empty when the answer continues without new user input
	Answer   string
	Image    string // optional; only valid together with Question
}

// CreateSession starts a session whose first turn is text from the owner and
// lists it in the owner's index.
//
// The session write decides success. A failed index update is logged and left
// for ReconcileIndex; the new session id is still returned.
func (s *Service) CreateSession(ctx context.Context, ownerID, text string) (string, error) {
	if ownerID == "" {
		return "", &domain.ValidationError{Field: "owner", Message: "is required"}
	}
	if text == "" {
		return "", &domain.ValidationError{Field: "text", Message: "is required"}
	}

	saved, err := s.sessions.CreateSession(ctx, ownerID, domain.NewUserTurn(text, ""))
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	if err := s.addToIndex(ctx, ownerID, domain.SummaryOf(saved)); err != nil {
		s.logger.Warn("Session created but index update failed",
			"user_id", ownerID,
			"session_id", saved.ID,
			"error", err,
		)
	}

	return saved.ID, nil
}

// addToIndex appends the summary, creating the index on first use.
// A lost creation race falls back to a single append.
func (s *Service) addToIndex(ctx context.Context, ownerID string, summary domain.SessionSummary) error {
	_, err := s.index.GetIndex(ctx, ownerID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		_, err = s.index.CreateIndex(ctx, ownerID, summary)
		if errors.Is(err, domain.ErrAlreadyExists) {
			return s.index.AddSummary(ctx, ownerID, summary)
		}
		return err
	case err != nil:
		return err
	default:
		return s.index.AddSummary(ctx, ownerID, summary)
	}
}

// GetSession returns a session owned by ownerID. Missing and foreign
// sessions both yield domain.ErrNotFound.
func (s *Service) GetSession(ctx context.Context, sessionID, ownerID string) (*domain.Session, error) {
	session, err := s.sessions.GetSession(ctx, sessionID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ListSessions returns the owner's session summaries in creation order.
// An owner without an index has no sessions listed.
func (s *Service) ListSessions(ctx context.Context, ownerID string) ([]domain.SessionSummary, error) {
	idx, err := s.index.GetIndex(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.SessionSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}
	if idx.Chats == nil {
		return []domain.SessionSummary{}, nil
	}
	return idx.Chats, nil
}

// AppendTurn records an exchange: the user's question, if any, followed by
// the model's answer. Both are written in one store operation.
// It returns the number of turns appended.
func (s *Service) AppendTurn(ctx context.Context, sessionID, ownerID string, req AppendRequest) (int, error) {
	turns, err := buildTurns(req)
	if err != nil {
		return 0, err
	}
	if err := s.sessions.AppendTurns(ctx, sessionID, ownerID, turns); err != nil {
		return 0, fmt.Errorf("append turns: %w", err)
	}
	return len(turns), nil
}

func buildTurns(req AppendRequest) ([]domain.Turn, error) {
	if req.Answer == "" {
		return nil, &domain.ValidationError{Field: "answer", Message: "is required"}
	}
	if req.Image != "" && req.Question == "" {
		return nil, &domain.ValidationError{Field: "img", Message: "requires a question"}
	}

	turns := make([]domain.Turn, 0, 2)
	if req.Question != "" {
		turns = append(turns, domain.NewUserTurn(req.Question, req.Image))
	}
	return append(turns, domain.NewModelTurn(req.Answer)), nil
}

// ReconcileIndex adds to the owner's index every session that is missing
// from it, in creation order, creating the index if needed. Existing
// summaries are never changed, so running it repeatedly is safe.
// It returns the number of summaries added.
func (s *Service) ReconcileIndex(ctx context.Context, ownerID string) (int, error) {
	sessions, err := s.sessions.ListSessionsByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	idx, err := s.index.GetIndex(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		idx = &domain.SessionIndex{OwnerID: ownerID}
	} else if err != nil {
		return 0, fmt.Errorf("get index: %w", err)
	}

	added := 0
	for _, session := range sessions {
		if idx.Contains(session.ID) {
			continue
		}
		summary := domain.SummaryOf(session)
		if err := s.addToIndex(ctx, ownerID, summary); err != nil {
			return added, fmt.Errorf("index session %s: %w", session.ID, err)
		}
		idx.Chats = append(idx.Chats, summary)
		added++
	}

	if added > 0 {
		s.logger.Info("Session index reconciled", "user_id", ownerID, "added", added)
	}
	return added, nil
}

// ReconcileAll runs ReconcileIndex for every owner with sessions.
// A failure for one owner is logged and does not stop the others.
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	owners, err := s.sessions.ListOwners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list owners: %w", err)
	}

	total := 0
	for _, owner := range owners {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		added, err := s.ReconcileIndex(ctx, owner)
		total += added
		if err != nil {
			s.logger.Error("Index reconciliation failed", "user_id", owner, "error", err)
		}
	}
	return total, nil
}
