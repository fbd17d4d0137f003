// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/ashureev/chatkeep/internal/domain"
)

// SessionStore holds one document per conversation session.
type SessionStore interface {
	// CreateSession persists a new session whose history is exactly [initial].
	CreateSession(ctx context.Context, ownerID string, initial domain.Turn) (*domain.Session, error)

	// GetSession returns the session only when ownerID matches the stored owner.
	// A missing session and a foreign session both yield domain.ErrNotFound.
	GetSession(ctx context.Context, id, ownerID string) (*domain.Session, error)

	// AppendTurns appends turns, in order, to the end of the session history
	// as one atomic durable operation.
	AppendTurns(ctx context.Context, id, ownerID string, turns []domain.Turn) error

	// ListSessionsByOwner returns every session of an owner in creation order.
	ListSessionsByOwner(ctx context.Context, ownerID string) ([]*domain.Session, error)

	// ListOwners returns the distinct owners that have at least one session.
	ListOwners(ctx context.Context) ([]string, error)
}

// IndexStore holds one session index document per user.
type IndexStore interface {
	// GetIndex returns the summaries ordered by session creation time.
	// It returns domain.ErrNotFound when the user has no index yet.
	GetIndex(ctx context.Context, ownerID string) (*domain.SessionIndex, error)

	// CreateIndex creates the index with a single summary.
	// It returns domain.ErrAlreadyExists if an index exists at that moment.
	CreateIndex(ctx context.Context, ownerID string, first domain.SessionSummary) (*domain.SessionIndex, error)

	// AddSummary appends a summary to an existing index. It does nothing when
	// the session is already listed, so each session appears at most once.
	// It returns domain.ErrNotFound when the user has no index.
	AddSummary(ctx context.Context, ownerID string, summary domain.SessionSummary) error
}

// Repository is the full durable store used by the server.
type Repository interface {
	SessionStore
	IndexStore

	// Ping verifies connectivity and returns an error if the store is unreachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
