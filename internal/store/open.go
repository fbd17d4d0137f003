package store

import (
	"context"
	"fmt"

	"github.com/ashureev/chatkeep/internal/config"
	"github.com/ashureev/chatkeep/internal/domain"
)

var (
	_ Repository = (*SQLiteStore)(nil)
	_ Repository = (*MongoStore)(nil)
	_ Repository = (*unavailableStore)(nil)
)

// Open connects the backend selected by cfg.DBDriver.
//
// On failure the returned Repository is still non-nil: every operation on it
// fails with domain.ErrStorageUnavailable (SQLite), or it is a MongoDB client
// that keeps trying to reach the server. Callers may log the error and carry on.
func Open(ctx context.Context, cfg *config.Config) (Repository, error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		repo, err := NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if repo == nil {
			return Unavailable(err), err
		}
		return repo, err
	case config.DriverSQLite:
		repo, err := NewSQLite(cfg.DBPath)
		if err != nil {
			return Unavailable(err), err
		}
		return repo, nil
	default:
		err := fmt.Errorf("unknown database driver %q", cfg.DBDriver)
		return Unavailable(err), err
	}
}

// Unavailable returns a Repository whose every operation fails with cause
// wrapped as a storage error.
func Unavailable(cause error) Repository {
	if cause == nil {
		cause = domain.ErrStorageUnavailable
	}
	return &unavailableStore{cause: cause}
}

type unavailableStore struct {
	cause error
}

func (u *unavailableStore) fail(op string) error {
	return domain.NewStorageError(op, u.cause)
}

func (u *unavailableStore) CreateSession(context.Context, string, domain.Turn) (*domain.Session, error) {
	return nil, u.fail("create session")
}

func (u *unavailableStore) GetSession(context.Context, string, string) (*domain.Session, error) {
	return nil, u.fail("get session")
}

func (u *unavailableStore) AppendTurns(context.Context, string, string, []domain.Turn) error {
	return u.fail("append turns")
}

func (u *unavailableStore) ListSessionsByOwner(context.Context, string) ([]*domain.Session, error) {
	return nil, u.fail("list sessions")
}

func (u *unavailableStore) ListOwners(context.Context) ([]string, error) {
	return nil, u.fail("list owners")
}

func (u *unavailableStore) GetIndex(context.Context, string) (*domain.SessionIndex, error) {
	return nil, u.fail("get index")
}

func (u *unavailableStore) CreateIndex(context.Context, string, domain.SessionSummary) (*domain.SessionIndex, error) {
	return nil, u.fail("create index")
}

func (u *unavailableStore) AddSummary(context.Context, string, domain.SessionSummary) error {
	return u.fail("add summary")
}

func (u *unavailableStore) Ping(context.Context) error { return u.fail("ping") }
func (u *unavailableStore) Close() error               { return nil }
