package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ashureev/chatkeep/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestMongo connects to MONGO_TEST_URI with a throwaway database.
func newTestMongo(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewMongo(ctx, uri, "chatkeep_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.db.Drop(context.Background())
		_ = s.Close()
	})
	return s
}

func TestMongoSessionLifecycle(t *testing.T) {
	s := newTestMongo(t)
	ctx := context.Background()

	created, err := s.CreateSession(ctx, "owner-a", domain.NewUserTurn("Hello world", ""))
	require.NoError(t, err)

	require.NoError(t, s.AppendTurns(ctx, created.ID, "owner-a", []domain.Turn{
		domain.NewUserTurn("How are you?", "https://img/a.png"),
		domain.NewModelTurn("I am fine"),
	}))

	got, err := s.GetSession(ctx, created.ID, "owner-a")
	require.NoError(t, err)
	require.Len(t, got.History, 3)
	assert.Equal(t, "How are you?", got.History[1].Parts()[0].Text)
	assert.Equal(t, domain.RoleModel, got.History[2].Role())

	_, err = s.GetSession(ctx, created.ID, "owner-b")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.AppendTurns(ctx, created.ID, "owner-b", []domain.Turn{domain.NewModelTurn("x")}), domain.ErrNotFound)

	owners, err := s.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner-a"}, owners)
}

func TestMongoIndexLifecycle(t *testing.T) {
	s := newTestMongo(t)
	ctx := context.Background()

	_, err := s.GetIndex(ctx, "owner-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.AddSummary(ctx, "owner-a", domain.SessionSummary{ID: "s0"}), domain.ErrNotFound)

	_, err = s.CreateIndex(ctx, "owner-a", domain.SessionSummary{ID: "s1", Title: "one"})
	require.NoError(t, err)
	_, err = s.CreateIndex(ctx, "owner-a", domain.SessionSummary{ID: "s2", Title: "two"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	require.NoError(t, s.AddSummary(ctx, "owner-a", domain.SessionSummary{ID: "s2", Title: "two"}))

	idx, err := s.GetIndex(ctx, "owner-a")
	require.NoError(t, err)
	require.Len(t, idx.Chats, 2)
	assert.Equal(t, "s1", idx.Chats[0].ID)
	assert.Equal(t, "s2", idx.Chats[1].ID)
}

func TestMongoAddSummaryIgnoresListedSession(t *testing.T) {
	s := newTestMongo(t)
	ctx := context.Background()

	_, err := s.CreateIndex(ctx, "owner-a", domain.SessionSummary{ID: "s1", Title: "one"})
	require.NoError(t, err)

	require.NoError(t, s.AddSummary(ctx, "owner-a", domain.SessionSummary{ID: "s1", Title: "one"}))
	require.NoError(t, s.AddSummary(ctx, "owner-a", domain.SessionSummary{ID: "s2", Title: "two"}))
	require.NoError(t, s.AddSummary(ctx, "owner-a", domain.SessionSummary{ID: "s2", Title: "two"}))

	idx, err := s.GetIndex(ctx, "owner-a")
	require.NoError(t, err)
	assert.Len(t, idx.Chats, 2)
}
