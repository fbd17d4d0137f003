package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ashureev/chatkeep/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	chatsCollection     = "chats"
	userChatsCollection = "userchats"
)

// MongoStore implements Repository using MongoDB.
// A session is one document whose history array grows by $push; a user's
// index is one document whose chats array grows by $push. Both updates are
// single-document and therefore atomic.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type chatDoc struct {
	ID        string              `bson:"_id"`
	OwnerID   string              `bson:"owner_id"`
	History   []domain.TurnRecord `bson:"history"`
	CreatedAt time.Time           `bson:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at"`
}

type userChatsDoc struct {
	ID        string                  `bson:"_id"`
	OwnerID   string                  `bson:"owner_id"`
	Chats     []domain.SessionSummary `bson:"chats"`
	CreatedAt time.Time               `bson:"created_at"`
}

// NewMongo creates a MongoDB-backed repository.
// The driver connects lazily: an unreachable server is reported by the
// returned ping error, but the store is still usable once the server appears.
func NewMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	store := &MongoStore{client: client, db: client.Database(database)}
	if err := client.Ping(ctx, nil); err != nil {
		return store, fmt.Errorf("ping MongoDB: %w", err)
	}
	if err := store.ensureIndexes(ctx); err != nil {
		return store, err
	}
	return store, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	if _, err := s.chats().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create chats owner index: %w", err)
	}
	if _, err := s.userChats().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create userchats owner index: %w", err)
	}
	return nil
}

func (s *MongoStore) chats() *mongo.Collection     { return s.db.Collection(chatsCollection) }
func (s *MongoStore) userChats() *mongo.Collection { return s.db.Collection(userChatsCollection) }

// Ping verifies connectivity to the primary.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect MongoDB: %w", err)
	}
	return nil
}

// CreateSession inserts a new chat document.
func (s *MongoStore) CreateSession(ctx context.Context, ownerID string, initial domain.Turn) (*domain.Session, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := chatDoc{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		History:   []domain.TurnRecord{domain.RecordOf(initial)},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.chats().InsertOne(ctx, doc); err != nil {
		return nil, mongoError("create session", err)
	}
	return &domain.Session{
		ID:        doc.ID,
		OwnerID:   ownerID,
		History:   []domain.Turn{initial},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetSession finds a chat by id and owner.
func (s *MongoStore) GetSession(ctx context.Context, id, ownerID string) (*domain.Session, error) {
	var doc chatDoc
	err := s.chats().FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&doc)
	if err != nil {
		return nil, mongoError("get session", err)
	}
	return doc.toDomain()
}

// AppendTurns pushes turns onto the history array in one update.
func (s *MongoStore) AppendTurns(ctx context.Context, id, ownerID string, turns []domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	result, err := s.chats().UpdateOne(ctx,
		bson.M{"_id": id, "owner_id": ownerID},
		bson.M{
			"$push": bson.M{"history": bson.M{"$each": domain.RecordsOf(turns)}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return mongoError("append turns", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListSessionsByOwner returns an owner's chats in creation order.
func (s *MongoStore) ListSessionsByOwner(ctx context.Context, ownerID string) ([]*domain.Session, error) {
	cursor, err := s.chats().Find(ctx,
		bson.M{"owner_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, mongoError("list sessions", err)
	}
	var docs []chatDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mongoError("list sessions", err)
	}

	sessions := make([]*domain.Session, 0, len(docs))
	for i := range docs {
		session, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// ListOwners returns the distinct owners of chats.
func (s *MongoStore) ListOwners(ctx context.Context) ([]string, error) {
	var owners []string
	if err := s.chats().Distinct(ctx, "owner_id", bson.M{}).Decode(&owners); err != nil {
		return nil, mongoError("list owners", err)
	}
	return owners, nil
}

// GetIndex finds the userchats document of an owner.
func (s *MongoStore) GetIndex(ctx context.Context, ownerID string) (*domain.SessionIndex, error) {
	var doc userChatsDoc
	err := s.userChats().FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&doc)
	if err != nil {
		return nil, mongoError("get index", err)
	}
	return doc.toDomain(), nil
}

// CreateIndex inserts the userchats document; the unique owner index rejects duplicates.
func (s *MongoStore) CreateIndex(ctx context.Context, ownerID string, first domain.SessionSummary) (*domain.SessionIndex, error) {
	doc := userChatsDoc{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Chats:     []domain.SessionSummary{first},
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.userChats().InsertOne(ctx, doc); err != nil {
		return nil, mongoError("create index", err)
	}
	return &domain.SessionIndex{OwnerID: ownerID, Chats: doc.Chats}, nil
}

// AddSummary pushes a summary onto the owner's chats array unless the
// session is already listed there.
func (s *MongoStore) AddSummary(ctx context.Context, ownerID string, summary domain.SessionSummary) error {
	result, err := s.userChats().UpdateOne(ctx,
		bson.M{"owner_id": ownerID, "chats.id": bson.M{"$ne": summary.ID}},
		bson.M{"$push": bson.M{"chats": summary}},
	)
	if err != nil {
		return mongoError("add summary", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// No match: either the index is missing or it already lists the session.
	n, err := s.userChats().CountDocuments(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return mongoError("add summary", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// mongoError maps driver errors onto the domain taxonomy.
func mongoError(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return domain.ErrAlreadyExists
	default:
		return domain.NewStorageError(op, err)
	}
}

// toDomain returns the index with summaries in session creation order.
// Reconciled entries may be stored out of order.
func (d *userChatsDoc) toDomain() *domain.SessionIndex {
	chats := make([]domain.SessionSummary, len(d.Chats))
	copy(chats, d.Chats)
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].CreatedAt.Before(chats[j].CreatedAt)
	})
	return &domain.SessionIndex{OwnerID: d.OwnerID, Chats: chats}
}

func (d *chatDoc) toDomain() (*domain.Session, error) {
	history, err := domain.TurnsOf(d.History)
	if err != nil {
		return nil, domain.NewStorageError("decode session "+d.ID, err)
	}
	return &domain.Session{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		History:   history,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}
