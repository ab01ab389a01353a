package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/charlesng35/itemhub/internal/models"
)

// RefreshSessionsCollection names the Mongo collection holding refresh sessions.
const RefreshSessionsCollection = "refresh_sessions"

// MongoSessionStore keeps refresh sessions in MongoDB.
type MongoSessionStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

var _ SessionStore = (*MongoSessionStore)(nil)

// NewMongoSessionStore binds the store to db and ensures its indexes exist.
// The expires_at TTL index lets the server reap documents on its own schedule.
func NewMongoSessionStore(ctx context.Context, db *mongo.Database, opts ...StoreOption) (*MongoSessionStore, error) {
	if db == nil {
		return nil, errors.New("session store: mongo database is required")
	}
	o := applyStoreOptions(opts)

	store := &MongoSessionStore{
		collection: db.Collection(RefreshSessionsCollection),
		now:        o.now,
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "refresh_token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "fingerprint", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
	if _, err := store.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		return nil, fmt.Errorf("session store: create mongo indexes: %w", err)
	}
	return store, nil
}

func (s *MongoSessionStore) FindActive(ctx context.Context, userID, fingerprint string) (*models.RefreshSession, error) {
	filter := bson.M{
		"user_id":     userID,
		"fingerprint": fingerprint,
		"expires_at":  bson.M{"$gt": s.now().UTC()},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.findOne(ctx, filter, opts)
}

func (s *MongoSessionStore) FindByToken(ctx context.Context, refreshToken string) (*models.RefreshSession, error) {
	filter := bson.M{
		"refresh_token": refreshToken,
		"expires_at":    bson.M{"$gt": s.now().UTC()},
	}
	return s.findOne(ctx, filter)
}

func (s *MongoSessionStore) Create(ctx context.Context, userID, refreshToken, fingerprint string, ttl time.Duration) (*models.RefreshSession, error) {
	session, err := newSessionRecord(userID, refreshToken, fingerprint, s.now(), ttl)
	if err != nil {
		return nil, err
	}

	if _, err := s.collection.InsertOne(ctx, session); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("session store: %w", ErrDuplicateToken)
		}
		return nil, fmt.Errorf("session store: create session: %w", err)
	}
	return session, nil
}

func (s *MongoSessionStore) DeleteByToken(ctx context.Context, refreshToken string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"refresh_token": refreshToken}); err != nil {
		return fmt.Errorf("session store: delete session: %w", err)
	}
	return nil
}

// TakeByToken uses FindOneAndDelete, which the server applies atomically to a single document.
func (s *MongoSessionStore) TakeByToken(ctx context.Context, refreshToken string) (*models.RefreshSession, error) {
	var session models.RefreshSession
	err := s.collection.FindOneAndDelete(ctx, bson.M{"refresh_token": refreshToken}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session store: take session: %w", err)
	}
	return &session, nil
}

func (s *MongoSessionStore) ListByUser(ctx context.Context, userID string) ([]models.RefreshSession, error) {
	filter := bson.M{
		"user_id":    userID,
		"expires_at": bson.M{"$gt": s.now().UTC()},
	}
	cursor, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("session store: list sessions: %w", err)
	}

	var sessions []models.RefreshSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("session store: decode sessions: %w", err)
	}
	return sessions, nil
}

func (s *MongoSessionStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("session store: delete user sessions: %w", err)
	}
	return result.DeletedCount, nil
}

func (s *MongoSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("session store: delete expired sessions: %w", err)
	}
	return result.DeletedCount, nil
}

func (s *MongoSessionStore) findOne(ctx context.Context, filter bson.M, opts ...options.Lister[options.FindOneOptions]) (*models.RefreshSession, error) {
	var session models.RefreshSession
	err := s.collection.FindOne(ctx, filter, opts...).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session store: find session: %w", err)
	}
	return &session, nil
}
