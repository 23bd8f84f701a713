// Package store wraps access to the MongoDB database. The job
// document, including its embedded audit history and dependency list,
// is the only shared mutable resource in the system; every mutation
// here is a conditional, targeted update so the database's atomic
// update primitive is the sole concurrency control.
package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"jobhub/internal/model"
)

// ErrNotFound is returned when the referenced job or document does not
// exist.
var ErrNotFound = errors.New("store: not found")

// ErrStaleState is returned when a conditional update matched nothing
// because the document is no longer in the expected prior state. The
// caller decides whether to retry or report a conflict.
var ErrStaleState = errors.New("store: stale state")

// Store wraps a Mongo database handle.
type Store struct {
	db *mongo.Database
}

// New creates a Store over the given database.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) jobs() *mongo.Collection    { return s.db.Collection("jobs") }
func (s *Store) apiKeys() *mongo.Collection { return s.db.Collection("api_keys") }

// Ping checks database connectivity, used by the deep health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// EnsureIndexes creates the indexes the store relies on. Safe to call
// on every startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.jobs().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "workOrderNumber", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "auditHistory.id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create job indexes: %w", err)
	}

	unique := true
	_, err = s.apiKeys().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "keyHash", Value: 1}},
		Options: &options.IndexOptions{Unique: &unique},
	})
	if err != nil {
		return fmt.Errorf("create api key index: %w", err)
	}
	return nil
}

// hashAPIKey hashes a raw API key string using SHA-256 and returns a
// hex string.
func hashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// GetAPIKeyByRawKey looks up a non-revoked API key by its raw value.
func (s *Store) GetAPIKeyByRawKey(ctx context.Context, rawKey string) (model.APIKey, error) {
	var key model.APIKey
	err := s.apiKeys().FindOne(ctx, bson.M{
		"keyHash":   hashAPIKey(rawKey),
		"revokedAt": nil,
	}).Decode(&key)
	if err == mongo.ErrNoDocuments {
		return model.APIKey{}, ErrNotFound
	}
	return key, err
}

// EnsureAdminAPIKey upserts an admin API key with the given raw value.
// Used at startup to guarantee an initial admin credential exists.
func (s *Store) EnsureAdminAPIKey(ctx context.Context, rawKey, label string) (model.APIKey, error) {
	hash := hashAPIKey(rawKey)

	var existing model.APIKey
	err := s.apiKeys().FindOne(ctx, bson.M{"keyHash": hash}).Decode(&existing)
	if err == nil {
		return existing, nil
	}
	if err != mongo.ErrNoDocuments {
		return model.APIKey{}, err
	}

	key := model.APIKey{
		ID:        uuid.New().String(),
		KeyHash:   hash,
		Label:     label,
		IsAdmin:   true,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.apiKeys().InsertOne(ctx, key); err != nil {
		return model.APIKey{}, err
	}
	return key, nil
}

// CreateRandomAPIKey generates a new random API key, stores its hash,
// and returns the raw key exactly once.
func (s *Store) CreateRandomAPIKey(ctx context.Context, label string, isAdmin bool, rateLimitPerMinute *int) (string, model.APIKey, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", model.APIKey{}, err
	}
	rawKey := "jobhub_" + hex.EncodeToString(buf)

	key := model.APIKey{
		ID:                 uuid.New().String(),
		KeyHash:            hashAPIKey(rawKey),
		Label:              label,
		IsAdmin:            isAdmin,
		RateLimitPerMinute: rateLimitPerMinute,
		CreatedAt:          time.Now().UTC(),
	}
	if _, err := s.apiKeys().InsertOne(ctx, key); err != nil {
		return "", model.APIKey{}, err
	}
	return rawKey, key, nil
}

// ListAPIKeys returns all API keys, newest first. Hashes are never
// serialized to clients.
func (s *Store) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	cur, err := s.apiKeys().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var keys []model.APIKey
	if err := cur.All(ctx, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}
