// Package store persists HubRise connection records in Redis. A record
// captures the credentials and ids obtained when a restaurant connects its
// HubRise account, keyed by the restaurant's slug.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound indicates no connection exists for the slug.
	ErrNotFound = errors.New("connection not found")

	// ErrInvalidRecord indicates the stored record is corrupted.
	ErrInvalidRecord = errors.New("invalid connection record")
)

// Connection is a persisted HubRise connection for one restaurant.
type Connection struct {
	Slug         string          `json:"slug"`
	AccessToken  string          `json:"access_token"`
	AccountID    string          `json:"account_id"`
	LocationID   string          `json:"location_id"`
	CatalogID    string          `json:"catalog_id,omitempty"`
	AccountName  string          `json:"account_name,omitempty"`
	LocationName string          `json:"location_name,omitempty"`
	CatalogName  string          `json:"catalog_name,omitempty"`
	RawPayload   json.RawMessage `json:"raw_payload,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Store handles connection persistence with a Redis backend.
type Store struct {
	redis *redis.Client
}

// New creates a connection store.
func New(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{redis: redisClient}
}

func key(slug string) string {
	return "hubrise:conn:" + slug
}

// Save upserts a connection record. CreatedAt is preserved for existing
// records; UpdatedAt is always refreshed.
func (s *Store) Save(ctx context.Context, conn Connection) error {
	if conn.Slug == "" {
		return fmt.Errorf("slug is required")
	}

	now := time.Now().UTC()
	conn.UpdatedAt = now
	if existing, err := s.Get(ctx, conn.Slug); err == nil {
		conn.CreatedAt = existing.CreatedAt
	} else {
		conn.CreatedAt = now
	}

	data, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("marshal connection: %w", err)
	}

	if err := s.redis.Set(ctx, key(conn.Slug), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	if err := s.redis.SAdd(ctx, "hubrise:conn:slugs", conn.Slug).Err(); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}

	return nil
}

// Get retrieves the connection for slug. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, slug string) (*Connection, error) {
	data, err := s.redis.Get(ctx, key(slug)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var conn Connection
	if err := json.Unmarshal(data, &conn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	return &conn, nil
}

// Delete removes the connection for slug.
func (s *Store) Delete(ctx context.Context, slug string) error {
	if err := s.redis.Del(ctx, key(slug)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if err := s.redis.SRem(ctx, "hubrise:conn:slugs", slug).Err(); err != nil {
		return fmt.Errorf("redis srem: %w", err)
	}
	return nil
}

// List returns all stored connections. Records that fail to decode are
// skipped rather than failing the whole listing.
func (s *Store) List(ctx context.Context) ([]Connection, error) {
	slugs, err := s.redis.SMembers(ctx, "hubrise:conn:slugs").Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}

	conns := make([]Connection, 0, len(slugs))
	for _, slug := range slugs {
		conn, err := s.Get(ctx, slug)
		if err != nil {
			continue
		}
		conns = append(conns, *conn)
	}
	return conns, nil
}
