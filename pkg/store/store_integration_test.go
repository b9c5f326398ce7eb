//go:build integration

package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		container.Terminate(ctx)
	}

	return client, cleanup
}

func TestStoreSaveGetRoundTrip(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	s := New(client)
	ctx := context.Background()

	conn := Connection{
		Slug:        "pizza-palace",
		AccessToken: "tok-123",
		AccountID:   "acc-1",
		LocationID:  "loc-1",
		CatalogID:   "cat-1",
		RawPayload:  json.RawMessage(`{"scope":"orders.write"}`),
	}

	if err := s.Save(ctx, conn); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Get(ctx, "pizza-palace")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.AccessToken != "tok-123" || got.LocationID != "loc-1" {
		t.Errorf("Got %+v, want saved connection", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set")
	}
}

func TestStoreSavePreservesCreatedAt(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	s := New(client)
	ctx := context.Background()

	conn := Connection{Slug: "pizza-palace", AccessToken: "tok-1", AccountID: "acc-1", LocationID: "loc-1"}
	if err := s.Save(ctx, conn); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	first, _ := s.Get(ctx, "pizza-palace")
	time.Sleep(10 * time.Millisecond)

	conn.AccessToken = "tok-2"
	if err := s.Save(ctx, conn); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	second, _ := s.Get(ctx, "pizza-palace")
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on update: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt not refreshed: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
	if second.AccessToken != "tok-2" {
		t.Errorf("AccessToken = %q, want tok-2", second.AccessToken)
	}
}

func TestStoreGetMissing(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	s := New(client)

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStoreDeleteAndList(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	s := New(client)
	ctx := context.Background()

	for _, slug := range []string{"one", "two", "three"} {
		conn := Connection{Slug: slug, AccessToken: "tok", AccountID: "acc", LocationID: "loc"}
		if err := s.Save(ctx, conn); err != nil {
			t.Fatalf("Save %s failed: %v", slug, err)
		}
	}

	conns, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(conns) != 3 {
		t.Errorf("Got %d connections, want 3", len(conns))
	}

	if err := s.Delete(ctx, "two"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	conns, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List after delete failed: %v", err)
	}
	if len(conns) != 2 {
		t.Errorf("Got %d connections after delete, want 2", len(conns))
	}

	if _, err := s.Get(ctx, "two"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
