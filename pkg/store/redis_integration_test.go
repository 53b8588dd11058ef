//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mattcoatsworth/cursormcp-datagen/pkg/dataset"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func makeExample(category string) dataset.Example {
	return dataset.Example{
		ID:       uuid.NewString(),
		Category: category,
		Query:    "query",
		Response: "response",
	}
}

func TestRedisStore_UpsertManyIdempotent(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	st := NewRedisStore(client)
	ctx := context.Background()

	batch := []dataset.Example{makeExample("a"), makeExample("a"), makeExample("b")}

	inserted, err := st.UpsertMany(ctx, batch)
	if err != nil {
		t.Fatalf("UpsertMany failed: %v", err)
	}
	for i, ok := range inserted {
		if !ok {
			t.Errorf("inserted[%d] = false on first write", i)
		}
	}

	// Re-submitting the same batch must be a no-op
	inserted, err = st.UpsertMany(ctx, batch)
	if err != nil {
		t.Fatalf("UpsertMany rewrite failed: %v", err)
	}
	for i, ok := range inserted {
		if ok {
			t.Errorf("inserted[%d] = true on rewrite, want false", i)
		}
	}

	count, err := st.CountAll(ctx)
	if err != nil {
		t.Fatalf("CountAll failed: %v", err)
	}
	if count != 3 {
		t.Errorf("CountAll = %d, want 3", count)
	}
}

func TestRedisStore_CategoryCounts(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	st := NewRedisStore(client)
	ctx := context.Background()

	batch := []dataset.Example{makeExample("a"), makeExample("a"), makeExample("b")}
	if _, err := st.UpsertMany(ctx, batch); err != nil {
		t.Fatalf("UpsertMany failed: %v", err)
	}

	countA, err := st.CountCategory(ctx, "a")
	if err != nil {
		t.Fatalf("CountCategory failed: %v", err)
	}
	if countA != 2 {
		t.Errorf("CountCategory(a) = %d, want 2", countA)
	}

	countMissing, err := st.CountCategory(ctx, "missing")
	if err != nil {
		t.Fatalf("CountCategory failed: %v", err)
	}
	if countMissing != 0 {
		t.Errorf("CountCategory(missing) = %d, want 0", countMissing)
	}
}

func TestRedisStore_DeleteCategory(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	st := NewRedisStore(client)
	ctx := context.Background()

	batch := []dataset.Example{makeExample("a"), makeExample("a"), makeExample("b")}
	if _, err := st.UpsertMany(ctx, batch); err != nil {
		t.Fatalf("UpsertMany failed: %v", err)
	}

	deleted, err := st.DeleteCategory(ctx, "a")
	if err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	count, _ := st.CountAll(ctx)
	if count != 1 {
		t.Errorf("CountAll = %d, want 1 after deletion", count)
	}
	countA, _ := st.CountCategory(ctx, "a")
	if countA != 0 {
		t.Errorf("CountCategory(a) = %d, want 0 after deletion", countA)
	}
}

func TestRedisStore_UpsertOneAndAll(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	st := NewRedisStore(client).WithKeyPrefix("datagen-test")
	ctx := context.Background()

	example := makeExample("a")

	inserted, err := st.UpsertOne(ctx, example)
	if err != nil {
		t.Fatalf("UpsertOne failed: %v", err)
	}
	if !inserted {
		t.Error("inserted = false on first write")
	}

	inserted, err = st.UpsertOne(ctx, example)
	if err != nil {
		t.Fatalf("UpsertOne rewrite failed: %v", err)
	}
	if inserted {
		t.Error("inserted = true on rewrite, want false")
	}

	all, err := st.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len(All) = %d, want 1", len(all))
	}
	if all[0].ID != example.ID || all[0].Query != example.Query {
		t.Errorf("Stored example = %+v, want %+v", all[0], example)
	}
}
