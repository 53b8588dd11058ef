package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/mattcoatsworth/cursormcp-datagen/pkg/dataset"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/store"
)

// MemStore is an in-memory store.Store with the same insert-if-absent
// semantics as the Redis implementation, plus failure injection for
// exercising the writer's per-item fallback path.
type MemStore struct {
	mu       sync.Mutex
	examples map[string]dataset.Example

	// FailBulk makes the next N UpsertMany calls fail as a whole.
	FailBulk int

	// FailIDs makes UpsertOne fail persistently for the given IDs.
	FailIDs map[string]bool

	// BulkCalls / ItemCalls track how often each path was taken.
	BulkCalls int
	ItemCalls int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		examples: make(map[string]dataset.Example),
		FailIDs:  make(map[string]bool),
	}
}

// Seed inserts n placeholder examples for a category, bypassing upsert
// accounting. Used to simulate pre-existing data.
func (m *MemStore) Seed(category string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("seed-%s-%d", category, i)
		m.examples[id] = dataset.Example{ID: id, Category: category}
	}
}

// UpsertMany implements store.Store.
func (m *MemStore) UpsertMany(ctx context.Context, examples []dataset.Example) ([]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.BulkCalls++

	if m.FailBulk > 0 {
		m.FailBulk--
		return nil, &store.WriteError{Retryable: true, Message: "injected bulk failure"}
	}

	// Validate before writing anything, matching the Redis implementation:
	// a bulk failure leaves the store untouched.
	for i, example := range examples {
		if example.ID == "" {
			return nil, fmt.Errorf("%w: example %d has empty id", store.ErrMalformedItem, i)
		}
	}

	inserted := make([]bool, len(examples))
	for i, example := range examples {
		if _, exists := m.examples[example.ID]; exists {
			continue
		}
		m.examples[example.ID] = example
		inserted[i] = true
	}
	return inserted, nil
}

// UpsertOne implements store.Store.
func (m *MemStore) UpsertOne(ctx context.Context, example dataset.Example) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemCalls++

	if example.ID == "" {
		return false, fmt.Errorf("%w: empty id", store.ErrMalformedItem)
	}
	if m.FailIDs[example.ID] {
		return false, &store.WriteError{Retryable: true, Message: "injected item failure"}
	}
	if _, exists := m.examples[example.ID]; exists {
		return false, nil
	}
	m.examples[example.ID] = example
	return true, nil
}

// CountAll implements store.Store.
func (m *MemStore) CountAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.examples)), nil
}

// CountCategory implements store.Store.
func (m *MemStore) CountCategory(ctx context.Context, category string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, example := range m.examples {
		if example.Category == category {
			count++
		}
	}
	return count, nil
}

// All returns a copy of every stored example.
func (m *MemStore) All() []dataset.Example {
	m.mu.Lock()
	defer m.mu.Unlock()
	examples := make([]dataset.Example, 0, len(m.examples))
	for _, example := range m.examples {
		examples = append(examples, example)
	}
	return examples
}

// Get returns a stored example by ID.
func (m *MemStore) Get(id string) (dataset.Example, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	example, ok := m.examples[id]
	return example, ok
}
