package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/mattcoatsworth/cursormcp-datagen/pkg/generator"
)

// StubGenerator implements the worker's Generator interface in-process,
// without HTTP. The Script callback, when set, decides the outcome of each
// call; otherwise every call succeeds with the requested number of items.
type StubGenerator struct {
	mu    sync.Mutex
	calls int

	// Script receives the 1-based call number, category and count and
	// returns the items and error for that call.
	Script func(call int, category string, count int) ([]generator.Item, error)
}

// Generate implements the generation capability.
func (s *StubGenerator) Generate(ctx context.Context, category string, count int) ([]generator.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.calls++
	call := s.calls
	script := s.Script
	s.mu.Unlock()

	if script != nil {
		return script(call, category, count)
	}

	items := make([]generator.Item, count)
	for i := range items {
		items[i] = generator.Item{
			Query:    fmt.Sprintf("%s query %d-%d", category, call, i),
			Response: fmt.Sprintf("%s response %d-%d", category, call, i),
			Scenario: "stub",
		}
	}
	return items, nil
}

// Calls returns how many times Generate was invoked.
func (s *StubGenerator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
