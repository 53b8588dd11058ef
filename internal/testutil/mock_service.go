// Package testutil provides testing utilities for the generation pipeline.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServiceResponse defines the behavior for a mock generation endpoint.
type MockServiceResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockService is a configurable mock generation service for testing.
type MockService struct {
	server *httptest.Server
	mu     sync.Mutex

	// FailFirst makes the first N requests fail with a 500 before the
	// service recovers.
	FailFirst int

	// Override forces a fixed response for every request when set.
	Override *MockServiceResponse

	// Tracking
	RequestCount int
	Categories   []string
}

// NewMockService creates a mock generation service. By default every request
// succeeds and returns exactly the requested number of items.
func NewMockService() *MockService {
	mock := &MockService{}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Category string `json:"category"`
			Count    int    `json:"count"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		mock.mu.Lock()
		mock.RequestCount++
		mock.Categories = append(mock.Categories, req.Category)
		failing := mock.FailFirst > 0
		if failing {
			mock.FailFirst--
		}
		override := mock.Override
		mock.mu.Unlock()

		if override != nil {
			if override.Delay > 0 {
				time.Sleep(override.Delay)
			}
			w.WriteHeader(override.StatusCode)
			fmt.Fprint(w, override.Body)
			return
		}

		if failing {
			http.Error(w, "temporarily unavailable", http.StatusInternalServerError)
			return
		}

		items := make([]map[string]string, req.Count)
		for i := range items {
			items[i] = map[string]string{
				"query":      fmt.Sprintf("%s query %d-%d", req.Category, mock.requestCount(), i),
				"response":   fmt.Sprintf("%s response %d-%d", req.Category, mock.requestCount(), i),
				"scenario":   "mock",
				"complexity": "simple",
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	}))

	return mock
}

func (m *MockService) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RequestCount
}

// URL returns the mock server URL.
func (m *MockService) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockService) Close() {
	m.server.Close()
}

// Requests returns the number of requests served so far.
func (m *MockService) Requests() int {
	return m.requestCount()
}
