// Package generator provides the HTTP client for the external text-generation
// service. The service itself is opaque to the pipeline: the client sends a
// category and a count, gets back raw items, and classifies failures so the
// retry layer can decide what to do with them.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for generation calls.
var (
	generationRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagen_generation_requests_total",
		Help: "Total generation requests by category and status",
	}, []string{"category", "status"})

	generationRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datagen_generation_request_duration_seconds",
		Help:    "Generation request duration in seconds by category",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"category"})

	generationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagen_generation_errors_total",
		Help: "Total generation errors by class",
	}, []string{"class"})
)

// Item is one raw item returned by the generation service, before validation.
type Item struct {
	Query      string `json:"query"`
	Response   string `json:"response"`
	Scenario   string `json:"scenario,omitempty"`
	Complexity string `json:"complexity,omitempty"`
}

// Config holds the generation client configuration.
type Config struct {
	// BaseURL of the generation service, e.g. "https://api.example.com".
	BaseURL string

	// APIKey is the bearer token for the service (REQUIRED).
	APIKey string

	// Model identifies which model the service should use. Echoed into
	// example metadata downstream.
	Model string

	// Timeout bounds a single generation call.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, apiKey string) Config {
	return Config{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   "gpt-4o-mini",
		Timeout: 60 * time.Second,
	}
}

// Client calls the external generation service.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new generation client. Missing credentials are a
// configuration error surfaced before any work starts.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("generation service base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generation service API key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "generator").Logger(),
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.config.Model
}

// generateRequest is the wire request for one generation call.
type generateRequest struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	Model    string `json:"model,omitempty"`
}

// generateResponse is the wire response for one generation call.
type generateResponse struct {
	Items []Item `json:"items"`
}

// Generate requests count items for the given category. Failures are returned
// as *GenerationError so the caller can classify them for retry.
func (c *Client) Generate(ctx context.Context, category string, count int) ([]Item, error) {
	startTime := time.Now()
	defer func() {
		generationRequestDuration.WithLabelValues(category).Observe(time.Since(startTime).Seconds())
	}()

	body, err := json.Marshal(generateRequest{
		Category: category,
		Count:    count,
		Model:    c.config.Model,
	})
	if err != nil {
		return nil, &GenerationError{Retryable: false, Message: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, &GenerationError{Retryable: false, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	c.logger.Debug().
		Str("category", category).
		Int("count", count).
		Msg("Executing generation request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		generationRequestsTotal.WithLabelValues(category, "network_error").Inc()
		generationErrorsTotal.WithLabelValues("network").Inc()
		c.logger.Error().Err(err).Str("category", category).Msg("Generation request failed")
		return nil, &GenerationError{Retryable: true, Message: "http request", Err: err}
	}
	defer resp.Body.Close()

	generationRequestsTotal.WithLabelValues(category, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		genErr := c.errorFromStatus(resp, category)
		generationErrorsTotal.WithLabelValues(string(ClassifyError(genErr))).Inc()
		return nil, genErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		generationErrorsTotal.WithLabelValues("network").Inc()
		return nil, &GenerationError{Retryable: true, Message: "read response body", Err: err}
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		// Malformed model output is retryable: the next attempt may produce
		// valid JSON.
		generationErrorsTotal.WithLabelValues("malformed").Inc()
		c.logger.Warn().
			Str("category", category).
			Int("bytes", len(data)).
			Msg("Unparseable generation response")
		return nil, &GenerationError{StatusCode: resp.StatusCode, Retryable: true, Message: "unparseable response", Err: err}
	}

	c.logger.Debug().
		Str("category", category).
		Int("requested", count).
		Int("returned", len(parsed.Items)).
		Msg("Generation request complete")

	return parsed.Items, nil
}

// errorFromStatus builds a GenerationError from an HTTP error response.
func (c *Client) errorFromStatus(resp *http.Response, category string) *GenerationError {
	retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests

	c.logger.Warn().
		Str("category", category).
		Int("status", resp.StatusCode).
		Bool("retryable", retryable).
		Msg("Generation service error")

	return &GenerationError{
		StatusCode: resp.StatusCode,
		Retryable:  retryable,
		Message:    resp.Status,
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
