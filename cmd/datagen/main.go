package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mattcoatsworth/cursormcp-datagen/pkg/generator"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/logging"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/pipeline"
	"github.com/mattcoatsworth/cursormcp-datagen/pkg/store"
)

func main() {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
		Output: os.Stderr,
	})

	// Configuration from environment
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	serviceURL := getEnv("GENERATION_URL", "")
	apiKey := getEnv("GENERATION_API_KEY", "")
	model := getEnv("GENERATION_MODEL", "gpt-4o-mini")

	targetTotal := getEnvInt("TARGET_TOTAL", 1000)
	categories := splitCSV(getEnv("CATEGORIES", ""))
	concurrency := getEnvInt("CONCURRENCY", 4)
	batchSize := getEnvInt("BATCH_SIZE", 10)
	maxCalls := getEnvInt("MAX_CONCURRENT_CALLS", 5)
	minInterval := getEnvDuration("MIN_CALL_INTERVAL", 200*time.Millisecond)
	deadline := getEnvDuration("RUN_DEADLINE", 0)
	allowFallback := getEnv("ALLOW_FALLBACK", "") == "true"

	// Setup Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("redis_url", redisURL).Msg("Failed to connect to Redis")
	}
	log.Info().Str("redis_url", redisURL).Msg("Connected to Redis")

	// Generation client (missing credentials are fatal before any work)
	genCfg := generator.DefaultConfig(serviceURL, apiKey)
	genCfg.Model = model
	gen, err := generator.New(genCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create generation client")
	}

	orchestrator, err := pipeline.New(gen, store.NewRedisStore(redisClient), pipeline.Config{
		TargetTotal:        targetTotal,
		Categories:         categories,
		Concurrency:        concurrency,
		BatchSize:          batchSize,
		MaxPerCall:         getEnvInt("MAX_PER_CALL", 5),
		MaxConcurrentCalls: maxCalls,
		MinCallInterval:    minInterval,
		CallTimeout:        getEnvDuration("CALL_TIMEOUT", 90*time.Second),
		WritePause:         getEnvDuration("WRITE_PAUSE", 100*time.Millisecond),
		Model:              model,
		AllowFallback:      allowFallback,
		Deadline:           deadline,
		ProgressInterval:   getEnvDuration("PROGRESS_INTERVAL", 10*time.Second),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid pipeline configuration")
	}

	// SIGINT/SIGTERM cancel the run; in-flight work drains cleanly
	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	snapshot, err := orchestrator.Run(runCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("Run failed")
	}

	event := log.Info().
		Int64("target_total", snapshot.TargetTotal).
		Int64("already_existing", snapshot.AlreadyExisting).
		Int64("written", snapshot.Written).
		Int64("failed", snapshot.Failed).
		Int64("fallback", snapshot.Fallback)
	if shortfalls := snapshot.Shortfalls(); len(shortfalls) > 0 {
		event = event.Interface("short_categories", shortfalls)
	}
	event.Msg("Final run progress")

	if snapshot.Failed > 0 {
		// Re-running is safe and cheap: planning skips what already exists
		log.Warn().Msg("Some examples failed permanently; re-run to fill the gap")
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Fatal().Str("key", key).Str("value", value).Msg("Invalid integer environment variable")
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Fatal().Str("key", key).Str("value", value).Msg("Invalid duration environment variable")
	}
	return parsed
}

func splitCSV(value string) []string {
	var parts []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
