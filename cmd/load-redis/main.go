package main

import (
	"github.com/evyataryagoni/geolookup/internal/config"
	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/store"
)

// Loads the CSV dataset at DATASTORE_PATH into Redis.
// Usage: go run ./cmd/load-redis
func main() {
	appConfig := config.Load()
	log := logger.New(logger.Config{Level: appConfig.LogLevel, Pretty: true})

	log.Info().Str("addr", appConfig.RedisAddr).Msg("Connecting to Redis")
	redisStore, err := store.NewRedisStore(appConfig.RedisAddr, appConfig.RedisPassword, appConfig.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisStore.Close()

	n, err := redisStore.LoadFromCSV(appConfig.DatastorePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", appConfig.DatastorePath).Msg("Failed to load CSV data")
	}

	log.Info().
		Int("records", n).
		Str("path", appConfig.DatastorePath).
		Msg("Data loaded; start the server with DATASTORE_TYPE=redis")
}
