package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evyataryagoni/geolookup/internal/config"
	"github.com/evyataryagoni/geolookup/internal/handler"
	"github.com/evyataryagoni/geolookup/internal/limiter"
	"github.com/evyataryagoni/geolookup/internal/listener"
	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/metrics"
	"github.com/evyataryagoni/geolookup/internal/resolver"
	"github.com/evyataryagoni/geolookup/internal/router"
	"github.com/evyataryagoni/geolookup/internal/service"
	"github.com/evyataryagoni/geolookup/internal/store"
)

const (
	resolveTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	appConfig := config.Load()

	appLogger := setupLogger(appConfig)
	if err := appConfig.Validate(); err != nil {
		appLogger.Fatal().Err(err).Msg("Invalid configuration")
	}

	metricsCollector := metrics.New()

	dataStore := setupDataStore(appConfig, appLogger)
	rateLimiter := setupRateLimiter(appConfig, appLogger)
	defer rateLimiter.Close()

	geoService := service.NewGeoService(
		store.Instrument(dataStore, appConfig.DatastoreType, metricsCollector),
		resolver.NewDNSResolver(resolveTimeout),
		metricsCollector,
		appLogger,
	)
	defer geoService.Close()

	geoHandler := handler.NewGeoHandler(geoService, metricsCollector)
	appRouter := router.SetupRouter(geoHandler, rateLimiter, metricsCollector, appLogger,
		router.TrustProxyHeaders(appConfig.ProxyHeadersTrusted()),
	)

	startServer(appConfig, appRouter, appLogger)
}

func setupLogger(appConfig *config.Config) *logger.Logger {
	appLogger := logger.New(logger.Config{
		Level:  appConfig.LogLevel,
		Pretty: appConfig.LogPretty,
	})

	appLogger.Info().Msg("Starting geolookup reference server...")
	appLogger.Info().
		Str("port", appConfig.Port).
		Str("rate_limiter_type", appConfig.RateLimitType).
		Int("rate_limit", appConfig.RateLimit).
		Int("rate_limit_window", appConfig.RateLimitWindow).
		Str("datastore_type", appConfig.DatastoreType).
		Str("datastore_path", appConfig.DatastorePath).
		Msg("Configuration loaded")

	return appLogger
}

// setupDataStore opens the configured backend: csv, mysql, redis or mmdb
func setupDataStore(appConfig *config.Config, log *logger.Logger) store.Store {
	switch appConfig.DatastoreType {
	case "csv":
		csvStore, err := store.NewCSVStore(appConfig.DatastorePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize CSV store")
		}
		log.Info().Int("records", csvStore.Len()).Msg("CSV store initialized")
		return csvStore

	case "mysql":
		mysqlStore, err := store.NewMySQLStore(appConfig.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize MySQL store")
		}
		log.Info().Msg("MySQL store initialized")
		return mysqlStore

	case "redis":
		redisStore, err := store.NewRedisStore(appConfig.RedisAddr, appConfig.RedisPassword, appConfig.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Redis store")
		}
		log.Info().Str("addr", appConfig.RedisAddr).Msg("Redis store initialized")
		loadRedisDataIfEmpty(redisStore, appConfig.DatastorePath, log)
		return redisStore

	case "mmdb":
		mmdbStore, err := store.NewMMDBStore(appConfig.DatastorePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open MaxMind database")
		}
		log.Info().Msg("MaxMind store initialized")
		return mmdbStore

	default:
		log.Fatal().Str("type", appConfig.DatastoreType).Msg("Unknown datastore type")
		return nil
	}
}

// loadRedisDataIfEmpty seeds an empty Redis from the CSV dataset
func loadRedisDataIfEmpty(redisStore *store.RedisStore, csvPath string, log *logger.Logger) {
	isEmpty, err := redisStore.IsEmpty()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to check if Redis is empty")
		return
	}
	if !isEmpty {
		return
	}

	log.Info().Str("path", csvPath).Msg("Redis is empty, loading dataset")
	n, err := redisStore.LoadFromCSV(csvPath)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load dataset into Redis")
		return
	}
	log.Info().Int("records", n).Msg("Dataset loaded into Redis")
}

func setupRateLimiter(appConfig *config.Config, log *logger.Logger) limiter.Limiter {
	effectiveRate := appConfig.EffectiveRate()

	rateLimiter, err := limiter.NewLimiter(limiter.LimiterConfig{
		Type:              appConfig.RateLimitType,
		RequestsPerSecond: effectiveRate,
		RedisAddr:         appConfig.RedisAddr,
		RedisPassword:     appConfig.RedisPassword,
		RedisDB:           appConfig.RedisDB,
		Logger:            log.WithComponent("limiter"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rate limiter")
	}

	log.Info().
		Str("type", appConfig.RateLimitType).
		Float64("requests_per_second", effectiveRate).
		Msg("Rate limiter initialized")

	return rateLimiter
}

// startServer serves until SIGINT or SIGTERM, then drains in-flight requests
func startServer(appConfig *config.Config, appRouter http.Handler, log *logger.Logger) {
	l, err := listener.Listen(":"+appConfig.Port, appConfig.ProxyProtocol, listener.DefaultHeaderTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open listener")
	}

	srv := &http.Server{
		Handler:           appRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().
			Str("port", appConfig.Port).
			Bool("proxy_protocol", appConfig.ProxyProtocol).
			Str("lookup", "http://localhost:"+appConfig.Port+"/json/8.8.8.8").
			Str("health_check", "http://localhost:"+appConfig.Port+"/health").
			Str("metrics", "http://localhost:"+appConfig.Port+"/metrics").
			Msg("Server is running")

		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
