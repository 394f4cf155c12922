package main

import (
	"context"
	"os"
	"time"

	"github.com/evyataryagoni/geolookup/internal/client"
	"github.com/evyataryagoni/geolookup/internal/config"
	"github.com/evyataryagoni/geolookup/internal/contract"
	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/metrics"
)

const suiteTimeout = 2 * time.Minute

// Runs the contract suite against GEOLOOKUP_BASE_URL and exits non-zero when
// any check fails.
func main() {
	appConfig := config.Load()
	log := logger.New(logger.Config{Level: appConfig.LogLevel, Pretty: appConfig.LogPretty})

	exp, err := contract.LoadExpectations(appConfig.ExpectationsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load expectations")
	}

	lookupClient := client.NewGeoLookupClient(appConfig.BaseURL,
		client.WithLogger(log),
		client.WithMetrics(metrics.New()),
	)
	echoClient := client.NewIPEchoClient(appConfig.IPEchoURL, nil)

	ctx, cancel := context.WithTimeout(context.Background(), suiteTimeout)
	defer cancel()

	log.Info().Str("base_url", appConfig.BaseURL).Msg("Running contract suite")
	results := contract.NewSuite(lookupClient, echoClient, exp, log).Run(ctx)

	for _, r := range results {
		event := log.Info()
		if !r.Passed() {
			event = log.Error().Err(r.Err)
		}
		event.Str("check", r.Name).Bool("passed", r.Passed()).Dur("duration", r.Duration).Msg("Result")
	}

	if len(contract.Failed(results)) > 0 {
		os.Exit(1)
	}
}
