// Command features builds feature records for a list of token ids and
// writes them to the configured sinks. Ids come from the arguments or from
// TOKEN_IDS. A failed token is logged and skipped; the exit status is
// non-zero when any token failed.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/token-features/internal/app"
	"github.com/yourorg/token-features/internal/config"
	"github.com/yourorg/token-features/internal/fetch"
	"github.com/yourorg/token-features/internal/logging"
	"github.com/yourorg/token-features/internal/otel"
	"github.com/yourorg/token-features/internal/sink"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.LoadFromFile(config.GetEnvOrDefault("ENV_FILE", ".env"))
	if err != nil {
		logrus.Errorf("Configuration error: %v", err)
		return 2
	}
	logging.Setup(cfg.LogFormat, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logrus.Errorf("Invalid configuration: %v", err)
		return 2
	}

	tokenIDs := args
	if len(tokenIDs) == 0 {
		tokenIDs = cfg.TokenIDs
	}
	if len(tokenIDs) == 0 {
		logrus.Error("No token ids given: pass them as arguments or set TOKEN_IDS")
		return 2
	}

	shutdown := otel.InitTracer(cfg)
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.New(ctx, cfg, nil)
	if err != nil {
		logrus.Errorf("Failed to initialize pipeline: %v", err)
		return 1
	}
	defer pipeline.Close()

	failed := 0
	for i, id := range tokenIDs {
		if ctx.Err() != nil {
			logrus.Warn("Interrupted, skipping remaining tokens")
			failed += len(tokenIDs) - i
			break
		}

		log := logrus.WithField("token_id", id)
		record, err := pipeline.Aggregator.Process(ctx, id)
		switch {
		case err == nil:
			log.WithField("volatility", record.Volatility).Info("Data saved")
		case errors.Is(err, sink.ErrPersist):
			log.WithError(err).Error("Record computed but not persisted")
			failed++
		case errors.Is(err, fetch.ErrUnavailable), errors.Is(err, fetch.ErrDataUnavailable), fetch.IsTransport(err):
			log.WithError(err).Error("Upstream data unavailable, skipping token")
			failed++
		default:
			log.WithError(err).Error("Failed to process token")
			failed++
		}
	}

	logrus.WithFields(logrus.Fields{
		"tokens": len(tokenIDs),
		"failed": failed,
	}).Info("Run finished")

	if failed > 0 {
		return 1
	}
	return 0
}
