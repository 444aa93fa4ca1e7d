// Package app assembles the pipeline from a Config: fetcher, provider
// client, sinks and aggregator.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/token-features/internal/aggregate"
	"github.com/yourorg/token-features/internal/config"
	"github.com/yourorg/token-features/internal/fetch"
	"github.com/yourorg/token-features/internal/security"
	"github.com/yourorg/token-features/internal/sink"
)

// App is a wired pipeline. Close releases the sink connections.
type App struct {
	Aggregator *aggregate.Aggregator
	Sinks      sink.Multi

	closers []func()
}

// New wires the pipeline described by cfg. Collectors are registered on reg
// when it is non-nil.
func New(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (*App, error) {
	a := &App{}
	log := logrus.WithField("component", "app")

	var limiter *rate.Limiter
	if cfg.UpstreamRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.UpstreamRPS), cfg.UpstreamBurst)
		log.Infof("Upstream throttled to %v req/s, burst %d", cfg.UpstreamRPS, cfg.UpstreamBurst)
	}

	var fetchMetrics *fetch.Metrics
	var aggMetrics *aggregate.Metrics
	if reg != nil {
		fetchMetrics = fetch.NewMetrics(reg)
		aggMetrics = aggregate.NewMetrics(reg)
	}

	fetcher := fetch.NewFetcher(fetch.Options{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		MaxRetries:  cfg.MaxRetries,
		BackoffBase: cfg.BackoffBase,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		Limiter:     limiter,
		Logger:      logrus.WithField("component", "fetch"),
		Metrics:     fetchMetrics,
	})
	client := fetch.NewClient(fetcher, fetch.ClientOptions{
		Stride:         cfg.PriceStride,
		HolderInterval: cfg.HolderInterval,
		HolderLookback: cfg.HolderLookback,
		MaxRetries:     cfg.MaxRetries,
	})

	if err := a.openSinks(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	a.Aggregator = aggregate.New(client, aggregate.Options{
		Window:     cfg.PriceWindow,
		Concurrent: cfg.ConcurrentFetch,
		Sink:       a.Sinks,
		Logger:     logrus.WithField("component", "aggregate"),
		Metrics:    aggMetrics,
	})

	log.WithFields(logrus.Fields{
		"base_url":    cfg.BaseURL,
		"max_retries": cfg.MaxRetries,
		"window":      cfg.PriceWindow,
		"concurrent":  cfg.ConcurrentFetch,
		"sinks":       a.Sinks.Name(),
	}).Info("Pipeline initialized")

	return a, nil
}

func (a *App) openSinks(ctx context.Context, cfg config.Config) error {
	if cfg.OutputPath != "" {
		a.Sinks = append(a.Sinks, sink.NewFileSink(cfg.OutputPath))
	}

	if cfg.RedisAddr != "" {
		rs := sink.NewRedisSink(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		a.Sinks = append(a.Sinks, rs)
		a.closers = append(a.closers, func() { _ = rs.Close() })
	}

	if cfg.DatabaseURL != "" {
		ps, err := sink.NewPostgresSink(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("opening postgres sink: %w", err)
		}
		a.closers = append(a.closers, ps.Close)
		if err := ps.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("preparing postgres schema: %w", err)
		}
		a.Sinks = append(a.Sinks, ps)
	}

	if cfg.WebhookURL != "" {
		ws := sink.NewWebhookSink(cfg.WebhookURL, cfg.WebhookAPIKey)
		if cfg.WebhookSigningKey != "" {
			signer, err := security.NewSigner(cfg.WebhookSigningKey)
			if err != nil {
				return fmt.Errorf("loading webhook signing key: %w", err)
			}
			ws.WithSigner(signer)
		}
		a.Sinks = append(a.Sinks, ws)
	}
	return nil
}

// Close releases every opened sink.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
