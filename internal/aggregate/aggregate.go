// Package aggregate turns one token id into a FeatureRecord: it drives the
// retrievers, runs the feature calculators and hands the result to a sink.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/token-features/internal/features"
	"github.com/yourorg/token-features/internal/model"
	tracing "github.com/yourorg/token-features/internal/otel"
	"github.com/yourorg/token-features/internal/sink"
	"github.com/yourorg/token-features/internal/validation"
)

// DefaultWindow is the trailing price window of a record.
const DefaultWindow = 24 * time.Hour

// Retriever is the upstream data the Aggregator consumes.
type Retriever interface {
	TokenMetadata(ctx context.Context, tokenID string) (model.TokenMetadata, error)
	PriceHistory(ctx context.Context, tokenID string, start, end time.Time) (model.PriceHistory, error)
	HolderCount(ctx context.Context, tokenID string) (*int64, error)
}

// LabelSource supplies the categorical fields of a record.
type LabelSource interface {
	Labels(ctx context.Context, tokenID string, meta model.TokenMetadata) (model.Labels, error)
}

// MetadataLabels takes name, symbol and logo from the token metadata snapshot.
type MetadataLabels struct{}

func (MetadataLabels) Labels(_ context.Context, _ string, meta model.TokenMetadata) (model.Labels, error) {
	return model.Labels{LogoURI: meta.LogoURL, Name: meta.Name, Symbol: meta.Symbol}, nil
}

// Options configures an Aggregator.
type Options struct {
	Window time.Duration

	// Concurrent runs the three retrievals in parallel
	Concurrent bool

	Labels  LabelSource
	Sink    sink.Sink
	Logger  *logrus.Entry
	Metrics *Metrics
	Now     func() time.Time
}

// Aggregator builds feature records, one token id per call. It holds no
// per-token state, so one instance may serve concurrent calls.
type Aggregator struct {
	retriever  Retriever
	window     time.Duration
	concurrent bool
	labels     LabelSource
	sink       sink.Sink
	logger     *logrus.Entry
	metrics    *Metrics
	now        func() time.Time
}

// New creates an Aggregator reading from r.
func New(r Retriever, opts Options) *Aggregator {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Labels == nil {
		opts.Labels = MetadataLabels{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{
		retriever:  r,
		window:     opts.Window,
		concurrent: opts.Concurrent,
		labels:     opts.Labels,
		sink:       opts.Sink,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		now:        opts.Now,
	}
}

// inputs collects the three retrievals of one token.
type inputs struct {
	meta       model.TokenMetadata
	metaErr    error
	history    model.PriceHistory
	historyErr error
	holders    *int64
	holdersErr error
}

// Build fetches the token's data and computes its record. Metadata or price
// history failures abort the token; a holder count failure leaves the count
// null.
func (a *Aggregator) Build(ctx context.Context, tokenID string) (model.FeatureRecord, error) {
	ctx, span := tracing.Tracer().Start(ctx, "aggregate.Build",
		trace.WithAttributes(attribute.String("token_id", tokenID)))
	defer span.End()

	log := a.logger.WithFields(logrus.Fields{
		"token_id": tokenID,
		"run_id":   uuid.NewString(),
	})

	end := a.now()
	start := end.Add(-a.window)

	var in inputs
	if a.concurrent {
		in = a.fetchConcurrently(ctx, tokenID, start, end)
	} else {
		in = a.fetchSequentially(ctx, tokenID, start, end)
	}

	if in.metaErr != nil {
		err := fmt.Errorf("token %s: fetching metadata: %w", tokenID, in.metaErr)
		log.WithError(in.metaErr).Error("Failed to fetch token details")
		span.SetStatus(codes.Error, err.Error())
		return model.FeatureRecord{}, err
	}
	if in.historyErr != nil {
		err := fmt.Errorf("token %s: fetching price history: %w", tokenID, in.historyErr)
		log.WithError(in.historyErr).Error("Failed to fetch token OHLCV data")
		span.SetStatus(codes.Error, err.Error())
		return model.FeatureRecord{}, err
	}
	if in.holdersErr != nil {
		log.WithError(in.holdersErr).Warn("Holder count unavailable, leaving it empty")
	}

	series := in.history.Data
	if !validation.IsAscending(series) {
		log.Warn("Price series is not in ascending time order")
	}

	labels, err := a.labels.Labels(ctx, tokenID, in.meta)
	if err != nil {
		log.WithError(err).Warn("Label lookup failed, leaving labels empty")
		labels = model.Labels{}
	}

	record := model.NewFeatureRecord(
		in.meta.Decimals(),
		features.Liquidity(in.meta),
		features.ChangePercent(series),
		in.meta.USDVolume(),
		features.Volatility(series),
		in.holders,
		labels,
	)

	span.SetAttributes(attribute.Int("candles", len(series)), attribute.Float64("volatility", record.Volatility))
	log.WithFields(logrus.Fields{
		"candles":    len(series),
		"volatility": record.Volatility,
		"liquidity":  record.Liquidity,
	}).Info("Feature record built")

	return record, nil
}

// Process builds the record, validates it and writes it to the sink. When
// the write fails the computed record is still returned, with an error
// matching sink.ErrPersist.
func (a *Aggregator) Process(ctx context.Context, tokenID string) (model.FeatureRecord, error) {
	record, err := a.Build(ctx, tokenID)
	if err != nil {
		a.metrics.record(statusFailed)
		return record, err
	}

	if err := validation.CheckRecord(record); err != nil {
		a.metrics.record(statusInvalid)
		return record, fmt.Errorf("token %s: %w", tokenID, err)
	}

	if a.sink != nil {
		if err := a.sink.Write(ctx, tokenID, record); err != nil {
			if !errors.Is(err, sink.ErrPersist) {
				err = fmt.Errorf("%w: %w", sink.ErrPersist, err)
			}
			a.logger.WithField("token_id", tokenID).WithError(err).Error("Failed to persist feature record")
			tracing.RecordError(ctx, err)
			a.metrics.record(statusPersistFailed)
			return record, fmt.Errorf("token %s: %w", tokenID, err)
		}
	}

	a.metrics.record(statusBuilt)
	return record, nil
}

func (a *Aggregator) fetchSequentially(ctx context.Context, tokenID string, start, end time.Time) inputs {
	var in inputs

	in.meta, in.metaErr = a.retriever.TokenMetadata(ctx, tokenID)
	if in.metaErr != nil {
		return in
	}

	in.history, in.historyErr = a.retriever.PriceHistory(ctx, tokenID, start, end)
	if in.historyErr != nil {
		return in
	}

	in.holders, in.holdersErr = a.retriever.HolderCount(ctx, tokenID)
	return in
}

// fetchConcurrently runs the three independent retrievals in parallel. Each
// goroutine writes only its own fields of in.
func (a *Aggregator) fetchConcurrently(ctx context.Context, tokenID string, start, end time.Time) inputs {
	var (
		in inputs
		wg sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		in.meta, in.metaErr = a.retriever.TokenMetadata(ctx, tokenID)
	}()
	go func() {
		defer wg.Done()
		in.history, in.historyErr = a.retriever.PriceHistory(ctx, tokenID, start, end)
	}()
	go func() {
		defer wg.Done()
		in.holders, in.holdersErr = a.retriever.HolderCount(ctx, tokenID)
	}()
	wg.Wait()

	return in
}
