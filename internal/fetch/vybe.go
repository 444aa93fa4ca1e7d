package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/token-features/internal/model"
)

// Defaults for the Vybe Network endpoints.
const (
	DefaultBaseURL        = "https://api.vybenetwork.xyz"
	DefaultStride         = "1 hour"
	DefaultHolderInterval = "day"
	DefaultHolderLookback = 7 * 24 * time.Hour

	endpointPriceHistory = "price_history"
	endpointMetadata     = "token_metadata"
	endpointHolders      = "holder_count"
)

// ClientOptions tunes the request parameters of a Client.
type ClientOptions struct {
	Stride         string
	HolderInterval string
	HolderLookback time.Duration

	// MaxRetries applies to price history and metadata; holder count is single-shot
	MaxRetries int

	Now func() time.Time
}

// Client retrieves price history, token metadata and holder counts.
type Client struct {
	fetcher        *Fetcher
	stride         string
	holderInterval string
	holderLookback time.Duration
	maxRetries     int
	now            func() time.Time
}

// NewClient creates a provider client on top of f.
func NewClient(f *Fetcher, opts ClientOptions) *Client {
	if opts.Stride == "" {
		opts.Stride = DefaultStride
	}
	if opts.HolderInterval == "" {
		opts.HolderInterval = DefaultHolderInterval
	}
	if opts.HolderLookback <= 0 {
		opts.HolderLookback = DefaultHolderLookback
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		fetcher:        f,
		stride:         opts.Stride,
		holderInterval: opts.HolderInterval,
		holderLookback: opts.HolderLookback,
		maxRetries:     opts.MaxRetries,
		now:            opts.Now,
	}
}

// PriceHistory fetches OHLCV candles for [start, end] at the configured stride.
// An empty response yields an empty envelope.
func (c *Client) PriceHistory(ctx context.Context, tokenID string, start, end time.Time) (model.PriceHistory, error) {
	var history model.PriceHistory

	payload, err := c.fetcher.Get(ctx, Request{
		Endpoint: endpointPriceHistory,
		Path:     "/price/" + url.PathEscape(tokenID) + "/token-quote-ohlcv",
		Query: url.Values{
			"stride":     {c.stride},
			"time_start": {strconv.FormatInt(start.Unix(), 10)},
			"time_end":   {strconv.FormatInt(end.Unix(), 10)},
		},
	}, c.maxRetries)
	if err != nil {
		return history, err
	}
	if payload == nil {
		return history, nil
	}

	if err := json.Unmarshal(payload, &history); err != nil {
		return history, fmt.Errorf("%w: decoding price history: %v", ErrDataUnavailable, err)
	}

	c.fetcher.logger.WithFields(logrus.Fields{"token_id": tokenID, "candles": len(history.Data)}).Debug("Received price history")
	return history, nil
}

// TokenMetadata fetches the current market snapshot of a token.
func (c *Client) TokenMetadata(ctx context.Context, tokenID string) (model.TokenMetadata, error) {
	var meta model.TokenMetadata

	payload, err := c.fetcher.Get(ctx, Request{
		Endpoint: endpointMetadata,
		Path:     "/token/" + url.PathEscape(tokenID),
	}, c.maxRetries)
	if err != nil {
		return meta, err
	}
	if payload == nil {
		return meta, fmt.Errorf("%w: empty token metadata", ErrDataUnavailable)
	}

	if err := json.Unmarshal(payload, &meta); err != nil {
		return meta, fmt.Errorf("%w: decoding token metadata: %v", ErrDataUnavailable, err)
	}
	return meta, nil
}

// HolderCount fetches the daily holder series and returns its latest value.
// It makes a single attempt; any failure returns a nil count and the error.
func (c *Client) HolderCount(ctx context.Context, tokenID string) (*int64, error) {
	end := c.now()
	payload, err := c.fetcher.Get(ctx, Request{
		Endpoint: endpointHolders,
		Path:     "/tokens/" + url.PathEscape(tokenID) + "/holders-ts",
		Query: url.Values{
			"interval":   {c.holderInterval},
			"time_start": {strconv.FormatInt(end.Add(-c.holderLookback).Unix(), 10)},
			"time_end":   {strconv.FormatInt(end.Unix(), 10)},
		},
	}, 1)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: empty holder series", ErrDataUnavailable)
	}

	var series model.HolderSeries
	if err := json.Unmarshal(payload, &series); err != nil {
		return nil, fmt.Errorf("%w: decoding holder series: %v", ErrDataUnavailable, err)
	}

	latest, ok := series.Latest()
	if !ok {
		return nil, fmt.Errorf("%w: holder series has no points", ErrDataUnavailable)
	}
	holders := latest.Holders
	return &holders, nil
}
