package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yourorg/token-features/internal/model"
)

const (
	signatureHeader = "X-Signature"
	signerHeader    = "X-Signer"
)

// PayloadSigner signs the exact body bytes of a webhook post.
type PayloadSigner interface {
	Sign(body []byte) (string, error)
	Address() string
}

// WebhookSink posts each record to an HTTP endpoint.
type WebhookSink struct {
	url        string
	apiKey     string
	signer     PayloadSigner
	httpClient *http.Client
}

// webhookPayload is the body posted for every record.
type webhookPayload struct {
	TokenID    string              `json:"token_id"`
	Record     model.FeatureRecord `json:"record"`
	ExportTime string              `json:"export_time"`
}

// NewWebhookSink creates a sink posting to url with an optional bearer key.
func NewWebhookSink(url, apiKey string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// WithSigner makes the sink sign every body and send the signature and
// signer address as headers.
func (s *WebhookSink) WithSigner(signer PayloadSigner) *WebhookSink {
	s.signer = signer
	return s
}

// Write posts the record; any status >= 400 is a failure.
func (s *WebhookSink) Write(ctx context.Context, tokenID string, record model.FeatureRecord) error {
	if s.url == "" {
		return persistErr(s.Name(), fmt.Errorf("webhook URL not configured"))
	}

	jsonData, err := json.Marshal(webhookPayload{
		TokenID:    tokenID,
		Record:     record,
		ExportTime: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return persistErr(s.Name(), fmt.Errorf("failed to marshal record: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return persistErr(s.Name(), fmt.Errorf("failed to create webhook request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	if s.signer != nil {
		sig, err := s.signer.Sign(jsonData)
		if err != nil {
			return persistErr(s.Name(), err)
		}
		req.Header.Set(signatureHeader, sig)
		req.Header.Set(signerHeader, s.signer.Address())
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return persistErr(s.Name(), fmt.Errorf("webhook request failed: %w", err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return persistErr(s.Name(), fmt.Errorf("webhook returned error status: %d", resp.StatusCode))
	}
	return nil
}

func (s *WebhookSink) Name() string {
	return "webhook"
}
