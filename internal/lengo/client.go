package lengo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zalama/partner-dashboard/internal/domain/entity"
	"go.uber.org/zap"
)

// Provider error kinds. The client performs no retries; redelivery and
// polling by the callers are the only retry mechanisms.
var (
	// ErrUnavailable covers transport failures, timeouts and non-2xx
	// responses other than authorization rejections.
	ErrUnavailable = errors.New("lengo: provider unavailable")
	// ErrUnauthorized is returned when the provider rejects the API key.
	ErrUnauthorized = errors.New("lengo: unauthorized")
)

// Config holds Lengo Pay client configuration
type Config struct {
	APIURL  string
	SiteID  string
	APIKey  string
	Timeout time.Duration
}

// Client queries the Lengo Pay transaction status endpoint. Read-only:
// it never mutates provider or local state.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Lengo Pay client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// statusRequest is the provider's status-check request body
type statusRequest struct {
	SiteID string `json:"site_id"`
	PayID  string `json:"pay_id"`
}

// CheckStatus queries the provider for the current status of a payment.
// The provider is the source of truth for real-world payment state.
func (c *Client) CheckStatus(ctx context.Context, payID string) (*entity.ProviderSnapshot, error) {
	if payID == "" {
		return nil, fmt.Errorf("lengo: pay_id is required")
	}

	body, err := json.Marshal(statusRequest{SiteID: c.cfg.SiteID, PayID: payID})
	if err != nil {
		return nil, fmt.Errorf("lengo: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("lengo: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Lengo Pay request failed",
			zap.String("pay_id", payID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Capture the raw body for diagnostics
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Error("Lengo Pay returned non-success status",
			zap.String("pay_id", payID),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("body", raw))

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: status %d: %s", ErrUnauthorized, resp.StatusCode, raw)
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, raw)
	}

	var snapshot entity.ProviderSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}

	c.logger.Debug("Lengo Pay status retrieved",
		zap.String("pay_id", payID),
		zap.String("status", snapshot.Status))

	return &snapshot, nil
}
