package rates

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"embroidery-pricing/core/types"
	"embroidery-pricing/internal/errors"
	"embroidery-pricing/internal/logging"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body
const SignatureHeader = "X-Signature"

// Config configures the HTTP rate provider
type Config struct {
	// Endpoint receives the shipment as a JSON POST
	Endpoint string `json:"endpoint"`

	// Secret for request signing
	Secret string `json:"secret"`

	// Headers to include
	Headers map[string]string `json:"headers"`

	// Timeout for requests
	Timeout time.Duration `json:"timeout"`

	// RetryCount for failed requests
	RetryCount int `json:"retry_count"`

	// RetryDelay between retries
	RetryDelay time.Duration `json:"retry_delay"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig(endpoint string) *Config {
	return &Config{
		Endpoint:   endpoint,
		Timeout:    10 * time.Second,
		RetryCount: 2,
		RetryDelay: 500 * time.Millisecond,
		Headers:    make(map[string]string),
	}
}

// HTTP fetches carrier rates from a remote rating service
type HTTP struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTP creates an HTTP rate provider
func NewHTTP(config *Config, logger *zap.Logger) *HTTP {
	return &HTTP{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logging.OrNop(logger).Named("rates"),
	}
}

// Quote posts the shipment and returns the carrier rates. Client errors
// (4xx) are not retried.
func (h *HTTP) Quote(ctx context.Context, shipment types.Shipment) ([]types.RawRate, error) {
	body, err := json.Marshal(shipment)
	if err != nil {
		return nil, errors.Internal("encode shipment", err)
	}

	var lastErr error
	for attempt := 0; attempt <= h.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(h.config.RetryDelay):
			}
		}

		rates, retry, err := h.quoteOnce(ctx, body)
		if err == nil {
			return rates, nil
		}
		lastErr = err
		h.logger.Warn("rate request failed",
			zap.Int("attempt", attempt+1),
			zap.Bool("retry", retry),
			zap.Error(err))
		if !retry {
			break
		}
	}

	return nil, errors.Provider(fmt.Sprintf("rate request to %s failed", h.config.Endpoint), lastErr)
}

func (h *HTTP) quoteOnce(ctx context.Context, body []byte) ([]types.RawRate, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range h.config.Headers {
		req.Header.Set(k, v)
	}
	if h.config.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, h.config.Secret))
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode >= 500, fmt.Errorf("rate service returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("decode rates: %w", err)
	}
	return out.Rates, false, nil
}

// Sign returns the hex HMAC-SHA256 of payload
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature produced by Sign
func VerifySignature(payload []byte, signature, secret string) bool {
	return hmac.Equal([]byte(signature), []byte(Sign(payload, secret)))
}
