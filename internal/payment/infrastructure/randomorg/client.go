// Package randomorg implements the outcome-oracle client against a
// random.org style endpoint returning a single plain-text integer.
package randomorg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/orderflow/payment-service/internal/payment/domain"
)

// DefaultURL asks for one integer in [1,100] in plain-text format.
const DefaultURL = "https://www.random.org/integers/?num=1&min=1&max=100&col=1&base=10&format=plain"

type Client struct {
	log        *slog.Logger
	httpClient *http.Client
	url        string
}

// NewClient builds the live oracle client. The timeout bounds the whole
// request; the endpoint gives no other backpressure.
func NewClient(log *slog.Logger, url string, timeout time.Duration) *Client {
	return &Client{
		log:        log,
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
	}
}

// Draw fetches one integer from the oracle. Transport failures, empty bodies
// and unparseable bodies are logged with their cause but all surface as
// domain.ErrExternalService; callers never distinguish them.
func (c *Client) Draw(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: building oracle request: %s", domain.ErrExternalService, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("oracle request failed", "err", err)
		return 0, fmt.Errorf("%w: oracle unreachable", domain.ErrExternalService)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("oracle returned unexpected status", "status", resp.StatusCode)
		return 0, fmt.Errorf("%w: oracle status %d", domain.ErrExternalService, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error("oracle body read failed", "err", err)
		return 0, fmt.Errorf("%w: reading oracle response", domain.ErrExternalService)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		c.log.Error("oracle returned empty response")
		return 0, fmt.Errorf("%w: empty oracle response", domain.ErrExternalService)
	}

	n, err := strconv.Atoi(text)
	if err != nil {
		c.log.Error("oracle returned non-numeric response", "body", text)
		return 0, fmt.Errorf("%w: malformed oracle response", domain.ErrExternalService)
	}

	c.log.Debug("oracle draw", "number", n)
	return n, nil
}

// Fixed is a deterministic oracle returning the same integer on every draw.
// It is the substitution point for tests and local composition.
type Fixed struct {
	N int
}

func (f Fixed) Draw(context.Context) (int, error) {
	return f.N, nil
}
