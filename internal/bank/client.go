package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
	"github.com/zingsurvey/payment-gateway/pkg/logger"
)

var (
	ErrTransferNotFound = errors.New("transfer not found at bank")
	ErrBankUnavailable  = errors.New("bank api unavailable")
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	MaxConns   int
}

func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		RetryDelay: 200 * time.Millisecond,
		MaxConns:   64,
	}
}

// VerifyResponse is the bank's answer for a transfer lookup.
type VerifyResponse struct {
	BankReference string `json:"bank_reference"`
	Confirmed     bool   `json:"confirmed"`
	Amount        int64  `json:"amount"`
}

// Client talks to the bank transfer API. Transfers are settled out of
// band; the only question we can ask is whether a reference has been
// confirmed yet.
type Client struct {
	config Config
	client *fasthttp.Client
}

func NewClient(config Config) *Client {
	return &Client{
		config: config,
		client: &fasthttp.Client{
			MaxConnsPerHost: config.MaxConns,
			ReadTimeout:     config.Timeout,
			WriteTimeout:    config.Timeout,
		},
	}
}

// VerifyTransfer asks the bank whether a transfer has been confirmed.
// Transient failures are retried; a 404 is final.
func (c *Client) VerifyTransfer(ctx context.Context, bankReference string) (*VerifyResponse, error) {
	path := fmt.Sprintf("/api/v1/transfers/verify/%s", bankReference)

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		body, err := c.doRequest(ctx, "GET", path, nil)
		if err != nil {
			if errors.Is(err, ErrTransferNotFound) {
				return nil, err
			}
			logger.Warn("bank verify failed, retrying", "bank_reference", bankReference, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}

		var resp VerifyResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, errors.Wrap(err, "unmarshal bank response")
		}
		return &resp, nil
	}

	return nil, errors.Wrapf(ErrBankUnavailable, "after %d attempts: %v", c.config.MaxRetries+1, lastErr)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")

	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode == fasthttp.StatusNotFound {
		return nil, ErrTransferNotFound
	}
	if statusCode != fasthttp.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	return result, nil
}
