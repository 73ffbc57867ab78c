package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

var (
	ErrSendRejected = errors.New("mail api rejected message")
)

// Mailer sends a single transactional email. Implementations must be safe
// for concurrent use; receipt dispatch sends the customer and admin copies
// at the same time.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

type Config struct {
	APIURL     string
	APIKey     string
	FromEmail  string
	FromName   string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultConfig(apiURL, apiKey, fromEmail, fromName string) Config {
	return Config{
		APIURL:     apiURL,
		APIKey:     apiKey,
		FromEmail:  fromEmail,
		FromName:   fromName,
		Timeout:    10 * time.Second,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
	}
}

// Client posts messages to a Brevo-compatible transactional email API.
type Client struct {
	config Config
	client *fasthttp.Client
}

func NewClient(config Config) *Client {
	return &Client{
		config: config,
		client: &fasthttp.Client{
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
		},
	}
}

type party struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendPayload struct {
	Sender      party   `json:"sender"`
	To          []party `json:"to"`
	Subject     string  `json:"subject"`
	HTMLContent string  `json:"htmlContent"`
}

func (c *Client) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(sendPayload{
		Sender:      party{Email: c.config.FromEmail, Name: c.config.FromName},
		To:          []party{{Email: msg.To, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTMLBody,
	})
	if err != nil {
		return errors.Wrap(err, "marshal mail payload")
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		err := c.doSend(ctx, payload)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrSendRejected) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("mail send failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) doSend(ctx context.Context, payload []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.APIURL)
	req.Header.SetMethod("POST")
	req.Header.SetContentType("application/json")
	req.Header.Set("api-key", c.config.APIKey)
	req.SetBody(payload)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode >= 400 && statusCode < 500:
		// Bad payload or auth; retrying will not help.
		return errors.Wrapf(ErrSendRejected, "status %d: %s", statusCode, resp.Body())
	default:
		return fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}
}
