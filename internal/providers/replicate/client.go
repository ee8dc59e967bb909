package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"styleforge/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("replicate: api key is required")

// ErrPollTimeout indicates the prediction did not settle within the poll budget.
var ErrPollTimeout = errors.New("replicate: prediction polling timed out")

// Options configures the Replicate client.
type Options struct {
	APIKey       string
	BaseURL      string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	PollInterval time.Duration
	MaxPolls     int
}

// Client submits predictions to the Replicate API and polls them to
// completion. Polling is bounded: MaxPolls iterations with a fixed interval,
// after which the prediction is reported as timed out.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	logger       *infra.Logger
	pollInterval time.Duration
	maxPolls     int
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = 30
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       logger,
		pollInterval: interval,
		maxPolls:     maxPolls,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c != nil && c.apiKey != ""
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// Run submits a prediction for the given model version and polls until it
// succeeds, fails, or the poll budget is exhausted. On success it returns the
// first output URL.
func (c *Client) Run(ctx context.Context, version string, input map[string]any) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	body, err := json.Marshal(map[string]any{"version": version, "input": input})
	if err != nil {
		return "", fmt.Errorf("replicate: encode request: %w", err)
	}
	var pred prediction
	if err := c.do(ctx, http.MethodPost, "/predictions", bytes.NewReader(body), &pred); err != nil {
		return "", err
	}
	if pred.ID == "" {
		return "", errors.New("replicate: submission returned no prediction id")
	}

	for i := 0; i < c.maxPolls; i++ {
		switch pred.Status {
		case "succeeded":
			return firstOutputURL(pred.Output)
		case "failed", "canceled":
			return "", fmt.Errorf("replicate: prediction %s: %s", pred.Status, pred.Error)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}
		if err := c.do(ctx, http.MethodGet, "/predictions/"+pred.ID, nil, &pred); err != nil {
			return "", err
		}
	}
	return "", ErrPollTimeout
}

func firstOutputURL(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("replicate: prediction succeeded without output")
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
		return single, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, u := range many {
			if strings.TrimSpace(u) != "" {
				return u, nil
			}
		}
	}
	return "", errors.New("replicate: prediction output contained no url")
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out *prediction) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("replicate: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("replicate: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("replicate: non-success response")
		return fmt.Errorf("replicate: unexpected status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("replicate: decode response: %w", err)
	}
	return nil
}
