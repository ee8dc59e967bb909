package stability

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
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("stability: api key is required")

// Options configures the Stability client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Client performs HTTP calls to the Stability text-to-image API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.stability.ai"
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c != nil && c.apiKey != ""
}

type generateRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Seed           int    `json:"seed,omitempty"`
	OutputFormat   string `json:"output_format"`
}

type generateResponse struct {
	ImageURL     string `json:"image_url"`
	Seed         int    `json:"seed"`
	FinishReason string `json:"finish_reason"`
}

// GenerateImage invokes the hosted generation endpoint once and returns the
// resulting image URL along with the provider-reported seed.
func (c *Client) GenerateImage(ctx context.Context, prompt, negativePrompt string, seed int) (string, int, error) {
	if !c.HasCredentials() {
		return "", 0, ErrMissingAPIKey
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", 0, errors.New("stability: prompt is required")
	}
	body, err := json.Marshal(generateRequest{
		Prompt:         prompt,
		NegativePrompt: strings.TrimSpace(negativePrompt),
		Seed:           seed,
		OutputFormat:   "png",
	})
	if err != nil {
		return "", 0, fmt.Errorf("stability: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2beta/stable-image/generate/core", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("stability: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("stability: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", 0, fmt.Errorf("stability: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, fmt.Errorf("stability: unexpected status %d", resp.StatusCode)
	}
	var res generateResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", 0, fmt.Errorf("stability: decode response: %w", err)
	}
	if strings.TrimSpace(res.ImageURL) == "" {
		return "", 0, errors.New("stability: response contained no image url")
	}
	return res.ImageURL, res.Seed, nil
}
