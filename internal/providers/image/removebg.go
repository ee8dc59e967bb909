package image

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

// RemoveBgAdapter calls the dedicated remove.bg matting service.
type RemoveBgAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewRemoveBgAdapter(apiKey string, httpClient *http.Client) *RemoveBgAdapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &RemoveBgAdapter{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    "https://api.remove.bg/v1.0",
		httpClient: httpClient,
	}
}

func (a *RemoveBgAdapter) Name() string { return "removebg" }

// WithBaseURL overrides the endpoint, used by tests.
func (a *RemoveBgAdapter) WithBaseURL(u string) *RemoveBgAdapter {
	a.baseURL = strings.TrimRight(u, "/")
	return a
}

func (a *RemoveBgAdapter) Attempt(ctx context.Context, cap Capability, req Request) (*Result, error) {
	if a.apiKey == "" {
		return nil, ErrUnavailable
	}
	if cap != CapabilityRemoveBackground {
		return nil, fmt.Errorf("removebg adapter does not support %s", cap)
	}
	url, err := postForResultURL(ctx, a.httpClient, a.baseURL+"/removebg", map[string]string{"X-Api-Key": a.apiKey},
		map[string]any{"image_url": req.SourceURL, "format": "png"})
	if err != nil {
		return nil, fmt.Errorf("removebg: %w", err)
	}
	return &Result{URL: url, Provider: a.Name()}, nil
}

// ClipdropAdapter calls the Clipdrop general matting service.
type ClipdropAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClipdropAdapter(apiKey string, httpClient *http.Client) *ClipdropAdapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &ClipdropAdapter{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    "https://clipdrop-api.co",
		httpClient: httpClient,
	}
}

func (a *ClipdropAdapter) Name() string { return "clipdrop" }

// WithBaseURL overrides the endpoint, used by tests.
func (a *ClipdropAdapter) WithBaseURL(u string) *ClipdropAdapter {
	a.baseURL = strings.TrimRight(u, "/")
	return a
}

func (a *ClipdropAdapter) Attempt(ctx context.Context, cap Capability, req Request) (*Result, error) {
	if a.apiKey == "" {
		return nil, ErrUnavailable
	}
	if cap != CapabilityRemoveBackground {
		return nil, fmt.Errorf("clipdrop adapter does not support %s", cap)
	}
	url, err := postForResultURL(ctx, a.httpClient, a.baseURL+"/remove-background/v1", map[string]string{"x-api-key": a.apiKey},
		map[string]any{"image_url": req.SourceURL})
	if err != nil {
		return nil, fmt.Errorf("clipdrop: %w", err)
	}
	return &Result{URL: url, Provider: a.Name()}, nil
}

// VectorizerAdapter calls the vectorizer.ai raster-to-vector service.
type VectorizerAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewVectorizerAdapter(apiKey string, httpClient *http.Client) *VectorizerAdapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &VectorizerAdapter{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    "https://vectorizer.ai/api/v1",
		httpClient: httpClient,
	}
}

func (a *VectorizerAdapter) Name() string { return "vectorizer" }

// WithBaseURL overrides the endpoint, used by tests.
func (a *VectorizerAdapter) WithBaseURL(u string) *VectorizerAdapter {
	a.baseURL = strings.TrimRight(u, "/")
	return a
}

func (a *VectorizerAdapter) Attempt(ctx context.Context, cap Capability, req Request) (*Result, error) {
	if a.apiKey == "" {
		return nil, ErrUnavailable
	}
	if cap != CapabilityVectorize {
		return nil, fmt.Errorf("vectorizer adapter does not support %s", cap)
	}
	url, err := postForResultURL(ctx, a.httpClient, a.baseURL+"/vectorize", map[string]string{"Authorization": "Bearer " + a.apiKey},
		map[string]any{"image_url": req.SourceURL, "output_format": "svg"})
	if err != nil {
		return nil, fmt.Errorf("vectorizer: %w", err)
	}
	return &Result{URL: url, Provider: a.Name()}, nil
}

type resultURLResponse struct {
	ResultURL string `json:"result_url"`
}

func postForResultURL(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var res resultURLResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if strings.TrimSpace(res.ResultURL) == "" {
		return "", errors.New("response contained no result url")
	}
	return res.ResultURL, nil
}

var (
	_ Adapter = (*RemoveBgAdapter)(nil)
	_ Adapter = (*ClipdropAdapter)(nil)
	_ Adapter = (*VectorizerAdapter)(nil)
)
