package openai

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
var ErrMissingAPIKey = errors.New("openai: api key is required")

// Options configures the OpenAI client.
type Options struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	ImageModel     string
	EmbeddingModel string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the OpenAI API for image generation,
// promptable image edits, chat completion and text embeddings.
type Client struct {
	apiKey         string
	baseURL        string
	chatModel      string
	imageModel     string
	embeddingModel string
	httpClient     *http.Client
	logger         *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	chatModel := strings.TrimSpace(opts.ChatModel)
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = "dall-e-3"
	}
	embeddingModel := strings.TrimSpace(opts.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
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
		apiKey:         strings.TrimSpace(opts.APIKey),
		baseURL:        baseURL,
		chatModel:      chatModel,
		imageModel:     imageModel,
		embeddingModel: embeddingModel,
		httpClient:     httpClient,
		logger:         logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c != nil && c.apiKey != ""
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size,omitempty"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateImage invokes the image generation endpoint once and returns the
// hosted URL of the produced image.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("openai: prompt is required")
	}
	payload := imageRequest{Model: c.imageModel, Prompt: prompt, N: 1, Size: "1024x1024"}
	var res imageResponse
	if err := c.post(ctx, "/images/generations", payload, &res); err != nil {
		return "", err
	}
	if len(res.Data) == 0 || strings.TrimSpace(res.Data[0].URL) == "" {
		return "", errors.New("openai: response contained no image url")
	}
	return res.Data[0].URL, nil
}

type editRequest struct {
	Model    string `json:"model"`
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url"`
	N        int    `json:"n"`
}

// EditImage performs a promptable edit against a hosted source image and
// returns the hosted URL of the edited result.
func (c *Client) EditImage(ctx context.Context, imageURL, prompt string) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	if strings.TrimSpace(imageURL) == "" {
		return "", errors.New("openai: source image url is required")
	}
	payload := editRequest{Model: c.imageModel, Prompt: strings.TrimSpace(prompt), ImageURL: imageURL, N: 1}
	var res imageResponse
	if err := c.post(ctx, "/images/edits", payload, &res); err != nil {
		return "", err
	}
	if len(res.Data) == 0 || strings.TrimSpace(res.Data[0].URL) == "" {
		return "", errors.New("openai: response contained no image url")
	}
	return res.Data[0].URL, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat runs one chat completion and returns the raw assistant text.
func (c *Client) Chat(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	payload := chatRequest{
		Model:       c.chatModel,
		Temperature: 0.2,
		MaxTokens:   maxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	var res chatResponse
	if err := c.post(ctx, "/chat/completions", payload, &res); err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", errors.New("openai: response contained no choices")
	}
	return res.Choices[0].Message.Content, nil
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	payload := embeddingRequest{Model: c.embeddingModel, Input: text}
	var res embeddingResponse
	if err := c.post(ctx, "/embeddings", payload, &res); err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, errors.New("openai: response contained no embedding")
	}
	return res.Data[0].Embedding, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("openai: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("openai: non-success response")
		return fmt.Errorf("openai: unexpected status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("openai: decode response: %w", err)
	}
	return nil
}
