package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned before any network call when no key is
// configured. Handlers surface it as a job-level configuration error.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is missing or invalid; set it in the environment or .env")

// Config holds provider connection settings.
type Config struct {
	BaseURL            string
	APIKey             string
	ChatModel          string
	TranscriptionModel string
	RequestTimeout     time.Duration
}

// Client talks to the chat-completion, vision and speech-to-text endpoints.
type Client struct {
	baseURL            string
	apiKey             string
	chatModel          string
	transcriptionModel string
	httpClient         *http.Client
}

// NewClient creates a provider client. The key is validated lazily, per call,
// so caption-only jobs can run without one.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		baseURL:            strings.TrimRight(baseURL, "/"),
		apiKey:             cfg.APIKey,
		chatModel:          cfg.ChatModel,
		transcriptionModel: cfg.TranscriptionModel,
		httpClient:         &http.Client{Timeout: timeout},
	}
}

// CheckAPIKey validates key presence without a network round trip.
func (c *Client) CheckAPIKey() error {
	if len(strings.TrimSpace(c.apiKey)) < 10 {
		return ErrMissingAPIKey
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends one chat completion and returns the assistant text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	return c.chat(ctx, chatRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

// CompleteWithImages sends a vision request with base64 PNG page images
// attached to the user message. Used for OCR of scanned documents.
func (c *Client) CompleteWithImages(ctx context.Context, systemPrompt, userPrompt string, imagesPNG []string) (string, error) {
	parts := make([]contentPart, 0, len(imagesPNG)+1)
	parts = append(parts, contentPart{Type: "text", Text: userPrompt})
	for _, img := range imagesPNG {
		p := contentPart{Type: "image_url"}
		p.ImageURL = &struct {
			URL string `json:"url"`
		}{URL: "data:image/png;base64," + img}
		parts = append(parts, p)
	}

	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: parts},
	}

	return c.chat(ctx, chatRequest{
		Model:     c.chatModel,
		Messages:  messages,
		MaxTokens: 4096,
	})
}

func (c *Client) chat(ctx context.Context, reqBody chatRequest) (string, error) {
	if err := c.CheckAPIKey(); err != nil {
		return "", err
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classify(resp.StatusCode, string(body))
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", errors.New(decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("openai: empty chat response")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

// Transcribe uploads one audio file to the speech-to-text endpoint and
// returns the plain-text transcript in the requested spoken language.
func (c *Client) Transcribe(ctx context.Context, filePath, language string) (string, error) {
	if err := c.CheckAPIKey(); err != nil {
		return "", err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}

	_ = writer.WriteField("model", c.transcriptionModel)
	_ = writer.WriteField("language", language)
	_ = writer.WriteField("response_format", "text")
	if err := writer.Close(); err != nil {
		return "", err
	}

	url := c.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classify(resp.StatusCode, string(body))
	}

	return strings.TrimSpace(string(body)), nil
}
