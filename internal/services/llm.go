package services

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

var ErrGeneratorUnavailable = errors.New("content generator unavailable")

// Generator produces a title and Markdown body for a prompt.
type Generator interface {
	Generate(ctx context.Context, requestID, prompt string) (title, body string, err error)
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "You write community forum posts. Reply with the post title on the first line, " +
	"then a blank line, then the body in Markdown."

// LLMClient talks to an OpenAI-compatible chat completions endpoint.
type LLMClient struct {
	baseURL string
	token   string
	model   string
	client  *http.Client
}

func NewLLMClient(baseURL, token, model string, timeout time.Duration) *LLMClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LLMClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *LLMClient) endpoint() string {
	if strings.HasSuffix(c.baseURL, "/chat/completions") {
		return c.baseURL
	}
	return c.baseURL + "/chat/completions"
}

func (c *LLMClient) Generate(ctx context.Context, requestID, prompt string) (string, string, error) {
	if c.baseURL == "" {
		return "", "", ErrGeneratorUnavailable
	}

	payload, err := json.Marshal(ChatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", "", fmt.Errorf("%w: status %d: %s", ErrGeneratorUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chat ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", "", fmt.Errorf("%w: empty response", ErrGeneratorUnavailable)
	}

	title, body := splitGenerated(chat.Choices[0].Message.Content)
	if title == "" {
		return "", "", fmt.Errorf("%w: no title in response", ErrGeneratorUnavailable)
	}
	return title, body, nil
}

// splitGenerated takes the first non-empty line as the title and the rest as the body.
func splitGenerated(content string) (string, string) {
	content = strings.TrimSpace(content)
	title, body, _ := strings.Cut(content, "\n")
	title = strings.TrimSpace(strings.TrimLeft(title, "# "))
	return title, strings.TrimSpace(body)
}
