package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/synthsense/synthsense-backend/internal/httpx"
	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/utils"
)

// maxRetryAfter caps how long a Retry-After header can push a worker's
// backoff.
const maxRetryAfter = 30 * time.Second

type openAIClient struct {
	log        *logger.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

func NewOpenAIClient(log *logger.Logger) (Client, error) {
	serviceLog := log.With("service", "OpenAIClient")
	apiKey := strings.TrimSpace(utils.GetEnv("OPENAI_API_KEY", "", log))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com/v1", log), "/")
	model := utils.GetEnv("OPENAI_MODEL", "gpt-4o", log)
	timeoutSec := utils.GetEnvAsInt("OPENAI_TIMEOUT_SECONDS", 60, log)

	return &openAIClient{
		log:        serviceLog,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
	}, nil
}

func (c *openAIClient) Model() string { return c.model }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete issues exactly one chat-completions call. Failures are classified
// into the ai.Error taxonomy; the caller owns any retrying.
func (c *openAIClient) Complete(ctx context.Context, system, user string, opts Options) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	body := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return "", &Error{Kind: KindProviderError, Msg: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", &buf)
	if err != nil {
		return "", &Error{Kind: KindProviderError, Msg: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", &Error{Kind: KindProviderError, Msg: "read response", Err: readErr}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := KindProviderError
		var retryAfter time.Duration
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			kind = KindRateLimited
			retryAfter = httpx.RetryAfterDuration(resp, 0, maxRetryAfter)
		case resp.StatusCode == http.StatusRequestTimeout:
			kind = KindTimeout
		}
		return "", &Error{Kind: kind, Status: resp.StatusCode, Msg: truncateBody(raw), RetryAfter: retryAfter}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &Error{Kind: KindInvalidResponse, Msg: "decode response", Err: err}
	}
	if parsed.Error != nil {
		return "", &Error{Kind: KindProviderError, Msg: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return "", &Error{Kind: KindInvalidResponse, Msg: "no choices in response"}
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", &Error{Kind: KindInvalidResponse, Msg: "empty completion"}
	}
	return content, nil
}

func classifyTransportError(err error) error {
	// Cancellation is excluded by the retryability check, so it lands in
	// provider_error with the cause preserved for errors.Is.
	if httpx.IsRetryableError(err) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindProviderError, Err: err}
}

func truncateBody(raw []byte) string {
	s := string(raw)
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
