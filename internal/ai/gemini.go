package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/utils"
)

type geminiClient struct {
	log    *logger.Logger
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, log *logger.Logger) (Client, error) {
	serviceLog := log.With("service", "GeminiClient")
	apiKey := strings.TrimSpace(utils.GetEnv("GEMINI_API_KEY", "", log))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	model := utils.GetEnv("GEMINI_MODEL", "gemini-2.5-flash", log)

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &geminiClient{log: serviceLog, client: client, model: model}, nil
}

func (c *geminiClient) Model() string { return c.model }

func (c *geminiClient) Complete(ctx context.Context, system, user string, opts Options) (string, error) {
	model := c.client.GenerativeModel(c.model)
	if strings.TrimSpace(system) != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if opts.Temperature > 0 {
		model.SetTemperature(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &Error{Kind: KindInvalidResponse, Msg: "no content generated"}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	content := strings.TrimSpace(sb.String())
	if content == "" {
		return "", &Error{Kind: KindInvalidResponse, Msg: "empty completion"}
	}
	return content, nil
}

func classifyGeminiError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		kind := KindProviderError
		switch gErr.Code {
		case http.StatusTooManyRequests:
			kind = KindRateLimited
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			kind = KindTimeout
		}
		return &Error{Kind: kind, Status: gErr.Code, Msg: gErr.Message, Err: err}
	}
	return &Error{Kind: KindProviderError, Err: err}
}
