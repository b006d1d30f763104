package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/utils"
)

// NewFromEnv picks the completion provider from LLM_PROVIDER. Provider choice
// is configuration only; nothing downstream knows which vendor is in play.
func NewFromEnv(ctx context.Context, log *logger.Logger) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(utils.GetEnv("LLM_PROVIDER", "openai", log)))
	switch provider {
	case "gemini":
		return NewGeminiClient(ctx, log)
	case "openai", "":
		return NewOpenAIClient(log)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", provider)
	}
}
