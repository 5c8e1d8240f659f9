package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ecenturetech/ScriptTranscipt/internal/openai"
)

// ChatClient is the LLM surface the enrichment stages need.
type ChatClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error)
}

const (
	rateLimitRetries  = 3
	rateLimitBaseWait = 5 * time.Second
)

// completeWithRetry wraps a chat call with linear-backoff retries on rate
// limiting (attempt × base wait). Other errors fail immediately.
func completeWithRetry(ctx context.Context, client ChatClient, logger *slog.Logger, system, user string, temperature float64, maxTokens int) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= rateLimitRetries; attempt++ {
		text, err := client.Complete(ctx, system, user, temperature, maxTokens)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !openai.IsRateLimited(err) {
			return "", err
		}

		wait := time.Duration(attempt) * rateLimitBaseWait
		logger.Warn("Rate limited, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("rate limit retries exhausted: %w", lastErr)
}
