package translate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ---------------------------------------------------------------------------
// OpenAI provider via the official SDK
// ---------------------------------------------------------------------------

// callOpenAISDK sends a prompt through the openai-go client. Retry and
// rate-limit behavior mirrors callHTTPProvider so both paths degrade the
// same way under 429s.
func callOpenAISDK(ctx context.Context, prov Provider, systemPrompt, userPrompt string, rl *rateLimitState, maxRetries int, verbose bool) (string, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(prov.APIKey),
		// The SDK has its own retry loop; the pipeline owns retries here.
		option.WithMaxRetries(0),
	}
	if prov.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(prov.BaseURL))
	}
	if prov.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(prov.Timeout))
	}
	client := openai.NewClient(opts...)

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if rl != nil {
			if err := rl.waitIfPaused(ctx); err != nil {
				return "", err
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		if verbose {
			log.Printf("[DEBUG] %s attempt %d: chat/completions (model: %s)", prov.Name, attempt+1, prov.Model)
		}

		resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: prov.Model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(userPrompt),
			},
			Temperature: openai.Float(0.3),
		})
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("empty completion from %s", prov.Name)
			}
			return resp.Choices[0].Message.Content, nil
		}

		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			retryDelay := parseRetryDelay([]byte(apiErr.RawJSON()))
			if verbose {
				log.Printf("[WARN] 429 rate limited, waiting %v before retry (attempt %d/%d)", retryDelay, attempt+1, maxRetries)
			}
			if rl != nil {
				rl.pause(retryDelay)
			}
			if attempt < maxRetries {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(retryDelay):
				}
				if rl != nil {
					rl.unpause()
				}
				continue
			}
			return "", fmt.Errorf("rate limited after %d retries: %w", maxRetries, err)
		}

		retriable := true
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			retriable = false
		}
		if retriable && attempt < maxRetries {
			wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		return "", fmt.Errorf("API request failed: %w", err)
	}

	return "", fmt.Errorf("exhausted all %d retries", maxRetries)
}
