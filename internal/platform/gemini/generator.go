package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"google.golang.org/genai"

	"github.com/mbarlow/lectern-api/internal/config"
	"github.com/mbarlow/lectern-api/internal/domain"
)

// Generator implements service.ContentGenerator using the Gemini API.
type Generator struct {
	logger *slog.Logger

	config config.LLMConfig

	promptTemplate *template.Template

	client *genai.Client

	model string
}

// NewGenerator creates a Generator with the provided dependencies.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	promptTemplate, err := template.New("paragraphs").Parse(defaultPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return &Generator{
		logger:         logger,
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// Generate turns a lecture script into structured paragraphs with keyword
// and visual suggestions.
func (g *Generator) Generate(ctx context.Context, script string) (*domain.GeneratedContent, error) {
	prompt, err := g.createPrompt(ctx, script)
	if err != nil {
		return nil, err
	}

	generated, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "content generation succeeded",
		"paragraph_count", len(generated.Paragraphs))
	return generated, nil
}

// createPrompt renders the prompt template with the script.
func (g *Generator) createPrompt(ctx context.Context, script string) (string, error) {
	if script == "" {
		return "", ErrEmptyScript
	}

	var buf bytes.Buffer
	if err := g.promptTemplate.Execute(&buf, promptData{Script: script}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	g.logger.DebugContext(ctx, "prompt rendered",
		"script_length", len(script),
		"prompt_length", buf.Len())
	return buf.String(), nil
}

// callWithRetry calls the Gemini API with exponential backoff and jitter.
// Safety blocks and malformed responses are permanent and abort immediately;
// everything else is treated as transient and retried up to MaxRetries times.
func (g *Generator) callWithRetry(ctx context.Context, prompt string) (*domain.GeneratedContent, error) {
	maxRetries := g.config.MaxRetries
	baseDelaySeconds := g.config.RetryDelaySeconds
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}
	if baseDelaySeconds < 1 {
		g.logger.WarnContext(ctx, "invalid retry delay value, using default", "base_delay_seconds", 2)
		baseDelaySeconds = 2
	}

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		g.logger.InfoContext(ctx, "calling Gemini API",
			"attempt", attemptNum,
			"max_attempts", maxRetries+1)

		generated, err := g.callOnce(ctx, prompt)
		if err == nil {
			return generated, nil
		}

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attemptNum,
			"error", err)

		if errors.Is(err, ErrContentBlocked) || errors.Is(err, ErrInvalidResponse) {
			return nil, err
		}

		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				ErrTransientFailure, maxRetries, err)
		}

		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoffSeconds * jitterFactor * float64(time.Second))

		g.logger.InfoContext(ctx, "retrying after delay",
			"attempt", attemptNum,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}
}

// callOnce performs a single API call and parses the response.
func (g *Generator) callOnce(ctx context.Context, prompt string) (*domain.GeneratedContent, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini API call: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: finish reason %q", ErrContentBlocked, resp.Candidates[0].FinishReason)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty response text", ErrInvalidResponse)
	}

	return parseResponse(text)
}

// parseResponse decodes the model's JSON output, tolerating markdown code
// fences some models wrap around it.
func parseResponse(text string) (*domain.GeneratedContent, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	var generated domain.GeneratedContent
	if err := json.Unmarshal([]byte(text), &generated); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}
	if len(generated.Paragraphs) == 0 {
		return nil, fmt.Errorf("%w: no paragraphs in response", ErrInvalidResponse)
	}

	for i, p := range generated.Paragraphs {
		if strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("%w: paragraph %d has empty text", ErrInvalidResponse, i)
		}
	}

	return &generated, nil
}
