// Package gemini writes reminder texts with Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/edgard/habitbot/internal/config"
	"github.com/edgard/habitbot/internal/resilience"
)

// maxReminderRunes bounds the generated text; longer answers are rejected.
const maxReminderRunes = 400

// PendingHabit is a habit the user has not marked today.
type PendingHabit struct {
	Name   string
	Streak int
}

// ReminderRequest describes whom the reminder is for.
type ReminderRequest struct {
	FirstName string
	Pending   []PendingHabit
}

// Client defines the AI operations used by the reminder composer.
type Client interface {
	ComposeReminder(ctx context.Context, req ReminderRequest) (string, error)
}

type sdkClient struct {
	genaiClient   *genai.Client
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
	retry         resilience.RetryConfig
	breaker       *resilience.CircuitBreaker
}

// NewClient creates a Gemini client from cfg.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	instruction := cfg.SystemInstruction
	if instruction == "" {
		instruction = ReminderSystemInstruction
	}
	temperature := cfg.Temperature
	baseCfg := &genai.GenerateContentConfig{
		Temperature:       &temperature,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName)

	return &sdkClient{
		genaiClient:   gi,
		log:           logger,
		contentConfig: baseCfg,
		modelName:     cfg.ModelName,
		retry: resilience.RetryConfig{
			MaxAttempts:     cfg.MaxRetries + 1,
			InitialInterval: time.Duration(cfg.RetryDelaySeconds) * time.Second,
			MaxInterval:     time.Minute,
			Multiplier:      2,
			RandomFactor:    0.1,
		},
		breaker: resilience.NewCircuitBreaker(resilience.BreakerConfig{
			Name:        "gemini",
			MaxFailures: 3,
			Timeout:     cfg.Timeout,
			OpenFor:     5 * time.Minute,
		}, logger),
	}, nil
}

// isRetriable reports whether a Gemini API error is worth another attempt.
func isRetriable(err error) bool {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code == 500 || apiErr.Code == 503
	}
	return false
}

func (c *sdkClient) generateContent(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.WithRetry(ctx, func(ctx context.Context) error {
			var err error
			resp, err = c.genaiClient.Models.GenerateContent(ctx, c.modelName, contents, c.contentConfig)
			if err == nil {
				return nil
			}
			c.log.WarnContext(ctx, "Gemini API call failed", "error", err)
			if !isRetriable(err) {
				return resilience.Permanent(err)
			}
			return err
		}, c.retry)
	})
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return resp, nil
}

// ComposeReminder asks the model for a one-sentence reminder.
func (c *sdkClient) ComposeReminder(ctx context.Context, req ReminderRequest) (string, error) {
	if len(req.Pending) == 0 {
		return "", fmt.Errorf("no pending habits to remind about")
	}
	c.log.DebugContext(ctx, "Composing reminder", "pending", len(req.Pending))

	contents := []*genai.Content{genai.NewContentFromText(BuildPrompt(req), genai.RoleUser)}
	resp, err := c.generateContent(ctx, contents)
	if err != nil {
		return "", err
	}
	return extractText(resp)
}

// BuildPrompt renders the user part of a reminder request.
func BuildPrompt(req ReminderRequest) string {
	name := strings.TrimSpace(req.FirstName)
	if name == "" {
		name = "the user"
	}

	var sb strings.Builder
	for _, h := range req.Pending {
		sb.WriteString("- ")
		sb.WriteString(h.Name)
		if h.Streak > 0 {
			fmt.Fprintf(&sb, " (current streak %d days)", h.Streak)
		}
		sb.WriteString("\n")
	}
	return fmt.Sprintf(reminderPromptTemplate, name, strings.TrimRight(sb.String(), "\n"))
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		return "", fmt.Errorf("reminder blocked by safety filter: %s", reason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("reminder response has no content")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("reminder response is empty")
	}
	if utf8.RuneCountInString(text) > maxReminderRunes {
		return "", fmt.Errorf("reminder response is too long (%d runes)", utf8.RuneCountInString(text))
	}
	return text, nil
}
