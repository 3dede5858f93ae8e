package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"codegardener/internal/config"
	"codegardener/internal/models"
	"codegardener/internal/observability"
)

const (
	openAIChatCompletionsURL = "https://api.openai.com/v1/chat/completions"

	aiSystemPrompt = "You are a senior software engineer reviewing a code submission. " +
		"Give concise, constructive feedback: point out correctness risks, readability issues, " +
		"and one concrete improvement. Answer in plain prose, no markdown headings."

	// Stored when generation fails so the post never shows an empty review slot.
	aiFailureFeedback = "AI feedback could not be generated for this post. Please try again later."

	mockFeedbackTemplate = "Automated review (mock): the submission %q was received. " +
		"Structure and naming look reasonable at a glance. Enable the AI provider to get a real review."
)

// AIFeedbackService generates the automatic first review on a post. In mock
// mode it returns canned text without network access; otherwise it calls the
// OpenAI chat completions API. GenerateFeedback never returns an error: on
// any failure it falls back to a stored failure message.
type AIFeedbackService struct {
	cfg      *config.Config
	client   *http.Client
	logger   *slog.Logger
	endpoint string
}

// NewAIFeedbackService returns a new AIFeedbackService.
func NewAIFeedbackService(cfg *config.Config, logger *slog.Logger) *AIFeedbackService {
	return &AIFeedbackService{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.AITimeoutSeconds) * time.Second,
		},
		logger: logger,
	}
}

// Timeout returns the configured per-generation deadline.
func (s *AIFeedbackService) Timeout() time.Duration {
	return time.Duration(s.cfg.AITimeoutSeconds) * time.Second
}

// SetEndpoint overrides the provider URL. Test hook.
func (s *AIFeedbackService) SetEndpoint(url string) {
	s.endpoint = url
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateFeedback produces review text for the post. The caller decides
// where to store it.
func (s *AIFeedbackService) GenerateFeedback(ctx context.Context, post *models.Post) string {
	start := time.Now()

	if s.cfg.AIMockEnabled {
		observability.AIFeedbackRequests.WithLabelValues("mock").Inc()
		observability.AIFeedbackLatency.Observe(time.Since(start).Seconds())
		return fmt.Sprintf(mockFeedbackTemplate, post.Title)
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout())
	defer cancel()

	tl := observability.GetTraceLayer()
	ctx, span := tl.TraceAIProviderCall(ctx, s.cfg.AIModel)
	defer span.End()

	feedback, err := s.callProvider(ctx, post)
	observability.AIFeedbackLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.AIFeedbackRequests.WithLabelValues("failure").Inc()
		observability.RecordErrorInContext(ctx, err)
		s.logger.ErrorContext(ctx, "AI feedback generation failed",
			slog.Uint64("post_id", uint64(post.ID)),
			slog.String("model", s.cfg.AIModel),
			slog.String("error", err.Error()),
		)
		return aiFailureFeedback
	}

	observability.AIFeedbackRequests.WithLabelValues("success").Inc()
	return feedback
}

func (s *AIFeedbackService) callProvider(ctx context.Context, post *models.Post) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: s.cfg.AIModel,
		Messages: []chatMessage{
			{Role: "system", Content: aiSystemPrompt},
			{Role: "user", Content: buildReviewPrompt(post)},
		},
		Temperature: s.cfg.AITemperature,
		MaxTokens:   s.cfg.AIMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	url := s.endpoint
	if url == "" {
		url = openAIChatCompletionsURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.OpenAIAPIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("chat completion error (status %d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("chat completion returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("chat completion returned no content")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func buildReviewPrompt(post *models.Post) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", post.Title)
	if post.LangTags != "" {
		fmt.Fprintf(&b, "Languages: %s\n", post.LangTags)
	}
	if post.StackTags != "" {
		fmt.Fprintf(&b, "Stack: %s\n", post.StackTags)
	}
	if !post.ContentsType && post.ProblemStatement != "" {
		fmt.Fprintf(&b, "Problem:\n%s\n", post.ProblemStatement)
	}
	fmt.Fprintf(&b, "Summary:\n%s\n", post.Summary)
	fmt.Fprintf(&b, "Code:\n%s\n", post.Code)
	return b.String()
}
