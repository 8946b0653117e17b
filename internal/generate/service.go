package generate

import (
	"context"

	"github.com/marcheroute/marcheroute/pkg/common"
	"github.com/marcheroute/marcheroute/pkg/config"
	"github.com/marcheroute/marcheroute/pkg/logger"
	"github.com/marcheroute/marcheroute/pkg/resilience"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ChatCompleter is the slice of the OpenAI-compatible client the service uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Service produces narrative text through a Mistral-compatible
// chat-completions API.
type Service struct {
	client  ChatCompleter
	model   string
	breaker *resilience.CircuitBreaker
}

// NewService creates the generation service. With no API key configured the
// service stays up but rejects requests as unavailable.
func NewService(cfg config.MistralConfig) *Service {
	s := &Service{model: cfg.Model}
	if cfg.APIKey == "" {
		logger.Warn("MISTRAL_API_KEY is not set, text generation is disabled")
		return s
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	s.client = openai.NewClientWithConfig(clientConfig)
	return s
}

// NewServiceWithClient builds the service around an existing client.
func NewServiceWithClient(client ChatCompleter, model string) *Service {
	return &Service{client: client, model: model}
}

// SetCircuitBreaker attaches a breaker to the upstream calls.
func (s *Service) SetCircuitBreaker(breaker *resilience.CircuitBreaker) {
	s.breaker = breaker
}

// Generate sends prompt as a single user message and returns the model's
// reply.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	if s.client == nil {
		return "", common.NewUnavailableError("text generation is not configured")
	}

	result, err := s.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return s.complete(ctx, prompt)
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}

func (s *Service) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		logger.ErrorContext(ctx, "Chat completion request failed",
			zap.String("model", s.model),
			zap.Error(err),
		)
		return "", common.NewBadGatewayError("text generation upstream failed", err)
	}

	if len(resp.Choices) == 0 {
		return "", common.NewBadGatewayError("text generation upstream returned no choices", nil)
	}

	return resp.Choices[0].Message.Content, nil
}
