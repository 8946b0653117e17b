package generate

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/marcheroute/marcheroute/pkg/common"
	"github.com/marcheroute/marcheroute/pkg/config"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	response openai.ChatCompletionResponse
	err      error
	got      openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.got = request
	return f.response, f.err
}

func TestGenerateWithoutAPIKeyIsUnavailable(t *testing.T) {
	svc := NewService(config.MistralConfig{Model: "mistral-small-latest"})

	_, err := svc.Generate(context.Background(), "hello")
	require.Error(t, err)

	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Code)
}

func TestGenerateSendsSingleUserMessage(t *testing.T) {
	completer := &fakeCompleter{
		response: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "a lovely walk"}},
			},
		},
	}
	svc := NewServiceWithClient(completer, "mistral-small-latest")

	answer, err := svc.Generate(context.Background(), "describe the walk")
	require.NoError(t, err)
	assert.Equal(t, "a lovely walk", answer)

	assert.Equal(t, "mistral-small-latest", completer.got.Model)
	require.Len(t, completer.got.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, completer.got.Messages[0].Role)
	assert.Equal(t, "describe the walk", completer.got.Messages[0].Content)
}

func TestGenerateUpstreamFailureIsBadGateway(t *testing.T) {
	svc := NewServiceWithClient(&fakeCompleter{err: errors.New("connection refused")}, "mistral-small-latest")

	_, err := svc.Generate(context.Background(), "hello")
	require.Error(t, err)

	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, appErr.Code)
}

func TestGenerateEmptyChoicesIsBadGateway(t *testing.T) {
	svc := NewServiceWithClient(&fakeCompleter{}, "mistral-small-latest")

	_, err := svc.Generate(context.Background(), "hello")
	require.Error(t, err)

	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, appErr.Code)
}
