package ai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/serene/backend/internal/config"
	"github.com/zhouzirui/serene/backend/internal/model/chat"
)

// OpenAICompleter calls the OpenAI chat completions API.
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAICompleter creates a completer from the OpenAI settings in cfg.
func NewOpenAICompleter(cfg config.AIConfig) *OpenAICompleter {
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}

	return &OpenAICompleter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.OpenAIModel,
		temperature: cfg.OpenAITemperature,
	}
}

// Complete implements Completer.
func (o *OpenAICompleter) Complete(ctx context.Context, system string, messages []chat.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)+1),
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, msg := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: openAIRole(msg.Role), Content: msg.Content})
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIRole(role chat.Role) string {
	switch role {
	case chat.RoleSystem:
		return openai.ChatMessageRoleSystem
	case chat.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
