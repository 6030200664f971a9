package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/serene/backend/internal/config"
	"github.com/zhouzirui/serene/backend/internal/model/chat"
)

// Completer is the external completion service: one system instruction plus
// the validated conversation in, one non-streamed text completion out. An
// empty string is a valid answer.
type Completer interface {
	Complete(ctx context.Context, system string, messages []chat.Message) (string, error)
}

// NewCompleter builds the Completer for the configured provider.
func NewCompleter(ctx context.Context, cfg config.AIConfig) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		if !cfg.Enabled() {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for provider %q", cfg.Provider)
		}
		return NewOpenAICompleter(cfg), nil
	default:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewChainCompleter(ctx, chatModel)
	}
}

// ChainCompleter runs an eino chain of a chat template and a chat model.
type ChainCompleter struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewChainCompleter compiles the template → model chain once; the result is
// safe for concurrent use.
func NewChainCompleter(ctx context.Context, chatModel model.BaseChatModel) (*ChainCompleter, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ChainCompleter{chain: runnable}, nil
}

// Complete implements Completer.
func (c *ChainCompleter) Complete(ctx context.Context, system string, messages []chat.Message) (string, error) {
	input := map[string]any{
		"system":  system,
		"history": toSchemaMessages(messages),
	}

	response, err := c.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil {
		return "", nil
	}
	return response.Content, nil
}

func toSchemaMessages(messages []chat.Message) []*schema.Message {
	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			history = append(history, schema.SystemMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		default:
			history = append(history, schema.UserMessage(msg.Content))
		}
	}
	return history
}
