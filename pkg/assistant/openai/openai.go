package openai

import (
	"context"
	"fmt"
	"os"

	oa "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/edumesh/eduagent/pkg/assistant"
)

const defaultModel = "gpt-5-nano"

type clientWrapper struct {
	client     oa.Client
	model      string
	rolePrompt string
}

func (c *clientWrapper) Name() string { return "openai" }

func (c *clientWrapper) ProcessMessage(ctx context.Context, input string) (assistant.Reply, error) {
	mm := []oa.ChatCompletionMessageParamUnion{
		oa.SystemMessage(c.rolePrompt),
		oa.UserMessage(input),
	}
	resp, err := c.client.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: mm,
	})
	if err != nil {
		return assistant.Reply{}, err
	}
	var out string
	if len(resp.Choices) > 0 {
		out = resp.Choices[0].Message.Content
	}
	reply := assistant.Reply{Text: out}
	if draft, ok := assistant.DraftFromInput(input); ok {
		reply.CreatedTasks = append(reply.CreatedTasks, draft)
	}
	return reply, nil
}

// Factory builds the OpenAI assistant. cfg keys: api_key, model, role_prompt, category.
func Factory(ctx context.Context, cfg assistant.Config) (assistant.Assistant, error) { // nolint: revive
	_ = ctx
	apiKey := cfg.String("api_key", os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("openai: missing API key; set OPENAI_API_KEY or cfg.api_key")
	}
	role := cfg.String("role_prompt", assistant.DefaultRolePrompt(cfg.String("category", "general")))
	c := oa.NewClient(option.WithAPIKey(apiKey))
	return &clientWrapper{
		client:     c,
		model:      cfg.String("model", defaultModel),
		rolePrompt: role,
	}, nil
}

func init() {
	_ = assistant.Register("openai", Factory)
}
