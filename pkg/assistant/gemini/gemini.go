package gemini

import (
	"context"
	"fmt"
	"os"

	genai "google.golang.org/genai"

	"github.com/edumesh/eduagent/pkg/assistant"
)

const defaultModel = "gemini-2.5-flash-lite"

type clientWrapper struct {
	client     *genai.Client
	model      string
	rolePrompt string
}

func (c *clientWrapper) Name() string { return "gemini" }

func (c *clientWrapper) ProcessMessage(ctx context.Context, input string) (assistant.Reply, error) {
	// Single turn: role prompt and user input concatenated.
	text := c.rolePrompt + "\n" + input
	parts := []*genai.Part{{Text: text}}
	res, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{{Parts: parts}}, nil)
	if err != nil {
		return assistant.Reply{}, err
	}
	reply := assistant.Reply{Text: res.Text()}
	if draft, ok := assistant.DraftFromInput(input); ok {
		reply.CreatedTasks = append(reply.CreatedTasks, draft)
	}
	return reply, nil
}

// Factory builds the Gemini assistant using GOOGLE_API_KEY by default.
func Factory(ctx context.Context, cfg assistant.Config) (assistant.Assistant, error) { // nolint: revive
	apiKey := cfg.String("api_key", os.Getenv("GOOGLE_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: missing API key; set GOOGLE_API_KEY or cfg.api_key")
	}
	// Prefer Gemini API backend
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	role := cfg.String("role_prompt", assistant.DefaultRolePrompt(cfg.String("category", "general")))
	return &clientWrapper{
		client:     client,
		model:      cfg.String("model", defaultModel),
		rolePrompt: role,
	}, nil
}

func init() {
	_ = assistant.Register("gemini", Factory)
}
