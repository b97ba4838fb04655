// Package assistant defines the contract for the external conversational
// assistant backing a session, plus a provider registry so transports can
// select an implementation by name.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/edumesh/eduagent/pkg/intent"
)

// TaskDraft is a task the assistant wants created as a side effect of a turn.
// The session layer assigns IDs and timestamps.
type TaskDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// Reply is the assistant's answer to one user turn.
type Reply struct {
	Text         string
	CreatedTasks []TaskDraft
}

// Assistant is the opaque handle to the external education assistant.
// Implementations block until the provider answers; callers cancel via ctx.
type Assistant interface {
	// Name returns the provider name (e.g., "openai").
	Name() string
	// ProcessMessage answers a single user turn.
	ProcessMessage(ctx context.Context, input string) (Reply, error)
}

// Config carries provider-specific construction keys.
// Common keys: role_prompt, category, user_id, model, api_key.
type Config map[string]any

// Factory constructs an Assistant from provider-specific config.
type Factory func(ctx context.Context, cfg Config) (Assistant, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers an assistant factory under a provider name.
func Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("assistant: empty provider name")
	}
	if f == nil {
		return fmt.Errorf("assistant: nil factory for %q", name)
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := factories[name]; exists {
		return fmt.Errorf("assistant: provider %q already registered", name)
	}
	factories[name] = f
	return nil
}

// Resolve gets a registered factory by name.
func Resolve(name string) (Factory, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Range iterates all registered factories.
func Range(fn func(name string, f Factory)) {
	regMu.RLock()
	defer regMu.RUnlock()
	for n, f := range factories {
		fn(n, f)
	}
}

// DefaultRolePrompt is the role prompt used when the caller supplies none.
func DefaultRolePrompt(category string) string {
	return fmt.Sprintf("You are an educational assistant specializing in %s.", category)
}

const maxDraftTitle = 120

// DraftFromInput synthesizes a task draft when the input carries a creation
// intent. Providers and the mock fallback share this so a "create"/"add"
// message yields the same side effect with or without a live assistant.
func DraftFromInput(input string) (TaskDraft, bool) {
	if intent.Classify(input).Intent != intent.Create {
		return TaskDraft{}, false
	}
	title := strings.TrimSpace(input)
	if r := []rune(title); len(r) > maxDraftTitle {
		title = string(r[:maxDraftTitle])
	}
	if title == "" {
		title = "New task"
	}
	return TaskDraft{Title: title, Priority: "medium"}, true
}

// String helper for config lookups.
func (c Config) String(key, def string) string {
	if v, ok := c[key].(string); ok && v != "" {
		return v
	}
	return def
}
