package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edumesh/eduagent/pkg/assistant"
	"github.com/edumesh/eduagent/pkg/errmodel"
	"github.com/edumesh/eduagent/pkg/intent"
	"github.com/edumesh/eduagent/pkg/session"
)

func testDispatcher(opts ...session.Option) *Dispatcher {
	return NewDispatcher(session.NewRegistry(opts...))
}

func TestTools_Order(t *testing.T) {
	d := testDispatcher()
	want := []string{"process_message", "get_tasks", "create_task", "update_task", "get_agent_status", "analyze_intent"}
	got := d.Tools()
	if len(got) != len(want) {
		t.Fatalf("tool count = %d, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("Tools()[%d] = %s, want %s", i, got[i].Name, name)
		}
		if err := CompileJSONSchema(got[i].InputSchema); err != nil {
			t.Fatalf("schema for %s invalid: %v", name, err)
		}
	}
}

func TestCall_UnknownToolAndMissingArgs(t *testing.T) {
	d := testDispatcher()
	ctx := context.Background()

	res := d.Call(ctx, "explode", nil)
	if !res.IsErr() || res.Err().Code != "tool_not_found" {
		t.Fatalf("unexpected result: %+v", res)
	}

	res = d.Call(ctx, "create_task", map[string]any{"title": "no user"})
	if !res.IsErr() || res.Err().Category != errmodel.CategoryValidation {
		t.Fatalf("missing user_id should be a validation error: %+v", res.Err())
	}

	res = d.Call(ctx, "create_task", map[string]any{"title": "t", "user_id": "u", "priority": "urgent"})
	if !res.IsErr() {
		t.Fatal("priority outside the enum should be rejected")
	}
}

func TestCreateThenGetTasks(t *testing.T) {
	d := testDispatcher()
	ctx := context.Background()

	before := d.Call(ctx, "get_tasks", map[string]any{"user_id": "u1", "category": "math"})
	if before.IsErr() {
		t.Fatal(before.Err())
	}
	n := before.Payload()["count"].(int)

	res := d.Call(ctx, "create_task", map[string]any{
		"title": "practice quadratics", "user_id": "u1", "category": "math", "priority": "high",
	})
	if res.IsErr() {
		t.Fatal(res.Err())
	}
	created := res.Payload()["created_task"].(session.Task)
	if created.ID == "" || created.Status != session.StatusPending || created.Priority != session.PriorityHigh {
		t.Fatalf("unexpected task: %+v", created)
	}

	after := d.Call(ctx, "get_tasks", map[string]any{"user_id": "u1", "category": "math"})
	tasks := after.Payload()["tasks"].([]session.Task)
	if len(tasks) != n+1 {
		t.Fatalf("task count = %d, want %d", len(tasks), n+1)
	}
	found := false
	for _, tk := range tasks {
		if tk.ID == created.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("created task missing from get_tasks")
	}

	filtered := d.Call(ctx, "get_tasks", map[string]any{"user_id": "u1", "category": "math", "status": "completed"})
	if len(filtered.Payload()["tasks"].([]session.Task)) != 0 {
		t.Fatal("status filter should exclude pending tasks")
	}
}

func TestUpdateTask(t *testing.T) {
	d := testDispatcher()
	ctx := context.Background()

	res := d.Call(ctx, "create_task", map[string]any{"title": "essay draft", "user_id": "u1"})
	id := res.Payload()["created_task"].(session.Task).ID

	res = d.Call(ctx, "update_task", map[string]any{
		"task_id": id, "user_id": "u1", "status": "completed", "priority": "low",
	})
	if res.IsErr() {
		t.Fatal(res.Err())
	}
	upd := res.Payload()["updated_task"].(session.Task)
	if upd.Status != "completed" || upd.Priority != "low" || upd.UpdatedAt == nil {
		t.Fatalf("unexpected update: %+v", upd)
	}
	if upd.Title != "essay draft" {
		t.Fatal("absent fields must not be overwritten")
	}

	res = d.Call(ctx, "update_task", map[string]any{"task_id": "nope", "user_id": "u1", "status": "completed"})
	if !res.IsErr() || res.Err().Code != "task_not_found" {
		t.Fatalf("missing id should be a lookup error: %+v", res.Err())
	}
	// The miss must not have touched the existing task.
	check := d.Call(ctx, "get_tasks", map[string]any{"user_id": "u1"})
	if got := check.Payload()["tasks"].([]session.Task)[0]; got.Status != "completed" {
		t.Fatalf("existing task mutated: %+v", got)
	}
}

func TestProcessMessage_MockFallbackCreatesTask(t *testing.T) {
	d := testDispatcher()
	ctx := context.Background()

	res := d.Call(ctx, "process_message", map[string]any{
		"user_input": "add flashcards for the french vocab test",
		"user_id":    "u1",
		"category":   "languages",
	})
	if res.IsErr() {
		t.Fatal(res.Err())
	}
	created := res.Payload()["created_tasks"].([]session.Task)
	if len(created) != 1 {
		t.Fatalf("created_tasks = %d, want 1", len(created))
	}
	if created[0].Status != session.StatusPending || created[0].Category != "languages" {
		t.Fatalf("unexpected task: %+v", created[0])
	}
	if res.Payload()["response"].(string) == "" {
		t.Fatal("mock response missing")
	}

	// The same task must be visible in the session.
	listed := d.Call(ctx, "get_tasks", map[string]any{"user_id": "u1", "category": "languages"})
	tasks := listed.Payload()["tasks"].([]session.Task)
	if len(tasks) != 1 || tasks[0].ID != created[0].ID {
		t.Fatalf("session tasks out of sync: %+v", tasks)
	}

	// Non-creation input must not synthesize tasks.
	res = d.Call(ctx, "process_message", map[string]any{
		"user_input": "how do i conjugate être?", "user_id": "u1", "category": "languages",
	})
	if len(res.Payload()["created_tasks"].([]session.Task)) != 0 {
		t.Fatal("question should not create tasks")
	}
}

func TestProcessMessage_HistoryAndStatus(t *testing.T) {
	d := testDispatcher()
	ctx := context.Background()

	d.Call(ctx, "process_message", map[string]any{"user_input": "hello", "user_id": "u1"})
	res := d.Call(ctx, "get_agent_status", map[string]any{"user_id": "u1"})
	p := res.Payload()
	if p["session_key"] != "u1_general" {
		t.Fatalf("session_key = %v", p["session_key"])
	}
	if p["conversation_length"].(int) != 2 {
		t.Fatalf("conversation_length = %v, want 2 (user + assistant)", p["conversation_length"])
	}
	if p["agent_attached"].(bool) {
		t.Fatal("no factory configured; agent_attached must be false")
	}
}

type failingAssistant struct{}

func (failingAssistant) Name() string { return "failing" }
func (failingAssistant) ProcessMessage(ctx context.Context, input string) (assistant.Reply, error) {
	return assistant.Reply{}, errors.New("upstream 500")
}

func TestProcessMessage_AssistantFailureEmbedded(t *testing.T) {
	f := func(ctx context.Context, cfg assistant.Config) (assistant.Assistant, error) {
		return failingAssistant{}, nil
	}
	d := NewDispatcher(session.NewRegistry(session.WithAssistant(f, nil)))
	res := d.Call(context.Background(), "process_message", map[string]any{"user_input": "hi", "user_id": "u1"})
	if res.IsErr() {
		t.Fatal("invocation failure must not fail the call itself")
	}
	resp := res.Payload()["response"].(string)
	if resp == "" || resp[:6] != "Error:" {
		t.Fatalf("error text not embedded: %q", resp)
	}
}

func TestCall_PanicRecovered(t *testing.T) {
	d := testDispatcher()
	d.register(ToolDescriptor{Name: "boom", InputSchema: []byte(`{"type":"object"}`)},
		func(ctx context.Context, args map[string]any) (map[string]any, error) { panic("kaboom") })
	res := d.Call(context.Background(), "boom", nil)
	if !res.IsErr() || res.Err().Code != "panic" {
		t.Fatalf("panic not converted: %+v", res)
	}
}

func TestAnalyzeIntent(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := NewDispatcher(session.NewRegistry(), WithClock(func() time.Time { return fixed }))
	res := d.Call(context.Background(), "analyze_intent", map[string]any{
		"user_input": "Create a new task for tomorrow", "user_id": "u1",
	})
	if res.IsErr() {
		t.Fatal(res.Err())
	}
	p := res.Payload()
	if p["intent"] != intent.Create {
		t.Fatalf("intent = %v, want create", p["intent"])
	}
	if got := p["confidence"].(float64); got != 0.8 {
		t.Fatalf("confidence = %v, want 0.8", got)
	}
	if p["analysis_timestamp"] != "2025-06-01T12:00:00Z" {
		t.Fatalf("timestamp = %v", p["analysis_timestamp"])
	}
}
