package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/edumesh/eduagent/pkg/assistant"
	"github.com/edumesh/eduagent/pkg/errmodel"
	"github.com/edumesh/eduagent/pkg/intent"
	"github.com/edumesh/eduagent/pkg/session"
)

func (d *Dispatcher) registerTools() {
	d.register(ToolDescriptor{
		Name:        "process_message",
		Description: "Process a message through the education assistant",
		InputSchema: []byte(`{"type":"object","properties":{
			"user_input":{"type":"string","description":"The user's message/query"},
			"user_id":{"type":"string","description":"Unique identifier for the user"},
			"category":{"type":"string","default":"general","description":"Category/subject area"},
			"role_prompt":{"type":"string","description":"Optional custom role prompt"}},
			"required":["user_input","user_id"],"additionalProperties":false}`),
	}, d.processMessage)

	d.register(ToolDescriptor{
		Name:        "get_tasks",
		Description: "Get tasks for a user in a specific category",
		InputSchema: []byte(`{"type":"object","properties":{
			"user_id":{"type":"string","description":"Unique identifier for the user"},
			"category":{"type":"string","default":"general","description":"Category/subject area"},
			"status":{"type":"string","description":"Optional status filter (pending, completed, ...)"}},
			"required":["user_id"],"additionalProperties":false}`),
	}, d.getTasks)

	d.register(ToolDescriptor{
		Name:        "create_task",
		Description: "Create a new task",
		InputSchema: []byte(`{"type":"object","properties":{
			"title":{"type":"string","description":"Task title"},
			"user_id":{"type":"string","description":"Unique identifier for the user"},
			"description":{"type":"string","default":"","description":"Task description"},
			"category":{"type":"string","default":"general","description":"Category/subject area"},
			"priority":{"type":"string","enum":["low","medium","high"],"default":"medium","description":"Task priority"}},
			"required":["title","user_id"],"additionalProperties":false}`),
	}, d.createTask)

	d.register(ToolDescriptor{
		Name:        "update_task",
		Description: "Update fields of an existing task",
		InputSchema: []byte(`{"type":"object","properties":{
			"task_id":{"type":"string","description":"Task identifier"},
			"user_id":{"type":"string","description":"Unique identifier for the user"},
			"category":{"type":"string","default":"general","description":"Category/subject area"},
			"title":{"type":"string"},
			"description":{"type":"string"},
			"priority":{"type":"string","enum":["low","medium","high"]},
			"status":{"type":"string"}},
			"required":["task_id","user_id"],"additionalProperties":false}`),
	}, d.updateTask)

	d.register(ToolDescriptor{
		Name:        "get_agent_status",
		Description: "Get status of the assistant session for a user/category",
		InputSchema: []byte(`{"type":"object","properties":{
			"user_id":{"type":"string","description":"Unique identifier for the user"},
			"category":{"type":"string","default":"general","description":"Category/subject area"}},
			"required":["user_id"],"additionalProperties":false}`),
	}, d.getAgentStatus)

	d.register(ToolDescriptor{
		Name:        "analyze_intent",
		Description: "Analyze user intent without full processing",
		InputSchema: []byte(`{"type":"object","properties":{
			"user_input":{"type":"string","description":"The user's message/query"},
			"user_id":{"type":"string","description":"Unique identifier for the user"},
			"category":{"type":"string","default":"general","description":"Category/subject area"}},
			"required":["user_input","user_id"],"additionalProperties":false}`),
	}, d.analyzeIntent)
}

func (d *Dispatcher) processMessage(ctx context.Context, args map[string]any) (map[string]any, error) {
	input := argStr(args, "user_input")
	userID := argStr(args, "user_id")
	category := argStrDefault(args, "category", "general")

	sess := d.reg.GetOrCreate(ctx, userID, category, argStr(args, "role_prompt"))
	sess.AppendMessage("user", input, d.now().UTC())

	var responseText string
	var drafts []assistant.TaskDraft
	if sess.Assistant != nil {
		reply, err := sess.Assistant.ProcessMessage(ctx, input)
		if err != nil {
			// Invocation failure degrades to an error-text response; the call
			// itself still succeeds.
			responseText = "Error: " + errmodel.Agent("invoke_failed", "assistant call failed", nil, err).Error()
		} else {
			responseText = reply.Text
			drafts = reply.CreatedTasks
		}
	} else {
		responseText = mockResponse(input, category)
		if draft, ok := assistant.DraftFromInput(input); ok {
			drafts = append(drafts, draft)
		}
	}

	created := make([]session.Task, 0, len(drafts))
	for _, dr := range drafts {
		t := session.NewTask(userID, category, dr.Title, dr.Description, dr.Priority, d.now().UTC())
		sess.AddTask(t)
		created = append(created, t)
	}
	sess.AppendMessage("assistant", responseText, d.now().UTC())

	return map[string]any{
		"response":      responseText,
		"created_tasks": created,
		"timestamp":     d.now().UTC().Format(time.RFC3339),
	}, nil
}

func mockResponse(input, category string) string {
	if _, ok := assistant.DraftFromInput(input); ok {
		return fmt.Sprintf("No live assistant is attached; created a task from your request: %q", input)
	}
	return fmt.Sprintf("No live assistant is attached for %s. You said: %q", category, input)
}

func (d *Dispatcher) getTasks(ctx context.Context, args map[string]any) (map[string]any, error) {
	sess := d.reg.GetOrCreate(ctx, argStr(args, "user_id"), argStrDefault(args, "category", "general"), "")
	tasks := sess.Tasks(argStr(args, "status"))
	return map[string]any{"tasks": tasks, "count": len(tasks)}, nil
}

func (d *Dispatcher) createTask(ctx context.Context, args map[string]any) (map[string]any, error) {
	userID := argStr(args, "user_id")
	category := argStrDefault(args, "category", "general")
	sess := d.reg.GetOrCreate(ctx, userID, category, "")

	t := session.NewTask(userID, category,
		argStr(args, "title"),
		argStr(args, "description"),
		argStrDefault(args, "priority", session.PriorityMedium),
		d.now().UTC())
	sess.AddTask(t)
	return map[string]any{
		"created_task": t,
		"message":      "Task created: " + t.Title,
	}, nil
}

func (d *Dispatcher) updateTask(ctx context.Context, args map[string]any) (map[string]any, error) {
	taskID := argStr(args, "task_id")
	sess := d.reg.GetOrCreate(ctx, argStr(args, "user_id"), argStrDefault(args, "category", "general"), "")

	upd := session.TaskUpdate{
		Title:       optStr(args, "title"),
		Description: optStr(args, "description"),
		Priority:    optStr(args, "priority"),
		Status:      optStr(args, "status"),
	}
	t, ok := sess.UpdateTask(taskID, upd, d.now().UTC())
	if !ok {
		return nil, errmodel.Lookup("task_not_found", "no task with that id in this session",
			map[string]any{"task_id": taskID, "session": sess.Key})
	}
	return map[string]any{"updated_task": t}, nil
}

func (d *Dispatcher) getAgentStatus(ctx context.Context, args map[string]any) (map[string]any, error) {
	sess := d.reg.GetOrCreate(ctx, argStr(args, "user_id"), argStrDefault(args, "category", "general"), "")
	tasks, msgs := sess.Counts()
	return map[string]any{
		"session_key":         sess.Key,
		"user_id":             sess.UserID,
		"category":            sess.Category,
		"task_count":          tasks,
		"conversation_length": msgs,
		"created_at":          sess.CreatedAt.Format(time.RFC3339),
		"agent_attached":      sess.Assistant != nil,
	}, nil
}

func (d *Dispatcher) analyzeIntent(ctx context.Context, args map[string]any) (map[string]any, error) {
	input := argStr(args, "user_input")
	// Touch the session so status snapshots see the caller, matching
	// process_message semantics.
	_ = d.reg.GetOrCreate(ctx, argStr(args, "user_id"), argStrDefault(args, "category", "general"), "")

	c := intent.Classify(input)
	return map[string]any{
		"intent":             c.Intent,
		"confidence":         c.Confidence,
		"user_input":         input,
		"analysis_timestamp": d.now().UTC().Format(time.RFC3339),
	}, nil
}

func argStr(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func argStrDefault(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

func optStr(args map[string]any, key string) *string {
	if v, ok := args[key].(string); ok {
		return &v
	}
	return nil
}
