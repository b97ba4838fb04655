// Package session holds the in-memory per-(user, category) state bundles:
// conversation history, tasks, and the assistant handle, plus the registry
// that owns them.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edumesh/eduagent/pkg/assistant"
)

// Task priorities and statuses. Priority is a closed set; status is open-ended
// but starts at "pending".
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Task is a single task owned by a session. Tasks are never deleted; they are
// created and mutated in place.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	UserID      string     `json:"user_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// TaskUpdate carries the fields an update may overwrite. Nil means "leave as is".
type TaskUpdate struct {
	Title       *string
	Description *string
	Priority    *string
	Status      *string
}

// Message is one turn of conversation history.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
}

// Session is the per-(user, category) state bundle. Assistant may be nil when
// provider construction failed or no provider is configured; callers fall back
// to mock behavior in that case.
type Session struct {
	Key       string
	UserID    string
	Category  string
	Assistant assistant.Assistant
	CreatedAt time.Time

	mu       sync.Mutex
	messages []Message
	tasks    []Task

	historyLimit int
	estimate     TokenEstimator
	tokenBudget  int
}

// AppendMessage records one conversation turn and applies the retention policy.
func (s *Session) AppendMessage(role, content string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Timestamp: at, Role: role, Content: content})
	s.trimLocked()
}

// trimLocked enforces the message-count cap, then the optional token budget,
// always dropping the oldest turns first.
func (s *Session) trimLocked() {
	if s.historyLimit > 0 && len(s.messages) > s.historyLimit {
		s.messages = s.messages[len(s.messages)-s.historyLimit:]
	}
	if s.estimate == nil || s.tokenBudget <= 0 {
		return
	}
	total := 0
	for _, m := range s.messages {
		total += s.estimate(m.Content)
	}
	for len(s.messages) > 1 && total > s.tokenBudget {
		total -= s.estimate(s.messages[0].Content)
		s.messages = s.messages[1:]
	}
}

// History returns a copy of the conversation history in insertion order.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// NewTask mints a task with a fresh UUID and defaulted fields. The task is not
// yet attached to any session.
func NewTask(userID, category, title, description, priority string, at time.Time) Task {
	if priority == "" {
		priority = PriorityMedium
	}
	return Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Category:    category,
		Priority:    priority,
		Status:      StatusPending,
		UserID:      userID,
		CreatedAt:   at,
	}
}

// AddTask appends a task; insertion order is creation order.
func (s *Session) AddTask(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
}

// Tasks returns a copy of the task list, optionally filtered by exact status.
func (s *Session) Tasks(status string) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	return out
}

// UpdateTask overwrites the provided fields of the task with the given id and
// stamps UpdatedAt. The second return is false when no task matches; nothing is
// mutated in that case.
func (s *Session) UpdateTask(id string, upd TaskUpdate, at time.Time) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		if upd.Title != nil {
			s.tasks[i].Title = *upd.Title
		}
		if upd.Description != nil {
			s.tasks[i].Description = *upd.Description
		}
		if upd.Priority != nil {
			s.tasks[i].Priority = *upd.Priority
		}
		if upd.Status != nil {
			s.tasks[i].Status = *upd.Status
		}
		ts := at
		s.tasks[i].UpdatedAt = &ts
		return s.tasks[i], true
	}
	return Task{}, false
}

// Counts returns the task count and conversation length in one lock hold.
func (s *Session) Counts() (tasks, messages int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks), len(s.messages)
}
