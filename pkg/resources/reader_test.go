package resources

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/edumesh/eduagent/pkg/errmodel"
	"github.com/edumesh/eduagent/pkg/session"
)

func TestList(t *testing.T) {
	r := NewReader(session.NewRegistry())
	descs := r.List()
	if len(descs) != 4 {
		t.Fatalf("descriptor count = %d, want 4", len(descs))
	}
	if descs[0].URI != URICapabilities || descs[0].Templated {
		t.Fatalf("first descriptor unexpected: %+v", descs[0])
	}
	if descs[2].URI != TemplateTasks || !descs[2].Templated {
		t.Fatalf("tasks template unexpected: %+v", descs[2])
	}
}

func TestRead_Capabilities(t *testing.T) {
	r := NewReader(session.NewRegistry())
	text, rerr := r.Read(context.Background(), URICapabilities)
	if rerr != nil {
		t.Fatal(rerr)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		t.Fatalf("capabilities not JSON: %v", err)
	}
	intents := doc["supported_intents"].([]any)
	if len(intents) != 8 || intents[0] != "create" {
		t.Fatalf("unexpected intents: %v", intents)
	}
	if _, ok := doc["supported_categories"]; !ok {
		t.Fatal("categories missing")
	}
}

func TestRead_ActiveAgentsReflectsRegistry(t *testing.T) {
	reg := session.NewRegistry()
	r := NewReader(reg)
	ctx := context.Background()

	text, rerr := r.Read(ctx, URIActiveAgents)
	if rerr != nil {
		t.Fatal(rerr)
	}
	var snap struct {
		Count    int               `json:"count"`
		Sessions []session.Summary `json:"sessions"`
	}
	if err := json.Unmarshal([]byte(text), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Count != 0 {
		t.Fatalf("empty registry should list no sessions, got %d", snap.Count)
	}

	s := reg.GetOrCreate(ctx, "u1", "math", "")
	s.AddTask(session.NewTask("u1", "math", "t", "", "", time.Now().UTC()))
	s.AppendMessage("user", "hi", time.Now().UTC())

	text, _ = r.Read(ctx, URIActiveAgents)
	if err := json.Unmarshal([]byte(text), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Count != 1 || snap.Sessions[0].Key != "u1_math" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Sessions[0].TaskCount != 1 || snap.Sessions[0].ConversationLength != 1 {
		t.Fatalf("counts must match live session: %+v", snap.Sessions[0])
	}
}

func TestRead_TemplatedURIs(t *testing.T) {
	reg := session.NewRegistry()
	r := NewReader(reg)
	ctx := context.Background()

	// Reading creates the session (get-or-create semantics).
	text, rerr := r.Read(ctx, "tasks/u2/science")
	if rerr != nil {
		t.Fatal(rerr)
	}
	var tasks struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(text), &tasks); err != nil {
		t.Fatal(err)
	}
	if tasks.Count != 0 || reg.Len() != 1 {
		t.Fatalf("count=%d len=%d", tasks.Count, reg.Len())
	}

	reg.GetOrCreate(ctx, "u2", "science", "").AppendMessage("user", "hello", time.Now().UTC())
	text, rerr = r.Read(ctx, "conversation_history/u2/science")
	if rerr != nil {
		t.Fatal(rerr)
	}
	var hist struct {
		Count    int               `json:"count"`
		Messages []session.Message `json:"messages"`
	}
	if err := json.Unmarshal([]byte(text), &hist); err != nil {
		t.Fatal(err)
	}
	if hist.Count != 1 || hist.Messages[0].Role != "user" {
		t.Fatalf("unexpected history: %+v", hist)
	}

	// Scheme-prefixed form is tolerated.
	if _, rerr := r.Read(ctx, "agents://tasks/u2/science"); rerr != nil {
		t.Fatalf("scheme prefix should be stripped: %v", rerr)
	}
}

func TestRead_UnknownURI(t *testing.T) {
	r := NewReader(session.NewRegistry())
	_, rerr := r.Read(context.Background(), "bogus/uri")
	if rerr == nil {
		t.Fatal("unknown uri must error")
	}
	if rerr.Category != errmodel.CategoryLookup || rerr.Code != "resource_not_found" {
		t.Fatalf("unexpected error: %+v", rerr)
	}
	if _, rerr := r.Read(context.Background(), "tasks/only-user"); rerr == nil {
		t.Fatal("malformed template path must error")
	}
}
