// Package resources resolves read-only data endpoints against the session
// registry: a static capability document, a live-session snapshot, and
// per-session task/history views addressed by templated URIs.
package resources

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/edumesh/eduagent/pkg/errmodel"
	"github.com/edumesh/eduagent/pkg/intent"
	"github.com/edumesh/eduagent/pkg/session"
)

// Canonical resource URIs. Earlier revisions of the protocol used an
// "agents://" scheme prefix; Read tolerates and strips it.
const (
	URICapabilities = "agent_capabilities"
	URIActiveAgents = "active_agents"

	TemplateTasks   = "tasks/{user_id}/{category}"
	TemplateHistory = "conversation_history/{user_id}/{category}"

	schemePrefix = "agents://"
)

// Descriptor describes one readable resource for resources/list.
type Descriptor struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
	Templated   bool
}

// Reader answers resource reads against an explicit registry.
type Reader struct {
	reg *session.Registry
}

// NewReader creates a Reader over the given registry.
func NewReader(reg *session.Registry) *Reader {
	return &Reader{reg: reg}
}

// List enumerates the readable resources, fixed URIs first.
func (r *Reader) List() []Descriptor {
	return []Descriptor{
		{
			URI:         URICapabilities,
			Name:        "Agent Capabilities",
			Description: "Information about assistant capabilities",
			MIMEType:    "application/json",
		},
		{
			URI:         URIActiveAgents,
			Name:        "Active Agents",
			Description: "Snapshot of all live assistant sessions",
			MIMEType:    "application/json",
		},
		{
			URI:         TemplateTasks,
			Name:        "User Tasks",
			Description: "All tasks for a specific user and category",
			MIMEType:    "application/json",
			Templated:   true,
		},
		{
			URI:         TemplateHistory,
			Name:        "Conversation History",
			Description: "Conversation history for a specific user and category",
			MIMEType:    "application/json",
			Templated:   true,
		},
	}
}

// Read resolves a URI to JSON text. Unknown URIs return a lookup error; the
// transport layer renders it as success-framed error content, never a crash.
func (r *Reader) Read(ctx context.Context, uri string) (string, *errmodel.Error) {
	path := strings.TrimPrefix(uri, schemePrefix)

	switch path {
	case URICapabilities:
		return capabilitiesJSON(), nil
	case URIActiveAgents:
		snap := r.reg.Snapshot()
		return marshal(map[string]any{"sessions": snap, "count": len(snap)})
	}

	segs := strings.Split(path, "/")
	if len(segs) == 3 {
		userID, category := segs[1], segs[2]
		switch segs[0] {
		case "tasks":
			sess := r.reg.GetOrCreate(ctx, userID, category, "")
			tasks := sess.Tasks("")
			return marshal(map[string]any{"tasks": tasks, "count": len(tasks)})
		case "conversation_history":
			sess := r.reg.GetOrCreate(ctx, userID, category, "")
			hist := sess.History()
			return marshal(map[string]any{"messages": hist, "count": len(hist)})
		}
	}

	return "", errmodel.Lookup("resource_not_found", "unknown resource uri", map[string]any{"uri": uri})
}

func marshal(v any) (string, *errmodel.Error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errmodel.System("encode", "resource not serializable", nil, err)
	}
	return string(b), nil
}

func capabilitiesJSON() string {
	intents := intent.Supported()
	names := make([]string, 0, len(intents))
	for _, it := range intents {
		names = append(names, string(it))
	}
	doc := map[string]any{
		"agents": map[string]string{
			"task_manager":         "Manages task creation, updates, and tracking",
			"education_specialist": "Provides educational content and learning guidance",
			"scheduler":            "Handles scheduling and deadline management",
			"coordinator":          "Coordinates responses between agents",
		},
		"supported_intents": names,
		"supported_categories": []string{
			"general", "math", "science", "history",
			"literature", "programming", "languages",
		},
		"features": []string{
			"Task management",
			"Educational assistance",
			"Scheduling support",
			"Intent analysis",
			"Conversation history",
		},
	}
	s, _ := marshal(doc)
	return s
}
