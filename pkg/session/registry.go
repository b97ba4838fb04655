package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/edumesh/eduagent/pkg/assistant"
)

// Defaults for the retention policy. The source system this replaces kept both
// the session map and each history unbounded; here both are capped.
const (
	DefaultCapacity     = 1024
	DefaultHistoryLimit = 200
)

// Registry owns the mapping from session key (user_id + "_" + category) to
// session state. It is an explicit object handed to request handlers rather
// than package-level state.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	clock    uint64

	capacity     int
	historyLimit int
	estimate     TokenEstimator
	tokenBudget  int

	factory    assistant.Factory
	factoryCfg assistant.Config
	now        func() time.Time
	log        *slog.Logger
}

type entry struct {
	sess     *Session
	lastUsed uint64
}

// Option configures the Registry.
type Option func(*Registry)

// WithCapacity bounds the number of live sessions; the least recently used
// session is evicted when the bound is exceeded. n <= 0 keeps the default.
func WithCapacity(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithHistoryLimit caps each session's conversation history at n messages.
func WithHistoryLimit(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.historyLimit = n
		}
	}
}

// WithTokenBudget additionally bounds each history by an estimated token
// count. The estimator runs on message content only.
func WithTokenBudget(est TokenEstimator, max int) Option {
	return func(r *Registry) {
		if est != nil && max > 0 {
			r.estimate = est
			r.tokenBudget = max
		}
	}
}

// WithAssistant sets the factory used to construct each session's assistant
// handle. Without it every session runs with a nil handle (mock path).
func WithAssistant(f assistant.Factory, cfg assistant.Config) Option {
	return func(r *Registry) {
		r.factory = f
		r.factoryCfg = cfg
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions:     make(map[string]*entry),
		capacity:     DefaultCapacity,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key derives the deterministic session key for a (user, category) pair.
func Key(userID, category string) string {
	return userID + "_" + category
}

// GetOrCreate returns the session for (userID, category), creating it on first
// access. Assistant construction failure degrades to a nil handle instead of
// propagating; repeated calls return the same session while it remains live.
func (r *Registry) GetOrCreate(ctx context.Context, userID, category, rolePrompt string) *Session {
	key := Key(userID, category)

	r.mu.Lock()
	r.clock++
	if e, ok := r.sessions[key]; ok {
		e.lastUsed = r.clock
		r.mu.Unlock()
		return e.sess
	}
	tick := r.clock
	r.mu.Unlock()

	// Construct outside the lock: the factory may dial a provider.
	sess := &Session{
		Key:          key,
		UserID:       userID,
		Category:     category,
		CreatedAt:    r.now().UTC(),
		historyLimit: r.historyLimit,
		estimate:     r.estimate,
		tokenBudget:  r.tokenBudget,
	}
	if r.factory != nil {
		if rolePrompt == "" {
			rolePrompt = assistant.DefaultRolePrompt(category)
		}
		cfg := assistant.Config{"role_prompt": rolePrompt, "category": category, "user_id": userID}
		for k, v := range r.factoryCfg {
			cfg[k] = v
		}
		a, err := r.factory(ctx, cfg)
		if err != nil {
			r.log.Warn("assistant construction failed; session degrades to mock",
				"user_id", userID, "category", category, "error", err)
		} else {
			sess.Assistant = a
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Lost the race to another creator: keep the first session.
	if e, ok := r.sessions[key]; ok {
		e.lastUsed = r.clock
		return e.sess
	}
	r.sessions[key] = &entry{sess: sess, lastUsed: tick}
	r.evictLocked()
	return sess
}

// evictLocked drops least-recently-used sessions until within capacity.
func (r *Registry) evictLocked() {
	for r.capacity > 0 && len(r.sessions) > r.capacity {
		var victim string
		var oldest uint64
		first := true
		for k, e := range r.sessions {
			if first || e.lastUsed < oldest {
				victim, oldest, first = k, e.lastUsed, false
			}
		}
		delete(r.sessions, victim)
		r.log.Info("session evicted", "key", victim)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Summary describes one live session for status snapshots.
type Summary struct {
	Key                string    `json:"key"`
	UserID             string    `json:"user_id"`
	Category           string    `json:"category"`
	TaskCount          int       `json:"task_count"`
	ConversationLength int       `json:"conversation_length"`
	CreatedAt          time.Time `json:"created_at"`
	AgentAttached      bool      `json:"agent_attached"`
}

// Snapshot returns a summary of every live session, ordered by key for
// deterministic output.
func (r *Registry) Snapshot() []Summary {
	r.mu.Lock()
	live := make([]*Session, 0, len(r.sessions))
	for _, e := range r.sessions {
		live = append(live, e.sess)
	}
	r.mu.Unlock()

	out := make([]Summary, 0, len(live))
	for _, s := range live {
		tasks, msgs := s.Counts()
		out = append(out, Summary{
			Key:                s.Key,
			UserID:             s.UserID,
			Category:           s.Category,
			TaskCount:          tasks,
			ConversationLength: msgs,
			CreatedAt:          s.CreatedAt,
			AgentAttached:      s.Assistant != nil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
