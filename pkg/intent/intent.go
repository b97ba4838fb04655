// Package intent provides deterministic keyword-based classification of
// free-text user input into a small fixed set of intents.
package intent

import "strings"

// Intent is the category assigned to a piece of user input.
type Intent string

const (
	Create    Intent = "create"
	Update    Intent = "update"
	Complete  Intent = "complete"
	Summary   Intent = "summary"
	Schedule  Intent = "schedule"
	Education Intent = "education"
	Question  Intent = "question"
	Query     Intent = "query"
)

// Confidence constants. Keyword and question matches share a fixed score;
// the fallback query bucket scores lower. These are not learned values.
const (
	MatchedConfidence = 0.8
	DefaultConfidence = 0.5
)

// Classification is the result of classifying one input.
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// bucket order is significant: the first matching bucket wins.
var buckets = []struct {
	intent   Intent
	keywords []string
}{
	{Create, []string{"create", "add", "new", "todo"}},
	{Update, []string{"update", "modify", "change", "edit"}},
	{Complete, []string{"complete", "done", "finished", "mark"}},
	{Summary, []string{"summary", "list", "show", "overview"}},
	{Schedule, []string{"schedule", "deadline", "priority", "when"}},
	{Education, []string{"learn", "study", "education", "course"}},
}

// Classify assigns an intent to text via case-insensitive keyword matching.
// Buckets are checked in declaration order; after the keyword buckets, input
// containing "?" classifies as a question, and anything else as a generic query.
func Classify(text string) Classification {
	lower := strings.ToLower(text)
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(lower, kw) {
				return Classification{Intent: b.intent, Confidence: MatchedConfidence}
			}
		}
	}
	if strings.Contains(text, "?") {
		return Classification{Intent: Question, Confidence: MatchedConfidence}
	}
	return Classification{Intent: Query, Confidence: DefaultConfidence}
}

// Supported lists every intent Classify can return, in bucket order.
func Supported() []Intent {
	out := make([]Intent, 0, len(buckets)+2)
	for _, b := range buckets {
		out = append(out, b.intent)
	}
	return append(out, Question, Query)
}
