package eval

import "context"

// Feedback function names. They match the column names the dashboard groups
// by, so renaming one is a schema change.
const (
	FeedbackGroundedness     = "groundedness"
	FeedbackContextRelevance = "context_relevance"
	FeedbackAnswerRelevance  = "answer_relevance"
)

// AllFeedbacks lists every feedback function run per turn.
var AllFeedbacks = []string{
	FeedbackGroundedness,
	FeedbackContextRelevance,
	FeedbackAnswerRelevance,
}

// Sample is one chat turn under evaluation.
type Sample struct {
	Query   string
	Answer  string
	Context []string
}

// Score is a named feedback result for a sample.
type Score struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Verdict Verdict `json:"verdict"`
}

// Scorer scores one feedback function for a sample in [0,1].
type Scorer interface {
	Score(ctx context.Context, name string, sample Sample) (float64, error)
}
