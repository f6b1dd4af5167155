// Package eval scores chat turns with LLM-as-judge feedback functions and
// estimates their token cost. The scoring models live behind external
// endpoints; this package only shapes prompts and parses scores.
package eval

// Verdict classifies a feedback score against configured thresholds.
type Verdict int

const (
	VerdictCorrect Verdict = iota
	VerdictAmbiguous
	VerdictIncorrect
)

// String returns the string representation of Verdict
func (v Verdict) String() string {
	switch v {
	case VerdictCorrect:
		return "correct"
	case VerdictAmbiguous:
		return "ambiguous"
	case VerdictIncorrect:
		return "incorrect"
	default:
		return "unknown"
	}
}

// Thresholds determine how scores map to verdicts.
type Thresholds struct {
	Correct   float64 // scores >= Correct are correct (default 0.7)
	Incorrect float64 // scores < Incorrect are incorrect (default 0.3)
}

// Classify maps a score in [0,1] to a verdict.
func (t Thresholds) Classify(score float64) Verdict {
	correct := t.Correct
	if correct == 0 {
		correct = 0.7
	}
	incorrect := t.Incorrect
	if incorrect == 0 {
		incorrect = 0.3
	}
	switch {
	case score >= correct:
		return VerdictCorrect
	case score < incorrect:
		return VerdictIncorrect
	default:
		return VerdictAmbiguous
	}
}
