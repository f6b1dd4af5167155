package eval

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/civicsense/civicsense/common/logger"
	"github.com/civicsense/civicsense/llm"
)

// LLMScorer uses a judge LLM to score feedback functions. Prompts ask for a
// bare float; parsing is tolerant of prose around the number.
type LLMScorer struct {
	Provider llm.Provider
}

const groundednessPrompt = `You are an expert at judging whether a statement is supported by source material.
Rate how well the ANSWER is grounded in the CONTEXT on a scale from 0 to 1.
0 means the answer is unsupported or contradicts the context, 1 means every claim is supported.
Provide ONLY the score as a float between 0 and 1.`

const contextRelevancePrompt = `You are an expert at evaluating document relevance.
Rate how relevant the CONTEXT is to the QUESTION on a scale from 0 to 1.
0 means completely irrelevant, 1 means perfectly relevant.
Provide ONLY the score as a float between 0 and 1.`

const answerRelevancePrompt = `You are an expert at evaluating answer quality.
Rate how directly the ANSWER addresses the QUESTION on a scale from 0 to 1.
0 means it does not address the question at all, 1 means it answers it fully.
Provide ONLY the score as a float between 0 and 1.`

// Score implements the Scorer interface using LLM-based relevance scoring.
func (s *LLMScorer) Score(ctx context.Context, name string, sample Sample) (float64, error) {
	prompt, err := buildJudgePrompt(name, sample)
	if err != nil {
		return 0, err
	}

	response, err := s.Provider.GenerateCompletion(ctx, prompt)
	if err != nil {
		logger.Warnf("eval: judge call failed for %s: %v", name, err)
		return 0.5, err
	}
	return parseScore(name, response), nil
}

func buildJudgePrompt(name string, sample Sample) (string, error) {
	contextText := strings.Join(sample.Context, "\n\n")
	switch name {
	case FeedbackGroundedness:
		return fmt.Sprintf("%s\n\nCONTEXT: %s\n\nANSWER: %s", groundednessPrompt, contextText, sample.Answer), nil
	case FeedbackContextRelevance:
		return fmt.Sprintf("%s\n\nQUESTION: %s\n\nCONTEXT: %s", contextRelevancePrompt, sample.Query, contextText), nil
	case FeedbackAnswerRelevance:
		return fmt.Sprintf("%s\n\nQUESTION: %s\n\nANSWER: %s", answerRelevancePrompt, sample.Query, sample.Answer), nil
	default:
		return "", fmt.Errorf("unknown feedback function: %s", name)
	}
}

var scoreRegex = regexp.MustCompile(`(\d+(\.\d+)?)`)

// parseScore extracts a float in [0,1] from a judge response, defaulting to
// the middle value on parse failure.
func parseScore(name, response string) float64 {
	match := scoreRegex.FindStringSubmatch(response)
	score := 0.5
	if len(match) > 0 {
		parsed, err := strconv.ParseFloat(match[1], 64)
		if err == nil && parsed >= 0 && parsed <= 1 {
			score = parsed
		} else {
			logger.Warnf("eval: %s score out of range or invalid: %q", name, match[1])
		}
	} else {
		logger.Warnf("eval: failed to parse %s score from response: %s", name, response)
	}
	return score
}
