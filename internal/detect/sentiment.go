// Package detect implements the sentiment and intent detectors from
// spec.md §4.6: deterministic, pattern-based, local functions from an
// utterance (or an assistant/user pair) to a structured result. None of
// them make network calls, mirroring the teacher's preference for pure
// functions wherever the domain allows it.
package detect

import (
	"strings"

	"github.com/brightline/callengine/internal/session"
)

type weightedPattern struct {
	phrase string
	weight float64
}

var positivePatterns = []weightedPattern{
	{"sounds great", 2.5},
	{"sounds good", 2},
	{"that makes sense", 1.5},
	{"i'm interested", 2.5},
	{"i am interested", 2.5},
	{"tell me more", 2},
	{"love that", 2.5},
	{"yes please", 2},
	{"perfect", 2},
	{"awesome", 2},
	{"great", 1},
	{"thanks", 0.5},
	{"thank you", 0.5},
	{"sure", 1},
	{"absolutely", 2},
	{"definitely", 1.5},
}

var negativePatterns = []weightedPattern{
	{"not interested", -3},
	{"no thanks", -2},
	{"stop calling", -4},
	{"waste of time", -3},
	{"annoying", -2.5},
	{"go away", -3},
	{"too expensive", -2},
	{"no budget", -1.5},
	{"leave me alone", -3.5},
	{"don't call", -3},
	{"never", -1.5},
	{"frustrated", -2.5},
	{"angry", -3},
	{"ridiculous", -2.5},
	{"scam", -3.5},
}

// Sentiment computes the delta for one utterance and folds it into score
// via the decay formula from spec.md §4.6:
// score ← clamp(score·0.85 + delta, −10, +10).
func Sentiment(prevScore float64, utterance string) (newScore float64, label session.SentimentLabel) {
	lower := strings.ToLower(utterance)
	delta := 0.0

	for _, p := range positivePatterns {
		if strings.Contains(lower, p.phrase) {
			delta += p.weight
		}
	}
	for _, p := range negativePatterns {
		if strings.Contains(lower, p.phrase) {
			delta += p.weight
		}
	}

	wordCount := len(strings.Fields(utterance))
	if delta == 0 {
		if wordCount <= 2 {
			delta = -0.5
		} else if wordCount > 20 {
			delta = 1
		}
	}

	newScore = prevScore*0.85 + delta
	if newScore > 10 {
		newScore = 10
	}
	if newScore < -10 {
		newScore = -10
	}

	return newScore, labelFor(newScore)
}

func labelFor(score float64) session.SentimentLabel {
	switch {
	case score <= -6:
		return session.SentimentHostile
	case score <= -2:
		return session.SentimentNegative
	case score <= 2:
		return session.SentimentNeutral
	case score <= 6:
		return session.SentimentPositive
	default:
		return session.SentimentEnthused
	}
}
