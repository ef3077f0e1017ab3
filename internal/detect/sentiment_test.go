package detect

import (
	"testing"

	"github.com/brightline/callengine/internal/session"
)

func TestSentimentPositivePhraseRaisesScore(t *testing.T) {
	score, label := Sentiment(0, "That sounds great, tell me more!")
	if score <= 0 {
		t.Fatalf("expected positive score, got %v", score)
	}
	if label != session.SentimentPositive && label != session.SentimentEnthused {
		t.Fatalf("expected positive/enthusiastic label, got %v", label)
	}
}

func TestSentimentNegativePhraseLowersScore(t *testing.T) {
	score, label := Sentiment(0, "Not interested, stop calling me, this is a scam")
	if score >= 0 {
		t.Fatalf("expected negative score, got %v", score)
	}
	if label != session.SentimentHostile && label != session.SentimentNegative {
		t.Fatalf("expected negative/hostile label, got %v", label)
	}
}

func TestSentimentShortNeutralUtteranceDecaysDown(t *testing.T) {
	score, _ := Sentiment(0, "okay then")
	if score >= 0 {
		t.Fatalf("expected short neutral utterance to contribute negative delta, got %v", score)
	}
}

func TestSentimentLongNonNegativeUtteranceRaisesScore(t *testing.T) {
	long := "well I guess that could work for us since we have been looking at automating this part of our sales process for a while now and it might be worth a shot"
	score, _ := Sentiment(0, long)
	if score <= 0 {
		t.Fatalf("expected long non-negative utterance to raise score, got %v", score)
	}
}

func TestSentimentDecayFormula(t *testing.T) {
	score, _ := Sentiment(10, "hello there, everything is fine today")
	// 10*0.85 + 0 (neutral, >2 words, <=20 words) = 8.5
	if score != 8.5 {
		t.Fatalf("expected decayed score 8.5, got %v", score)
	}
}

func TestSentimentClampsToRange(t *testing.T) {
	score, _ := Sentiment(10, "awesome great perfect love that sounds great tell me more absolutely")
	if score > 10 {
		t.Fatalf("expected score clamped to 10, got %v", score)
	}

	score, _ = Sentiment(-10, "not interested stop calling waste of time scam annoying")
	if score < -10 {
		t.Fatalf("expected score clamped to -10, got %v", score)
	}
}

func TestLabelThresholds(t *testing.T) {
	cases := map[float64]session.SentimentLabel{
		-8: session.SentimentHostile,
		-3: session.SentimentNegative,
		0:  session.SentimentNeutral,
		4:  session.SentimentPositive,
		9:  session.SentimentEnthused,
	}
	for score, want := range cases {
		if got := labelFor(score); got != want {
			t.Errorf("labelFor(%v) = %v, want %v", score, got, want)
		}
	}
}
