package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/brightline/callengine/internal/session"
)

func TestBuildIncludesCoreSections(t *testing.T) {
	operator := session.OperatorIdentity{
		AgentName: "Michael", Company: "Acme", Selling: "AI sales automation", Tone: "friendly",
	}
	prospect := session.ProspectIdentity{FirstName: "Jane", LastName: "Doe"}
	now := time.Date(2026, 3, 5, 14, 7, 0, 0, time.UTC)

	out := Build(operator, prospect, now)

	for _, want := range []string{"Michael", "Acme", "AI sales automation", "friendly", "Jane Doe", "book a 15-30 minute meeting"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected instruction block to contain %q, got:\n%s", want, out)
		}
	}
}

func TestBuildDefaultsUnknownTone(t *testing.T) {
	operator := session.OperatorIdentity{AgentName: "Michael", Company: "Acme", Selling: "widgets", Tone: "sarcastic"}
	prospect := session.ProspectIdentity{FirstName: "Jane"}
	out := Build(operator, prospect, time.Now())

	if !strings.Contains(out, "Tone: professional.") {
		t.Fatalf("expected unknown tone to default to professional, got:\n%s", out)
	}
}

func TestRoundToQuarterHour(t *testing.T) {
	in := time.Date(2026, 1, 1, 9, 37, 0, 0, time.UTC)
	got := roundToQuarterHour(in)
	want := time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("roundToQuarterHour(%v) = %v, want %v", in, got, want)
	}
}

func TestAugmentHostileSentiment(t *testing.T) {
	base := "base instructions"
	out := Augment(base, session.Sentiment{Label: session.SentimentHostile}, 0)
	if !strings.Contains(out, "hostile") {
		t.Fatalf("expected hostile guidance, got:\n%s", out)
	}
}

func TestAugmentBargeInThreshold(t *testing.T) {
	out := Augment("base", session.Sentiment{Label: session.SentimentNeutral}, 2)
	if !strings.Contains(out, "one sentence") {
		t.Fatalf("expected one-sentence guidance at barge-in threshold, got:\n%s", out)
	}

	out = Augment("base", session.Sentiment{Label: session.SentimentNeutral}, 1)
	if strings.Contains(out, "one sentence") {
		t.Fatalf("did not expect one-sentence guidance below threshold, got:\n%s", out)
	}
}
