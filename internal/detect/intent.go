package detect

import (
	"regexp"
	"strings"
)

var optOutPatterns = []string{
	"stop calling", "take me off", "don't call", "do not call",
	"remove me", "no more calls",
}

var standaloneStopRe = regexp.MustCompile(`(?i)\bstop\b\s*[.!]?\s*$`)

// OptOut reports whether utterance is a request to stop contact, per
// spec.md §4.6.
func OptOut(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, p := range optOutPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return standaloneStopRe.MatchString(strings.TrimSpace(lower))
}

var gatekeeperPatterns = []string{
	"who's calling", "who is calling", "what's this regarding", "what is this regarding",
	"she's in a meeting", "he's in a meeting", "she is in a meeting", "he is in a meeting",
	"let me transfer", "front desk", "can i take a message",
}

// Gatekeeper reports whether utterance matches a screener/receptionist pattern.
func Gatekeeper(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, p := range gatekeeperPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

var recognitionCues = []string{"speaking", "hi", "this is"}

// GatekeeperNavigated reports whether a later utterance from the actual
// prospect confirms their identity after a gatekeeper interaction, per
// spec.md §4.6 ("configured first name plus a recognition cue").
func GatekeeperNavigated(utterance, prospectFirstName string) bool {
	if prospectFirstName == "" {
		return false
	}
	lower := strings.ToLower(utterance)
	name := strings.ToLower(prospectFirstName)
	if !strings.Contains(lower, name) {
		return false
	}
	for _, cue := range recognitionCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

var callbackPatterns = []string{
	"call me back", "bad time", "busy", "driving", "in a meeting",
	"try again later", "call back later",
}

var timeAnchorRe = regexp.MustCompile(`(?i)\b(\d{1,2}(:\d{2})?\s?(am|pm)|tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday|morning|afternoon|evening|tonight)\b`)

// Callback reports a callback request, and captures a time anchor if one
// is present, per spec.md §4.6.
func Callback(utterance string) (requested bool, timeText string) {
	lower := strings.ToLower(utterance)
	for _, p := range callbackPatterns {
		if strings.Contains(lower, p) {
			requested = true
			break
		}
	}
	if !requested {
		return false, ""
	}
	if m := timeAnchorRe.FindString(utterance); m != "" {
		timeText = m
	}
	return true, timeText
}

var objectionPatterns = []string{
	"not interested", "too expensive", "no budget", "send me an email",
	"how did you get", "we're all set", "already have a solution",
	"not the right time", "no thank you",
}

// Objection reports whether utterance contains a sales-pushback pattern.
func Objection(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, p := range objectionPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

var budgetPatterns = []string{"budget", "cost", "price", "pricing", "afford", "spend"}
var authorityPatterns = []string{"decision maker", "i decide", "my call", "i'm the one who", "report to me", "i approve"}
var needPatterns = []string{"we need", "we're struggling with", "pain point", "looking for a solution", "problem we have"}
var timelinePatterns = []string{"this quarter", "next month", "by the end of", "soon as possible", "asap", "this year", "timeline"}

// BANT evaluates the four qualification channels independently against a
// single utterance, per spec.md §4.6.
func BANT(utterance string) (budget, authority, need, timeline bool) {
	lower := strings.ToLower(utterance)
	budget = containsAny(lower, budgetPatterns)
	authority = containsAny(lower, authorityPatterns)
	need = containsAny(lower, needPatterns)
	timeline = containsAny(lower, timelinePatterns)
	return
}

func containsAny(lower string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

var clockTimeRe = regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}|\d{1,2}\s?[ap]m)\b`)
var dayAnchorRe = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|tomorrow|next\s+\w+|jan(uary)?\s+\d{1,2}|feb(ruary)?\s+\d{1,2}|mar(ch)?\s+\d{1,2}|apr(il)?\s+\d{1,2}|may\s+\d{1,2}|jun(e)?\s+\d{1,2}|jul(y)?\s+\d{1,2}|aug(ust)?\s+\d{1,2}|sep(tember)?\s+\d{1,2}|oct(ober)?\s+\d{1,2}|nov(ember)?\s+\d{1,2}|dec(ember)?\s+\d{1,2})\b`)

var confirmationPatterns = []string{
	"sounds good", "works for me", "perfect", "great", "that works",
	"book", "let's do", "yes", "sounds great",
}

var schedulingPatterns = []string{
	"calendar invite", "i've got you down", "i have got you down", "pencil you in",
	"does that work", "send you an invite", "put it on the calendar",
}

// MeetingBooked evaluates the three-gate condition from spec.md §4.6 over
// the most recent (assistant, user) pair. All three gates must pass;
// missing either the day or time anchor alone does not fire.
func MeetingBooked(assistantText, userText string) bool {
	combined := assistantText + " " + userText

	hasTime := clockTimeRe.MatchString(combined)
	hasDay := dayAnchorRe.MatchString(combined)
	if !hasTime || !hasDay {
		return false
	}

	lowerUser := strings.ToLower(userText)
	confirmed := containsAny(lowerUser, confirmationPatterns)
	if !confirmed {
		return false
	}

	lowerAssistant := strings.ToLower(assistantText)
	return containsAny(lowerAssistant, schedulingPatterns)
}
