package observer

import "github.com/brightline/callengine/internal/session"

// Message types on the observer wire, per spec.md §6. Each is its own
// JSON shape with a "type" discriminator; there is deliberately no shared
// envelope struct here (unlike the teacher's versioned Event), since the
// spec's line-delimited messages carry no version/timestamp fields.

// SessionStateMessage is sent immediately on observer connect.
type SessionStateMessage struct {
	Type         string                    `json:"type"`
	Status       session.Status            `json:"status"`
	Transcript   []session.TranscriptEntry `json:"transcript"`
	MessageCount int                       `json:"messageCount"`
}

func NewSessionStateMessage(snap session.Snapshot) SessionStateMessage {
	return SessionStateMessage{
		Type:         "session_state",
		Status:       snap.Status,
		Transcript:   snap.Transcript,
		MessageCount: snap.MessageCount,
	}
}

// StatusMessage reports a coarse activity phase.
type StatusMessage struct {
	Type  string `json:"type"`
	Value string `json:"value"` // connected | thinking | speaking | listening
}

func NewStatusMessage(value string) StatusMessage {
	return StatusMessage{Type: "status", Value: value}
}

// UserSpeechInterimMessage carries a running ASR guess.
type UserSpeechInterimMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewUserSpeechInterimMessage(text string) UserSpeechInterimMessage {
	return UserSpeechInterimMessage{Type: "user_speech_interim", Text: text}
}

// UserSpeechMessage carries a dispatched final user turn.
type UserSpeechMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

func NewUserSpeechMessage(text string) UserSpeechMessage {
	return UserSpeechMessage{Type: "user_speech", Text: text, Final: true}
}

// MichaelSpeechMessage carries a dispatched assistant turn.
type MichaelSpeechMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

func NewMichaelSpeechMessage(text string) MichaelSpeechMessage {
	return MichaelSpeechMessage{Type: "michael_speech", Text: text, Final: true}
}

// SentimentUpdateMessage reports the running sentiment score and label.
type SentimentUpdateMessage struct {
	Type  string                 `json:"type"`
	Score float64                `json:"score"`
	Label session.SentimentLabel `json:"label"`
}

func NewSentimentUpdateMessage(s session.Sentiment) SentimentUpdateMessage {
	return SentimentUpdateMessage{Type: "sentiment_update", Score: s.Score, Label: s.Label}
}

// BargeInMessage reports the updated barge-in counter.
type BargeInMessage struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func NewBargeInMessage(count int) BargeInMessage {
	return BargeInMessage{Type: "barge_in", Count: count}
}

// GatekeeperDetectedMessage / GatekeeperNavigatedMessage are bare markers.
type GatekeeperDetectedMessage struct {
	Type string `json:"type"`
}

func NewGatekeeperDetectedMessage() GatekeeperDetectedMessage {
	return GatekeeperDetectedMessage{Type: "gatekeeper_detected"}
}

type GatekeeperNavigatedMessage struct {
	Type string `json:"type"`
}

func NewGatekeeperNavigatedMessage() GatekeeperNavigatedMessage {
	return GatekeeperNavigatedMessage{Type: "gatekeeper_navigated"}
}

// CallbackRequestedMessage is a bare marker.
type CallbackRequestedMessage struct {
	Type string `json:"type"`
}

func NewCallbackRequestedMessage() CallbackRequestedMessage {
	return CallbackRequestedMessage{Type: "callback_requested"}
}

// VoicemailDetectedMessage reports the AMD result that triggered voicemail handling.
type VoicemailDetectedMessage struct {
	Type       string `json:"type"`
	AnsweredBy string `json:"answeredBy"`
}

func NewVoicemailDetectedMessage(answeredBy string) VoicemailDetectedMessage {
	return VoicemailDetectedMessage{Type: "voicemail_detected", AnsweredBy: answeredBy}
}

// OptOutDetectedMessage is a bare marker.
type OptOutDetectedMessage struct {
	Type string `json:"type"`
}

func NewOptOutDetectedMessage() OptOutDetectedMessage {
	return OptOutDetectedMessage{Type: "opt_out_detected"}
}

// LanguageDetectedMessage reports a non-English detection.
type LanguageDetectedMessage struct {
	Type     string `json:"type"`
	Language string `json:"language"`
}

func NewLanguageDetectedMessage(language string) LanguageDetectedMessage {
	return LanguageDetectedMessage{Type: "language_detected", Language: language}
}

// MeetingBookedMessage carries the closing confirmation line.
type MeetingBookedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewMeetingBookedMessage(message string) MeetingBookedMessage {
	return MeetingBookedMessage{Type: "meeting_booked", Message: message}
}

// Scoring is the analytics payload attached to call_ended.
type Scoring struct {
	SentimentScore float64                `json:"sentimentScore"`
	SentimentLabel session.SentimentLabel `json:"sentimentLabel"`
	BANT           session.BANT           `json:"bant"`
	BANTDepth      int                    `json:"bantDepth"`
	BargeInCount   int                    `json:"bargeInCount"`
	ObjectionCount int                    `json:"objectionCount"`
}

func ScoringFromSnapshot(snap session.Snapshot) Scoring {
	return Scoring{
		SentimentScore: snap.Sentiment.Score,
		SentimentLabel: snap.Sentiment.Label,
		BANT:           snap.BANT,
		BANTDepth:      snap.BANT.Depth(),
		BargeInCount:   snap.Counters.BargeInCount,
		ObjectionCount: snap.Counters.ObjectionCount,
	}
}

// CallEndedMessage is emitted exactly once, when a session reaches a
// terminal status, per spec.md §7.
type CallEndedMessage struct {
	Type       string                    `json:"type"`
	Reason     string                    `json:"reason"`
	Transcript []session.TranscriptEntry `json:"transcript"`
	Duration   float64                   `json:"duration"`
	Scoring    Scoring                   `json:"scoring"`
}

func NewCallEndedMessage(snap session.Snapshot, reason string) CallEndedMessage {
	return CallEndedMessage{
		Type:       "call_ended",
		Reason:     reason,
		Transcript: snap.Transcript,
		Duration:   snap.DurationSecs,
		Scoring:    ScoringFromSnapshot(snap),
	}
}

// ErrorMessage reports a session-level problem observers care about.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: "error", Message: message}
}
