// Package orchestrator implements the per-call Session Orchestrator from
// spec.md §4.7: a cooperative task that owns turn-taking for one call,
// wiring the ASR, TTS, Telephony, and LLM adapters together under a
// single-writer concurrency model (spec.md §5). Modeled on the teacher's
// callback-driven session.LifecycleManager, generalized from a dictation
// session to a full duplex voice-agent call.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/brightline/callengine/internal/asr"
	"github.com/brightline/callengine/internal/detect"
	"github.com/brightline/callengine/internal/llm"
	"github.com/brightline/callengine/internal/observer"
	"github.com/brightline/callengine/internal/prompt"
	"github.com/brightline/callengine/internal/session"
	"github.com/brightline/callengine/internal/telephony"
)

const (
	openingSendDelay     = 800 * time.Millisecond
	openingSafetyTimeout = 15 * time.Second
	openingFallbackDur   = 6 * time.Second
	optOutHangupDelay    = 4 * time.Second
	meetingGraceDelay    = 2 * time.Second
	meetingHangupDelay   = 16500 * time.Millisecond
	voicemailFallbackDur = 6 * time.Second
	voicemailHangupPad   = 2 * time.Second

	generationTemperature = 0.85
	generationMaxTokens   = 200

	voicemailText = "Hi, this is Michael — sorry I missed you live. I'll follow up by email with the details. Have a great day."
	optOutAck     = "Understood, I'll remove you from our list right away. Sorry for the interruption, and have a good day."
)

// Speaker synthesizes text into telephony-ready frames. It abstracts the
// TTS Adapter so the orchestrator's speak path is independent of the
// vendor; speak streams the returned frames over the media channel.
type Speaker interface {
	Synthesize(ctx context.Context, text string) ([][]byte, error)
}

// Orchestrator owns turn-taking for exactly one call. All mutation of the
// underlying Session happens from within tasks run on its own goroutine
// (see Run), which is the single writer the session's lock protects
// against concurrent readers, per spec.md §5.
type Orchestrator struct {
	sess      *session.Session
	store     *session.Store
	hub       *observer.Hub
	asrClient *asr.Adapter
	ttsClient Speaker
	telClient *telephony.Adapter
	media     *telephony.MediaChannel
	llmClient llm.Client

	turnBuffer *asr.TurnBuffer
	turnTimer  *TurnTimer

	tasks chan func(context.Context)
	done  chan struct{}

	sendCancel context.CancelFunc

	openingSafety          *time.Timer
	openingCooldownCleared bool
}

// New constructs an orchestrator for sess. media may be nil until the
// carrier's media stream connects; callers call AttachMedia once it
// does.
func New(sess *session.Session, store *session.Store, hub *observer.Hub, asrClient *asr.Adapter, ttsClient Speaker, telClient *telephony.Adapter, llmClient llm.Client) *Orchestrator {
	return &Orchestrator{
		sess:       sess,
		store:      store,
		hub:        hub,
		asrClient:  asrClient,
		ttsClient:  ttsClient,
		telClient:  telClient,
		llmClient:  llmClient,
		turnBuffer: asr.NewTurnBuffer(),
		turnTimer:  NewTurnTimer(),
		tasks:      make(chan func(context.Context), 64),
		done:       make(chan struct{}),
	}
}

// AttachMedia binds the accepted media-stream channel to this orchestrator.
func (o *Orchestrator) AttachMedia(media *telephony.MediaChannel) {
	o.Enqueue(func(ctx context.Context) { o.media = media })
}

// Run drains the task queue on the calling goroutine until ctx is
// canceled or Shutdown is called. This goroutine is the session's sole
// writer; every other method on Orchestrator except Shutdown, which stops
// the timers and closes the loop directly, only enqueues work here.
func (o *Orchestrator) Run(ctx context.Context) {
	o.turnTimer.OnFire(func() {
		o.Enqueue(func(ctx context.Context) { o.dispatchBufferedTurn(ctx) })
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.done:
			return
		case task := <-o.tasks:
			task(ctx)
		}
	}
}

// Shutdown stops the task loop and cancels any in-flight timers, per the
// graceful-shutdown cancellation contract in spec.md §5.
func (o *Orchestrator) Shutdown() {
	o.turnTimer.Cancel()
	if o.openingSafety != nil {
		o.openingSafety.Stop()
	}
	if o.sendCancel != nil {
		o.sendCancel()
	}
	close(o.done)
}

// Enqueue schedules fn to run on the orchestrator's task loop. External
// callbacks (telephony status, AMD, media events, ASR events) must go
// through Enqueue rather than touching the session directly, per
// spec.md §5's single-writer invariant.
func (o *Orchestrator) Enqueue(fn func(ctx context.Context)) {
	select {
	case o.tasks <- fn:
	default:
		log.Printf("orchestrator: task queue full for session %s, dropping task", o.sess.ID)
	}
}

// HandleMediaStart implements the Init state transition from spec.md
// §4.7: on a fresh session's media-start, arm the opening-cooldown and
// schedule the opening after 800ms, guarded against the carrier's
// documented duplicate start events.
func (o *Orchestrator) HandleMediaStart(streamSid string) {
	o.Enqueue(func(ctx context.Context) {
		if o.media != nil && o.media.OpeningAlreadySent() {
			return
		}
		if o.media != nil {
			o.media.MarkOpeningSent()
		}

		o.sess.WithLock(func(s *session.Session) {
			s.StreamSID = streamSid
			s.Status = session.StatusConnected
			s.ConnectedAt = time.Now().UTC()
			s.Flags.OpeningCooldown = true
		})
		o.hub.BroadcastStatus("connected")

		o.openingSafety = time.AfterFunc(openingSafetyTimeout, func() {
			o.Enqueue(func(ctx context.Context) {
				if o.openingCooldownCleared {
					return
				}
				o.openingCooldownCleared = true
				o.sess.WithLock(func(s *session.Session) { s.Flags.OpeningCooldown = false })
			})
		})

		time.AfterFunc(openingSendDelay, func() {
			o.Enqueue(func(ctx context.Context) { o.sendOpening(ctx) })
		})
	})
}

func (o *Orchestrator) sendOpening(ctx context.Context) {
	now := time.Now().UTC()
	var operator session.OperatorIdentity
	var pros session.ProspectIdentity
	o.sess.WithLock(func(s *session.Session) {
		operator = s.Operator
		pros = s.Prospect
	})

	base := prompt.Build(operator, pros, now)
	messages := []llm.Message{{Role: "system", Content: base}, {Role: "user", Content: "Begin the call with your opening line now."}}

	text, err := o.llmClient.Complete(ctx, messages, llm.CompletionParams{Temperature: generationTemperature, MaxTokens: generationMaxTokens})
	if err != nil {
		log.Printf("orchestrator: opening generation failed for session %s: %v", o.sess.ID, err)
		text = "Hi, this is Michael, an AI assistant calling on behalf of our team. Do you have a quick moment?"
	}

	o.sess.WithLock(func(s *session.Session) { s.AppendHistory(session.RoleAssistant, text) })
	o.hub.BroadcastMichaelSpeech(text)

	frames, err := o.speak(ctx, text)
	dur := openingFallbackDur
	if err == nil && len(frames) > 0 {
		dur = time.Duration(float64(len(frames))*20)*time.Millisecond + 1500*time.Millisecond
	}

	time.AfterFunc(dur, func() {
		o.Enqueue(func(ctx context.Context) {
			if o.openingSafety != nil {
				o.openingSafety.Stop()
			}
			if o.openingCooldownCleared {
				return
			}
			o.openingCooldownCleared = true
			o.sess.WithLock(func(s *session.Session) { s.Flags.OpeningCooldown = false })
		})
	})
}

// Interim implements asr.Handler: forwards interim ASR guesses to
// observers and triggers barge-in detection while Michael is speaking.
func (o *Orchestrator) Interim(text string) {
	o.Enqueue(func(ctx context.Context) {
		o.hub.BroadcastUserSpeechInterim(text)
		if text == "" {
			return
		}

		speaking := false
		o.sess.WithLock(func(s *session.Session) { speaking = s.Flags.Speaking })
		if speaking {
			o.handleBargeIn()
		}
	})
}

// Final implements asr.Handler: accumulates a stable fragment into the
// in-flight turn buffer and (re)arms the turn timer per spec.md §4.7.
func (o *Orchestrator) Final(text string, meta asr.FinalMetadata) {
	o.Enqueue(func(ctx context.Context) {
		o.turnBuffer.Add(text)

		var timeout time.Duration
		switch meta.TurnStatus {
		case asr.TurnComplete:
			timeout = 300 * time.Millisecond
		case asr.TurnMidThought:
			timeout = 1500 * time.Millisecond
		default:
			timeout = 600 * time.Millisecond
		}
		o.turnTimer.Reset(timeout)
	})
}

// UtteranceEnd implements asr.Handler: a silence boundary dispatches
// whatever is buffered immediately, canceling the turn timer.
func (o *Orchestrator) UtteranceEnd() {
	o.Enqueue(func(ctx context.Context) {
		o.turnTimer.Cancel()
		o.dispatchBufferedTurn(ctx)
	})
}

func (o *Orchestrator) dispatchBufferedTurn(ctx context.Context) {
	text := o.turnBuffer.Flush()
	if text == "" {
		return
	}

	cooldown := false
	o.sess.WithLock(func(s *session.Session) {
		cooldown = s.Flags.OpeningCooldown
		s.AppendHistory(session.RoleUser, text)
	})
	o.hub.BroadcastUserSpeech(text)

	if cooldown {
		// Recorded to history per spec.md §4.7, but produces no response
		// while the opening is still settling.
		return
	}

	o.dispatchUserTurn(ctx, text)
}

// dispatchUserTurn runs the detector pipeline in the fixed order from
// spec.md §4.7: opt-out → gatekeeper → callback → sentiment → BANT/objection.
func (o *Orchestrator) dispatchUserTurn(ctx context.Context, text string) {
	if detect.OptOut(text) {
		o.sess.WithLock(func(s *session.Session) { s.Flags.OptOut = true })
		o.hub.BroadcastOptOutDetected()
		o.handleOptOut(ctx)
		return
	}

	if detect.Gatekeeper(text) {
		o.sess.WithLock(func(s *session.Session) { s.Flags.Gatekeeper = true })
		o.hub.BroadcastGatekeeperDetected()
	} else {
		var gatekeeper, navigated bool
		var firstName string
		o.sess.WithLock(func(s *session.Session) {
			gatekeeper = s.Flags.Gatekeeper
			navigated = s.Flags.GatekeeperNavigated
			firstName = s.Prospect.FirstName
		})
		if gatekeeper && !navigated && detect.GatekeeperNavigated(text, firstName) {
			o.sess.WithLock(func(s *session.Session) { s.Flags.GatekeeperNavigated = true })
			o.hub.BroadcastGatekeeperNavigated()
		}
	}

	if requested, timeText := detect.Callback(text); requested {
		o.sess.WithLock(func(s *session.Session) {
			s.Flags.CallbackRequested = true
			s.CallbackTimeText = timeText
		})
		o.hub.BroadcastCallbackRequested()
	}

	var prevScore float64
	o.sess.WithLock(func(s *session.Session) { prevScore = s.Sentiment.Score })
	newScore, label := detect.Sentiment(prevScore, text)
	var sentiment session.Sentiment
	o.sess.WithLock(func(s *session.Session) {
		s.Sentiment.Score = newScore
		s.Sentiment.Label = label
		s.Sentiment.History = append(s.Sentiment.History, session.SentimentPoint{
			TurnIndex: len(s.History), Score: newScore, Label: label,
		})
		sentiment = s.Sentiment
	})
	o.hub.BroadcastSentimentUpdate(sentiment)

	if detect.Objection(text) {
		o.sess.WithLock(func(s *session.Session) { s.Counters.ObjectionCount++ })
	}
	budget, authority, need, timeline := detect.BANT(text)
	o.sess.WithLock(func(s *session.Session) {
		s.BANT.Budget = s.BANT.Budget || budget
		s.BANT.Authority = s.BANT.Authority || authority
		s.BANT.Need = s.BANT.Need || need
		s.BANT.Timeline = s.BANT.Timeline || timeline
	})

	o.generateAndSpeak(ctx)
}

// generateAndSpeak implements the Generate-response and Meeting-booked
// branch states from spec.md §4.7.
func (o *Orchestrator) generateAndSpeak(ctx context.Context) {
	inFlight := false
	o.sess.WithLock(func(s *session.Session) {
		inFlight = s.GenerationInFlight
		if !inFlight {
			s.GenerationInFlight = true
		}
	})
	if inFlight {
		return
	}
	defer o.sess.WithLock(func(s *session.Session) { s.GenerationInFlight = false })

	var operator session.OperatorIdentity
	var prospect session.ProspectIdentity
	var history []session.ConversationEntry
	var sentiment session.Sentiment
	var bargeIns int
	o.sess.WithLock(func(s *session.Session) {
		operator = s.Operator
		prospect = s.Prospect
		history = append([]session.ConversationEntry(nil), s.History...)
		sentiment = s.Sentiment
		bargeIns = s.Counters.BargeInCount
	})

	base := prompt.Build(operator, prospect, time.Now().UTC())
	instructions := prompt.Augment(base, sentiment, bargeIns)

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: "system", Content: instructions})
	for _, h := range history {
		messages = append(messages, llm.Message{Role: string(h.Role), Content: h.Text})
	}

	text, err := o.llmClient.Complete(ctx, messages, llm.CompletionParams{Temperature: generationTemperature, MaxTokens: generationMaxTokens})
	if err != nil {
		log.Printf("orchestrator: generation failed for session %s: %v", o.sess.ID, err)
		return
	}

	o.sess.WithLock(func(s *session.Session) { s.AppendHistory(session.RoleAssistant, text) })
	o.hub.BroadcastMichaelSpeech(text)
	o.speak(ctx, text)

	var lastUser string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == session.RoleUser {
			lastUser = history[i].Text
			break
		}
	}
	if detect.MeetingBooked(text, lastUser) {
		o.handleMeetingBooked(ctx)
	}
}

// handleOptOut implements the opt-out branch from spec.md §4.7: a fixed
// compliant acknowledgement, then hangup after ~4s.
func (o *Orchestrator) handleOptOut(ctx context.Context) {
	o.sess.WithLock(func(s *session.Session) { s.AppendHistory(session.RoleAssistant, optOutAck) })
	o.hub.BroadcastMichaelSpeech(optOutAck)
	o.speak(ctx, optOutAck)

	time.AfterFunc(optOutHangupDelay, func() {
		o.Enqueue(func(ctx context.Context) { o.endCall(ctx, session.EndReasonOptOut) })
	})
}

// handleMeetingBooked implements the grace-then-hangup branch from
// spec.md §4.7.
func (o *Orchestrator) handleMeetingBooked(ctx context.Context) {
	already := false
	o.sess.WithLock(func(s *session.Session) {
		already = s.Flags.MeetingBooked
		s.Flags.MeetingBooked = true
	})
	if already {
		return
	}
	o.hub.BroadcastMeetingBooked("Meeting booked")

	time.AfterFunc(meetingGraceDelay, func() {
		o.Enqueue(func(ctx context.Context) {
			var operator session.OperatorIdentity
			var prospect session.ProspectIdentity
			o.sess.WithLock(func(s *session.Session) {
				operator = s.Operator
				prospect = s.Prospect
			})
			base := prompt.Build(operator, prospect, time.Now().UTC())
			messages := []llm.Message{
				{Role: "system", Content: base},
				{Role: "user", Content: "Give a warm 2-3 sentence closing line confirming the calendar invite will be sent."},
			}
			text, err := o.llmClient.Complete(ctx, messages, llm.CompletionParams{Temperature: generationTemperature, MaxTokens: generationMaxTokens})
			if err != nil {
				text = "Wonderful, I'll get that calendar invite sent over right away. Looking forward to it, and thanks again for your time."
			}
			o.sess.WithLock(func(s *session.Session) { s.AppendHistory(session.RoleAssistant, text) })
			o.hub.BroadcastMichaelSpeech(text)
			o.speak(ctx, text)

			time.AfterFunc(meetingHangupDelay, func() {
				o.Enqueue(func(ctx context.Context) { o.endCall(ctx, session.EndReasonMeetingBooked) })
			})
		})
	})
}

// HandleAMD implements the voicemail branch from spec.md §4.7.
func (o *Orchestrator) HandleAMD(answeredBy string) {
	o.Enqueue(func(ctx context.Context) {
		if answeredBy != "machine_start" && answeredBy != "machine_end_beep" && answeredBy != "machine_end_silence" {
			return
		}
		alreadyHandled := false
		o.sess.WithLock(func(s *session.Session) {
			alreadyHandled = s.Flags.VoicemailHandled
			s.Flags.Voicemail = true
			s.Flags.VoicemailHandled = true
		})
		if alreadyHandled {
			return
		}

		if o.sendCancel != nil {
			o.sendCancel()
		}
		o.hub.BroadcastVoicemailDetected(answeredBy)

		o.sess.WithLock(func(s *session.Session) { s.AppendVoicemailLine(voicemailText) })
		frames, err := o.speak(ctx, voicemailText)

		dur := voicemailFallbackDur
		if err == nil && len(frames) > 0 {
			dur = time.Duration(float64(len(frames))*20)*time.Millisecond + voicemailHangupPad
		}

		time.AfterFunc(dur, func() {
			o.Enqueue(func(ctx context.Context) { o.endCall(ctx, session.EndReasonVoicemail) })
		})
	})
}

// handleBargeIn implements the barge-in transition from spec.md §4.7.
func (o *Orchestrator) handleBargeIn() {
	o.sess.WithLock(func(s *session.Session) {
		s.Counters.BargeInCount++
		s.Flags.Speaking = false
	})
	if o.sendCancel != nil {
		o.sendCancel()
	}
	if o.media != nil {
		if err := o.media.ClearPlayback(); err != nil {
			log.Printf("orchestrator: clear-playback failed for session %s: %v", o.sess.ID, err)
		}
	}
	var count int
	o.sess.WithLock(func(s *session.Session) { count = s.Counters.BargeInCount })
	o.hub.BroadcastBargeIn(count)
}

// speak synthesizes and streams text, honoring the single-outbound-send
// cancellation-token contract from spec.md §5.
func (o *Orchestrator) speak(ctx context.Context, text string) ([][]byte, error) {
	if o.sendCancel != nil {
		o.sendCancel()
	}
	sendCtx, cancel := context.WithCancel(ctx)
	o.sendCancel = cancel
	defer cancel()

	o.sess.WithLock(func(s *session.Session) { s.Flags.Speaking = true })
	defer o.sess.WithLock(func(s *session.Session) { s.Flags.Speaking = false })

	frames, err := o.ttsClient.Synthesize(sendCtx, text)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: synthesize failed: %w", err)
	}
	if len(frames) == 0 || o.media == nil {
		return frames, nil
	}
	if err := o.media.SendFrames(sendCtx, frames); err != nil {
		return frames, fmt.Errorf("orchestrator: send frames failed: %w", err)
	}
	return frames, nil
}

// HandleStatusCallback applies a telephony status update, broadcasting
// call-ended and scheduling purge once the status is terminal.
func (o *Orchestrator) HandleStatusCallback(status session.Status) {
	o.Enqueue(func(ctx context.Context) {
		o.sess.WithLock(func(s *session.Session) { s.Status = status })
		if status.IsTerminal() {
			o.endCall(ctx, session.EndReasonTelephonyStatus)
		}
	})
}

func (o *Orchestrator) endCall(ctx context.Context, reason session.EndReason) {
	var alreadyEnded bool
	o.sess.WithLock(func(s *session.Session) {
		alreadyEnded = !s.EndedAt.IsZero()
		if !alreadyEnded {
			s.EndedAt = time.Now().UTC()
			s.EndReason = reason
			if !s.Status.IsTerminal() {
				s.Status = session.StatusCompleted
			}
		}
	})
	if alreadyEnded {
		return
	}

	if o.sendCancel != nil {
		o.sendCancel()
	}
	if o.telClient != nil && o.sess.CallSID != "" {
		if err := o.telClient.Hangup(ctx, o.sess.CallSID); err != nil {
			log.Printf("orchestrator: hangup failed for session %s: %v", o.sess.ID, err)
		}
	}

	snap := o.sess.Snap()
	o.hub.BroadcastCallEnded(snap, string(reason))
	o.store.SchedulePurge(o.sess.ID)
}
