// Package telephony implements the Telephony Adapter from spec.md §4.2,
// shaped after Twilio's Voice REST API and Media Streams protocol (no
// Twilio Go SDK exists in the retrieved corpus, so calls are placed with
// a thin net/http client posting to the documented REST endpoint).
package telephony

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const placeCallTimeout = 30 * time.Second

// frameBatchSize and frameYield give the outbound backpressure contract
// from spec.md §4.2/§5: at most ~50 frames (~1s) of audio flushed
// between cooperative yields of at least 20ms. Expressed as a token
// rate, that's frameBatchSize frames refilling every frameYield.
const (
	frameBatchSize = 50
	frameYield     = 20 * time.Millisecond
)

// MachineDetectionMode selects how aggressively the carrier's answering
// machine detection runs before handing off to the media stream.
type MachineDetectionMode string

const (
	DetectEnable           MachineDetectionMode = "Enable"
	DetectDetectMessageEnd MachineDetectionMode = "DetectMessageEnd"
)

// PlaceCallParams bundles the place-call arguments from spec.md §4.2.
type PlaceCallParams struct {
	Target               string
	AnswerURL            string
	StatusURL            string
	AMDURL               string
	TimeoutSeconds       int
	AsyncAMD             bool
	MachineDetectionMode MachineDetectionMode
}

// Adapter places and controls outbound telephone calls.
type Adapter struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

// New builds a telephony adapter. baseURL defaults to Twilio's production
// REST endpoint when empty; tests override it to point at an httptest
// server.
func New(accountSID, authToken, fromNumber, baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = "https://api.twilio.com/2010-04-01"
	}
	return &Adapter{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: placeCallTimeout},
	}
}

// PlaceCall dials target and returns the carrier's call handle (Twilio's
// CallSid), per spec.md §4.2.
func (a *Adapter) PlaceCall(ctx context.Context, p PlaceCallParams) (string, error) {
	form := url.Values{}
	form.Set("To", p.Target)
	form.Set("From", a.fromNumber)
	form.Set("Url", p.AnswerURL)
	form.Set("StatusCallback", p.StatusURL)
	form.Set("StatusCallbackEvent", "initiated ringing answered completed")
	form.Set("Timeout", strconv.Itoa(p.TimeoutSeconds))
	if p.AMDURL != "" {
		form.Set("MachineDetection", string(p.MachineDetectionMode))
		form.Set("AsyncAmdStatusCallback", p.AMDURL)
		form.Set("AsyncAmd", strconv.FormatBool(p.AsyncAMD))
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", a.baseURL, a.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("telephony: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.accountSID, a.authToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("telephony: place call request failed: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		SID   string `json:"sid"`
		Error string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("telephony: decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("telephony: carrier rejected call placement: %s", body.Error)
	}
	return body.SID, nil
}

// Hangup ends a call already in progress.
func (a *Adapter) Hangup(ctx context.Context, callHandle string) error {
	form := url.Values{}
	form.Set("Status", "completed")

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls/%s.json", a.baseURL, a.accountSID, callHandle)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telephony: build hangup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.accountSID, a.authToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telephony: hangup request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telephony: carrier rejected hangup, status %d", resp.StatusCode)
	}
	return nil
}

// MediaChannel is the bidirectional media-stream connection for one call,
// per spec.md §4.2's media channel contract.
type MediaChannel struct {
	conn        *websocket.Conn
	streamSID   string
	openingSent bool
	limiter     *rate.Limiter
}

// AcceptMediaStream upgrades an inbound HTTP request to the carrier's
// media-stream websocket.
func AcceptMediaStream(w http.ResponseWriter, r *http.Request, upgrader websocket.Upgrader) (*MediaChannel, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("telephony: media stream upgrade: %w", err)
	}
	limit := rate.Every(frameYield / frameBatchSize)
	return &MediaChannel{conn: conn, limiter: rate.NewLimiter(limit, frameBatchSize)}, nil
}

// InboundEvent is one decoded media-stream frame from the carrier.
type InboundEvent struct {
	Event string `json:"event"`
	Start struct {
		StreamSid string `json:"streamSid"`
	} `json:"start"`
	Media struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

// ReadEvent blocks for the next event on the media channel.
func (m *MediaChannel) ReadEvent() (InboundEvent, error) {
	var ev InboundEvent
	_, data, err := m.conn.ReadMessage()
	if err != nil {
		return ev, err
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("telephony: decode media event: %w", err)
	}
	if ev.Event == "start" {
		m.streamSID = ev.Start.StreamSid
	}
	return ev, nil
}

// OpeningAlreadySent reports whether the opening has already fired for
// this channel, guarding against the carrier's documented duplicate
// *start* events, per spec.md §4.2.
func (m *MediaChannel) OpeningAlreadySent() bool { return m.openingSent }

// MarkOpeningSent latches the opening-sent guard.
func (m *MediaChannel) MarkOpeningSent() { m.openingSent = true }

// StreamSid returns the carrier-assigned stream id captured from the
// most recent *start* event.
func (m *MediaChannel) StreamSid() string { return m.streamSID }

type outboundMedia struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
	Media     struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

type outboundClear struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
}

// SendFrame writes one 20ms mu-law frame to the carrier, base64-encoded
// per the media-stream wire contract.
func (m *MediaChannel) SendFrame(frame []byte) error {
	msg := outboundMedia{Event: "media", StreamSid: m.streamSID}
	msg.Media.Payload = base64.StdEncoding.EncodeToString(frame)
	return m.conn.WriteJSON(msg)
}

// ClearPlayback sends a clear-playback control frame, used on barge-in
// to flush whatever audio the carrier has already buffered.
func (m *MediaChannel) ClearPlayback() error {
	return m.conn.WriteJSON(outboundClear{Event: "clear", StreamSid: m.streamSID})
}

// Close closes the underlying websocket connection.
func (m *MediaChannel) Close() error { return m.conn.Close() }

// SendFrames streams a batch of frames with the backpressure contract
// from spec.md §4.2/§5: at most ~50 frames (~1s) between cooperative
// yields of at least 20ms, interruptible via ctx. Paced by a token
// bucket rather than a hand counter so a caller flushing frames from
// several goroutines against one channel still honors the same
// backpressure contract.
func (m *MediaChannel) SendFrames(ctx context.Context, frames [][]byte) error {
	for i, frame := range frames {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := m.SendFrame(frame); err != nil {
			return fmt.Errorf("telephony: send frame %d: %w", i, err)
		}
	}
	return nil
}
