// Package tts implements the TTS Adapter from spec.md §4.4: normalize,
// check the Response Cache, synthesize via the configured voice provider
// on a miss, transcode to mu-law, and cache the result. No TTS vendor Go
// SDK exists in the retrieved corpus, so the provider is called with a
// thin net/http client, the way the teacher's internal/summary package
// calls OpenAI's chat completions endpoint directly where no SDK fit.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brightline/callengine/internal/cache"
	"github.com/brightline/callengine/internal/codec"
)

const synthesizeTimeout = 15 * time.Second

// Adapter synthesizes spoken audio for agent responses, backed by a
// bounded response cache for short frequently-repeated phrases.
type Adapter struct {
	apiKey     string
	voiceID    string
	model      string
	baseURL    string
	httpClient *http.Client
	cache      *cache.ResponseCache
	transcoder codec.Transcoder
}

// New builds a TTS adapter. baseURL defaults to the vendor's production
// endpoint when empty; tests override it to point at an httptest server.
func New(apiKey, voiceID, model, baseURL string, respCache *cache.ResponseCache, transcoder codec.Transcoder) *Adapter {
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io/v1"
	}
	return &Adapter{
		apiKey:     apiKey,
		voiceID:    voiceID,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: synthesizeTimeout},
		cache:      respCache,
		transcoder: transcoder,
	}
}

// Synthesize returns mu-law frames for text, per spec.md §4.4: empty or
// whitespace-only input is a no-op that never calls the vendor, a cache
// hit skips synthesis entirely, and a cacheable miss is written back
// after transcoding.
func (a *Adapter) Synthesize(ctx context.Context, text string) ([][]byte, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}

	key := cache.NormalizeKey(trimmed)
	if frames, ok := a.cache.Get(key); ok {
		return frames, nil
	}

	frames, err := a.synthesizeUncached(ctx, trimmed)
	if err != nil {
		return nil, err
	}

	if cache.Cacheable(trimmed) {
		a.cache.Put(key, frames)
	}
	return frames, nil
}

func (a *Adapter) synthesizeUncached(ctx context.Context, text string) ([][]byte, error) {
	body, err := a.FetchRawAudio(ctx, text)
	if err != nil {
		return nil, err
	}

	mulaw, err := a.transcoder.Transcode(ctx, body, "mp3")
	if err != nil {
		return nil, fmt.Errorf("tts: transcode: %w", err)
	}

	return codec.Framer(mulaw), nil
}

// FetchRawAudio calls the voice vendor directly and returns its
// compressed (mp3) response body, bypassing the mu-law transcode and
// cache path. Used by the Control Plane's voice-preview endpoint, which
// serves the vendor's native audio/mpeg format rather than telephony
// wire frames.
func (a *Adapter) FetchRawAudio(ctx context.Context, text string) ([]byte, error) {
	reqBody, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": a.model,
	})
	if err != nil {
		return nil, fmt.Errorf("tts: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", a.baseURL, a.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts: vendor returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// WarmFunc returns an uncached synthesis function with the signature
// cache.ResponseCache.Warm expects; Warm does its own cache lookup and store.
func (a *Adapter) WarmFunc() func(string) ([][]byte, error) {
	return func(text string) ([][]byte, error) {
		return a.synthesizeUncached(context.Background(), text)
	}
}
