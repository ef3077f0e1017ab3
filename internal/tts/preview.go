package tts

import (
	"context"
	"fmt"
	"sync"
)

// previewPhrases are the sample lines served by GET /voice/preview,
// letting an operator audition the configured voice before placing a
// real call.
var previewPhrases = []string{
	"Hi, this is Michael, an AI assistant calling on behalf of our team. Do you have a quick moment?",
	"I understand completely — is there a better time for me to reach out?",
	"Perfect, I've got you down for Tuesday at 2 PM. I'll send a calendar invite right away.",
}

// PreviewSampler serves cached renders of a fixed phrase set through the
// same Adapter used for live calls, so a preview always reflects the
// configured voice and model.
type PreviewSampler struct {
	adapter *Adapter

	mu    sync.Mutex
	cache map[int][]byte
}

// NewPreviewSampler wraps adapter for voice-preview serving.
func NewPreviewSampler(adapter *Adapter) *PreviewSampler {
	return &PreviewSampler{adapter: adapter, cache: make(map[int][]byte)}
}

// Sample returns raw mp3 bytes for previewPhrases[index], synthesizing
// and caching in-process on first request.
func (p *PreviewSampler) Sample(index int) ([]byte, string, error) {
	if index < 0 || index >= len(previewPhrases) {
		return nil, "", fmt.Errorf("tts: no preview phrase at index %d", index)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if audio, ok := p.cache[index]; ok {
		return audio, "audio/mpeg", nil
	}

	audio, err := p.adapter.FetchRawAudio(context.Background(), previewPhrases[index])
	if err != nil {
		return nil, "", err
	}
	p.cache[index] = audio
	return audio, "audio/mpeg", nil
}
