// Package codec converts synthesized TTS audio into the telephony wire
// format: G.711 mu-law, 8 kHz, mono, chunked into 20ms frames.
package codec

import "fmt"

const (
	// SampleRate is the telephony wire sample rate.
	SampleRate = 8000
	// FrameDurationMS is the duration of one telephony frame.
	FrameDurationMS = 20
	// FrameSize is the number of mu-law bytes in one 20ms frame (one byte
	// per sample at 8kHz * 20ms = 160 samples).
	FrameSize = SampleRate * FrameDurationMS / 1000
)

const (
	muLawBias = 0x84
	muLawClip = 32635
)

// EncodePCM16 converts 16-bit signed little-endian PCM samples at 8kHz
// mono into G.711 mu-law bytes, one byte per sample.
func EncodePCM16(pcm []int16) []byte {
	out := make([]byte, len(pcm))
	for i, sample := range pcm {
		out[i] = encodeSample(sample)
	}
	return out
}

// DecodeToPCM16 converts mu-law bytes back into 16-bit signed PCM samples.
func DecodeToPCM16(mulaw []byte) []int16 {
	out := make([]int16, len(mulaw))
	for i, b := range mulaw {
		out[i] = decodeSample(b)
	}
	return out
}

func encodeSample(sample int16) byte {
	sign := byte(0)
	s := int(sample)
	if s < 0 {
		sign = 0x80
		s = -s
	}
	if s > muLawClip {
		s = muLawClip
	}
	s += muLawBias

	exponent := byte(7)
	for mask := 0x4000; (s&mask) == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}

	mantissa := byte((s >> (exponent + 3)) & 0x0F)
	return ^(sign | (exponent << 4) | mantissa)
}

func decodeSample(encoded byte) int16 {
	encoded = ^encoded
	sign := encoded & 0x80
	exponent := (encoded >> 4) & 0x07
	mantissa := encoded & 0x0F

	magnitude := ((int(mantissa) << 3) + muLawBias) << exponent
	magnitude -= muLawBias

	if sign != 0 {
		return int16(-magnitude)
	}
	return int16(magnitude)
}

// Framer splits a flat mu-law byte stream into 160-byte (20ms) frames.
// A short final frame, if any, is zero-padded to FrameSize so every frame
// handed to the telephony adapter is exactly one wire frame.
func Framer(mulaw []byte) [][]byte {
	if len(mulaw) == 0 {
		return nil
	}

	count := (len(mulaw) + FrameSize - 1) / FrameSize
	frames := make([][]byte, 0, count)
	for offset := 0; offset < len(mulaw); offset += FrameSize {
		end := offset + FrameSize
		if end > len(mulaw) {
			padded := make([]byte, FrameSize)
			copy(padded, mulaw[offset:])
			frames = append(frames, padded)
			break
		}
		frames = append(frames, mulaw[offset:end])
	}
	return frames
}

// Unframe concatenates frames back into a flat mu-law byte stream. It is
// the left inverse of Framer for whole-frame input: Unframe(Framer(b)) == b
// whenever len(b) is a multiple of FrameSize.
func Unframe(frames [][]byte) ([]byte, error) {
	out := make([]byte, 0, len(frames)*FrameSize)
	for i, f := range frames {
		if len(f) != FrameSize {
			return nil, fmt.Errorf("codec: frame %d has %d bytes, want %d", i, len(f), FrameSize)
		}
		out = append(out, f...)
	}
	return out, nil
}

// DurationSeconds estimates playback duration for a number of mu-law
// frames, used by the orchestrator to schedule cooldown/hangup timers.
func DurationSeconds(frameCount int) float64 {
	return float64(frameCount) * FrameDurationMS / 1000
}
