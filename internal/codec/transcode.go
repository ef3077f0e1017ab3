package codec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// TranscodeTimeout bounds how long a single compressed-to-mulaw transcode
// may run before it is canceled, per spec.md §5 ("Audio transcode: 10s").
const TranscodeTimeout = 10 * time.Second

// Transcoder converts TTS vendor audio (mp3/ogg, whatever the provider
// returns) into raw 8kHz mono mu-law bytes. Transcode blocks until the
// conversion finishes; the TTS Adapter calls it on the calling session's
// own goroutine, with each run bounded by TranscodeTimeout.
type Transcoder interface {
	Transcode(ctx context.Context, compressed []byte, sourceFormat string) ([]byte, error)
}

// FFmpegTranscoder shells out to ffmpeg, falling back to nothing else —
// unlike the teacher's record-direction encoder, there is no lame/wav
// fallback chain here because the wire format is fixed (mu-law is the
// only acceptable output; a missing ffmpeg is a real Telephony-path
// failure, not a format choice).
type FFmpegTranscoder struct {
	// BinPath overrides the ffmpeg executable path, for testing.
	BinPath string
}

func NewFFmpegTranscoder() *FFmpegTranscoder {
	return &FFmpegTranscoder{BinPath: "ffmpeg"}
}

func (t *FFmpegTranscoder) Transcode(ctx context.Context, compressed []byte, sourceFormat string) ([]byte, error) {
	if len(compressed) == 0 {
		return nil, fmt.Errorf("codec: empty input audio")
	}

	ctx, cancel := context.WithTimeout(ctx, TranscodeTimeout)
	defer cancel()

	binPath := t.BinPath
	if binPath == "" {
		binPath = "ffmpeg"
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", sourceFormat,
		"-i", "pipe:0",
		"-ar", fmt.Sprintf("%d", SampleRate),
		"-ac", "1",
		"-f", "mulaw",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, binPath, args...)
	cmd.Stdin = bytes.NewReader(compressed)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("transcode via ffmpeg: %w (stderr: %s)", err, stderr.String())
	}

	return stdout.Bytes(), nil
}
