package codec

import (
	"context"
	"testing"
)

func TestFFmpegTranscoderRejectsEmptyInput(t *testing.T) {
	tr := NewFFmpegTranscoder()
	if _, err := tr.Transcode(context.Background(), nil, "mp3"); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestFFmpegTranscoderMissingBinary(t *testing.T) {
	tr := &FFmpegTranscoder{BinPath: "/nonexistent/ffmpeg-binary"}
	_, err := tr.Transcode(context.Background(), []byte{0x01, 0x02, 0x03}, "mp3")
	if err == nil {
		t.Fatal("expected error for missing ffmpeg binary")
	}
}
