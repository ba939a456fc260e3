package video

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func hasPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestSubtitleArgs(t *testing.T) {
	args := SubtitleArgs("in.mkv", "out.vtt", 2)

	for _, pair := range [][2]string{
		{"-i", "in.mkv"},
		{"-map", "0:s:2"},
		{"-c:s", "webvtt"},
		{"-f", "webvtt"},
	} {
		if !hasPair(args, pair[0], pair[1]) {
			t.Errorf("args %q missing %s %s", args, pair[0], pair[1])
		}
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "out.vtt") || !strings.Contains(joined, "-y") {
		t.Errorf("args %q missing output or overwrite flag", args)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	if got := DefaultOutputPath(filepath.Join("media", "film.mkv"), 0); got != filepath.Join("media", "film.vtt") {
		t.Errorf("stream 0: got %q", got)
	}
	if got := DefaultOutputPath("film.mp4", 3); got != "film.3.vtt" {
		t.Errorf("stream 3: got %q", got)
	}
}

// fakeFFmpeg writes a shell script standing in for ffmpeg.
func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nout=\"\"\nfor a in \"$@\"; do\n  case \"$a\" in *.vtt-translate-extract-*) out=\"$a\";; esac\ndone\n" + body
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}

func touch(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func TestExtractSubtitles(t *testing.T) {
	bin := fakeFFmpeg(t, `printf 'WEBVTT\n\n00:00:01.000 --> 00:00:02.500\nHello there.\n' > "$out"`+"\n")
	videoPath := touch(t, "film.mkv")
	output := filepath.Join(t.TempDir(), "subs", "film.vtt")

	file, err := NewExtractor(bin).ExtractSubtitles(context.Background(), videoPath, output, ExtractOptions{})
	if err != nil {
		t.Fatalf("ExtractSubtitles returned error: %v", err)
	}
	if len(file.Cues) != 1 || file.Cues[0].Text() != "Hello there." {
		t.Errorf("unexpected cues: %+v", file.Cues)
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("output not written: %v", err)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(output), ".vtt-translate-extract-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestExtractSubtitlesFailure(t *testing.T) {
	bin := fakeFFmpeg(t, "echo 'Stream map matches no streams.' >&2\nexit 1\n")
	videoPath := touch(t, "film.mkv")
	output := filepath.Join(t.TempDir(), "film.vtt")

	_, err := NewExtractor(bin).ExtractSubtitles(context.Background(), videoPath, output, ExtractOptions{Stream: 4})
	if err == nil || !strings.Contains(err.Error(), "matches no streams") {
		t.Fatalf("expected ffmpeg stderr in error, got %v", err)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("output should not exist, stat err = %v", err)
	}
}

func TestExtractSubtitlesInvalidOutput(t *testing.T) {
	bin := fakeFFmpeg(t, `printf 'garbage\n' > "$out"`+"\n")
	videoPath := touch(t, "film.mkv")
	output := filepath.Join(t.TempDir(), "film.vtt")

	if _, err := NewExtractor(bin).ExtractSubtitles(context.Background(), videoPath, output, ExtractOptions{}); err == nil {
		t.Fatal("expected error for invalid WebVTT")
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("output should not exist, stat err = %v", err)
	}
}

func TestExtractSubtitlesMissingVideo(t *testing.T) {
	_, err := NewExtractor("ffmpeg").ExtractSubtitles(
		context.Background(),
		filepath.Join(t.TempDir(), "nope.mkv"),
		"out.vtt",
		ExtractOptions{},
	)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}
