// Package video pulls subtitle tracks out of media containers with ffmpeg.
package video

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/mgpai22/vtt-translate/internal/subtitle"
)

// holds options for subtitle extraction
type ExtractOptions struct {
	Stream int // index among the subtitle streams, 0 is the first
}

// defines interface for subtitle extraction
type Extractor interface {
	ExtractSubtitles(
		ctx context.Context,
		videoPath, outputPath string,
		opts ExtractOptions,
	) (*subtitle.File, error)
}

// default implementation using ffmpeg
type DefaultExtractor struct {
	ffmpegPath string
}

func NewExtractor(ffmpegPath string) *DefaultExtractor {
	return &DefaultExtractor{ffmpegPath: ffmpegPath}
}

// SubtitleArgs returns the ffmpeg arguments converting one subtitle stream of
// videoPath to WebVTT at outputPath.
func SubtitleArgs(videoPath, outputPath string, stream int) []string {
	kwargs := ffmpeg.KwArgs{
		"map": fmt.Sprintf("0:s:%d", stream),
		"c:s": "webvtt",
		"f":   "webvtt",
	}
	return ffmpeg.Input(videoPath).
		Output(outputPath, kwargs).
		OverWriteOutput().
		GetArgs()
}

// DefaultOutputPath places the extracted track next to the video. Streams
// after the first get their index in the name.
func DefaultOutputPath(videoPath string, stream int) string {
	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	if stream > 0 {
		return fmt.Sprintf("%s.%d.vtt", base, stream)
	}
	return base + ".vtt"
}

// ExtractSubtitles writes the selected subtitle stream as WebVTT and returns
// it parsed. The output only appears once ffmpeg succeeded and the result
// parses.
func (e *DefaultExtractor) ExtractSubtitles(
	ctx context.Context,
	videoPath, outputPath string,
	opts ExtractOptions,
) (*subtitle.File, error) {
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("video file not found: %s", videoPath)
	}
	if opts.Stream < 0 {
		return nil, fmt.Errorf("stream index must not be negative, got %d", opts.Stream)
	}

	outputDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(outputDir, ".vtt-translate-extract-*.vtt")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpPath) }()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffmpegPath, SubtitleArgs(videoPath, tmpPath, opts.Stream)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("ffmpeg extraction failed: %w: %s", err, lastLine(stderr.String()))
	}

	file, err := subtitle.ParseFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("extracted subtitles are not valid WebVTT: %w", err)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return nil, &subtitle.WriteError{Path: outputPath, Err: err}
	}
	return file, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
