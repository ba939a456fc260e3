package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgpai22/vtt-translate/internal/ffmpeg"
	"github.com/mgpai22/vtt-translate/internal/video"
)

var extractCmd = &cobra.Command{
	Use:   "extract [video_file]",
	Short: "Extract a subtitle track from a video file as WebVTT",
	Long: `Extract a subtitle stream from a video container and save it as a
WebVTT file ready for the translate command.

ffmpeg is taken from VTT_TRANSLATE_FFMPEG_PATH or PATH, or downloaded once
into the user cache directory.

Examples:
  vtt-translate extract movie.mkv
  vtt-translate extract movie.mkv --stream 1 -o movie.en.vtt`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().
		Int("stream", 0, "Subtitle stream index (0 is the first subtitle stream)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	ctx := cmd.Context()

	stream, _ := cmd.Flags().GetInt("stream")
	outputPath, _ := cmd.Flags().GetString("output")

	if stream < 0 {
		return fmt.Errorf("stream must not be negative, got %d", stream)
	}
	if outputPath == "" {
		outputPath = video.DefaultOutputPath(videoPath, stream)
	}

	ffmpegPath, err := ffmpeg.Locate(ctx)
	if err != nil {
		return fmt.Errorf("ffmpeg is not available: %w", err)
	}

	logger.Infow("Extracting subtitles",
		"video", videoPath,
		"output", outputPath,
		"stream", stream,
		"ffmpeg", ffmpegPath,
	)

	file, err := video.NewExtractor(ffmpegPath).ExtractSubtitles(
		ctx,
		videoPath,
		outputPath,
		video.ExtractOptions{Stream: stream},
	)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Subtitles extracted successfully: %s\n", absOutput)
	fmt.Fprintf(cmd.OutOrStdout(), "  Cues: %d\n", len(file.Cues))
	return nil
}
