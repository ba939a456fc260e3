package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/mgpai22/vtt-translate/internal/config"
	"github.com/mgpai22/vtt-translate/internal/logging"
)

var (
	verbose    bool
	configPath string
	logFormat  string
	logFile    string

	cfg    config.Config
	logger = logging.NewLogger(false)

	// log destination, stderr when nil
	logOutput zapcore.WriteSyncer
)

var rootCmd = &cobra.Command{
	Use:   "vtt-translate",
	Short: "Translate WebVTT subtitles sentence by sentence",
	Long: `vtt-translate translates WebVTT subtitle files.

Cue text is joined into whole sentences before translation so the
translation service sees complete thoughts, then the translated text is
spread back over the original cues. Timing, cue ids and cue settings are
kept exactly as they were.

Azure AI Translator is the default provider; OpenAI, Anthropic and Gemini
models can be used instead.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() { _ = logger.Close() }()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVar(&configPath, "config", "", "Config file (default <user config dir>/vtt-translate/config.toml)")
	rootCmd.PersistentFlags().
		StringVar(&logFormat, "log-format", "", "Log format: console or json")
	rootCmd.PersistentFlags().
		StringVar(&logFile, "log-file", "", "Also write debug logs to this rotating file")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
}

// setup loads the configuration and builds the logger for every command.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logFormat != "" {
		loaded.Logging.Format = logFormat
	}
	if logFile != "" {
		loaded.Logging.File = logFile
	}

	l, err := logging.New(logging.Options{
		Verbose:    verbose,
		Level:      loaded.Logging.Level,
		Format:     loaded.Logging.Format,
		File:       loaded.Logging.File,
		MaxSizeMB:  loaded.Logging.MaxSizeMB,
		MaxBackups: loaded.Logging.MaxBackups,
		MaxAgeDays: loaded.Logging.MaxAgeDays,
		Output:     logOutput,
	})
	if err != nil {
		return err
	}

	_ = logger.Close()
	cfg = loaded
	logger = l
	logger.Debugw("Loaded configuration",
		"config", configPath,
		"provider", cfg.Provider,
		"log_format", cfg.Logging.Format,
	)
	return nil
}
