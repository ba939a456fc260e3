package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/vtt-translate/internal/config"
	"github.com/mgpai22/vtt-translate/internal/language"
	"github.com/mgpai22/vtt-translate/internal/pipeline"
	"github.com/mgpai22/vtt-translate/internal/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate [subtitle_file]",
	Short: "Translate a WebVTT subtitle file",
	Long: `Translate a WebVTT subtitle file into another language.

Cue text is rebuilt into sentences, translated, and distributed back over
the original cues. Cue timing, ids and settings are unchanged. Right to
left targets get a direction marker on every line.

Without --output the result is written next to the input as
<name>.<target>.vtt, dropping a trailing source language tag from the name.

Examples:
  vtt-translate translate talk.en.vtt
  vtt-translate translate talk.vtt -s en -t fa -o talk.persian.vtt
  vtt-translate translate talk.vtt -t en-gb --provider openai --model gpt-5-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().
		StringP("source-language", "s", "", "Source language (en, en-gb, fa); detected when empty")
	translateCmd.Flags().
		StringP("target-language", "t", "fa", "Target language (en, en-gb, fa)")
	translateCmd.Flags().
		String("provider", "azure", "Translation provider (azure, openai, anthropic, gemini)")
	translateCmd.Flags().
		String("azure-key", "", "Azure Translator key (or set "+config.EnvAzureKey+")")
	translateCmd.Flags().
		String("azure-region", "", "Azure Translator region (or set "+config.EnvAzureRegion+")")
	translateCmd.Flags().
		StringP("api-key", "k", "", "LLM provider API key (or set OPENAI_API_KEY/ANTHROPIC_API_KEY/GEMINI_API_KEY)")
	translateCmd.Flags().
		String("model", "", "Model for LLM providers (uses sensible defaults)")
	translateCmd.Flags().
		Bool("model-override", false, "Allow any custom model, bypassing provider model validation")
	translateCmd.Flags().
		String("prompt", "", "Extra instructions appended to the LLM translation prompt")
	translateCmd.Flags().
		Int("batch-size", 0, "Sentences per API request (provider default when 0)")
	translateCmd.Flags().
		Int("concurrency", 1, "Number of parallel translation requests")
	translateCmd.Flags().
		Float64("rps", 0, "Maximum API requests per second (0 for no limit)")
}

// applyTranslateFlags copies explicitly set flags over the loaded config.
func applyTranslateFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		c.Provider, _ = flags.GetString("provider")
		c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	}
	if flags.Changed("source-language") {
		c.SourceLanguage, _ = flags.GetString("source-language")
	}
	if flags.Changed("target-language") {
		c.TargetLanguage, _ = flags.GetString("target-language")
	}
	if flags.Changed("azure-key") {
		c.Azure.Key, _ = flags.GetString("azure-key")
	}
	if flags.Changed("azure-region") {
		c.Azure.Region, _ = flags.GetString("azure-region")
	}
	if flags.Changed("api-key") {
		c.LLM.APIKey, _ = flags.GetString("api-key")
	}
	if flags.Changed("model") {
		c.LLM.Model, _ = flags.GetString("model")
	}
	if flags.Changed("prompt") {
		c.LLM.Prompt, _ = flags.GetString("prompt")
	}
	if flags.Changed("batch-size") {
		c.Translation.BatchSize, _ = flags.GetInt("batch-size")
	}
	if flags.Changed("concurrency") {
		c.Translation.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("rps") {
		c.Translation.RequestsPerSecond, _ = flags.GetFloat64("rps")
	}
}

func runTranslate(cmd *cobra.Command, args []string) error {
	subtitlePath := args[0]
	ctx := cmd.Context()

	outputPath, _ := cmd.Flags().GetString("output")
	modelOverride, _ := cmd.Flags().GetBool("model-override")

	c := cfg
	applyTranslateFlags(cmd, &c)

	if _, err := os.Stat(subtitlePath); os.IsNotExist(err) {
		return fmt.Errorf("subtitle file not found: %s", subtitlePath)
	}
	if ext := strings.ToLower(filepath.Ext(subtitlePath)); ext != ".vtt" {
		return fmt.Errorf("unsupported subtitle format %q: only .vtt is supported", ext)
	}

	if err := c.Validate(); err != nil {
		return err
	}

	var source language.Language
	if c.SourceLanguage != "" {
		l, err := language.Parse(c.SourceLanguage)
		if err != nil {
			return err
		}
		source = l
	}
	target, err := language.Parse(c.TargetLanguage)
	if err != nil {
		return err
	}
	if err := language.CheckPair(source, target); err != nil {
		return err
	}

	provider := translate.Provider(c.Provider)
	if err := validateModel(provider, c.LLM.Model, modelOverride); err != nil {
		return err
	}
	if provider == translate.ProviderAzure && c.LLM.Model != "" {
		logger.Warnw("Ignoring model for the azure provider", "model", c.LLM.Model)
	}

	opts := translate.Options{
		InputLanguage:     source.Code(),
		TargetLanguage:    target.Code(),
		Model:             c.LLM.Model,
		Prompt:            c.LLM.Prompt,
		BatchSize:         c.Translation.BatchSize,
		MaxBatchChars:     c.Translation.MaxBatchChars,
		Endpoint:          c.Azure.Endpoint,
		Region:            c.Azure.Region,
		RequestsPerSecond: c.Translation.RequestsPerSecond,
	}

	translator, err := translate.Factory(ctx, provider, c.APIKey(), opts)
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}
	if closer, ok := translator.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	logger.Infow("Starting subtitle translation",
		"input", subtitlePath,
		"output", outputPath,
		"provider", provider,
		"source_language", source.Code(),
		"target_language", target.Code(),
		"concurrency", c.Translation.Concurrency,
	)

	res, err := pipeline.New(translator, logger.With("input", subtitlePath)).Run(ctx, pipeline.Config{
		InputPath:   subtitlePath,
		OutputPath:  outputPath,
		Source:      source,
		Target:      target,
		Concurrency: c.Translation.Concurrency,
	})
	if err != nil {
		return fmt.Errorf("failed to translate %s: %w", subtitlePath, err)
	}

	logger.Infow("Translation complete",
		"cues", res.Cues,
		"sentences", res.Sentences,
		"detected_language", res.DetectedLanguage,
	)

	out := cmd.OutOrStdout()
	absOutput, _ := filepath.Abs(res.OutputPath)
	fmt.Fprintf(out, "Subtitles translated successfully: %s\n", absOutput)
	fmt.Fprintf(out, "  Cues: %d\n", res.Cues)
	fmt.Fprintf(out, "  Sentences: %d\n", res.Sentences)
	if res.DetectedLanguage != "" && source.IsZero() {
		fmt.Fprintf(out, "  Detected language: %s\n", res.DetectedLanguage)
	}
	fmt.Fprintf(out, "  Target language: %s\n", target.Code())
	return nil
}
