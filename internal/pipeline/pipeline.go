// Package pipeline runs one WebVTT file through parsing, sentence
// reconstruction, translation, resegmentation and writing.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mgpai22/vtt-translate/internal/language"
	"github.com/mgpai22/vtt-translate/internal/logging"
	"github.com/mgpai22/vtt-translate/internal/sentence"
	"github.com/mgpai22/vtt-translate/internal/subtitle"
	"github.com/mgpai22/vtt-translate/internal/translate"
)

// Stage is the last step a run completed. Stages only move forward.
type Stage int

const (
	StageNone Stage = iota
	StageParsed
	StageReconstructed
	StageTranslated
	StageResegmented
	StageWritten
)

func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageParsed:
		return "parsed"
	case StageReconstructed:
		return "reconstructed"
	case StageTranslated:
		return "translated"
	case StageResegmented:
		return "resegmented"
	case StageWritten:
		return "written"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

type Config struct {
	InputPath  string
	OutputPath string // empty means DefaultOutputPath

	Source language.Language // zero value means auto-detect
	Target language.Language

	Concurrency int // parallel batches, for translators that support it
}

type Result struct {
	InputPath        string
	OutputPath       string
	Stage            Stage
	Cues             int
	Sentences        int
	DetectedLanguage string
	Direction        subtitle.Direction
}

type Runner struct {
	translator translate.Translator
	logger     *logging.Logger
}

func New(translator translate.Translator, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{translator: translator, logger: logger}
}

// Run translates cfg.InputPath. On any error nothing is written and the
// returned Result records the last completed stage.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	res := &Result{InputPath: cfg.InputPath}

	if err := language.CheckPair(cfg.Source, cfg.Target); err != nil {
		return res, err
	}

	file, err := subtitle.ParseFile(cfg.InputPath)
	if err != nil {
		return res, fmt.Errorf("failed to parse subtitle file: %w", err)
	}
	if len(file.Cues) == 0 {
		return res, fmt.Errorf("subtitle file contains no cues: %s", cfg.InputPath)
	}
	res.Cues = len(file.Cues)
	r.advance(res, StageParsed, "cues", res.Cues)

	sentences := sentence.Reconstruct(file.Cues)
	res.Sentences = len(sentences)
	r.advance(res, StageReconstructed, "sentences", res.Sentences)

	translations, detected, err := r.translate(ctx, cfg, sentences)
	if err != nil {
		return res, fmt.Errorf("translation failed: %w", err)
	}
	res.DetectedLanguage = detected
	r.advance(res, StageTranslated, "detected_language", detected)

	cues, err := sentence.Resegment(file.Cues, sentences, translations)
	if err != nil {
		return res, fmt.Errorf("failed to resegment translation: %w", err)
	}
	out := &subtitle.File{Header: file.Header, Cues: cues}
	r.advance(res, StageResegmented, "cues", len(cues))

	res.Direction = r.direction(ctx, cfg.Target)

	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = DefaultOutputPath(cfg.InputPath, detected, cfg.Target.Code())
	}
	if samePath(outputPath, cfg.InputPath) {
		return res, fmt.Errorf("output path %s would overwrite the input file", outputPath)
	}

	// nothing may be written once the run is cancelled
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if err := subtitle.WriteFile(outputPath, out, res.Direction); err != nil {
		return res, err
	}
	res.OutputPath = outputPath
	r.advance(res, StageWritten, "output", outputPath, "direction", res.Direction)

	return res, nil
}

func (r *Runner) advance(res *Result, stage Stage, keysAndValues ...interface{}) {
	res.Stage = stage
	r.logger.Debugw("Pipeline stage complete", append([]interface{}{"stage", stage.String()}, keysAndValues...)...)
}

// translate returns one translation per sentence and the detected source
// language.
func (r *Runner) translate(
	ctx context.Context,
	cfg Config,
	sentences []sentence.Sentence,
) ([]string, string, error) {
	if len(sentences) == 0 {
		r.logger.Warnw("No text to translate", "input", cfg.InputPath)
		return nil, cfg.Source.Code(), nil
	}

	texts := sentence.Texts(sentences)
	items := make([]translate.TranslationItem, len(texts))
	for i, text := range texts {
		items[i] = translate.TranslationItem{Index: i, Text: text}
	}

	r.logger.Infow("Translating sentences",
		"sentences", len(items),
		"concurrency", cfg.Concurrency,
	)

	var results []translate.TranslationResult
	var err error
	if ct, ok := r.translator.(translate.ConcurrentTranslator); ok && cfg.Concurrency > 1 {
		results, err = ct.TranslateWithConcurrency(ctx, items, cfg.Concurrency)
	} else {
		results, err = r.translator.Translate(ctx, items)
	}
	if err != nil {
		return nil, "", err
	}

	if len(results) != len(items) {
		return nil, "", fmt.Errorf("expected %d translations, got %d", len(items), len(results))
	}
	translations := make([]string, len(items))
	filled := make([]bool, len(items))
	for _, result := range results {
		if result.Index < 0 || result.Index >= len(items) || filled[result.Index] {
			return nil, "", fmt.Errorf("invalid translation index %d", result.Index)
		}
		translations[result.Index] = result.Text
		filled[result.Index] = true
	}

	return translations, detectedLanguage(cfg.Source, results), nil
}

// detectedLanguage picks the highest scoring detection, or the given source.
func detectedLanguage(source language.Language, results []translate.TranslationResult) string {
	if !source.IsZero() {
		return source.Code()
	}
	best, score := "", 0.0
	for _, r := range results {
		if r.DetectedLanguage != "" && r.DetectedScore > score {
			best, score = r.DetectedLanguage, r.DetectedScore
		}
	}
	return strings.ToLower(best)
}

func (r *Runner) direction(ctx context.Context, target language.Language) subtitle.Direction {
	fallback := subtitle.LTR
	if target.RTL() {
		fallback = subtitle.RTL
	}

	resolver, ok := r.translator.(translate.DirectionResolver)
	if !ok {
		return fallback
	}
	dir, err := resolver.Direction(ctx, target.Code())
	if err != nil {
		r.logger.Warnw("Could not look up text direction, using built-in table",
			"target_language", target.Code(),
			"direction", fallback,
			"error", err,
		)
		return fallback
	}
	r.logger.Debugw("Resolved text direction", "target_language", target.Code(), "direction", dir)
	if strings.EqualFold(dir, string(subtitle.RTL)) {
		return subtitle.RTL
	}
	return subtitle.LTR
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
