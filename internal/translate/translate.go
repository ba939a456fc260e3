package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// single sentence to translate
type TranslationItem struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// translated sentence
type TranslationResult struct {
	Index int    `json:"index"`
	Text  string `json:"text"`

	// set by providers that detect the source language
	DetectedLanguage string  `json:"-"`
	DetectedScore    float64 `json:"-"`
}

// interface for text translation
type Translator interface {
	Translate(
		ctx context.Context,
		items []TranslationItem,
	) ([]TranslationResult, error)
}

// optional interface for translators that support concurrent batch processing
type ConcurrentTranslator interface {
	Translator
	TranslateWithConcurrency(
		ctx context.Context,
		items []TranslationItem,
		concurrency int,
	) ([]TranslationResult, error)
}

// optional interface for translators that know the writing direction of a
// language
type DirectionResolver interface {
	Direction(ctx context.Context, code string) (string, error)
}

// translation service provider
type Provider string

const (
	ProviderAzure     Provider = "azure"
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Providers lists every provider accepted by Factory.
func Providers() []Provider {
	return []Provider{ProviderAzure, ProviderOpenAI, ProviderAnthropic, ProviderGemini}
}

type Options struct {
	InputLanguage  string // empty means auto-detect
	TargetLanguage string
	Model          string
	Prompt         string
	BatchSize      int // items per API request
	MaxBatchChars  int // characters per API request (azure)

	Endpoint          string // azure endpoint override
	Region            string // azure resource region
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// creates Translator based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Translator, error) {
	if opts.TargetLanguage == "" {
		return nil, fmt.Errorf("target language is required")
	}

	switch provider {
	case ProviderAzure, "":
		return NewAzureTranslator(apiKey, opts)
	case ProviderGemini:
		return NewGeminiTranslator(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAITranslator(ctx, apiKey, opts)
	case ProviderAnthropic:
		return NewAnthropicTranslator(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", provider)
	}
}

// BuildPrompt creates the translation prompt for LLM providers
func BuildPrompt(opts Options, items []TranslationItem) string {
	var sb strings.Builder

	if opts.InputLanguage != "" {
		sb.WriteString(fmt.Sprintf(
			"Translate the following %s sentences to %s.\n\n",
			opts.InputLanguage,
			opts.TargetLanguage,
		))
	} else {
		sb.WriteString(fmt.Sprintf(
			"Translate the following sentences to %s.\n\n",
			opts.TargetLanguage,
		))
	}

	sb.WriteString("The sentences come from subtitles and are listed in order, ")
	sb.WriteString("so earlier sentences give context to later ones.\n\n")
	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. Translate each sentence as a whole, preserving the meaning.\n")
	sb.WriteString("2. Never merge or split sentences.\n")
	sb.WriteString("3. Return ONLY a JSON array with the same structure.\n")
	sb.WriteString("4. Each object must have 'index' and 'text' fields.\n")
	sb.WriteString("5. The 'index' values must match the input indices exactly.\n")
	sb.WriteString("6. Do not add any explanation or markdown formatting.\n\n")

	if opts.Prompt != "" {
		sb.WriteString(
			fmt.Sprintf("Additional instructions: %s\n\n", opts.Prompt),
		)
	}

	sb.WriteString("Input JSON:\n")

	inputJSON, _ := json.MarshalIndent(items, "", "  ")
	sb.Write(inputJSON)

	sb.WriteString("\n\nOutput the translated JSON array only:")

	return sb.String()
}
