package cli

import (
	"fmt"
	"strings"

	"github.com/mgpai22/vtt-translate/internal/translate"
)

var geminiModels = []string{
	"gemini-3-pro-preview",
	"gemini-3-flash-preview",
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
}

var openAIModels = []string{
	"o1",
	"o3-mini",
	"o1-pro",
	"o3",
	"gpt-5",
	"gpt-5-nano",
	"gpt-5-mini",
	"gpt-5-pro",
	"gpt-5.1",
	"gpt-5.2",
	"gpt-5.2-pro",
}

var anthropicModels = []string{
	"claude-haiku-4-5",
	"claude-sonnet-4-5",
	"claude-opus-4-1",
	"claude-sonnet-4-0",
}

func isValidGeminiModel(model string) bool { return contains(geminiModels, model) }
func isValidOpenAIModel(model string) bool { return contains(openAIModels, model) }
func isValidAnthropicModel(model string) bool { return contains(anthropicModels, model) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// validateModel rejects models the provider is not known to support unless
// override is set. An empty model selects the provider default.
func validateModel(provider translate.Provider, model string, override bool) error {
	if model == "" || override {
		return nil
	}

	var (
		valid bool
		name  string
		list  []string
	)
	switch provider {
	case translate.ProviderGemini:
		valid, name, list = isValidGeminiModel(model), "Gemini", geminiModels
	case translate.ProviderOpenAI:
		valid, name, list = isValidOpenAIModel(model), "OpenAI", openAIModels
	case translate.ProviderAnthropic:
		valid, name, list = isValidAnthropicModel(model), "Anthropic", anthropicModels
	default:
		return nil
	}
	if valid {
		return nil
	}
	return fmt.Errorf(
		"unsupported %s model %q: valid models are %s (use --model-override to bypass)",
		name,
		model,
		strings.Join(list, ", "),
	)
}
