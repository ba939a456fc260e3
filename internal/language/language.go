// Package language parses and validates the language codes the translator
// accepts.
package language

import (
	"fmt"
	"strings"

	xlang "golang.org/x/text/language"
)

// Language is a supported translation language.
type Language struct {
	code string
	name string
	rtl  bool
}

var supported = []Language{
	{code: "en", name: "English"},
	{code: "en-gb", name: "English (United Kingdom)"},
	{code: "fa", name: "Persian", rtl: true},
}

// Code is the lower-case code sent to translation providers, e.g. "en-gb".
func (l Language) Code() string { return l.code }

func (l Language) Name() string { return l.name }

// RTL reports whether the language is written right to left.
func (l Language) RTL() bool { return l.rtl }

func (l Language) IsZero() bool { return l.code == "" }

func (l Language) String() string { return l.code }

// Tag returns the BCP 47 tag for the language.
func (l Language) Tag() xlang.Tag {
	return xlang.Make(l.code)
}

// Base is the primary language subtag, "en" for "en-gb".
func (l Language) Base() string {
	base, _ := l.Tag().Base()
	return base.String()
}

// Supported lists every language the tool can translate from or to.
func Supported() []Language {
	return append([]Language(nil), supported...)
}

// Codes lists the supported codes.
func Codes() []string {
	codes := make([]string, len(supported))
	for i, l := range supported {
		codes[i] = l.code
	}
	return codes
}

// Parse accepts a code in any case with "-" or "_" separators.
func Parse(code string) (Language, error) {
	tag, err := parseTag(code)
	if err != nil {
		return Language{}, &UnsupportedLanguageError{Code: code}
	}
	if l, ok := lookup(tag.String()); ok {
		return l, nil
	}
	return Language{}, &UnsupportedLanguageError{Code: code}
}

// Match finds the supported language closest to code, falling back to its
// base language ("en-us" matches "en"). It is meant for codes reported by a
// provider rather than typed by a user.
func Match(code string) (Language, bool) {
	tag, err := parseTag(code)
	if err != nil {
		return Language{}, false
	}
	if l, ok := lookup(tag.String()); ok {
		return l, true
	}
	base, conf := tag.Base()
	if conf == xlang.No {
		return Language{}, false
	}
	return lookup(base.String())
}

// CheckPair rejects translating a language into itself. A zero source means
// auto-detect and always passes.
func CheckPair(source, target Language) error {
	if target.IsZero() {
		return &UnsupportedLanguageError{Reason: "target language is required"}
	}
	if !source.IsZero() && source.code == target.code {
		return &UnsupportedLanguageError{
			Code:   target.code,
			Reason: fmt.Sprintf("source and target language are both %q", target.code),
		}
	}
	return nil
}

func parseTag(code string) (xlang.Tag, error) {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if code == "" {
		return xlang.Und, fmt.Errorf("empty language code")
	}
	return xlang.Parse(code)
}

func lookup(code string) (Language, bool) {
	code = strings.ToLower(code)
	for _, l := range supported {
		if l.code == code {
			return l, true
		}
	}
	return Language{}, false
}

// UnsupportedLanguageError reports a language or language pair the tool or
// the provider cannot translate.
type UnsupportedLanguageError struct {
	Code   string
	Reason string
}

func (e *UnsupportedLanguageError) Error() string {
	if e.Reason != "" {
		return "unsupported language: " + e.Reason
	}
	return fmt.Sprintf(
		"unsupported language %q (supported: %s)",
		e.Code,
		strings.Join(Codes(), ", "),
	)
}
