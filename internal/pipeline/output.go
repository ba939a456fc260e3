package pipeline

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mgpai22/vtt-translate/internal/language"
)

// DefaultOutputPath returns <dir>/<stem>.<target>.vtt. A trailing
// ".<source>" or "-<source>" tag on the stem, optionally followed by a
// two-letter region, is dropped first. The source may be empty.
func DefaultOutputPath(input, source, target string) string {
	dir := filepath.Dir(input)
	name := filepath.Base(input)

	ext := filepath.Ext(name)
	if ext == name {
		// dotfile without an extension
		ext = ""
	}
	stem := strings.TrimSuffix(name, ext)

	if re := sourceTagRegexp(source); re != nil {
		if m := re.FindStringSubmatch(stem); m != nil {
			stem = m[1]
		}
	}
	if stem == "" {
		stem = "vtt-translate"
	}

	return filepath.Join(dir, fmt.Sprintf("%s.%s.vtt", stem, strings.ToLower(target)))
}

func sourceTagRegexp(source string) *regexp.Regexp {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		return nil
	}

	codes := []string{regexp.QuoteMeta(source)}
	if lang, ok := language.Match(source); ok && lang.Base() != source {
		codes = append(codes, regexp.QuoteMeta(lang.Base()))
	} else if i := strings.IndexByte(source, '-'); i > 0 {
		codes = append(codes, regexp.QuoteMeta(source[:i]))
	}

	return regexp.MustCompile(
		`(?i)^(.+?)[.-](?:` + strings.Join(codes, "|") + `)(?:-[a-z]{2})?$`,
	)
}
