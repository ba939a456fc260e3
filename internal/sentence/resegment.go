package sentence

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mgpai22/vtt-translate/internal/subtitle"
)

// Resegment returns copies of cues whose lines hold the translations, each
// translated sentence spread over the fragments of the sentence at the same
// index. Timing, ids, settings and line counts are unchanged.
func Resegment(
	cues []subtitle.Cue,
	sentences []Sentence,
	translations []string,
) ([]subtitle.Cue, error) {
	if len(translations) != len(sentences) {
		return nil, fmt.Errorf(
			"got %d translations for %d sentences",
			len(translations),
			len(sentences),
		)
	}

	out := make([]subtitle.Cue, len(cues))
	for i, c := range cues {
		c.Lines = make([]string, len(c.Lines))
		out[i] = c
	}

	for si, s := range sentences {
		for _, frag := range s.Fragments {
			if frag.Cue < 0 || frag.Cue >= len(out) ||
				frag.Line < 0 || frag.Line >= len(out[frag.Cue].Lines) {
				return nil, fmt.Errorf(
					"sentence %d references missing cue %d line %d",
					si,
					frag.Cue,
					frag.Line,
				)
			}
		}

		pieces := distribute(translations[si], s.Fragments)
		for fi, frag := range s.Fragments {
			if pieces[fi] == "" {
				continue
			}
			line := &out[frag.Cue].Lines[frag.Line]
			if *line != "" {
				*line += " "
			}
			*line += pieces[fi]
		}
	}

	return out, nil
}

// distribute splits text into one piece per fragment, sized in proportion to
// the fragments' source lengths. Splits fall on word boundaries. A single
// word in a script written without spaces is split between runes; any other
// single word goes whole to the fragment with the largest share. Each
// fragment gets at least one token while enough tokens remain for the
// fragments after it.
func distribute(text string, frags []Fragment) []string {
	pieces := make([]string, len(frags))
	if len(frags) == 0 {
		return pieces
	}

	tokens, sep := strings.Fields(text), " "
	if len(tokens) == 0 {
		return pieces
	}
	if len(frags) == 1 {
		pieces[0] = strings.Join(tokens, sep)
		return pieces
	}
	if len(tokens) == 1 {
		if !unspaced(tokens[0]) {
			pieces[largest(frags)] = tokens[0]
			return pieces
		}
		tokens, sep = splitRunes(tokens[0]), ""
	}

	total := 0
	for _, f := range frags {
		total += f.Len()
	}

	sepLen := utf8.RuneCountInString(sep)
	textLen := sepLen * (len(tokens) - 1)
	for _, tok := range tokens {
		textLen += utf8.RuneCountInString(tok)
	}

	pos, t, cum := 0, 0, 0
	for i, f := range frags {
		cum += f.Len()
		boundary := float64(textLen)
		if total > 0 {
			boundary = float64(cum) / float64(total) * float64(textLen)
		}
		last := i == len(frags)-1
		remaining := len(frags) - i - 1

		var taken []string
		for t < len(tokens) {
			n := utf8.RuneCountInString(tokens[t])
			if !last && len(taken) > 0 {
				if len(tokens)-t <= remaining {
					break
				}
				if float64(pos)+float64(n)/2 > boundary {
					break
				}
			}
			taken = append(taken, tokens[t])
			pos += n + sepLen
			t++
		}
		pieces[i] = strings.Join(taken, sep)
	}

	return pieces
}

func splitRunes(s string) []string {
	out := make([]string, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// unspaced reports whether s contains a script that does not separate words
// with spaces.
func unspaced(s string) bool {
	for _, r := range s {
		if unicode.In(r,
			unicode.Han,
			unicode.Hiragana,
			unicode.Katakana,
			unicode.Thai,
			unicode.Lao,
			unicode.Khmer,
			unicode.Myanmar,
			unicode.Tibetan,
		) {
			return true
		}
	}
	return false
}

// largest returns the index of the first fragment with the longest text.
func largest(frags []Fragment) int {
	best := 0
	for i, f := range frags {
		if f.Len() > frags[best].Len() {
			best = i
		}
	}
	return best
}
