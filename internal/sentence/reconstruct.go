// Package sentence rebuilds whole sentences from caption cues and spreads
// translated sentences back over the cues they came from.
//
// Captions usually break mid-sentence for display timing, and translating
// those fragments one by one gives poor results. Reconstruct joins fragments
// into sentences while recording, for every sentence, which cue lines (and
// which byte ranges of them) it was built from. Resegment uses that record to
// put the translated text back in place.
package sentence

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mgpai22/vtt-translate/internal/subtitle"
)

// Fragment is the part of one cue line that belongs to a sentence.
type Fragment struct {
	Cue   int // index into the cue list
	Line  int // index into the cue's lines
	Start int // byte offset into the line
	End   int
	Text  string
}

// Len is the fragment length in runes.
func (f Fragment) Len() int {
	return utf8.RuneCountInString(f.Text)
}

// Sentence is a reconstructed sentence and the fragments it covers, in order.
type Sentence struct {
	Text      string
	Fragments []Fragment
}

// Reconstruct merges cue text into sentences. A trailing sentence without
// terminal punctuation is still returned.
func Reconstruct(cues []subtitle.Cue) []Sentence {
	var (
		sentences []Sentence
		current   Sentence
		parts     []string
	)

	flush := func() {
		if len(current.Fragments) == 0 {
			return
		}
		current.Text = strings.Join(parts, " ")
		sentences = append(sentences, current)
		current = Sentence{}
		parts = nil
	}

	for ci, cue := range cues {
		for li, line := range cue.Lines {
			for _, sp := range splitLine(line) {
				text := line[sp.start:sp.end]
				current.Fragments = append(current.Fragments, Fragment{
					Cue:   ci,
					Line:  li,
					Start: sp.start,
					End:   sp.end,
					Text:  text,
				})
				parts = append(parts, text)
				if sp.terminal {
					flush()
				}
			}
		}
	}
	flush()

	return sentences
}

// Texts returns the sentence texts in order.
func Texts(sentences []Sentence) []string {
	out := make([]string, len(sentences))
	for i, s := range sentences {
		out[i] = s.Text
	}
	return out
}

type span struct {
	start, end int
	terminal   bool // span ends a sentence
}

// splitLine cuts a line after each run of sentence-terminal punctuation
// (plus closing quotes and brackets) that is followed by whitespace or the
// end of the line. Full-width terminals split regardless of what follows.
func splitLine(line string) []span {
	var spans []span
	start := 0

	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		if !isTerminal(r) {
			i += size
			continue
		}

		wide := isWideTerminal(r)
		j := i + size
		for j < len(line) {
			next, n := utf8.DecodeRuneInString(line[j:])
			if !isTerminal(next) && !isCloser(next) {
				break
			}
			wide = wide || isWideTerminal(next)
			j += n
		}

		if j < len(line) && !wide {
			if next, _ := utf8.DecodeRuneInString(line[j:]); !unicode.IsSpace(next) {
				i = j
				continue
			}
		}

		spans = appendSpan(spans, line, start, j, true)
		start = j
		i = j
	}

	return appendSpan(spans, line, start, len(line), false)
}

func appendSpan(spans []span, line string, start, end int, terminal bool) []span {
	for start < end {
		r, size := utf8.DecodeRuneInString(line[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(line[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	if start == end {
		return spans
	}
	return append(spans, span{start: start, end: end, terminal: terminal})
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '?', '!', '…', '؟':
		return true
	}
	return isWideTerminal(r)
}

func isWideTerminal(r rune) bool {
	switch r {
	case '。', '？', '！':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '»', '”', '’', '」', '』':
		return true
	}
	return false
}
