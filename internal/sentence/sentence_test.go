package sentence

import (
	"math"
	"strings"
	"testing"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mgpai22/vtt-translate/internal/subtitle"
)

func cue(start, end time.Duration, lines ...string) subtitle.Cue {
	return subtitle.Cue{StartTime: start, EndTime: end, Lines: lines}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestReconstructAcrossCues(t *testing.T) {
	cues := []subtitle.Cue{
		cue(1*time.Second, 2*time.Second, "Hello"),
		cue(2*time.Second, 4*time.Second, "world."),
	}

	got := Reconstruct(cues)
	if len(got) != 1 {
		t.Fatalf("expected 1 sentence, got %d: %+v", len(got), got)
	}
	if got[0].Text != "Hello world." {
		t.Errorf("got %q", got[0].Text)
	}
	if len(got[0].Fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(got[0].Fragments))
	}
	if got[0].Fragments[0].Cue != 0 || got[0].Fragments[1].Cue != 1 {
		t.Errorf("fragments map to wrong cues: %+v", got[0].Fragments)
	}
}

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name  string
		cues  []subtitle.Cue
		texts []string
	}{
		{
			name: "several sentences in one line",
			cues: []subtitle.Cue{
				cue(0, time.Second, "Stop! Who goes there? It's me."),
			},
			texts: []string{"Stop!", "Who goes there?", "It's me."},
		},
		{
			name: "sentence spans lines and cues",
			cues: []subtitle.Cue{
				cue(0, time.Second, "This is a long", "sentence that keeps"),
				cue(time.Second, 2*time.Second, "going. And another"),
			},
			texts: []string{
				"This is a long sentence that keeps going.",
				"And another",
			},
		},
		{
			name: "decimal point is not a boundary",
			cues: []subtitle.Cue{
				cue(0, time.Second, "Pi is 3.14 roughly."),
			},
			texts: []string{"Pi is 3.14 roughly."},
		},
		{
			name: "ellipsis and closing quote stay with sentence",
			cues: []subtitle.Cue{
				cue(0, time.Second, `He said "wait..." Then left.`),
			},
			texts: []string{`He said "wait..."`, "Then left."},
		},
		{
			name: "full-width terminals split without spaces",
			cues: []subtitle.Cue{
				cue(0, time.Second, "こんにちは。元気ですか？"),
			},
			texts: []string{"こんにちは。", "元気ですか？"},
		},
		{
			name: "empty lines and cues are skipped",
			cues: []subtitle.Cue{
				cue(0, time.Second),
				cue(time.Second, 2*time.Second, "   ", "Only this."),
			},
			texts: []string{"Only this."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Texts(Reconstruct(tt.cues))
			if len(got) != len(tt.texts) {
				t.Fatalf("got %q, want %q", got, tt.texts)
			}
			for i := range got {
				if got[i] != tt.texts[i] {
					t.Errorf("sentence %d: got %q, want %q", i, got[i], tt.texts[i])
				}
			}
		})
	}
}

func TestReconstructCoversAllText(t *testing.T) {
	cues := []subtitle.Cue{
		cue(0, time.Second, "  Well, I think", "we should go."),
		cue(time.Second, 2*time.Second, "Really? Yes.  Now"),
		cue(2*time.Second, 3*time.Second),
		cue(3*time.Second, 4*time.Second, "before it rains", "and the 2.5km walk gets wet"),
	}

	var source strings.Builder
	for _, c := range cues {
		for _, l := range c.Lines {
			source.WriteString(l)
		}
	}

	var rebuilt strings.Builder
	for _, s := range Reconstruct(cues) {
		rebuilt.WriteString(s.Text)
	}

	if stripSpace(rebuilt.String()) != stripSpace(source.String()) {
		t.Errorf(
			"coverage mismatch:\n%q\n%q",
			stripSpace(rebuilt.String()),
			stripSpace(source.String()),
		)
	}
}

func TestFragmentOffsets(t *testing.T) {
	line := "  One. Two"
	cues := []subtitle.Cue{cue(0, time.Second, line)}

	for _, s := range Reconstruct(cues) {
		for _, f := range s.Fragments {
			if line[f.Start:f.End] != f.Text {
				t.Errorf("offsets %d:%d give %q, want %q",
					f.Start, f.End, line[f.Start:f.End], f.Text)
			}
		}
	}
}

func TestResegmentExample(t *testing.T) {
	cues := []subtitle.Cue{
		cue(1*time.Second, 2*time.Second, "Hello"),
		cue(2*time.Second, 4*time.Second, "world."),
	}
	sentences := Reconstruct(cues)

	out, err := Resegment(cues, sentences, []string{"Bonjour le monde."})
	if err != nil {
		t.Fatalf("Resegment returned error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(out))
	}

	for i := range cues {
		if out[i].StartTime != cues[i].StartTime || out[i].EndTime != cues[i].EndTime {
			t.Errorf("cue %d: timing changed", i)
		}
	}

	if out[0].Lines[0] != "Bonjour" || out[1].Lines[0] != "le monde." {
		t.Errorf("got %q / %q", out[0].Lines[0], out[1].Lines[0])
	}

	// source split is 5:6 characters
	a := utf8.RuneCountInString(out[0].Lines[0])
	b := utf8.RuneCountInString(out[1].Lines[0])
	ratio := float64(a) / float64(a+b)
	if math.Abs(ratio-5.0/11.0) > 0.1 {
		t.Errorf("split ratio %.2f too far from %.2f", ratio, 5.0/11.0)
	}

	if cues[0].Lines[0] != "Hello" {
		t.Error("Resegment modified its input")
	}
}

func TestDistributeProportional(t *testing.T) {
	frags := []Fragment{
		{Text: strings.Repeat("x", 10)},
		{Text: strings.Repeat("x", 30)},
	}
	text := strings.TrimSpace(strings.Repeat("aaa ", 40))

	pieces := distribute(text, frags)
	first := len(strings.Fields(pieces[0]))
	second := len(strings.Fields(pieces[1]))
	if first+second != 40 {
		t.Fatalf("lost words: %d + %d", first, second)
	}
	if first != 10 {
		t.Errorf("expected 10 words in first piece, got %d", first)
	}
}

func TestDistribute(t *testing.T) {
	tests := []struct {
		name string
		text string
		lens []int
		want []string
	}{
		{
			name: "single fragment takes everything",
			text: "  one   two ",
			lens: []int{3},
			want: []string{"one two"},
		},
		{
			name: "fewer words than fragments",
			text: "one two",
			lens: []int{5, 5, 5},
			want: []string{"one", "two", ""},
		},
		{
			name: "every fragment gets a word when possible",
			text: "a b c",
			lens: []int{1, 1, 100},
			want: []string{"a", "b", "c"},
		},
		{
			name: "text without spaces splits by rune",
			text: "你好世界",
			lens: []int{6, 6},
			want: []string{"你好", "世界"},
		},
		{
			name: "single latin word goes to the largest fragment",
			text: "Bonjour.",
			lens: []int{5, 6},
			want: []string{"", "Bonjour."},
		},
		{
			name: "single word ties go to the first fragment",
			text: "Salut.",
			lens: []int{4, 4, 2},
			want: []string{"Salut.", "", ""},
		},
		{
			name: "empty translation",
			text: "   ",
			lens: []int{2, 2},
			want: []string{"", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frags := make([]Fragment, len(tt.lens))
			for i, n := range tt.lens {
				frags[i] = Fragment{Text: strings.Repeat("x", n)}
			}
			got := distribute(tt.text, frags)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("piece %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResegmentPreservesOrderAndTiming(t *testing.T) {
	cues := []subtitle.Cue{
		cue(0, time.Second, "First sentence starts"),
		cue(time.Second, 2*time.Second, "and ends. Second one", "is here."),
		cue(2*time.Second, 3*time.Second, "Third"),
	}
	sentences := Reconstruct(cues)
	if len(sentences) != 3 {
		t.Fatalf("expected 3 sentences, got %d", len(sentences))
	}

	translations := []string{
		"ONE ONE ONE ONE",
		"TWO TWO TWO",
		"THREE",
	}
	out, err := Resegment(cues, sentences, translations)
	if err != nil {
		t.Fatalf("Resegment returned error: %v", err)
	}

	if len(out) != len(cues) {
		t.Fatalf("cue count changed: %d -> %d", len(cues), len(out))
	}
	for i := range cues {
		if out[i].StartTime != cues[i].StartTime || out[i].EndTime != cues[i].EndTime {
			t.Errorf("cue %d: timing changed", i)
		}
		if len(out[i].Lines) != len(cues[i].Lines) {
			t.Errorf("cue %d: line count changed", i)
		}
	}

	// reading the output in cue order must give the translations in order
	var words []string
	for _, c := range out {
		for _, l := range c.Lines {
			words = append(words, strings.Fields(l)...)
		}
	}
	want := strings.Fields(strings.Join(translations, " "))
	if strings.Join(words, " ") != strings.Join(want, " ") {
		t.Errorf("order changed:\n got %q\nwant %q", words, want)
	}

	if !strings.HasPrefix(out[1].Lines[0], "ONE") ||
		!strings.HasSuffix(out[1].Lines[0], "TWO") {
		t.Errorf("shared line should hold the end of one and the start of two: %q", out[1].Lines[0])
	}
}

func TestResegmentErrors(t *testing.T) {
	cues := []subtitle.Cue{cue(0, time.Second, "One.")}
	sentences := Reconstruct(cues)

	if _, err := Resegment(cues, sentences, nil); err == nil {
		t.Error("expected error for missing translations")
	}

	bad := []Sentence{{Text: "x", Fragments: []Fragment{{Cue: 3, Text: "x"}}}}
	if _, err := Resegment(cues, bad, []string{"y"}); err == nil {
		t.Error("expected error for out of range fragment")
	}
}
