package subtitle

import (
	"strings"
	"time"
)

// single WebVTT timed caption
type Cue struct {
	ID        string // optional cue identifier
	StartTime time.Duration
	EndTime   time.Duration
	Settings  string // cue settings following the end timestamp
	Lines     []string
}

// Text joins the cue lines with newlines.
func (c Cue) Text() string {
	return strings.Join(c.Lines, "\n")
}

// parsed WebVTT file
type File struct {
	Header string // text after "WEBVTT" on the first line
	Cues   []Cue
}

// Clone returns a deep copy so the source file survives resegmentation.
func (f *File) Clone() *File {
	out := &File{Header: f.Header, Cues: make([]Cue, len(f.Cues))}
	for i, c := range f.Cues {
		c.Lines = append([]string(nil), c.Lines...)
		out.Cues[i] = c
	}
	return out
}

// text direction of the output script
type Direction string

const (
	LTR Direction = "ltr"
	RTL Direction = "rtl"
)
