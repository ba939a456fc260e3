package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// right-to-left mark
const rlm = "\u200f"

// Write serializes f as WebVTT. Empty text lines are dropped since a blank
// line would terminate the cue early.
func Write(w io.Writer, f *File, dir Direction) error {
	bw := bufio.NewWriter(w)

	// VTT header
	if f.Header != "" {
		fmt.Fprintf(bw, "WEBVTT %s\n\n", f.Header)
	} else {
		bw.WriteString("WEBVTT\n\n")
	}

	for _, cue := range f.Cues {
		if cue.ID != "" {
			bw.WriteString(cue.ID)
			bw.WriteByte('\n')
		}

		// timestamps: 00:00:00.000 --> 00:00:00.000
		fmt.Fprintf(bw, "%s --> %s",
			formatVTTTime(cue.StartTime),
			formatVTTTime(cue.EndTime))
		if cue.Settings != "" {
			bw.WriteByte(' ')
			bw.WriteString(cue.Settings)
		}
		bw.WriteByte('\n')

		for _, line := range cue.Lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if dir == RTL {
				line = markRTL(line)
			}
			bw.WriteString(line)
			bw.WriteByte('\n')
		}
		bw.WriteByte('\n')
	}

	return bw.Flush()
}

// WriteFile writes f to path atomically: the content goes to a temp file in
// the same directory which is renamed over path only once fully written.
func WriteFile(path string, f *File, dir Direction) error {
	if err := ensureDir(path); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".vtt-translate-*.tmp")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}

	if err := Write(tmp, f, dir); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}

	return nil
}

// markRTL wraps Latin runs at the line edges in RLM marks so players keep
// punctuation and embedded Latin words on the correct side.
func markRTL(line string) string {
	if r, _ := utf8.DecodeRuneInString(line); r < utf8.RuneSelf {
		line = rlm + line
	}
	if r, _ := utf8.DecodeLastRuneInString(line); r < utf8.RuneSelf {
		line += rlm
	}
	return line
}

func formatVTTTime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}
