package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	timingLineRegex = regexp.MustCompile(
		`^(\S+)[ \t]+-->[ \t]+(\S+)(?:[ \t]+(.*))?$`,
	)
	timestampRegex = regexp.MustCompile(
		`^(?:(\d{2,}):)?(\d{2}):(\d{2})\.(\d{3})$`,
	)
)

// ParseFile opens and parses a WebVTT file.
func ParseFile(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open VTT file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	return Parse(file)
}

// Parse reads a WebVTT document into an ordered list of cues.
func Parse(r io.Reader) (*File, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading VTT file: %w", err)
	}

	if len(lines) == 0 {
		return nil, &ParseError{Msg: "empty file, missing WEBVTT header"}
	}

	first := strings.TrimPrefix(lines[0], "\ufeff")
	header, ok := parseHeader(first)
	if !ok {
		return nil, &ParseError{Line: 1, Msg: "missing WEBVTT header"}
	}

	f := &File{Header: header}

	// header metadata runs until the first blank line
	i := 1
	for i < len(lines) &&
		strings.TrimSpace(lines[i]) != "" &&
		!strings.Contains(lines[i], "-->") {
		i++
	}

	for i < len(lines) {
		if strings.TrimSpace(lines[i]) == "" {
			i++
			continue
		}

		start := i
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			i++
		}

		cue, skip, err := parseBlock(lines[start:i], start+1)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}

		if n := len(f.Cues); n > 0 && cue.StartTime < f.Cues[n-1].StartTime {
			return nil, &ParseError{
				Line: start + 1,
				Msg: fmt.Sprintf(
					"cue starts at %s, before previous cue at %s",
					formatVTTTime(cue.StartTime),
					formatVTTTime(f.Cues[n-1].StartTime),
				),
			}
		}
		f.Cues = append(f.Cues, *cue)
	}

	return f, nil
}

func parseHeader(line string) (string, bool) {
	if !strings.HasPrefix(line, "WEBVTT") {
		return "", false
	}
	rest := line[len("WEBVTT"):]
	if rest == "" {
		return "", true
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// parseBlock handles one blank-line separated block. lineNum is the 1-based
// line number of block[0].
func parseBlock(block []string, lineNum int) (*Cue, bool, error) {
	first := strings.TrimSpace(block[0])
	if isKeywordBlock(first, "NOTE") ||
		isKeywordBlock(first, "STYLE") ||
		isKeywordBlock(first, "REGION") {
		return nil, true, nil
	}

	cue := &Cue{}
	timingIdx := 0
	if !strings.Contains(block[0], "-->") {
		if len(block) < 2 || !strings.Contains(block[1], "-->") {
			return nil, false, &ParseError{
				Line: lineNum,
				Msg:  fmt.Sprintf("expected cue timing line, got %q", block[0]),
			}
		}
		cue.ID = first
		timingIdx = 1
	}

	if err := parseTiming(cue, block[timingIdx], lineNum+timingIdx); err != nil {
		return nil, false, err
	}

	cue.Lines = append(cue.Lines, block[timingIdx+1:]...)

	return cue, false, nil
}

func isKeywordBlock(line, keyword string) bool {
	if !strings.HasPrefix(line, keyword) {
		return false
	}
	rest := line[len(keyword):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

func parseTiming(cue *Cue, line string, lineNum int) error {
	matches := timingLineRegex.FindStringSubmatch(strings.TrimSpace(line))
	if matches == nil {
		return &ParseError{
			Line: lineNum,
			Msg:  fmt.Sprintf("malformed timing line %q", line),
		}
	}

	startTime, err := parseVTTTimestamp(matches[1])
	if err != nil {
		return &ParseError{
			Line: lineNum,
			Msg:  fmt.Sprintf("invalid start timestamp: %v", err),
		}
	}
	endTime, err := parseVTTTimestamp(matches[2])
	if err != nil {
		return &ParseError{
			Line: lineNum,
			Msg:  fmt.Sprintf("invalid end timestamp: %v", err),
		}
	}
	if startTime >= endTime {
		return &ParseError{
			Line: lineNum,
			Msg: fmt.Sprintf(
				"cue start %s is not before end %s",
				matches[1],
				matches[2],
			),
		}
	}

	cue.StartTime = startTime
	cue.EndTime = endTime
	cue.Settings = strings.TrimSpace(matches[3])
	return nil
}

func parseVTTTimestamp(s string) (time.Duration, error) {
	m := timestampRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%q is not a WebVTT timestamp", s)
	}

	h := 0
	if m[1] != "" {
		var err error
		if h, err = strconv.Atoi(m[1]); err != nil {
			return 0, err
		}
	}
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	ms, _ := strconv.Atoi(m[4])
	if minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("%q has minutes or seconds out of range", s)
	}

	return time.Duration(h)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}
