package subtitle

import "fmt"

// ParseError reports malformed WebVTT input.
type ParseError struct {
	Line int // 1-based, 0 when not tied to a line
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("vtt: line %d: %s", e.Line, e.Msg)
	}
	return "vtt: " + e.Msg
}

// WriteError reports that the output file could not be created or written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
