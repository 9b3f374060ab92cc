package stream

import "strings"

// LineFramer accumulates decoded text and yields complete newline-terminated
// records. The unterminated tail stays buffered for the next Push.
type LineFramer struct {
	buffer string
}

func NewLineFramer() *LineFramer {
	return &LineFramer{}
}

// Push appends text and returns every line completed by it, in order,
// without the trailing newline.
func (f *LineFramer) Push(text string) []string {
	if text == "" {
		return nil
	}

	lines := strings.Split(f.buffer+text, "\n")
	f.buffer = lines[len(lines)-1]
	return lines[:len(lines)-1]
}

// Pending returns the buffered partial line.
func (f *LineFramer) Pending() string {
	return f.buffer
}
