package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	recordPrefix = "data: "
	doneSentinel = "[DONE]"
)

// ErrMalformedRecord marks a data record whose payload is not the expected
// JSON object. The session drops such records and keeps streaming.
var ErrMalformedRecord = errors.New("malformed record")

// EventKind tags the variant held by an Event.
type EventKind int

const (
	EventToken EventKind = iota + 1
	EventFinalAnswer
	EventError
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventToken:
		return "token"
	case EventFinalAnswer:
		return "final_answer"
	case EventError:
		return "error"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

// Citation is one source attached to a final answer. Index is 1-based and
// follows the order the server listed the sources in.
type Citation struct {
	Index       int
	SourceLabel string
	Excerpt     string
}

// Event is a single semantic event decoded from one record.
//
// Text is set for EventToken and EventFinalAnswer, Citations for
// EventFinalAnswer and Message for EventError.
type Event struct {
	Kind      EventKind
	Text      string
	Citations []Citation
	Message   string
}

// payload mirrors the JSON object carried by a data record. Pointers tell a
// missing (or null) key apart from an empty string.
type payload struct {
	Token       *string  `json:"token"`
	FinalAnswer *string  `json:"final_answer"`
	Sources     []source `json:"sources"`
	Error       *string  `json:"error"`
}

type source struct {
	FileName string `json:"file_name"`
	Text     string `json:"text"`
}

// ParseRecord classifies one record. It returns nil, nil for records that are
// not data records or carry nothing we act on, and an error wrapping
// ErrMalformedRecord when the payload does not decode.
//
// When a payload has several fields set, token wins over final_answer, which
// wins over error.
func ParseRecord(line string) (*Event, error) {
	data, ok := strings.CutPrefix(line, recordPrefix)
	if !ok {
		return nil, nil
	}
	data = strings.TrimSuffix(data, "\r")

	if data == doneSentinel {
		return &Event{Kind: EventDone}, nil
	}

	var p payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	switch {
	case p.Token != nil:
		return &Event{Kind: EventToken, Text: *p.Token}, nil
	case p.FinalAnswer != nil:
		return &Event{Kind: EventFinalAnswer, Text: *p.FinalAnswer, Citations: citations(p.Sources)}, nil
	case p.Error != nil:
		return &Event{Kind: EventError, Message: *p.Error}, nil
	default:
		return nil, nil
	}
}

func citations(sources []source) []Citation {
	out := make([]Citation, 0, len(sources))
	for i, s := range sources {
		out = append(out, Citation{
			Index:       i + 1,
			SourceLabel: s.FileName,
			Excerpt:     s.Text,
		})
	}
	return out
}
