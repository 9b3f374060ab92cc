package stream

import (
	"errors"
	"fmt"
)

// ErrPrematureTermination is reported when the chunk source runs dry before
// the server sent [DONE] or an error record.
var ErrPrematureTermination = errors.New("connection ended unexpectedly")

// TransportError wraps a failure to establish the request or to read the
// response body.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is an error reported by the server, either as an error
// record or by refusing the request. Err holds the refusal, when there was
// one.
type ProtocolError struct {
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	return e.Message
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
