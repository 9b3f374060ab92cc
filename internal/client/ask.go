package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/markis/docqa/internal/stream"
)

// ErrEmptyQuestion is returned for a question that is blank after trimming.
var ErrEmptyQuestion = errors.New("question must not be empty")

// StreamQuery posts question and returns the answer stream. The caller owns
// the returned source and must close it.
func (c *Client) StreamQuery(ctx context.Context, question string) (stream.ChunkSource, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	req, err := c.newJSONRequest(ctx, pathStreamQuery, map[string]string{"question": question})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	c.logger.Debug("opening answer stream", "url", req.URL.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if err := checkStatus(resp); err != nil {
		c.closeBody(resp.Body)
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("unexpected status for answer stream", "status", resp.StatusCode)
	}

	return stream.NewReaderSource(resp.Body), nil
}

// Ask streams the answer to question into sink. A request that cannot be
// established is reported to the sink as a single error. A refusal from the
// server is reported with its detail message only.
func (c *Client) Ask(ctx context.Context, question string, sink stream.Sink) stream.Outcome {
	session := stream.NewSession(sink, stream.WithLogger(c.logger))

	src, err := c.StreamQuery(ctx, question)
	if err != nil {
		var apiErr *APIError
		switch {
		case ctx.Err() != nil:
			return stream.Outcome{SessionID: session.ID(), State: stream.StateCancelled, Err: ctx.Err()}
		case errors.Is(err, ErrEmptyQuestion):
			return session.Reject(err)
		case errors.As(err, &apiErr) && apiErr.Detail != "":
			return session.Reject(&stream.ProtocolError{Message: apiErr.Detail, Err: apiErr})
		default:
			return session.FailTransport(err)
		}
	}

	out := session.Consume(ctx, src)
	c.logger.Debug("answer stream finished",
		"session", out.SessionID,
		"state", out.State,
		"citations", len(out.Citations),
	)
	return out
}
