package stream

import (
	"context"
	"io"
)

// ChunkSource delivers raw response bytes. Next returns io.EOF once the
// stream is exhausted. Close releases the underlying resource and may be
// called at any point, including while nothing has been read yet.
type ChunkSource interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

const defaultChunkSize = 4096

// ReaderSource adapts an io.ReadCloser (typically an HTTP response body) to
// ChunkSource. The returned chunk is only valid until the next call to Next.
type ReaderSource struct {
	body io.ReadCloser
	buf  []byte
	err  error
}

func NewReaderSource(body io.ReadCloser) *ReaderSource {
	return &ReaderSource{
		body: body,
		buf:  make([]byte, defaultChunkSize),
	}
}

type readResult struct {
	n   int
	err error
}

// Next blocks until the body yields data, fails, or ctx is done. A read that
// is still in flight when ctx is cancelled is unblocked by Close.
func (s *ReaderSource) Next(ctx context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make(chan readResult, 1)
	go func() {
		n, err := s.body.Read(s.buf)
		result <- readResult{n: n, err: err}
	}()

	select {
	case <-ctx.Done():
		s.err = ctx.Err()
		return nil, s.err
	case r := <-result:
		if r.err != nil {
			s.err = r.err
		}
		if r.n > 0 {
			return s.buf[:r.n], nil
		}
		if r.err != nil {
			return nil, r.err
		}
		return nil, nil
	}
}

func (s *ReaderSource) Close() error {
	return s.body.Close()
}
