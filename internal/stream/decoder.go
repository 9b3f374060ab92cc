package stream

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder turns raw byte chunks into UTF-8 text. Bytes that do not yet form a
// complete character are held back until the next Feed.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	dst     [4096]byte
}

func NewDecoder() *Decoder {
	return &Decoder{t: unicode.UTF8.NewDecoder()}
}

// Feed decodes everything decodable in pending+chunk and keeps the rest.
func (d *Decoder) Feed(chunk []byte) string {
	return d.decode(chunk, false)
}

// Flush decodes whatever is still held back. Incomplete sequences become
// U+FFFD rather than an error; truncation is the transport's problem.
func (d *Decoder) Flush() string {
	return d.decode(nil, true)
}

func (d *Decoder) decode(chunk []byte, atEOF bool) string {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}

	var out strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(d.dst[:], src, atEOF)
		out.Write(d.dst[:nDst])
		src = src[nSrc:]

		switch err {
		case nil:
			return out.String()
		case transform.ErrShortDst:
			continue
		case transform.ErrShortSrc:
			d.pending = append([]byte(nil), src...)
			return out.String()
		default:
			out.WriteString(strings.ToValidUTF8(string(src), "\uFFFD"))
			return out.String()
		}
	}
}
