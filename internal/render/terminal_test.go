package render

import (
	"bytes"
	"context"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/markis/docqa/internal/client"
	"github.com/markis/docqa/internal/stream"
)

var _ = Describe("TerminalRenderer", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	Context("in plain text mode", func() {
		var r *TerminalRenderer

		BeforeEach(func() {
			r = NewTerminalRenderer(buf, Options{PlainText: true})
		})

		It("prints only the new part of each running text", func() {
			r.OnToken("Hel")
			r.OnToken("Hello")
			Expect(buf.String()).To(Equal("Hello"))
		})

		It("prints the rest of a final answer that extends the stream", func() {
			r.OnToken("Hi")
			r.OnFinalAnswer("Hi there", nil)
			Expect(buf.String()).To(Equal("Hi there"))
		})

		It("reprints a rewritten final answer under a divider", func() {
			r.OnToken("Hi")
			r.OnFinalAnswer("Hello there", nil)

			out := buf.String()
			Expect(out).To(HavePrefix("Hi\n"))
			Expect(out).To(ContainSubstring("final answer"))
			Expect(out).To(HaveSuffix("Hello there"))
		})

		It("lists citations in order, 1-indexed", func() {
			r.OnFinalAnswer("Hi there", []stream.Citation{
				{Index: 1, SourceLabel: "a.pdf", Excerpt: "hello"},
				{Index: 2, SourceLabel: "b.pdf", Excerpt: "world"},
			})

			out := buf.String()
			Expect(out).To(ContainSubstring("Sources:"))
			first := strings.Index(out, "1. a.pdf")
			second := strings.Index(out, "2. b.pdf")
			Expect(first).To(BeNumerically(">", 0))
			Expect(second).To(BeNumerically(">", first))
			Expect(out).To(ContainSubstring("hello..."))
		})

		It("prints errors", func() {
			r.OnToken("partial")
			r.OnError("connection ended unexpectedly")
			Expect(buf.String()).To(ContainSubstring("partial\n"))
			Expect(buf.String()).To(ContainSubstring("Error: connection ended unexpectedly"))
		})

		It("marks cancelled sessions", func() {
			r.OnToken("Hi")
			Expect(r.Finish(stream.Outcome{State: stream.StateCancelled})).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("cancelled"))
		})

		It("renders a whole session end to end", func() {
			src := &stringSource{chunks: []string{
				"data: {\"token\":\"Hi\"}\n\ndata: {\"final_an",
				"swer\":\"Hi there\",\"sources\":[{\"file_name\":\"a.pdf\",\"text\":\"hello\"}]}\n\ndata: [DONE]\n\n",
			}}
			out := stream.Consume(context.Background(), src, r)
			Expect(out.State).To(Equal(stream.StateCompleted))
			Expect(r.Finish(out)).To(Succeed())

			Expect(buf.String()).To(HavePrefix("Hi there"))
			Expect(buf.String()).To(ContainSubstring("1. a.pdf"))
		})
	})

	Context("in markdown mode", func() {
		var r *TerminalRenderer

		BeforeEach(func() {
			r = NewTerminalRenderer(buf, Options{Style: "notty", Wrap: 80})
		})

		It("holds a paragraph back until it is complete", func() {
			r.OnToken("First para")
			Expect(buf.String()).To(BeEmpty())

			r.OnToken("First paragraph.\n\nSecond")
			Expect(buf.String()).To(ContainSubstring("First paragraph."))
			Expect(buf.String()).NotTo(ContainSubstring("Second"))

			Expect(r.Finish(stream.Outcome{State: stream.StateCompleted})).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("Second"))
		})

		It("renders summaries", func() {
			err := Summary(buf, r, &client.SummaryResponse{
				Summary:         "The documents describe **streaming**.",
				WordCount:       4,
				SourceDocuments: []string{"a.pdf", "b.pdf"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(ContainSubstring("Summary (4 words)"))
			Expect(buf.String()).To(ContainSubstring("streaming"))
			Expect(buf.String()).To(ContainSubstring("a.pdf, b.pdf"))
		})
	})
})

var _ = Describe("findMarkdownBreakPoint", func() {
	It("returns -1 without a blank line", func() {
		Expect(findMarkdownBreakPoint("one\ntwo")).To(Equal(-1))
	})

	It("points just past the last blank line", func() {
		Expect(findMarkdownBreakPoint("a\n\nb\n\nc")).To(Equal(6))
	})
})

var _ = Describe("Status", func() {
	It("lists indexed documents", func() {
		var buf bytes.Buffer
		Status(&buf, &client.ServiceStatus{
			Status:           "online",
			HasDocuments:     true,
			DocumentCount:    2,
			IndexedDocuments: []string{"a.pdf", "Example Domain"},
		})

		Expect(buf.String()).To(ContainSubstring("online"))
		Expect(buf.String()).To(ContainSubstring("Ready"))
		Expect(buf.String()).To(ContainSubstring("- Example Domain"))
	})
})

var _ = Describe("excerpt", func() {
	It("collapses whitespace and truncates by rune", func() {
		long := strings.Repeat("é", maxExcerpt+10)
		Expect([]rune(excerpt(long))).To(HaveLen(maxExcerpt))
		Expect(excerpt("a\n  b\tc")).To(Equal("a b c"))
	})
})

type stringSource struct {
	chunks []string
}

func (s *stringSource) Next(context.Context) ([]byte, error) {
	if len(s.chunks) == 0 {
		return nil, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return []byte(c), nil
}

func (s *stringSource) Close() error { return nil }
