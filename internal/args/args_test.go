package args_test

import (
	"bytes"
	"io"
	"strings"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/markis/docqa/internal/args"
	"github.com/markis/docqa/internal/config"
)

var _ = Describe("ParseArgs", func() {
	var cfg config.Config

	BeforeEach(func() {
		cfg = *config.NewDefaultConfig()
	})

	It("treats bare words as a question", func() {
		a, err := args.ParseArgs(cfg, []string{"what", "is", "RAG?"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Action).To(Equal(args.ActionAsk))
		Expect(a.Question).To(Equal("what is RAG?"))
	})

	It("combines a question with piped input", func() {
		a, err := args.ParseArgs(cfg, []string{"ask", "summarise this"}, strings.NewReader("line one\nline two\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Action).To(Equal(args.ActionAsk))
		Expect(a.Question).To(Equal("summarise this\n\nline one\nline two"))
	})

	It("asks piped input alone", func() {
		a, err := args.ParseArgs(cfg, nil, strings.NewReader("  what changed?  \n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Question).To(Equal("what changed?"))
	})

	It("requires a question for ask", func() {
		_, err := args.ParseArgs(cfg, []string{"ask"}, nil)
		Expect(err).To(MatchError("no question provided"))
	})

	It("parses upload and scrape targets", func() {
		a, err := args.ParseArgs(cfg, []string{"upload", "paper.pdf"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Action).To(Equal(args.ActionUpload))
		Expect(a.Target).To(Equal("paper.pdf"))

		a, err = args.ParseArgs(cfg, []string{"scrape", "https://example.com"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Action).To(Equal(args.ActionScrape))
		Expect(a.Target).To(Equal("https://example.com"))
	})

	It("rejects upload without a file", func() {
		_, err := args.ParseArgs(cfg, []string{"upload"}, nil)
		Expect(err).To(HaveOccurred())
	})

	It("takes the summary length from config unless overridden", func() {
		cfg.Summary.MaxLength = 300
		a, err := args.ParseArgs(cfg, []string{"summarize"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Action).To(Equal(args.ActionSummarize))
		Expect(a.MaxLength).To(Equal(300))

		a, err = args.ParseArgs(cfg, []string{"summarize", "--max-length", "120"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.MaxLength).To(Equal(120))
	})

	It("parses reset confirmation and global flags", func() {
		a, err := args.ParseArgs(cfg, []string{"reset", "-y", "--server", "http://other:8000", "--debug", "--plain"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Action).To(Equal(args.ActionReset))
		Expect(a.Yes).To(BeTrue())
		Expect(a.Server).To(Equal("http://other:8000"))
		Expect(a.Debug).To(BeTrue())
		Expect(a.UsePlainText).To(BeTrue())
	})

	It("leaves stdin unread for reset so the confirmation can use it", func() {
		stdin := strings.NewReader("y\n")
		a, err := args.ParseArgs(cfg, []string{"reset"}, stdin)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Action).To(Equal(args.ActionReset))

		var out bytes.Buffer
		Expect(args.Confirm(stdin, &out, "Reset?")).To(BeTrue())
	})

	It("does not wait on stdin for commands that never read it", func() {
		stdin := &blockingReader{unblock: make(chan struct{})}
		DeferCleanup(func() { close(stdin.unblock) })

		done := make(chan args.Action, 1)
		go func() {
			defer GinkgoRecover()
			a, err := args.ParseArgs(cfg, []string{"status"}, stdin)
			Expect(err).NotTo(HaveOccurred())
			done <- a.Action
		}()

		Eventually(done).Should(Receive(Equal(args.ActionStatus)))
		Expect(stdin.reads.Load()).To(BeZero())
	})

	It("defaults to plain text when configured", func() {
		cfg.Render.Format = "plain"
		a, err := args.ParseArgs(cfg, []string{"status"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Action).To(Equal(args.ActionStatus))
		Expect(a.UsePlainText).To(BeTrue())
	})
})

var _ = Describe("Confirm", func() {
	DescribeTable("answers",
		func(input string, want bool) {
			var out bytes.Buffer
			Expect(args.Confirm(strings.NewReader(input), &out, "Reset?")).To(Equal(want))
			Expect(out.String()).To(Equal("Reset? [y/N] "))
		},
		Entry("y", "y\n", true),
		Entry("YES", "YES\n", true),
		Entry("no", "n\n", false),
		Entry("empty line", "\n", false),
		Entry("eof", "", false),
		Entry("yes without newline", "yes", true),
	)
})

// blockingReader holds every Read until unblock is closed, like a pipe whose
// writer never finishes.
type blockingReader struct {
	unblock chan struct{}
	reads   atomic.Int32
}

func (r *blockingReader) Read([]byte) (int, error) {
	r.reads.Add(1)
	<-r.unblock
	return 0, io.EOF
}
