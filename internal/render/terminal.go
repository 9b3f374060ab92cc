package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/cli/go-gh/v2/pkg/markdown"

	"github.com/markis/docqa/internal/stream"
)

// Options controls a TerminalRenderer.
type Options struct {
	PlainText bool
	Wrap      int
	// Style is a glamour standard style name. Empty picks one from the
	// terminal background.
	Style string
}

// TerminalRenderer is a stream.Sink that prints the answer as it arrives.
// Markdown is rendered a paragraph at a time so half-written blocks are never
// shown.
type TerminalRenderer struct {
	out       io.Writer
	markdown  *glamour.TermRenderer
	plainText bool

	// seen is the running answer text already accepted from the stream;
	// buffer holds the part of it not yet written out.
	seen   string
	buffer strings.Builder
	err    error
}

var _ stream.Sink = (*TerminalRenderer)(nil)

func NewTerminalRenderer(out io.Writer, opts Options) *TerminalRenderer {
	if opts.Wrap <= 0 {
		opts.Wrap = 120
	}

	var md *glamour.TermRenderer
	if !opts.PlainText {
		style := glamour.WithAutoStyle()
		if opts.Style != "" {
			style = glamour.WithStandardStyle(opts.Style)
		}
		md, _ = glamour.NewTermRenderer(
			markdown.WithWrap(opts.Wrap),
			style,
		)
	}

	return &TerminalRenderer{
		out:       out,
		markdown:  md,
		plainText: opts.PlainText || md == nil,
	}
}

func (t *TerminalRenderer) OnToken(running string) {
	delta := running
	if strings.HasPrefix(running, t.seen) {
		delta = running[len(t.seen):]
	}
	t.seen = running
	t.buffer.WriteString(delta)

	if t.plainText {
		t.flush()
		return
	}

	content := t.buffer.String()
	if idx := findMarkdownBreakPoint(content); idx > 0 {
		t.renderContent(content[:idx])
		// Reset buffer with remaining content
		remaining := content[idx:]
		t.buffer.Reset()
		t.buffer.WriteString(remaining)
	}
}

// OnFinalAnswer prints whatever the final text adds to what was streamed.
// When the server rewrote the answer, the whole final text is printed again
// under a divider.
func (t *TerminalRenderer) OnFinalAnswer(text string, citations []stream.Citation) {
	if strings.HasPrefix(text, t.seen) {
		t.buffer.WriteString(text[len(t.seen):])
		t.flush()
	} else {
		t.flush()
		if t.seen != "" {
			fmt.Fprintln(t.out)
			fmt.Fprintln(t.out, dividerStyle.Render("── final answer ──"))
		}
		t.renderContent(text)
	}
	t.seen = text

	if len(citations) > 0 {
		fmt.Fprintln(t.out)
		fmt.Fprintln(t.out, FormatCitations(citations))
	}
}

func (t *TerminalRenderer) OnError(message string) {
	t.flush()
	if t.seen != "" {
		fmt.Fprintln(t.out)
	}
	fmt.Fprintln(t.out, errorStyle.Render("Error: "+message))
}

// Finish writes anything still buffered and notes a cancelled session. It
// returns the first markdown rendering error, if any.
func (t *TerminalRenderer) Finish(out stream.Outcome) error {
	t.flush()
	if out.State == stream.StateCancelled {
		fmt.Fprintln(t.out)
		fmt.Fprintln(t.out, dimStyle.Render("cancelled"))
	}
	fmt.Fprintln(t.out)
	return t.err
}

// Markdown renders a complete document, such as a summary.
func (t *TerminalRenderer) Markdown(content string) error {
	t.renderContent(content)
	fmt.Fprintln(t.out)
	return t.err
}

func (t *TerminalRenderer) flush() {
	if remaining := t.buffer.String(); remaining != "" {
		t.renderContent(remaining)
	}
	t.buffer.Reset()
}

func (t *TerminalRenderer) renderContent(content string) {
	if t.plainText {
		fmt.Fprint(t.out, content)
		return
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	if strings.HasPrefix(content, "#") {
		fmt.Fprintln(t.out)
	}

	mdContent, err := t.markdown.Render(content)
	if err != nil {
		if t.err == nil {
			t.err = fmt.Errorf("failed to render markdown: %w", err)
		}
		fmt.Fprintln(t.out, content)
		return
	}

	fmt.Fprintln(t.out, strings.TrimSpace(mdContent))
}

func findMarkdownBreakPoint(content string) int {
	const marker string = "\n\n"
	lastBreak := -1
	idx := strings.LastIndex(content, marker)
	if idx > lastBreak {
		lastBreak = idx + len(marker)
	}
	return lastBreak
}
