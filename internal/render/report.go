package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/markis/docqa/internal/client"
	"github.com/markis/docqa/internal/stream"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dividerStyle = dimStyle
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// maxExcerpt bounds how much of each source excerpt is shown.
const maxExcerpt = 300

// FormatCitations lists citations 1-indexed in the order given.
func FormatCitations(citations []stream.Citation) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Sources:"))
	for _, c := range citations {
		fmt.Fprintf(&b, "\n%s\n   %s",
			labelStyle.Render(fmt.Sprintf("%d. %s", c.Index, c.SourceLabel)),
			dimStyle.Render(excerpt(c.Excerpt)+"..."),
		)
	}
	return b.String()
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxExcerpt {
		return string(r[:maxExcerpt])
	}
	return s
}

// Status prints the service status the way the sidebar indicator showed it.
func Status(w io.Writer, s *client.ServiceStatus) {
	state := dimStyle.Render("No Documents")
	if s.HasDocuments {
		state = successStyle.Render("Ready")
	}

	fmt.Fprintf(w, "%s %s\n", headingStyle.Render("Status:"), s.Status)
	fmt.Fprintf(w, "%s %s\n", headingStyle.Render("Index:"), state)
	fmt.Fprintf(w, "%s %d\n", headingStyle.Render("Documents:"), s.DocumentCount)
	for _, doc := range s.IndexedDocuments {
		fmt.Fprintf(w, "  - %s\n", doc)
	}
}

// Message prints a one-line success message.
func Message(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render("✓")+" "+msg)
}

// Summary prints a summary with its word count and sources.
func Summary(w io.Writer, r *TerminalRenderer, s *client.SummaryResponse) error {
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Summary (%d words)", s.WordCount)))
	if err := r.Markdown(s.Summary); err != nil {
		return err
	}
	if len(s.SourceDocuments) > 0 {
		fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Sources:"), strings.Join(s.SourceDocuments, ", "))
	}
	return nil
}
