package conversation

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	aiStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	contextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Renderer writes the transcript of a line-mode conversation.
type Renderer struct {
	out   io.Writer
	label string
}

// NewRenderer writes to out and prefixes replies with label, e.g. "AI".
func NewRenderer(out io.Writer, label string) *Renderer {
	if label == "" {
		label = "AI"
	}
	return &Renderer{out: out, label: label}
}

func (r *Renderer) Banner(title, summary string) {
	fmt.Fprintln(r.out, titleStyle.Render(title))
	if summary != "" {
		fmt.Fprintln(r.out, summaryStyle.Render(summary))
	}
	fmt.Fprintln(r.out)
}

func (r *Renderer) UserPrompt() {
	fmt.Fprint(r.out, userStyle.Render("You:")+" ")
}

func (r *Renderer) ReplyStart() {
	fmt.Fprint(r.out, aiStyle.Render(r.label+":")+" ")
}

func (r *Renderer) Fragment(s string) {
	fmt.Fprint(r.out, s)
}

func (r *Renderer) ReplyEnd() {
	fmt.Fprint(r.out, "\n\n")
}

// Retrieved lists the chunks a RAG turn will use as context.
func (r *Renderer) Retrieved(texts []string) {
	fmt.Fprintln(r.out, contextStyle.Render(fmt.Sprintf("Retrieved %d relevant documents:", len(texts))))
	for i, t := range texts {
		fmt.Fprintf(r.out, "%s %s\n\n", contextStyle.Render(fmt.Sprintf("Document %d:", i+1)), t)
	}
}

func (r *Renderer) FinalPrompt(prompt string) {
	fmt.Fprintf(r.out, "%s\n%s\n\n", contextStyle.Render("Final prompt:"), prompt)
}

func (r *Renderer) Goodbye() {
	fmt.Fprintln(r.out, "Goodbye!")
}
