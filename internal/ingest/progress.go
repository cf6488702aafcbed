package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const progressWidth = 50

var (
	progressFullStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	progressEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	progressLabelStyle = lipgloss.NewStyle().Bold(true)
)

// progressBar redraws a single terminal line as runs are processed.
type progressBar struct {
	w     io.Writer
	total int
}

func newProgressBar(w io.Writer, total int) *progressBar {
	return &progressBar{w: w, total: total}
}

// bar returns the plain bar for done out of total.
func bar(done, total, width int) (filled, empty int, percent float64) {
	if total <= 0 {
		return width, 0, 100
	}
	filled = width * done / total
	if filled > width {
		filled = width
	}
	return filled, width - filled, 100 * float64(done) / float64(total)
}

func (p *progressBar) update(done int) {
	filled, empty, percent := bar(done, p.total, progressWidth)
	fmt.Fprintf(p.w, "\r%s |%s%s| %5.1f%% %d/%d done",
		progressLabelStyle.Render("summary progress"),
		progressFullStyle.Render(strings.Repeat("█", filled)),
		progressEmptyStyle.Render(strings.Repeat(".", empty)),
		percent, done, p.total,
	)
}

func (p *progressBar) finish() {
	fmt.Fprintln(p.w)
}
