package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// ProgressDisplay implements tripload.ProgressReporter. In interactive mode it
// redraws a single status line with a progress bar after every batch; in
// non-interactive mode it stays silent until the summary.
type ProgressDisplay struct {
	out         io.Writer
	interactive bool
	bar         progress.Model
	counter     tripload.ByteCounter

	mu    sync.Mutex
	drawn bool
}

// NewProgressDisplay creates a display on stderr using DetectMode.
func NewProgressDisplay() *ProgressDisplay {
	return NewProgressDisplayTo(os.Stderr, IsInteractive())
}

// NewProgressDisplayTo creates a display writing to w.
func NewProgressDisplayTo(w io.Writer, interactive bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:         w,
		interactive: interactive,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// Track sets the byte counter used to compute the bar's fill ratio.
func (p *ProgressDisplay) Track(counter tripload.ByteCounter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counter = counter
}

// Start announces the load.
func (p *ProgressDisplay) Start(source, table string) {
	if !p.interactive {
		return
	}
	fmt.Fprintf(p.out, "%s %s %s %s\n",
		TitleStyle.Render(SymbolSpinner+" Loading"),
		MutedStyle.Render(source),
		SymbolArrowRight,
		ValueStyle.Render(table))
}

func (p *ProgressDisplay) BatchWritten(batch int, rows, totalRows int64) {
	if !p.interactive {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\r%s  %s", p.bar.ViewAs(p.ratio()),
		MutedStyle.Render(fmt.Sprintf("chunk %d, %s rows", batch, humanize.Comma(totalRows))))
	p.drawn = true
}

func (p *ProgressDisplay) ratio() float64 {
	if p.counter == nil {
		return 0
	}
	total := p.counter.TotalBytes()
	if total <= 0 {
		return 0
	}
	r := float64(p.counter.BytesRead()) / float64(total)
	if r > 1 {
		return 1
	}
	return r
}

// Done prints the load summary. The summary is printed in both modes.
func (p *ProgressDisplay) Done(result *tripload.LoadResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.drawn {
		fmt.Fprintf(p.out, "\r%s\n", p.bar.ViewAs(1))
		p.drawn = false
	}
	fmt.Fprint(p.out, RenderSummary(result))
}

// Fail terminates an in-progress bar line and prints the error.
func (p *ProgressDisplay) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.drawn {
		fmt.Fprintln(p.out)
		p.drawn = false
	}
	if p.interactive {
		fmt.Fprintf(p.out, "%s\n", ErrorStyle.Render(SymbolCross+" "+err.Error()))
	}
}

// RenderSummary formats a LoadResult as an aligned block.
func RenderSummary(result *tripload.LoadResult) string {
	var b strings.Builder
	b.WriteString(SuccessStyle.Render(SymbolCheck+" Load complete") + "\n")
	row := func(label, value string) {
		b.WriteString("  " + LabelStyle.Render(label) + ValueStyle.Render(value) + "\n")
	}
	row("table", result.Table)
	row("batches", fmt.Sprintf("%d", result.Batches))
	row("rows", humanize.Comma(result.Rows))
	row("elapsed", result.Duration.Round(time.Millisecond).String())
	row("run id", result.RunID)
	return b.String()
}

// RenderSQL frames a statement for --dry-run output.
func RenderSQL(sql string) string {
	return CodeStyle.Render(strings.TrimRight(sql, "\n")) + "\n"
}
