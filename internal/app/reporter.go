package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/felixgeelhaar/qgsmg/internal/domain/compiler"
	"github.com/felixgeelhaar/qgsmg/internal/domain/execution"
	"github.com/felixgeelhaar/qgsmg/internal/domain/recipe"
)

type humanNamed interface {
	HumanName() string
}

// Reporter prints a banner per step and a one-line outcome as the executor
// walks the chain.
type Reporter struct {
	out    io.Writer
	dryRun bool
	styles styles
}

// NewReporter creates a Reporter writing to out.
func NewReporter(out io.Writer, dryRun bool) *Reporter {
	return &Reporter{out: out, dryRun: dryRun, styles: defaultStyles()}
}

// StepStarted prints the step banner.
func (r *Reporter) StepStarted(entry execution.PlanEntry) {
	name := entry.Step().ID().String()
	if h, ok := entry.Step().(humanNamed); ok && h.HumanName() != "" {
		name = h.HumanName()
	}
	r.println(r.styles.Banner.Render("=== " + name + " ==="))
}

// StepFinished prints the step outcome.
func (r *Reporter) StepFinished(res execution.StepResult) {
	switch {
	case res.Status() == compiler.StatusFailed:
		msg := "Failed"
		if tool := FailedTool(res.Error()); tool != "" {
			msg += ": " + tool
		}
		r.println(r.styles.Error.Render(msg))
	case res.Skipped():
		r.println(r.styles.Muted.Render("Skipped " + res.StepID().String()))
	case res.Built():
		r.println(r.styles.Success.Render("Done in " + res.Duration().Round(time.Second).String()))
	case res.Status() == compiler.StatusNeedsApply:
		r.println(r.styles.Warning.Render("Would build"))
	default:
		r.println(r.styles.Muted.Render("Already Done"))
	}
}

// Summary prints totals for a finished walk.
func (r *Reporter) Summary(results []execution.StepResult) {
	var built, done, pending, skipped, failed int
	for _, res := range results {
		switch {
		case res.Status() == compiler.StatusFailed:
			failed++
		case res.Skipped():
			skipped++
		case res.Built():
			built++
		case res.Status() == compiler.StatusNeedsApply:
			pending++
		default:
			done++
		}
	}

	parts := []string{
		fmt.Sprintf("%d built", built),
		fmt.Sprintf("%d already done", done),
	}
	if r.dryRun {
		parts = append(parts, fmt.Sprintf("%d to build", pending))
	}
	if skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", skipped))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	r.println("\n" + strings.Join(parts, ", "))
}

func (r *Reporter) println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

func renderStatus(statuses []recipe.StepStatus) string {
	st := defaultStyles()
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		state := "missing"
		switch {
		case s.Built && s.Stale:
			state = "stale"
		case s.Built:
			state = "built"
		}
		finished := ""
		if s.HasRecord {
			finished = s.Record.Finished.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{s.Name, s.Version, state, finished, strings.Join(s.Reasons, "; ")})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.Muted).
		Headers("STEP", "VERSION", "STATE", "FINISHED", "DETAIL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.Header
			}
			if col == 2 && row >= 0 && row < len(rows) {
				switch rows[row][2] {
				case "built":
					return st.Cell.Foreground(colorSuccess)
				case "stale":
					return st.Cell.Foreground(colorWarning)
				}
			}
			return st.Cell
		})
	return t.String()
}

func renderCheck(c Check) string {
	st := defaultStyles()
	mark := st.Success.Render("ok     ")
	if !c.OK {
		mark = st.Error.Render("missing")
	}
	path := c.Path
	if path == "" {
		path = "(not found)"
	}
	return fmt.Sprintf("%s %-18s %s", mark, c.Name, path)
}
