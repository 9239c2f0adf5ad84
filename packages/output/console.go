package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/Praveenashok395/restspec/packages/core/runner"
	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	dim    = color.New(color.Faint)
	bold   = color.New(color.Bold)
)

// ConsoleReporter prints one line per scenario as it finishes, with
// failed checks expanded, then a run summary.
type ConsoleReporter struct {
	w       io.Writer
	verbose bool
}

func NewConsoleReporter(w io.Writer, verbose bool) *ConsoleReporter {
	return &ConsoleReporter{w: w, verbose: verbose}
}

func (r *ConsoleReporter) Result(res *runner.ScenarioResult) {
	switch res.Status {
	case runner.StatusPassed:
		green.Fprintf(r.w, "  ✓ %s", res.Scenario.Name)
		dim.Fprintf(r.w, " (%dms", res.Duration.Milliseconds())
		if res.Attempts > 1 {
			dim.Fprintf(r.w, ", %d attempts", res.Attempts)
		}
		dim.Fprintln(r.w, ")")
		if r.verbose {
			for _, c := range res.Checks {
				green.Fprintf(r.w, "      ✓ %s %s\n", c.Subject, c.Operator)
			}
		}
	case runner.StatusSkipped:
		yellow.Fprintf(r.w, "  - %s", res.Scenario.Name)
		dim.Fprintf(r.w, " (%s)\n", res.SkipReason)
	case runner.StatusErrored:
		red.Fprintf(r.w, "  ✗ %s\n", res.Scenario.Name)
		red.Fprintf(r.w, "      error: %v\n", res.Err)
	default:
		red.Fprintf(r.w, "  ✗ %s", res.Scenario.Name)
		dim.Fprintf(r.w, " (%dms)\n", res.Duration.Milliseconds())
		for _, c := range res.FailedChecks() {
			red.Fprintf(r.w, "      ✗ %s\n", c.Message)
			dim.Fprintf(r.w, "        expected: %v\n", c.Expected)
			dim.Fprintf(r.w, "        actual:   %v\n", c.Actual)
		}
	}
}

func (r *ConsoleReporter) Summary(run *runner.RunResult) error {
	passed, failed, skipped, errored := run.Counts()

	fmt.Fprintln(r.w)
	bold.Fprint(r.w, "Summary: ")
	parts := []string{green.Sprintf("%d passed", passed)}
	if failed > 0 {
		parts = append(parts, red.Sprintf("%d failed", failed))
	}
	if errored > 0 {
		parts = append(parts, red.Sprintf("%d errored", errored))
	}
	if skipped > 0 {
		parts = append(parts, yellow.Sprintf("%d skipped", skipped))
	}
	fmt.Fprint(r.w, strings.Join(parts, ", "))
	dim.Fprintf(r.w, " in %dms\n", run.Duration.Milliseconds())
	return nil
}
