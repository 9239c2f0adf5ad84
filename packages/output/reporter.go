// Package output renders run results: a colored console view for humans
// plus JSON and JUnit documents for machines.
package output

import (
	"fmt"
	"io"

	"github.com/Praveenashok395/restspec/packages/core/runner"
)

// Reporter receives scenario results as they finish and the full run at
// the end. Streaming reporters print in Result, document reporters in
// Summary.
type Reporter interface {
	Result(res *runner.ScenarioResult)
	Summary(run *runner.RunResult) error
}

// New returns the reporter for a format name.
func New(format string, w io.Writer, verbose bool) (Reporter, error) {
	switch format {
	case "", "console":
		return NewConsoleReporter(w, verbose), nil
	case "json":
		return NewJSONReporter(w), nil
	case "junit":
		return NewJUnitReporter(w), nil
	default:
		return nil, fmt.Errorf("unknown reporter %q (want console, json or junit)", format)
	}
}
