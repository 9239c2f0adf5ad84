package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/Praveenashok395/restspec/packages/core/runner"
)

// JSONReporter writes the whole run as one JSON document in Summary.
type JSONReporter struct {
	w io.Writer
}

func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{w: w}
}

type jsonRun struct {
	StartedAt  time.Time  `json:"startedAt"`
	DurationMs int64      `json:"durationMs"`
	Passed     int        `json:"passed"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
	Errored    int        `json:"errored"`
	Files      []jsonFile `json:"files"`
}

type jsonFile struct {
	Path      string         `json:"path"`
	Scenarios []jsonScenario `json:"scenarios"`
}

type jsonScenario struct {
	Name       string      `json:"name"`
	Status     string      `json:"status"`
	DurationMs int64       `json:"durationMs"`
	Attempts   int         `json:"attempts,omitempty"`
	SkipReason string      `json:"skipReason,omitempty"`
	Error      string      `json:"error,omitempty"`
	StatusCode int         `json:"statusCode,omitempty"`
	Checks     []jsonCheck `json:"checks,omitempty"`
}

type jsonCheck struct {
	Subject  string `json:"subject"`
	Operator string `json:"operator"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

func (r *JSONReporter) Result(res *runner.ScenarioResult) {}

func (r *JSONReporter) Summary(run *runner.RunResult) error {
	passed, failed, skipped, errored := run.Counts()
	doc := jsonRun{
		StartedAt:  run.StartedAt,
		DurationMs: run.Duration.Milliseconds(),
		Passed:     passed,
		Failed:     failed,
		Skipped:    skipped,
		Errored:    errored,
	}

	for _, fr := range run.Files {
		jf := jsonFile{Path: fr.File.Path}
		for _, res := range fr.Results {
			js := jsonScenario{
				Name:       res.Scenario.Name,
				Status:     res.Status.String(),
				DurationMs: res.Duration.Milliseconds(),
				Attempts:   res.Attempts,
				SkipReason: res.SkipReason,
			}
			if res.Err != nil {
				js.Error = res.Err.Error()
			}
			if res.Response != nil {
				js.StatusCode = res.Response.StatusCode
			}
			for _, c := range res.Checks {
				js.Checks = append(js.Checks, jsonCheck{
					Subject:  c.Subject,
					Operator: c.Operator,
					Passed:   c.Passed,
					Message:  c.Message,
				})
			}
			jf.Scenarios = append(jf.Scenarios, js)
		}
		doc.Files = append(doc.Files, jf)
	}

	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
