package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/Praveenashok395/restspec/packages/core/runner"
)

// JUnitReporter writes a JUnit XML document, one testsuite per file, so
// CI systems can pick up the results.
type JUnitReporter struct {
	w io.Writer
}

func NewJUnitReporter(w io.Writer) *JUnitReporter {
	return &JUnitReporter{w: w}
}

type junitTestsuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Errors   int              `xml:"errors,attr"`
	Skipped  int              `xml:"skipped,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []junitTestsuite `xml:"testsuite"`
}

type junitTestsuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []junitTestcase `xml:"testcase"`
}

type junitTestcase struct {
	Name    string        `xml:"name,attr"`
	Time    string        `xml:"time,attr"`
	Failure *junitMessage `xml:"failure,omitempty"`
	Error   *junitMessage `xml:"error,omitempty"`
	Skipped *junitMessage `xml:"skipped,omitempty"`
}

type junitMessage struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

func (r *JUnitReporter) Result(res *runner.ScenarioResult) {}

func (r *JUnitReporter) Summary(run *runner.RunResult) error {
	doc := junitTestsuites{Time: seconds(run.Duration.Seconds())}

	for _, fr := range run.Files {
		suite := junitTestsuite{
			Name: fr.File.Path,
			Time: seconds(fr.Duration.Seconds()),
		}
		for _, res := range fr.Results {
			tc := junitTestcase{
				Name: res.Scenario.Name,
				Time: seconds(res.Duration.Seconds()),
			}
			suite.Tests++
			switch res.Status {
			case runner.StatusFailed:
				suite.Failures++
				var lines []string
				for _, c := range res.FailedChecks() {
					lines = append(lines, c.Message)
				}
				tc.Failure = &junitMessage{
					Message: fmt.Sprintf("%d check(s) failed", len(lines)),
					Body:    strings.Join(lines, "\n"),
				}
			case runner.StatusErrored:
				suite.Errors++
				tc.Error = &junitMessage{Message: res.Err.Error()}
			case runner.StatusSkipped:
				suite.Skipped++
				tc.Skipped = &junitMessage{Message: res.SkipReason}
			}
			suite.Cases = append(suite.Cases, tc)
		}
		doc.Tests += suite.Tests
		doc.Failures += suite.Failures
		doc.Errors += suite.Errors
		doc.Skipped += suite.Skipped
		doc.Suites = append(doc.Suites, suite)
	}

	if _, err := io.WriteString(r.w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(r.w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(r.w, "\n")
	return err
}

func seconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}
