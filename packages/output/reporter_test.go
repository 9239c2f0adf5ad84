package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Praveenashok395/restspec/packages/assertions"
	"github.com/Praveenashok395/restspec/packages/core/runner"
	"github.com/Praveenashok395/restspec/packages/core/scenario"
	"github.com/Praveenashok395/restspec/packages/http"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() *runner.RunResult {
	return &runner.RunResult{
		StartedAt: time.Now(),
		Duration:  1200 * time.Millisecond,
		Files: []*runner.FileResult{{
			File:     &scenario.File{Path: "f1.rest"},
			Duration: 1100 * time.Millisecond,
			Results: []*runner.ScenarioResult{
				{
					Scenario: &scenario.Scenario{Name: "list circuits"},
					Status:   runner.StatusPassed,
					Duration: 80 * time.Millisecond,
					Attempts: 1,
					Response: &http.Response{StatusCode: 200},
					Checks: []*assertions.Result{
						{Passed: true, Subject: "status", Operator: "=="},
					},
				},
				{
					Scenario: &scenario.Scenario{Name: "wrong season"},
					Status:   runner.StatusFailed,
					Duration: 70 * time.Millisecond,
					Attempts: 1,
					Response: &http.Response{StatusCode: 200},
					Checks: []*assertions.Result{
						{Passed: false, Subject: "body.MRData.CircuitTable.season", Operator: "==",
							Message: "expected 2016, got 2017", Expected: "2016", Actual: "2017"},
					},
				},
				{
					Scenario:   &scenario.Scenario{Name: "standings"},
					Status:     runner.StatusSkipped,
					SkipReason: "dependency \"wrong season\" failed",
				},
				{
					Scenario: &scenario.Scenario{Name: "unreachable"},
					Status:   runner.StatusErrored,
					Err:      errors.New("connection refused"),
				},
			},
		}},
	}
}

func TestConsoleReporter(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, false)
	run := sampleRun()
	for _, res := range run.Files[0].Results {
		r.Result(res)
	}
	require.NoError(t, r.Summary(run))

	out := buf.String()
	assert.Contains(t, out, "✓ list circuits")
	assert.Contains(t, out, "✗ wrong season")
	assert.Contains(t, out, "expected 2016, got 2017")
	assert.Contains(t, out, "- standings")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "1 passed, 1 failed, 1 errored, 1 skipped")
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporter(&buf)
	require.NoError(t, r.Summary(sampleRun()))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.EqualValues(t, 1, doc["passed"])
	assert.EqualValues(t, 1, doc["failed"])
	assert.EqualValues(t, 1, doc["skipped"])
	assert.EqualValues(t, 1, doc["errored"])

	files := doc["files"].([]any)
	require.Len(t, files, 1)
	scenarios := files[0].(map[string]any)["scenarios"].([]any)
	require.Len(t, scenarios, 4)
	first := scenarios[0].(map[string]any)
	assert.Equal(t, "list circuits", first["name"])
	assert.Equal(t, "passed", first["status"])
}

func TestJUnitReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewJUnitReporter(&buf)
	require.NoError(t, r.Summary(sampleRun()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `tests="4"`)
	assert.Contains(t, out, `failures="1"`)
	assert.Contains(t, out, `errors="1"`)
	assert.Contains(t, out, `skipped="1"`)
	assert.Contains(t, out, `name="f1.rest"`)
	assert.Contains(t, out, `name="wrong season"`)
	assert.Contains(t, out, "expected 2016, got 2017")
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New("tap", &bytes.Buffer{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown reporter")
}
