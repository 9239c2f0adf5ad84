package assertions

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Praveenashok395/restspec/packages/core/scenario"
	"github.com/Praveenashok395/restspec/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
		Duration:   100 * time.Millisecond,
	}
}

const circuitsBody = `{
  "MRData": {
    "CircuitTable": {
      "season": "2017",
      "Circuits": [
        {"circuitId": "albert_park", "circuitName": "Albert Park Grand Prix Circuit",
         "Location": {"lat": "-37.8497", "locality": "Melbourne", "country": "Australia"}},
        {"circuitId": "bahrain", "circuitName": "Bahrain International Circuit",
         "Location": {"lat": "26.0325", "locality": "Sakhir", "country": "Bahrain"}}
      ]
    }
  }
}`

func TestEvaluator_Status(t *testing.T) {
	e := NewEvaluator(jsonResponse(200, `{}`))

	result := e.Evaluate(&scenario.Check{Subject: "status", Op: scenario.OpEquals, Expected: 200})
	assert.True(t, result.Passed)
	assert.Equal(t, 200, result.Actual)

	result = e.Evaluate(&scenario.Check{Subject: "status", Op: scenario.OpNotEquals, Expected: 404})
	assert.True(t, result.Passed)
}

func TestEvaluator_BodyPaths(t *testing.T) {
	e := NewEvaluator(jsonResponse(200, circuitsBody))

	tests := []struct {
		name    string
		subject string
		op      scenario.Op
		want    any
		passed  bool
	}{
		{name: "nested string", subject: "body.MRData.CircuitTable.season", op: scenario.OpEquals, want: "2017", passed: true},
		{name: "array length", subject: "body.MRData.CircuitTable.Circuits", op: scenario.OpLength, want: 2, passed: true},
		{name: "dot index", subject: "body.MRData.CircuitTable.Circuits.0.circuitId", op: scenario.OpEquals, want: "albert_park", passed: true},
		{name: "bracket index", subject: "body.MRData.CircuitTable.Circuits[1].circuitId", op: scenario.OpEquals, want: "bahrain", passed: true},
		{name: "deep location", subject: "body.MRData.CircuitTable.Circuits[0].Location.locality", op: scenario.OpEquals, want: "Melbourne", passed: true},
		{name: "exists", subject: "body.MRData.CircuitTable", op: scenario.OpExists, passed: true},
		{name: "missing does not exist", subject: "body.MRData.DriverTable", op: scenario.OpNotExists, passed: true},
		{name: "wrong value fails", subject: "body.MRData.CircuitTable.season", op: scenario.OpEquals, want: "2016", passed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := &scenario.Check{Subject: tt.subject, Op: tt.op, Expected: tt.want}
			result := e.Evaluate(check)
			assert.Equal(t, tt.passed, result.Passed, "message: %s", result.Message)
		})
	}
}

func TestEvaluator_Operators(t *testing.T) {
	e := NewEvaluator(jsonResponse(200, `{"count": 20, "name": "Albert Park", "ids": ["monza", "spa"]}`))

	tests := []struct {
		name   string
		check  *scenario.Check
		passed bool
	}{
		{name: "greater than", check: &scenario.Check{Subject: "body.count", Op: scenario.OpGreaterThan, Expected: 10}, passed: true},
		{name: "less or equal", check: &scenario.Check{Subject: "body.count", Op: scenario.OpLessOrEqual, Expected: 20}, passed: true},
		{name: "contains", check: &scenario.Check{Subject: "body.name", Op: scenario.OpContains, Expected: "Park"}, passed: true},
		{name: "not contains", check: &scenario.Check{Subject: "body.name", Op: scenario.OpNotContains, Expected: "Monza"}, passed: true},
		{name: "starts with", check: &scenario.Check{Subject: "body.name", Op: scenario.OpStartsWith, Expected: "Albert"}, passed: true},
		{name: "ends with", check: &scenario.Check{Subject: "body.name", Op: scenario.OpEndsWith, Expected: "Park"}, passed: true},
		{name: "matches", check: &scenario.Check{Subject: "body.name", Op: scenario.OpMatches, Expected: "^[A-Za-z ]+$"}, passed: true},
		{name: "includes", check: &scenario.Check{Subject: "body.ids", Op: scenario.OpIncludes, Expected: "spa"}, passed: true},
		{name: "in", check: &scenario.Check{Subject: "body.count", Op: scenario.OpIn, Expected: []any{float64(10), float64(20)}}, passed: true},
		{name: "type number", check: &scenario.Check{Subject: "body.count", Op: scenario.OpType, Expected: "number"}, passed: true},
		{name: "type mismatch", check: &scenario.Check{Subject: "body.name", Op: scenario.OpType, Expected: "number"}, passed: false},
		{name: "numeric coercion", check: &scenario.Check{Subject: "body.count", Op: scenario.OpEquals, Expected: 20}, passed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(tt.check)
			assert.Equal(t, tt.passed, result.Passed, "message: %s", result.Message)
		})
	}
}

func TestEvaluator_Headers(t *testing.T) {
	resp := jsonResponse(200, `{}`)
	resp.Headers["X-Request-Id"] = "req-42"
	e := NewEvaluator(resp)

	result := e.Evaluate(&scenario.Check{Subject: "header x-request-id", Op: scenario.OpEquals, Expected: "req-42"})
	assert.True(t, result.Passed, result.Message)

	result = e.Evaluate(&scenario.Check{Subject: "header Content-Type", Op: scenario.OpContains, Expected: "json"})
	assert.True(t, result.Passed, result.Message)
}

func TestEvaluator_Duration(t *testing.T) {
	e := NewEvaluator(jsonResponse(200, `{}`))
	result := e.Evaluate(&scenario.Check{Subject: "duration", Op: scenario.OpLessThan, Expected: 5000})
	assert.True(t, result.Passed, result.Message)
}

func TestEvaluator_UnknownSubject(t *testing.T) {
	e := NewEvaluator(jsonResponse(200, `{}`))
	result := e.Evaluate(&scenario.Check{Subject: "cookies", Op: scenario.OpExists})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "unknown check subject")
}

func TestEvaluator_NonJSONBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": "text/plain"},
		Body:       []byte("pole position"),
	}
	e := NewEvaluator(resp)

	result := e.Evaluate(&scenario.Check{Subject: "body", Op: scenario.OpContains, Expected: "pole"})
	assert.True(t, result.Passed, result.Message)
}

func TestEvaluator_Schema(t *testing.T) {
	dir := t.TempDir()
	schema := `{
	  "type": "object",
	  "required": ["circuitId", "circuitName"],
	  "properties": {
	    "circuitId": {"type": "string"},
	    "circuitName": {"type": "string"}
	  }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "circuit.schema.json"), []byte(schema), 0o600))

	t.Run("valid document", func(t *testing.T) {
		e := NewEvaluatorWithBaseDir(jsonResponse(200, `{"circuitId": "monza", "circuitName": "Monza"}`), dir)
		result := e.Evaluate(&scenario.Check{Subject: "body", Op: scenario.OpSchema, Expected: "circuit.schema.json"})
		assert.True(t, result.Passed, result.Message)
	})

	t.Run("invalid document", func(t *testing.T) {
		e := NewEvaluatorWithBaseDir(jsonResponse(200, `{"circuitId": "monza"}`), dir)
		result := e.Evaluate(&scenario.Check{Subject: "body", Op: scenario.OpSchema, Expected: "circuit.schema.json"})
		assert.False(t, result.Passed)
		assert.Contains(t, result.Message, "schema validation failed")
	})

	t.Run("escaping the base directory is rejected", func(t *testing.T) {
		e := NewEvaluatorWithBaseDir(jsonResponse(200, `{}`), dir)
		result := e.Evaluate(&scenario.Check{Subject: "body", Op: scenario.OpSchema, Expected: "../outside.json"})
		assert.False(t, result.Passed)
		assert.Contains(t, result.Message, "outside allowed directory")
	})
}

func TestEvaluateAll(t *testing.T) {
	checks := []*scenario.Check{
		{Subject: "status", Op: scenario.OpEquals, Expected: 200},
		{Subject: "body.MRData.CircuitTable.Circuits", Op: scenario.OpLength, Expected: 2},
		{Subject: "status", Op: scenario.OpEquals, Expected: 500},
	}
	results := EvaluateAll(jsonResponse(200, circuitsBody), checks, "")
	require.Len(t, results, 3)
	assert.True(t, results[0].Passed)
	assert.True(t, results[1].Passed)
	assert.False(t, results[2].Passed)
	assert.Equal(t, "expected 500, got 200", results[2].Message)
}
