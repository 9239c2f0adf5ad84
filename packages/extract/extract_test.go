package extract

import (
	"testing"
	"time"

	"github.com/Praveenashok395/restspec/packages/core/scenario"
	"github.com/Praveenashok395/restspec/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"X-Request-Id": "req-7",
		},
		Body: []byte(`{"MRData": {"CircuitTable": {"Circuits": [
			{"circuitId": "albert_park", "Location": {"country": "Australia"}}
		]}}}`),
		Duration: 80 * time.Millisecond,
	}

	values := All(resp, []*scenario.Extract{
		{Name: "firstCircuit", Source: scenario.SourceBody, Path: "MRData.CircuitTable.Circuits.0.circuitId"},
		{Name: "country", Source: scenario.SourceBody, Path: "MRData.CircuitTable.Circuits.0.Location.country"},
		{Name: "requestId", Source: scenario.SourceHeader, Path: "X-Request-Id"},
		{Name: "code", Source: scenario.SourceStatus},
		{Name: "elapsed", Source: scenario.SourceDuration},
		{Name: "missing", Source: scenario.SourceBody, Path: "MRData.DriverTable"},
	})

	require.Len(t, values, 5)
	assert.Equal(t, "albert_park", values["firstCircuit"])
	assert.Equal(t, "Australia", values["country"])
	assert.Equal(t, "req-7", values["requestId"])
	assert.Equal(t, 200, values["code"])
	assert.Equal(t, int64(80), values["elapsed"])
	assert.NotContains(t, values, "missing")
}

func TestExtract_NonJSONBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": "text/plain"},
		Body:       []byte("raw text"),
	}

	e := NewExtractor(resp)
	v, ok := e.Extract(&scenario.Extract{Name: "whole", Source: scenario.SourceBody})
	require.True(t, ok)
	assert.Equal(t, "raw text", v)

	_, ok = e.Extract(&scenario.Extract{Name: "path", Source: scenario.SourceBody, Path: "a.b"})
	assert.False(t, ok)
}
