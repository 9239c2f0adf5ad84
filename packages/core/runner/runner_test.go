package runner

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Praveenashok395/restspec/packages/core/config"
	"github.com/Praveenashok395/restspec/packages/core/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const circuitsJSON = `{"MRData": {"CircuitTable": {"season": "2017", "Circuits": [
	{"circuitId": "albert_park", "circuitName": "Albert Park Grand Prix Circuit"},
	{"circuitId": "bahrain", "circuitName": "Bahrain International Circuit"}
]}}}`

func motorsportServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/api/f1/2017/circuits.json", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(circuitsJSON))
	})
	mux.HandleFunc("/api/f1/circuits/albert_park.json", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"MRData": {"CircuitTable": {"Circuits": [
			{"circuitId": "albert_park", "Location": {"locality": "Melbourne", "country": "Australia"}}
		]}}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func parseText(t *testing.T, input string) *scenario.File {
	t.Helper()
	file, err := scenario.Parse(input, "test.rest")
	require.NoError(t, err)
	return file
}

func TestRunner_EndToEnd(t *testing.T) {
	server := motorsportServer(t)

	file := parseText(t, `
@base = `+server.URL+`/api/f1

expect jsonOK:
  status == 200
  header Content-Type contains json

### list circuits
given:
  path year = 2017
when:
  GET {{base}}/{year}/circuits.json
then:
  use jsonOK
  body.MRData.CircuitTable.Circuits length 2
  body.MRData.CircuitTable.Circuits.0.circuitId == albert_park
extract:
  firstCircuit = body.MRData.CircuitTable.Circuits.0.circuitId

### circuit details
@depends list circuits
when:
  GET {{base}}/circuits/{{firstCircuit}}.json
then:
  use jsonOK
  body.MRData.CircuitTable.Circuits.0.Location.country == Australia
`)

	r := New(config.Default(), Options{})
	result, err := r.RunFile(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)

	for _, res := range result.Results {
		assert.Equal(t, StatusPassed, res.Status, "scenario %q: %+v", res.Scenario.Name, res.FailedChecks())
	}

	v, ok := r.Resolver().Lookup("firstCircuit")
	require.True(t, ok)
	assert.Equal(t, "albert_park", v)
}

func TestRunner_FailedCheckReported(t *testing.T) {
	server := motorsportServer(t)

	file := parseText(t, `
### wrong count
when:
  GET `+server.URL+`/api/f1/2017/circuits.json
then:
  status == 200
  body.MRData.CircuitTable.Circuits length 20
`)

	r := New(config.Default(), Options{})
	result, err := r.RunFile(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)

	res := result.Results[0]
	assert.Equal(t, StatusFailed, res.Status)
	require.Len(t, res.FailedChecks(), 1)
	assert.Contains(t, res.FailedChecks()[0].Message, "length")
}

func TestRunner_DependencyFailureSkips(t *testing.T) {
	server := motorsportServer(t)

	file := parseText(t, `
### broken
when:
  GET `+server.URL+`/api/f1/2017/circuits.json
then:
  status == 500

### downstream
@depends broken
when:
  GET `+server.URL+`/api/f1/2017/circuits.json
then:
  status == 200
`)

	r := New(config.Default(), Options{})
	result, err := r.RunFile(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)

	assert.Equal(t, StatusFailed, result.Results[0].Status)
	assert.Equal(t, StatusSkipped, result.Results[1].Status)
	assert.Contains(t, result.Results[1].SkipReason, "broken")
}

func TestRunner_SkipAnnotation(t *testing.T) {
	file := parseText(t, `
### flaky
@skip upstream outage
when:
  GET http://127.0.0.1:1/unreachable
`)

	r := New(config.Default(), Options{})
	result, err := r.RunFile(context.Background(), file)
	require.NoError(t, err)

	res := result.Results[0]
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, "upstream outage", res.SkipReason)
}

func TestRunner_Only(t *testing.T) {
	server := motorsportServer(t)

	file := parseText(t, `
### everything
when:
  GET `+server.URL+`/api/f1/2017/circuits.json

### focused
@only
when:
  GET `+server.URL+`/api/f1/2017/circuits.json
then:
  status == 200
`)

	r := New(config.Default(), Options{})
	result, err := r.RunFile(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "focused", result.Results[0].Scenario.Name)
}

func TestRunner_TagFilter(t *testing.T) {
	server := motorsportServer(t)

	file := parseText(t, `
### smoke check
@tags smoke
when:
  GET `+server.URL+`/api/f1/2017/circuits.json
then:
  status == 200

### slow check
@tags nightly
when:
  GET `+server.URL+`/api/f1/2017/circuits.json
`)

	r := New(config.Default(), Options{Tags: []string{"smoke"}})
	result, err := r.RunFile(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "smoke check", result.Results[0].Scenario.Name)
}

func TestRunner_Retry(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(nethttp.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	file := parseText(t, `
### eventually up
@retry 3
@retry-delay 10
when:
  GET `+server.URL+`/
then:
  status == 200
`)

	r := New(config.Default(), Options{})
	result, err := r.RunFile(context.Background(), file)
	require.NoError(t, err)

	res := result.Results[0]
	assert.Equal(t, StatusPassed, res.Status)
	assert.Equal(t, 3, res.Attempts)
	assert.EqualValues(t, 3, hits.Load())
}

func TestRunner_RetryOnLimitsRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		hits.Add(1)
		w.WriteHeader(nethttp.StatusNotFound)
	}))
	defer server.Close()

	file := parseText(t, `
### not retried
@retry 5
@retry-delay 1
@retry-on 500, 502
when:
  GET `+server.URL+`/
then:
  status == 200
`)

	r := New(config.Default(), Options{})
	result, err := r.RunFile(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Results[0].Status)
	assert.EqualValues(t, 1, hits.Load())
}

func TestRunner_Bail(t *testing.T) {
	server := motorsportServer(t)

	file := parseText(t, `
### fails first
when:
  GET `+server.URL+`/api/f1/2017/circuits.json
then:
  status == 500

### never runs
when:
  GET `+server.URL+`/api/f1/2017/circuits.json
`)

	r := New(config.Default(), Options{Bail: true})
	result, err := r.RunFile(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, StatusFailed, result.Results[0].Status)
}

func TestRunner_DependencyCycle(t *testing.T) {
	file := parseText(t, `
### a
@depends b
when:
  GET http://x/

### b
@depends a
when:
  GET http://x/
`)

	r := New(config.Default(), Options{})
	_, err := r.RunFile(context.Background(), file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency cycle")
}

func TestRunner_UnknownExpectBlock(t *testing.T) {
	server := motorsportServer(t)

	file := parseText(t, `
### broken use
when:
  GET `+server.URL+`/api/f1/2017/circuits.json
then:
  use nope
`)

	r := New(config.Default(), Options{})
	result, err := r.RunFile(context.Background(), file)
	require.NoError(t, err)

	res := result.Results[0]
	assert.Equal(t, StatusErrored, res.Status)
	assert.Contains(t, res.Err.Error(), "unknown expect block")
}

func TestRunner_UnknownDependency(t *testing.T) {
	file := parseText(t, `
### a
@depends ghost
when:
  GET http://x/
`)

	r := New(config.Default(), Options{})
	_, err := r.RunFile(context.Background(), file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scenario")
}

func TestRunner_Parallel(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		hits.Add(1)
		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	file := parseText(t, `
### one
when:
  GET `+server.URL+`/
then:
  status == 200

### two
when:
  GET `+server.URL+`/
then:
  status == 200

### three
when:
  GET `+server.URL+`/
then:
  status == 200
`)

	r := New(config.Default(), Options{Parallel: true, Concurrency: 3})
	result, err := r.RunFile(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, result.Results, 3)
	for _, res := range result.Results {
		assert.Equal(t, StatusPassed, res.Status)
	}
	assert.EqualValues(t, 3, hits.Load())
}

func TestRunner_EnvironmentVariables(t *testing.T) {
	server := motorsportServer(t)

	cfg := config.Default()
	cfg.Environments = map[string]map[string]any{
		"dev": {"base": server.URL + "/api/f1"},
	}

	file := parseText(t, `
### uses env base
when:
  GET {{base}}/2017/circuits.json
then:
  status == 200
`)

	r := New(cfg, Options{Environment: "dev"})
	result, err := r.RunFile(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, result.Results[0].Status)
}

func TestRunResult_Counts(t *testing.T) {
	run := &RunResult{Files: []*FileResult{{
		Results: []*ScenarioResult{
			{Status: StatusPassed},
			{Status: StatusPassed},
			{Status: StatusFailed},
			{Status: StatusSkipped},
		},
	}}}

	passed, failed, skipped, errored := run.Counts()
	assert.Equal(t, 2, passed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 0, errored)
	assert.False(t, run.Ok())
}

func TestRunner_OnResultCallback(t *testing.T) {
	server := motorsportServer(t)

	file := parseText(t, `
### one
when:
  GET `+server.URL+`/api/f1/2017/circuits.json
then:
  status == 200
`)

	var seen []string
	r := New(config.Default(), Options{OnResult: func(res *ScenarioResult) {
		seen = append(seen, res.Scenario.Name)
	}})
	_, err := r.RunFile(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, seen)
}
