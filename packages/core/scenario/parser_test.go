package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FileVariables(t *testing.T) {
	input := `
@base = https://api.example.com
@season = 2017

### ping
when:
  GET {{base}}/status
`
	file, err := Parse(input, "test.rest")
	require.NoError(t, err)

	require.Len(t, file.Variables, 2)
	assert.Equal(t, "base", file.Variables[0].Name)
	assert.Equal(t, "https://api.example.com", file.Variables[0].Value)
	assert.Equal(t, "season", file.Variables[1].Name)
	assert.Equal(t, "2017", file.Variables[1].Value)
}

func TestParse_FullScenario(t *testing.T) {
	input := `
@base = https://api.example.com

### circuits in a season
@tags circuits, smoke
@timeout 5000
given:
  header Accept: application/json
  query limit = 30
  path year = 2017
when:
  GET {{base}}/f1/{year}/circuits.json
then:
  status == 200
  header Content-Type contains json
  body.MRData.CircuitTable.Circuits length 20
extract:
  firstCircuit = body.MRData.CircuitTable.Circuits.0.circuitId
`
	file, err := Parse(input, "test.rest")
	require.NoError(t, err)
	require.Len(t, file.Scenarios, 1)

	s := file.Scenarios[0]
	assert.Equal(t, "circuits in a season", s.Name)
	assert.Equal(t, []string{"circuits", "smoke"}, s.Tags)
	assert.Equal(t, 5000, s.TimeoutMs)
	assert.Equal(t, "GET", s.Method)
	assert.Equal(t, "{{base}}/f1/{year}/circuits.json", s.URL)

	require.Len(t, s.Given.Headers, 1)
	assert.Equal(t, "Accept", s.Given.Headers[0].Key)
	assert.Equal(t, "application/json", s.Given.Headers[0].Value)
	require.Len(t, s.Given.QueryParams, 1)
	assert.Equal(t, "limit", s.Given.QueryParams[0].Key)
	assert.Equal(t, "30", s.Given.QueryParams[0].Value)
	require.Len(t, s.Given.PathParams, 1)
	assert.Equal(t, "year", s.Given.PathParams[0].Key)
	assert.Equal(t, "2017", s.Given.PathParams[0].Value)

	require.Len(t, s.Checks, 3)
	assert.Equal(t, "status", s.Checks[0].Subject)
	assert.Equal(t, OpEquals, s.Checks[0].Op)
	assert.Equal(t, 200, s.Checks[0].Expected)
	assert.Equal(t, "header Content-Type", s.Checks[1].Subject)
	assert.Equal(t, OpContains, s.Checks[1].Op)
	assert.Equal(t, "body.MRData.CircuitTable.Circuits", s.Checks[2].Subject)
	assert.Equal(t, OpLength, s.Checks[2].Op)
	assert.Equal(t, 20, s.Checks[2].Expected)

	require.Len(t, s.Extracts, 1)
	assert.Equal(t, "firstCircuit", s.Extracts[0].Name)
	assert.Equal(t, SourceBody, s.Extracts[0].Source)
	assert.Equal(t, "MRData.CircuitTable.Circuits.0.circuitId", s.Extracts[0].Path)
}

func TestParse_ExpectBlocks(t *testing.T) {
	input := `
expect jsonOK:
  status == 200
  header Content-Type contains json

### seasons
when:
  GET https://api.example.com/f1/seasons.json
then:
  use jsonOK
  body.MRData.SeasonTable.Seasons exists
`
	file, err := Parse(input, "test.rest")
	require.NoError(t, err)

	require.Len(t, file.Expects, 1)
	e := file.Expect("jsonOK")
	require.NotNil(t, e)
	assert.Len(t, e.Checks, 2)
	assert.Nil(t, file.Expect("missing"))

	require.Len(t, file.Scenarios, 1)
	assert.Equal(t, []string{"jsonOK"}, file.Scenarios[0].Uses)
	assert.Len(t, file.Scenarios[0].Checks, 1)
}

func TestParse_Body(t *testing.T) {
	input := `
### create
given:
  header Content-Type: application/json
  body:
    {
      "name": "monza"
    }
when:
  POST https://api.example.com/circuits
then:
  status == 201
`
	file, err := Parse(input, "test.rest")
	require.NoError(t, err)
	require.Len(t, file.Scenarios, 1)

	s := file.Scenarios[0]
	assert.True(t, s.Given.BodyIsJSON)
	assert.JSONEq(t, `{"name": "monza"}`, s.Given.Body)
	assert.Equal(t, "POST", s.Method)
}

func TestParse_Auth(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		scheme  AuthScheme
		params  []string
		wantErr bool
	}{
		{name: "basic", line: "auth basic alice secret", scheme: AuthBasic, params: []string{"alice", "secret"}},
		{name: "bearer", line: "auth bearer tok123", scheme: AuthBearer, params: []string{"tok123"}},
		{name: "apikey", line: "auth apikey X-Api-Key abc", scheme: AuthAPIKey, params: []string{"X-Api-Key", "abc"}},
		{name: "apikey query", line: "auth apikey-query api_key abc", scheme: AuthAPIKeyQuery, params: []string{"api_key", "abc"}},
		{name: "digest", line: "auth digest bob hunter2", scheme: AuthDigest, params: []string{"bob", "hunter2"}},
		{name: "unknown scheme", line: "auth ntlm bob hunter2", wantErr: true},
		{name: "missing params", line: "auth basic alice", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "### s\ngiven:\n  " + tt.line + "\nwhen:\n  GET http://x/\n"
			file, err := Parse(input, "test.rest")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			auth := file.Scenarios[0].Given.Auth
			require.NotNil(t, auth)
			assert.Equal(t, tt.scheme, auth.Scheme)
			assert.Equal(t, tt.params, auth.Params)
		})
	}
}

func TestParse_CheckLiterals(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		op       Op
		expected any
	}{
		{name: "int", line: "status == 200", op: OpEquals, expected: 200},
		{name: "float", line: "body.lat == 45.61", op: OpEquals, expected: 45.61},
		{name: "bool", line: "body.active == true", op: OpEquals, expected: true},
		{name: "null", line: "body.gone == null", op: OpEquals, expected: nil},
		{name: "quoted string", line: `body.name == "Albert Park"`, op: OpEquals, expected: "Albert Park"},
		{name: "bare string", line: "body.id == albert_park", op: OpEquals, expected: "albert_park"},
		{name: "array", line: `body.id in ["monza", "spa"]`, op: OpIn, expected: []any{"monza", "spa"}},
		{name: "regex stays raw", line: "body.id matches ^[a-z_]+$", op: OpMatches, expected: "^[a-z_]+$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "### s\nwhen:\n  GET http://x/\nthen:\n  " + tt.line + "\n"
			file, err := Parse(input, "test.rest")
			require.NoError(t, err)
			check := file.Scenarios[0].Checks[0]
			assert.Equal(t, tt.op, check.Op)
			assert.Equal(t, tt.expected, check.Expected)
		})
	}
}

func TestParse_ExistsTakesNoValue(t *testing.T) {
	input := "### s\nwhen:\n  GET http://x/\nthen:\n  body.id exists now\n"
	_, err := Parse(input, "test.rest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "takes no value")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no when block", input: "### s\nthen:\n  status == 200\n", want: "has no when block"},
		{name: "bad method", input: "### s\nwhen:\n  FETCH http://x/\n", want: "unknown HTTP method"},
		{name: "no operator", input: "### s\nwhen:\n  GET http://x/\nthen:\n  status 200\n", want: "no operator"},
		{name: "unknown annotation", input: "### s\n@parallel\nwhen:\n  GET http://x/\n", want: "unknown annotation"},
		{name: "content outside scenario", input: "status == 200\n", want: "outside a scenario"},
		{name: "bad variable", input: "@base\n", want: "@name = value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input, "test.rest")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseError_Format(t *testing.T) {
	err := &ParseError{File: "f1.rest", Line: 12, Message: "boom"}
	assert.Equal(t, "f1.rest:12: boom", err.Error())

	err = &ParseError{Line: 3, Message: "boom"}
	assert.Equal(t, "line 3: boom", err.Error())
}

func TestParse_SkipOnlyDepends(t *testing.T) {
	input := `
### first
@only
when:
  GET http://x/a

### second
@skip flaky upstream
when:
  GET http://x/b

### third
@depends first, second
@retry 2
@retry-delay 100
@retry-on 500, 502
when:
  GET http://x/c
`
	file, err := Parse(input, "test.rest")
	require.NoError(t, err)
	require.Len(t, file.Scenarios, 3)

	assert.True(t, file.Scenarios[0].Only)
	assert.Equal(t, "flaky upstream", file.Scenarios[1].Skip)
	assert.Equal(t, []string{"first", "second"}, file.Scenarios[2].Depends)
	assert.Equal(t, 2, file.Scenarios[2].Retry)
	assert.Equal(t, 100, file.Scenarios[2].RetryDelayMs)
	assert.Equal(t, []int{500, 502}, file.Scenarios[2].RetryOn)
}
