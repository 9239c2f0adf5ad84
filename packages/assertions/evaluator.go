// Package assertions evaluates then-block checks against a response.
package assertions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/Praveenashok395/restspec/packages/core/scenario"
	"github.com/Praveenashok395/restspec/packages/http"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Result is the outcome of one check.
type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
}

type Evaluator struct {
	response *http.Response
	bodyJSON gjson.Result
	baseDir  string // for resolving schema file paths
}

func NewEvaluator(resp *http.Response) *Evaluator {
	return NewEvaluatorWithBaseDir(resp, "")
}

func NewEvaluatorWithBaseDir(resp *http.Response, baseDir string) *Evaluator {
	e := &Evaluator{response: resp, baseDir: baseDir}
	if resp.IsJSON() {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	return e
}

// EvaluateAll runs every check against the response.
func EvaluateAll(resp *http.Response, checks []*scenario.Check, baseDir string) []*Result {
	e := NewEvaluatorWithBaseDir(resp, baseDir)
	results := make([]*Result, len(checks))
	for i, c := range checks {
		results[i] = e.Evaluate(c)
	}
	return results
}

func (e *Evaluator) Evaluate(check *scenario.Check) *Result {
	result := &Result{
		Subject:  check.Subject,
		Operator: check.Op.String(),
		Expected: check.Expected,
	}

	actual, err := e.subjectValue(check.Subject)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	result.Actual = actual

	passed, msg := e.compare(actual, check.Op, check.Expected)
	result.Passed = passed
	result.Message = msg

	if check.Op == scenario.OpLength {
		result.Actual = lengthOf(actual)
	}
	return result
}

func (e *Evaluator) subjectValue(subject string) (any, error) {
	switch {
	case subject == "status":
		return e.response.StatusCode, nil
	case subject == "duration":
		return e.response.DurationMs(), nil
	case strings.HasPrefix(subject, "header "):
		name := strings.TrimSpace(strings.TrimPrefix(subject, "header "))
		return e.response.Header(name), nil
	case subject == "header":
		return e.response.Headers, nil
	case subject == "body" || strings.HasPrefix(subject, "body."):
		return e.bodyValue(subject), nil
	default:
		return nil, fmt.Errorf("unknown check subject %q", subject)
	}
}

// bracketPattern rewrites [N] indices into gjson dot form.
var bracketPattern = regexp.MustCompile(`\[(\d+)\]`)

func toGJSONPath(path string) string {
	return strings.TrimPrefix(bracketPattern.ReplaceAllString(path, ".$1"), ".")
}

func (e *Evaluator) bodyValue(subject string) any {
	if !e.bodyJSON.Exists() {
		return e.response.BodyString()
	}
	path := strings.TrimPrefix(strings.TrimPrefix(subject, "body"), ".")
	if path == "" {
		return e.bodyJSON.Value()
	}
	result := e.bodyJSON.Get(toGJSONPath(path))
	if !result.Exists() {
		return nil
	}
	return result.Value()
}

func (e *Evaluator) compare(actual any, op scenario.Op, expected any) (bool, string) {
	switch op {
	case scenario.OpEquals:
		return equals(actual, expected)
	case scenario.OpNotEquals:
		if passed, _ := equals(actual, expected); passed {
			return false, fmt.Sprintf("expected not to equal %v", expected)
		}
		return true, ""
	case scenario.OpGreaterThan:
		return compareNumeric(actual, expected, ">")
	case scenario.OpGreaterOrEqual:
		return compareNumeric(actual, expected, ">=")
	case scenario.OpLessThan:
		return compareNumeric(actual, expected, "<")
	case scenario.OpLessOrEqual:
		return compareNumeric(actual, expected, "<=")
	case scenario.OpContains:
		return contains(actual, expected)
	case scenario.OpNotContains:
		if passed, _ := contains(actual, expected); passed {
			return false, fmt.Sprintf("expected not to contain %v", expected)
		}
		return true, ""
	case scenario.OpStartsWith:
		if strings.HasPrefix(str(actual), str(expected)) {
			return true, ""
		}
		return false, fmt.Sprintf("expected '%v' to start with '%v'", actual, expected)
	case scenario.OpEndsWith:
		if strings.HasSuffix(str(actual), str(expected)) {
			return true, ""
		}
		return false, fmt.Sprintf("expected '%v' to end with '%v'", actual, expected)
	case scenario.OpMatches:
		return matches(actual, expected)
	case scenario.OpExists:
		if actual == nil {
			return false, "expected to exist"
		}
		return true, ""
	case scenario.OpNotExists:
		if actual != nil {
			return false, "expected not to exist"
		}
		return true, ""
	case scenario.OpLength:
		return length(actual, expected)
	case scenario.OpIncludes:
		return includes(actual, expected)
	case scenario.OpIn:
		return in(actual, expected)
	case scenario.OpType:
		return typeCheck(actual, expected)
	case scenario.OpSchema:
		return e.schema(actual, expected)
	default:
		return false, fmt.Sprintf("unknown operator: %v", op)
	}
}

func str(v any) string {
	return fmt.Sprintf("%v", v)
}

func equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}
	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if aOk && eOk && actualNum == expectedNum {
		return true, ""
	}
	if str(actual) == str(expected) {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func compareNumeric(actual, expected any, op string) (bool, string) {
	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if !aOk || !eOk {
		return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, op, expected)
	}

	var passed bool
	switch op {
	case ">":
		passed = actualNum > expectedNum
	case ">=":
		passed = actualNum >= expectedNum
	case "<":
		passed = actualNum < expectedNum
	case "<=":
		passed = actualNum <= expectedNum
	}
	if passed {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v %s %v", actual, op, expected)
}

func contains(actual, expected any) (bool, string) {
	if strings.Contains(str(actual), str(expected)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to contain '%v'", actual, expected)
}

func matches(actual, expected any) (bool, string) {
	pattern := strings.TrimSuffix(strings.TrimPrefix(str(expected), "/"), "/")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}
	if re.MatchString(str(actual)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to match /%v/", actual, pattern)
}

func lengthOf(actual any) int {
	switch v := actual.(type) {
	case string:
		return len(v)
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	}
	rv := reflect.ValueOf(actual)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	}
	return -1
}

func length(actual, expected any) (bool, string) {
	want, ok := toInt(expected)
	if !ok {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}
	got := lengthOf(actual)
	if got == -1 {
		return false, fmt.Sprintf("cannot get length of %T", actual)
	}
	if got == want {
		return true, ""
	}
	return false, fmt.Sprintf("expected length %d, got %d", want, got)
}

func includes(actual, expected any) (bool, string) {
	arr, ok := actual.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array, got %T", actual)
	}
	for _, item := range arr {
		if passed, _ := equals(item, expected); passed {
			return true, ""
		}
	}
	return false, fmt.Sprintf("expected array to include %v", expected)
}

func in(actual, expected any) (bool, string) {
	arr, ok := expected.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array for 'in' operator, got %T", expected)
	}
	for _, item := range arr {
		if passed, _ := equals(actual, item); passed {
			return true, ""
		}
	}
	return false, fmt.Sprintf("expected %v to be in %v", actual, expected)
}

func typeCheck(actual, expected any) (bool, string) {
	want := str(expected)
	var got string
	switch actual.(type) {
	case nil:
		got = "null"
	case bool:
		got = "boolean"
	case float64, float32, int, int64, int32:
		got = "number"
	case string:
		got = "string"
	case []any:
		got = "array"
	case map[string]any:
		got = "object"
	default:
		got = reflect.TypeOf(actual).String()
	}
	if got == want {
		return true, ""
	}
	return false, fmt.Sprintf("expected type %s, got %s", want, got)
}

// schema validates the actual value against a JSON Schema file. Relative
// paths resolve against the scenario file's directory and may not escape
// it.
func (e *Evaluator) schema(actual, expected any) (bool, string) {
	schemaPath := str(expected)
	if !filepath.IsAbs(schemaPath) && e.baseDir != "" {
		schemaPath = filepath.Join(e.baseDir, schemaPath)
	}
	if err := pathWithinBase(schemaPath, e.baseDir); err != nil {
		return false, err.Error()
	}

	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		return false, fmt.Sprintf("failed to read schema file: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		return false, fmt.Sprintf("failed to marshal actual value: %v", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(actualJSON))
	if err != nil {
		return false, fmt.Sprintf("schema validation error: %v", err)
	}
	if result.Valid() {
		return true, ""
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return false, fmt.Sprintf("schema validation failed: %s", strings.Join(errs, "; "))
}

func pathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}
	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}
	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}
	if cleanPath != cleanBase && !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) {
		return fmt.Errorf("schema path %s is outside allowed directory %s", path, baseDir)
	}
	return nil
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}
