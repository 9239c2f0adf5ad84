// Package extract pulls named values out of responses for reuse in
// later scenarios.
package extract

import (
	"github.com/Praveenashok395/restspec/packages/core/scenario"
	"github.com/Praveenashok395/restspec/packages/http"
	"github.com/tidwall/gjson"
)

type Extractor struct {
	response *http.Response
	bodyJSON gjson.Result
}

func NewExtractor(resp *http.Response) *Extractor {
	e := &Extractor{response: resp}
	if resp.IsJSON() {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	return e
}

// Extract resolves one extraction. The second return value reports
// whether the source produced a value.
func (e *Extractor) Extract(ex *scenario.Extract) (any, bool) {
	switch ex.Source {
	case scenario.SourceBody:
		return e.fromBody(ex.Path)
	case scenario.SourceHeader:
		if v := e.response.Header(ex.Path); v != "" {
			return v, true
		}
		return nil, false
	case scenario.SourceStatus:
		return e.response.StatusCode, true
	case scenario.SourceDuration:
		return e.response.DurationMs(), true
	default:
		return nil, false
	}
}

func (e *Extractor) fromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.BodyString(), true
		}
		return nil, false
	}
	if path == "" {
		return e.bodyJSON.Value(), true
	}
	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// All runs every extraction and returns the values that resolved.
func All(resp *http.Response, extracts []*scenario.Extract) map[string]any {
	extractor := NewExtractor(resp)
	results := make(map[string]any)
	for _, ex := range extracts {
		if value, ok := extractor.Extract(ex); ok {
			results[ex.Name] = value
		}
	}
	return results
}
