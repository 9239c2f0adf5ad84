package mock

import (
	"regexp"
	"strings"
)

// Route maps a method and path pattern to a canned response. Patterns
// may contain {name} segments which capture into params.
type Route struct {
	Method   string
	Pattern  string
	regex    *regexp.Regexp
	Name     string
	Response *Response
}

// Response is what a matched route writes back.
type Response struct {
	StatusCode  int
	ContentType string
	Headers     map[string]string
	Body        string
}

type Router struct {
	routes []*Route
}

func NewRouter() *Router {
	return &Router{}
}

func (r *Router) Add(route *Route) {
	route.regex = patternRegex(route.Pattern)
	r.routes = append(r.routes, route)
}

func (r *Router) Routes() []*Route {
	return r.routes
}

// Match returns the first route matching method and path, along with any
// captured path parameters.
func (r *Router) Match(method, path string) (*Route, map[string]string) {
	path = normalizePath(path)
	for _, route := range r.routes {
		if !strings.EqualFold(route.Method, method) {
			continue
		}
		if params := route.match(path); params != nil {
			return route, params
		}
	}
	return nil, nil
}

func (route *Route) match(path string) map[string]string {
	if route.regex != nil {
		m := route.regex.FindStringSubmatch(path)
		if m == nil {
			return nil
		}
		params := make(map[string]string)
		for i, name := range route.regex.SubexpNames() {
			if i > 0 && name != "" {
				params[name] = m[i]
			}
		}
		return params
	}
	if route.Pattern == path {
		return map[string]string{}
	}
	return nil
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

var paramSegment = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// patternRegex turns /f1/{year}/circuits.json into an anchored regex
// with a named group per {param}. Everything else matches literally.
func patternRegex(pattern string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(pattern)
	// QuoteMeta escapes the braces, so match the escaped form
	withGroups := regexp.MustCompile(`\\\{([a-zA-Z_][a-zA-Z0-9_]*)\\\}`).
		ReplaceAllString(quoted, `(?P<$1>[^/]+)`)
	re, err := regexp.Compile("^" + withGroups + "$")
	if err != nil {
		return nil
	}
	return re
}
