package http

import (
	"encoding/base64"
	"net/url"
	"strings"
	"time"

	"github.com/Praveenashok395/restspec/packages/core/scenario"
)

// Request is a fully resolved HTTP request, ready for the client. Path
// parameters substitute {name} segments in the URL before query assembly.
type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams map[string]string
	PathParams  map[string]string
	Body        string
	Timeout     time.Duration
	DigestAuth  *DigestCredentials
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:      method,
		URL:         requestURL,
		Headers:     make(map[string]string),
		QueryParams: make(map[string]string),
		PathParams:  make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.QueryParams[key] = value
	return r
}

func (r *Request) SetPathParam(key, value string) *Request {
	r.PathParams[key] = value
	return r
}

func (r *Request) SetBody(body string) *Request {
	r.Body = body
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

// BuildURL substitutes path parameters and appends query parameters.
// Path parameter values are escaped so they cannot smuggle in extra
// segments.
func (r *Request) BuildURL() string {
	built := r.URL
	for k, v := range r.PathParams {
		built = strings.ReplaceAll(built, "{"+k+"}", url.PathEscape(v))
	}

	if len(r.QueryParams) == 0 {
		return built
	}
	u, err := url.Parse(built)
	if err != nil {
		return built
	}
	q := u.Query()
	for k, v := range r.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *Request) applyAuth(auth *scenario.Auth) {
	if auth == nil {
		return
	}
	switch auth.Scheme {
	case scenario.AuthBasic:
		creds := auth.Params[0] + ":" + auth.Params[1]
		r.Headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
	case scenario.AuthBearer:
		r.Headers["Authorization"] = "Bearer " + auth.Params[0]
	case scenario.AuthAPIKey:
		r.Headers[auth.Params[0]] = auth.Params[1]
	case scenario.AuthAPIKeyQuery:
		r.QueryParams[auth.Params[0]] = auth.Params[1]
	case scenario.AuthDigest:
		// digest needs the challenge first, the client drives it
		r.DigestAuth = &DigestCredentials{
			Username: auth.Params[0],
			Password: auth.Params[1],
		}
	}
}

// BuildRequest turns a parsed scenario into a concrete request, running
// every user-supplied string through the resolver.
func BuildRequest(s *scenario.Scenario, resolve func(string) string) *Request {
	r := NewRequest(s.Method, resolve(s.URL))

	for _, h := range s.Given.Headers {
		r.SetHeader(h.Key, resolve(h.Value))
	}
	for _, qp := range s.Given.QueryParams {
		r.SetQueryParam(qp.Key, resolve(qp.Value))
	}
	for _, pp := range s.Given.PathParams {
		r.SetPathParam(pp.Key, resolve(pp.Value))
	}

	if s.Given.Body != "" {
		r.SetBody(resolve(s.Given.Body))
		if s.Given.BodyIsJSON && r.Headers["Content-Type"] == "" {
			r.SetHeader("Content-Type", "application/json")
		}
	}

	if s.Given.Auth != nil {
		resolved := &scenario.Auth{
			Scheme: s.Given.Auth.Scheme,
			Params: make([]string, len(s.Given.Auth.Params)),
		}
		for i, p := range s.Given.Auth.Params {
			resolved.Params[i] = resolve(p)
		}
		r.applyAuth(resolved)
	}

	if s.TimeoutMs > 0 {
		r.SetTimeout(time.Duration(s.TimeoutMs) * time.Millisecond)
	}

	r.URL = r.BuildURL()
	return r
}
