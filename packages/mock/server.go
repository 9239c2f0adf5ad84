// Package mock serves canned responses derived from scenario files, so
// checks can run without the real API. Routes come from each scenario's
// request line; bodies are synthesized from its equality checks.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Praveenashok395/restspec/packages/core/env"
	"github.com/Praveenashok395/restspec/packages/core/scenario"
)

type Server struct {
	router  *Router
	port    int
	delay   time.Duration
	verbose bool
}

type Option func(*Server)

func WithPort(port int) Option {
	return func(s *Server) { s.port = port }
}

// WithDelay adds artificial latency to every response.
func WithDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

func WithVerbose(verbose bool) Option {
	return func(s *Server) { s.verbose = verbose }
}

func NewServer(opts ...Option) *Server {
	s := &Server{router: NewRouter(), port: 3000}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadFile builds routes from every scenario in a .rest file.
func (s *Server) LoadFile(path string) error {
	file, err := scenario.ParseFile(path)
	if err != nil {
		return err
	}
	return s.LoadParsedFile(file)
}

func (s *Server) LoadFiles(paths []string) error {
	for _, path := range paths {
		if err := s.LoadFile(path); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) LoadParsedFile(file *scenario.File) error {
	resolver := env.NewResolver()
	for _, v := range file.Variables {
		resolver.SetVariable(v.Name, resolver.Resolve(v.Value))
	}

	for _, sc := range file.Scenarios {
		checks := append([]*scenario.Check{}, sc.Checks...)
		for _, use := range sc.Uses {
			if block := file.Expect(use); block != nil {
				checks = append(checks, block.Checks...)
			}
		}
		s.router.Add(&Route{
			Method:   sc.Method,
			Pattern:  pathPattern(resolver.Resolve(sc.URL)),
			Name:     sc.Name,
			Response: buildResponse(checks),
		})
	}
	return nil
}

// pathPattern strips scheme, host and query from a request URL, keeping
// {param} placeholders intact.
func pathPattern(url string) string {
	if idx := strings.Index(url, "://"); idx != -1 {
		url = url[idx+3:]
		if slash := strings.Index(url, "/"); slash != -1 {
			url = url[slash:]
		} else {
			url = "/"
		}
	}
	if idx := strings.Index(url, "?"); idx != -1 {
		url = url[:idx]
	}
	return normalizePath(url)
}

// buildResponse synthesizes a response the scenario's checks would
// accept: status from the status check, top-level body fields from
// body.<field> equality checks.
func buildResponse(checks []*scenario.Check) *Response {
	resp := &Response{
		StatusCode:  http.StatusOK,
		ContentType: "application/json",
		Headers:     make(map[string]string),
		Body:        `{"status": "ok"}`,
	}

	fields := make(map[string]any)
	for _, c := range checks {
		switch {
		case c.Subject == "status" && c.Op == scenario.OpEquals:
			if code, ok := c.Expected.(int); ok {
				resp.StatusCode = code
			}
		case strings.HasPrefix(c.Subject, "header ") && c.Op == scenario.OpEquals:
			name := strings.TrimSpace(strings.TrimPrefix(c.Subject, "header "))
			resp.Headers[name] = fmt.Sprintf("%v", c.Expected)
		case strings.HasPrefix(c.Subject, "body.") && c.Op == scenario.OpEquals:
			field := strings.TrimPrefix(c.Subject, "body.")
			if !strings.ContainsAny(field, ".[") {
				fields[field] = c.Expected
			}
		}
	}
	if len(fields) > 0 {
		if data, err := json.MarshalIndent(fields, "", "  "); err == nil {
			resp.Body = string(data)
		}
	}
	return resp
}

// Handler returns the server as an http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handle)
}

func (s *Server) Routes() []*Route {
	return s.router.Routes()
}

// Serve listens until the context is canceled.
func (s *Server) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("mock server listening on http://localhost:%d (%d routes)", s.port, len(s.router.routes))
	if s.verbose {
		for _, route := range s.router.routes {
			log.Printf("  %s %s -> %d", route.Method, route.Pattern, route.Response.StatusCode)
		}
	}
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	route, params := s.router.Match(r.Method, r.URL.Path)
	if route == nil {
		if s.verbose {
			log.Printf("%s %s -> 404 (%s)", r.Method, r.URL.Path, time.Since(start))
		}
		http.NotFound(w, r)
		return
	}

	for k, v := range route.Response.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", route.Response.ContentType)

	body := route.Response.Body
	for k, v := range params {
		body = strings.ReplaceAll(body, "{"+k+"}", v)
	}

	w.WriteHeader(route.Response.StatusCode)
	w.Write([]byte(body))

	if s.verbose {
		log.Printf("%s %s -> %d (%s)", r.Method, r.URL.Path, route.Response.StatusCode, time.Since(start))
	}
}
