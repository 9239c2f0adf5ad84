// Package runner executes parsed scenario files: it orders scenarios by
// their dependencies, fires the requests, evaluates checks and feeds
// extracted values back into the resolver for later scenarios.
package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Praveenashok395/restspec/packages/assertions"
	"github.com/Praveenashok395/restspec/packages/core/config"
	"github.com/Praveenashok395/restspec/packages/core/env"
	"github.com/Praveenashok395/restspec/packages/core/scenario"
	"github.com/Praveenashok395/restspec/packages/extract"
	"github.com/Praveenashok395/restspec/packages/http"
)

type Status int

const (
	StatusPassed Status = iota
	StatusFailed
	StatusSkipped
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ScenarioResult is the outcome of one scenario, including every check
// that ran against the response.
type ScenarioResult struct {
	Scenario   *scenario.Scenario
	Status     Status
	SkipReason string
	Checks     []*assertions.Result
	Response   *http.Response
	Err        error
	Duration   time.Duration
	Attempts   int
}

func (r *ScenarioResult) FailedChecks() []*assertions.Result {
	var failed []*assertions.Result
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

type FileResult struct {
	File     *scenario.File
	Results  []*ScenarioResult
	Duration time.Duration
}

type RunResult struct {
	Files     []*FileResult
	StartedAt time.Time
	Duration  time.Duration
}

func (r *RunResult) Counts() (passed, failed, skipped, errored int) {
	for _, f := range r.Files {
		for _, s := range f.Results {
			switch s.Status {
			case StatusPassed:
				passed++
			case StatusFailed:
				failed++
			case StatusSkipped:
				skipped++
			case StatusErrored:
				errored++
			}
		}
	}
	return
}

func (r *RunResult) Ok() bool {
	_, failed, _, errored := r.Counts()
	return failed == 0 && errored == 0
}

// Options tune a run. Zero values fall back to the config, which falls
// back to built-in defaults.
type Options struct {
	Environment string
	Tags        []string
	NamePattern string
	Bail        bool
	Parallel    bool
	Concurrency int
	Timeout     time.Duration
	Retries     int
	RetryDelay  time.Duration
	Insecure    bool
	Proxy       string

	// OnResult, when set, is called after every scenario finishes. In
	// parallel runs calls are serialized.
	OnResult func(*ScenarioResult)
}

type Runner struct {
	cfg      *config.Config
	opts     Options
	client   *http.Client
	resolver *env.Resolver

	mu     sync.Mutex // guards OnResult and bail state
	bailed bool
}

func New(cfg *config.Config, opts Options) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	timeout := cfg.Timeout.Std()
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	validateSSL := cfg.GetValidateSSL()
	if opts.Insecure {
		validateSSL = false
	}
	proxy := cfg.Proxy
	if opts.Proxy != "" {
		proxy = opts.Proxy
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	client := http.NewClient(
		http.WithTimeout(timeout),
		http.WithFollowRedirects(cfg.GetFollowRedirects()),
		http.WithMaxRedirects(cfg.MaxRedirects),
		http.WithValidateSSL(validateSSL),
		http.WithProxy(proxy),
		http.WithDefaultHeaders(cfg.Headers),
	)

	resolver := env.NewResolver()
	envName := opts.Environment
	if envName == "" {
		envName = cfg.DefaultEnvironment
	}
	if vars := cfg.Environment(envName); vars != nil {
		resolver.SetVariables(vars)
	}

	return &Runner{cfg: cfg, opts: opts, client: client, resolver: resolver}
}

// Resolver exposes the run-wide resolver so callers can seed extra
// variables (dotenv files, --var flags) before running.
func (r *Runner) Resolver() *env.Resolver {
	return r.resolver
}

// Client exposes the configured HTTP client, shared with benchmark mode.
func (r *Runner) Client() *http.Client {
	return r.client
}

// ExpandChecks resolves a scenario's use references against its file.
func ExpandChecks(file *scenario.File, s *scenario.Scenario) ([]*scenario.Check, error) {
	return expandChecks(file, s)
}

// RunFiles parses and executes every path in order. Parse errors abort
// the run; execution failures are reported in the result.
func (r *Runner) RunFiles(ctx context.Context, paths []string) (*RunResult, error) {
	run := &RunResult{StartedAt: time.Now()}
	for _, path := range paths {
		file, err := scenario.ParseFile(path)
		if err != nil {
			return nil, err
		}
		fr, err := r.RunFile(ctx, file)
		if err != nil {
			return nil, err
		}
		run.Files = append(run.Files, fr)
		if r.isBailed() {
			break
		}
	}
	run.Duration = time.Since(run.StartedAt)
	return run, nil
}

// RunFile executes one parsed file. File variables are resolved and
// loaded before the first scenario fires.
func (r *Runner) RunFile(ctx context.Context, file *scenario.File) (*FileResult, error) {
	start := time.Now()

	for _, v := range file.Variables {
		r.resolver.SetVariable(v.Name, r.resolver.Resolve(v.Value))
	}

	selected, err := r.selectScenarios(file)
	if err != nil {
		return nil, err
	}
	levels, err := orderByDependencies(file, selected)
	if err != nil {
		return nil, err
	}

	fr := &FileResult{File: file}
	failed := make(map[string]bool)

	for _, level := range levels {
		if r.isBailed() {
			break
		}
		if r.opts.Parallel && len(level) > 1 {
			r.runLevelParallel(ctx, file, level, failed, fr)
		} else {
			for _, s := range level {
				if r.isBailed() {
					break
				}
				res := r.runOne(ctx, file, s, failed, r.resolver)
				r.record(fr, res, failed)
			}
		}
	}

	fr.Duration = time.Since(start)
	return fr, nil
}

func (r *Runner) runLevelParallel(ctx context.Context, file *scenario.File, level []*scenario.Scenario, failed map[string]bool, fr *FileResult) {
	sem := make(chan struct{}, r.opts.Concurrency)
	results := make([]*ScenarioResult, len(level))
	var wg sync.WaitGroup

	for i, s := range level {
		wg.Add(1)
		go func(i int, s *scenario.Scenario) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = r.runOne(ctx, file, s, failed, r.resolver.Clone())
		}(i, s)
	}
	wg.Wait()

	// merge extractions back so the next level sees them
	for i, res := range results {
		r.record(fr, res, failed)
		if res.Status == StatusPassed && res.Response != nil {
			for name, value := range extract.All(res.Response, level[i].Extracts) {
				r.resolver.SetExtracted(level[i].Name, name, value)
			}
		}
	}
}

func (r *Runner) record(fr *FileResult, res *ScenarioResult, failed map[string]bool) {
	fr.Results = append(fr.Results, res)
	if res.Status == StatusFailed || res.Status == StatusErrored {
		failed[res.Scenario.Name] = true
		if r.opts.Bail {
			r.mu.Lock()
			r.bailed = true
			r.mu.Unlock()
		}
	}
	if r.opts.OnResult != nil {
		r.mu.Lock()
		r.opts.OnResult(res)
		r.mu.Unlock()
	}
}

func (r *Runner) isBailed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bailed
}

// runOne executes a single scenario with its retry policy.
func (r *Runner) runOne(ctx context.Context, file *scenario.File, s *scenario.Scenario, failed map[string]bool, resolver *env.Resolver) *ScenarioResult {
	res := &ScenarioResult{Scenario: s}

	if s.Skip != "" {
		res.Status = StatusSkipped
		res.SkipReason = s.Skip
		return res
	}
	for _, dep := range s.Depends {
		if failed[dep] {
			res.Status = StatusSkipped
			res.SkipReason = fmt.Sprintf("dependency %q failed", dep)
			return res
		}
	}

	checks, err := expandChecks(file, s)
	if err != nil {
		res.Status = StatusErrored
		res.Err = err
		return res
	}

	retries := r.cfg.Retries
	if r.opts.Retries > 0 {
		retries = r.opts.Retries
	}
	if s.Retry > 0 {
		retries = s.Retry
	}
	delay := r.cfg.RetryDelay.Std()
	if r.opts.RetryDelay > 0 {
		delay = r.opts.RetryDelay
	}
	if s.RetryDelayMs > 0 {
		delay = time.Duration(s.RetryDelayMs) * time.Millisecond
	}

	start := time.Now()
	for attempt := 0; attempt <= retries; attempt++ {
		res.Attempts = attempt + 1
		if attempt > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				res.Status = StatusErrored
				res.Err = ctx.Err()
				res.Duration = time.Since(start)
				return res
			case <-time.After(delay):
			}
		}

		r.attempt(ctx, file, s, checks, resolver, res)
		if res.Status == StatusPassed || !r.shouldRetry(s, res) {
			break
		}
	}
	res.Duration = time.Since(start)

	if res.Status == StatusPassed && resolver == r.resolver {
		for name, value := range extract.All(res.Response, s.Extracts) {
			resolver.SetExtracted(s.Name, name, value)
		}
	}
	return res
}

func (r *Runner) attempt(ctx context.Context, file *scenario.File, s *scenario.Scenario, checks []*scenario.Check, resolver *env.Resolver, res *ScenarioResult) {
	req := http.BuildRequest(s, resolver.Resolve)

	resp, err := r.client.DoContext(ctx, req)
	if err != nil {
		res.Status = StatusErrored
		res.Err = err
		res.Response = nil
		res.Checks = nil
		return
	}
	res.Err = nil
	res.Response = resp

	res.Checks = assertions.EvaluateAll(resp, checks, filepath.Dir(file.Path))
	res.Status = StatusPassed
	for _, c := range res.Checks {
		if !c.Passed {
			res.Status = StatusFailed
			break
		}
	}
}

// shouldRetry decides whether a failed attempt gets another shot. With a
// retry-on list only those status codes retry; otherwise any failure or
// transport error does.
func (r *Runner) shouldRetry(s *scenario.Scenario, res *ScenarioResult) bool {
	if len(s.RetryOn) > 0 {
		if res.Response == nil {
			return true
		}
		for _, code := range s.RetryOn {
			if res.Response.StatusCode == code {
				return true
			}
		}
		return false
	}
	return res.Status == StatusFailed || res.Status == StatusErrored
}

// expandChecks appends the checks of every referenced expect block to the
// scenario's own.
func expandChecks(file *scenario.File, s *scenario.Scenario) ([]*scenario.Check, error) {
	checks := make([]*scenario.Check, 0, len(s.Checks))
	checks = append(checks, s.Checks...)
	for _, name := range s.Uses {
		block := file.Expect(name)
		if block == nil {
			return nil, &scenario.ParseError{
				File:    file.Path,
				Line:    s.Line,
				Message: fmt.Sprintf("scenario %q uses unknown expect block %q", s.Name, name),
			}
		}
		checks = append(checks, block.Checks...)
	}
	return checks, nil
}

// selectScenarios applies only/tag/name filters, then pulls in the
// dependencies of everything selected so extractions still flow.
func (r *Runner) selectScenarios(file *scenario.File) (map[string]bool, error) {
	byName := make(map[string]*scenario.Scenario, len(file.Scenarios))
	for _, s := range file.Scenarios {
		if _, dup := byName[s.Name]; dup {
			return nil, &scenario.ParseError{
				File:    file.Path,
				Line:    s.Line,
				Message: fmt.Sprintf("duplicate scenario name %q", s.Name),
			}
		}
		byName[s.Name] = s
	}

	hasOnly := false
	for _, s := range file.Scenarios {
		if s.Only {
			hasOnly = true
			break
		}
	}

	selected := make(map[string]bool)
	for _, s := range file.Scenarios {
		if hasOnly && !s.Only {
			continue
		}
		if len(r.opts.Tags) > 0 && !hasAnyTag(s, r.opts.Tags) {
			continue
		}
		if r.opts.NamePattern != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(r.opts.NamePattern)) {
			continue
		}
		selected[s.Name] = true
	}

	// dependency closure
	queue := make([]string, 0, len(selected))
	for name := range selected {
		queue = append(queue, name)
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		s, ok := byName[name]
		if !ok {
			continue
		}
		for _, dep := range s.Depends {
			if _, ok := byName[dep]; !ok {
				return nil, &scenario.ParseError{
					File:    file.Path,
					Line:    s.Line,
					Message: fmt.Sprintf("scenario %q depends on unknown scenario %q", s.Name, dep),
				}
			}
			if !selected[dep] {
				selected[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return selected, nil
}

func hasAnyTag(s *scenario.Scenario, tags []string) bool {
	for _, want := range tags {
		for _, have := range s.Tags {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

// orderByDependencies groups the selected scenarios into levels where
// every scenario's dependencies live in an earlier level. Cycles are an
// error. Within a level, file order is preserved.
func orderByDependencies(file *scenario.File, selected map[string]bool) ([][]*scenario.Scenario, error) {
	indegree := make(map[string]int)
	dependents := make(map[string][]string)
	byName := make(map[string]*scenario.Scenario)

	for _, s := range file.Scenarios {
		if !selected[s.Name] {
			continue
		}
		byName[s.Name] = s
		for _, dep := range s.Depends {
			if selected[dep] {
				indegree[s.Name]++
				dependents[dep] = append(dependents[dep], s.Name)
			}
		}
	}

	var levels [][]*scenario.Scenario
	remaining := len(byName)
	current := make([]*scenario.Scenario, 0)
	for _, s := range file.Scenarios {
		if selected[s.Name] && indegree[s.Name] == 0 {
			current = append(current, s)
		}
	}

	for len(current) > 0 {
		levels = append(levels, current)
		remaining -= len(current)

		nextNames := make(map[string]bool)
		for _, s := range current {
			for _, dep := range dependents[s.Name] {
				indegree[dep]--
				if indegree[dep] == 0 {
					nextNames[dep] = true
				}
			}
		}
		current = nil
		for _, s := range file.Scenarios {
			if nextNames[s.Name] {
				current = append(current, s)
			}
		}
	}

	if remaining > 0 {
		var stuck []string
		for name := range byName {
			if indegree[name] > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, &scenario.ParseError{
			File:    file.Path,
			Message: fmt.Sprintf("dependency cycle involving: %s", strings.Join(stuck, ", ")),
		}
	}
	return levels, nil
}
