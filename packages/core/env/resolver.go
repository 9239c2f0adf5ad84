// Package env handles variable interpolation for scenario files: file
// variables, configured environments, extracted values from earlier
// scenarios, process environment lookups and builtin function calls.
package env

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/Praveenashok395/restspec/packages/builtin"
)

var refPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc receives a message for every reference that cannot be resolved.
type WarnFunc func(format string, args ...any)

// Resolver substitutes {{name}} references. Extractions win over variables
// so a scenario can shadow a file variable with a captured value. Safe for
// concurrent use.
type Resolver struct {
	mu         sync.RWMutex
	variables  map[string]any
	extracted  map[string]any
	funcs      *builtin.Registry
	warnFunc   WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]any),
		extracted: make(map[string]any),
		funcs:     builtin.NewRegistry(),
	}
}

func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariables(vars map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

// SetExtracted records an extracted value under both its bare name and a
// scenario-qualified name.
func (r *Resolver) SetExtracted(scenarioName, name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if scenarioName != "" {
		r.extracted[scenarioName+"."+name] = value
	}
	r.extracted[name] = value
}

func (r *Resolver) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.extracted[name]; ok {
		return v, true
	}
	if v, ok := r.variables[name]; ok {
		return v, true
	}
	return nil, false
}

// Resolve replaces every {{...}} reference in input. Unresolved references
// are left in place so they show up verbatim in failures.
func (r *Resolver) Resolve(input string) string {
	return refPattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])

		if strings.HasPrefix(expr, "$") {
			if val := os.Getenv(expr[1:]); val != "" {
				return val
			}
			r.warn("unresolved environment variable: %s", expr)
			return match
		}

		if strings.Contains(expr, "(") {
			if result, ok := r.funcs.Call(expr); ok {
				return fmt.Sprintf("%v", result)
			}
			r.warn("unresolved function call: %s", expr)
			return match
		}

		if val, ok := r.Lookup(expr); ok {
			return fmt.Sprintf("%v", val)
		}
		r.warn("unresolved variable: %s", expr)
		return match
	})
}

// Clone copies the resolver so parallel scenarios cannot race on writes.
func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewResolver()
	for k, v := range r.variables {
		clone.variables[k] = v
	}
	for k, v := range r.extracted {
		clone.extracted[k] = v
	}
	return clone
}
