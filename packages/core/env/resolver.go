package env

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/pagespec/packages/builtin"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// maxDepth bounds how many times a variable value that itself contains
// {{...}} is expanded.
const maxDepth = 5

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver expands {{name}}, {{$ENV_VAR}} and {{fn(args)}} expressions.
// Unresolved expressions are left in place and reported through the warn
// function.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]any
	funcs     *builtin.Registry
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]any),
		funcs:     builtin.NewRegistry(),
	}
}

// SetWarnFunc sets a function to be called when warnings occur (e.g., unresolved variables)
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

func (r *Resolver) Functions() *builtin.Registry {
	return r.funcs
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

func (r *Resolver) GetVariable(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variables[name]
	return v, ok
}

func (r *Resolver) Resolve(input string) string {
	return r.resolve(input, 0)
}

func (r *Resolver) resolve(input string, depth int) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])

		value, ok := r.lookup(expr)
		if !ok {
			return match
		}
		if depth < maxDepth && strings.Contains(value, "{{") {
			return r.resolve(value, depth+1)
		}
		return value
	})
}

func (r *Resolver) lookup(expr string) (string, bool) {
	if strings.HasPrefix(expr, "$") {
		name := expr[1:]
		if val, ok := os.LookupEnv(name); ok {
			return val, true
		}
		r.warn("unresolved environment variable: $%s", name)
		return "", false
	}

	if strings.Contains(expr, "(") {
		result, ok, err := r.funcs.Call(expr)
		if err != nil {
			r.warn("function call %s failed: %v", expr, err)
			return "", false
		}
		if !ok {
			r.warn("unresolved function call: %s", expr)
			return "", false
		}
		return fmt.Sprintf("%v", result), true
	}

	r.mu.RLock()
	val, ok := r.variables[expr]
	r.mu.RUnlock()
	if !ok {
		r.warn("unresolved variable: %s", expr)
		return "", false
	}
	return fmt.Sprintf("%v", val), true
}

// Unresolved returns the expressions in input that cannot be resolved.
func (r *Resolver) Unresolved(input string) []string {
	var missing []string
	resolved := r.Resolve(input)
	for _, m := range variablePattern.FindAllStringSubmatch(resolved, -1) {
		missing = append(missing, strings.TrimSpace(m[1]))
	}
	return missing
}

func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewResolver()
	clone.funcs = r.funcs
	clone.warnFunc = r.warnFunc
	for k, v := range r.variables {
		clone.variables[k] = v
	}
	return clone
}
