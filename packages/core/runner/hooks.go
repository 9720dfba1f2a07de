package runner

import (
	"log/slog"

	"github.com/abdul-hamid-achik/pagespec/packages/http"
	"github.com/abdul-hamid-achik/pagespec/packages/timing"
)

// Option configures a Runner.
type Option func(*Runner)

// CaseHook is called after every case, including skipped ones, in file order.
type CaseHook func(*CaseResult)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHTTPClient replaces the client used by fetch steps.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) {
		if client != nil {
			r.client = client
		}
	}
}

func WithCaseHook(hook CaseHook) Option {
	return func(r *Runner) {
		if hook != nil {
			r.hooks = append(r.hooks, hook)
		}
	}
}

// WithTimings shares a recorder across runs, e.g. for several suite files.
func WithTimings(rec *timing.Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.timings = rec
		}
	}
}

func (r *Runner) notifyHooks(cr *CaseResult) {
	for _, hook := range r.hooks {
		hook(cr)
	}
}
