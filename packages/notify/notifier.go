// Package notify posts run summaries to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	NotifyAlways  NotifyOn = "always"
	NotifyFailure NotifyOn = "failure"
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends on failures and on the first success after a failure.
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a policy name. Empty means failure.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch NotifyOn(s) {
	case "":
		return NotifyFailure, nil
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return NotifyOn(s), nil
	}
	return "", fmt.Errorf("invalid notify policy %q (expected always, failure, success or recovery)", s)
}

// Summary is what a notifier renders.
type Summary struct {
	Suites        int
	Total         int
	Passed        int
	Failed        int
	Skipped       int
	Duration      time.Duration
	Environment   string
	FailedResults []FailedCase
	IsRecovery    bool
}

// FailedCase is one failing case.
type FailedCase struct {
	Name    string
	File    string
	Kind    string
	Message string
}

func (s *Summary) Success() bool {
	return s.Failed == 0
}

// Summarize folds the results of every suite file in a run.
func Summarize(env string, results []*runner.RunResult) *Summary {
	s := &Summary{Suites: len(results), Environment: env}
	for _, r := range results {
		s.Passed += r.Passed
		s.Failed += r.Failed
		s.Skipped += r.Skipped
		s.Duration += r.Duration
		for _, cr := range r.Results {
			if cr.Failure == nil {
				continue
			}
			s.FailedResults = append(s.FailedResults, FailedCase{
				Name:    cr.DisplayName(),
				File:    r.File,
				Kind:    string(cr.Failure.Kind),
				Message: cr.Failure.Message,
			})
		}
	}
	s.Total = s.Passed + s.Failed + s.Skipped
	return s
}

// Notifier is the interface for notification services
type Notifier interface {
	Notify(ctx context.Context, summary *Summary) error
	Name() string
}

// Manager applies the policy and fans out to every notifier.
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	// lastSuccess is the outcome of the previous run, when known.
	lastSuccess *bool
}

func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
	}
}

func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Len returns the number of configured notifiers.
func (m *Manager) Len() int {
	return len(m.notifiers)
}

// SetPrevious records the outcome of the previous run, typically read
// from the history store.
func (m *Manager) SetPrevious(success bool) {
	m.lastSuccess = &success
}

// ShouldNotify reports whether the policy selects this run, and marks the
// summary as a recovery when it is one.
func (m *Manager) ShouldNotify(summary *Summary) bool {
	ok := summary.Success()
	switch m.notifyOn {
	case NotifyAlways:
		return true
	case NotifySuccess:
		return ok
	case NotifyRecovery:
		if !ok {
			return true
		}
		if m.lastSuccess != nil && !*m.lastSuccess {
			summary.IsRecovery = true
			return true
		}
		return false
	default:
		return !ok
	}
}

// Notify sends to every notifier and joins their errors. The next call
// treats this run as the previous one.
func (m *Manager) Notify(ctx context.Context, summary *Summary) error {
	send := m.ShouldNotify(summary)
	m.SetPrevious(summary.Success())
	if !send {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func headline(s *Summary) string {
	switch {
	case !s.Success():
		return fmt.Sprintf("%d case(s) failed", s.Failed)
	case s.IsRecovery:
		return "Cases recovered"
	default:
		return "All cases passed"
	}
}
