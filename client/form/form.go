// Package form holds the state of the submission form: the bound text,
// its validation, and the outcome of the last submit.
package form

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"textsubmission/app/models"
)

const (
	SuccessMessage = "Submission successful!"
	FailureMessage = "Submission failed. Please try again."
)

// ErrNotReady is returned by Submit when the text is invalid or a submit
// is already in flight. No request is made in that case.
var ErrNotReady = errors.New("form is not ready to submit")

// Creator creates a submission on the server.
type Creator interface {
	Create(ctx context.Context, text string) (models.Submission, error)
}

// Publisher is told about every submission the form creates.
type Publisher interface {
	Publish(submission models.Submission)
}

// State is a copy of the form state for rendering.
type State struct {
	Text          string
	Touched       bool
	IsSubmitting  bool
	SubmitMessage string
	SubmitSuccess bool
}

type Form struct {
	api    Creator
	bus    Publisher
	rule   models.TextRule
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// New returns an empty form validating against rule. bus may be nil.
func New(api Creator, bus Publisher, rule models.TextRule, logger *slog.Logger) *Form {
	if logger == nil {
		logger = slog.Default()
	}
	return &Form{
		api:    api,
		bus:    bus,
		rule:   rule,
		logger: logger.With("component", "form"),
	}
}

// SetText binds text to the field and marks it touched.
func (f *Form) SetText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Text = text
	f.state.Touched = true
}

// Error returns the validation error for the current text, or nil.
func (f *Form) Error() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rule.Check(f.state.Text)
}

// Counter renders the live character counter, e.g. "12/50".
func (f *Form) Counter() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rule.Counter(f.state.Text)
}

// CanSubmit reports whether Submit would call the server.
func (f *Form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canSubmit()
}

func (f *Form) canSubmit() bool {
	return !f.state.IsSubmitting && f.rule.Valid(f.state.Text)
}

// State returns a copy of the current state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submit creates a submission from the current text. On success the field
// is cleared and the created submission is published; on failure the text
// is kept and the error is logged.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if !f.canSubmit() {
		f.mu.Unlock()
		return ErrNotReady
	}
	text := f.state.Text
	f.state.IsSubmitting = true
	f.state.SubmitMessage = ""
	f.state.SubmitSuccess = false
	f.mu.Unlock()

	created, err := f.api.Create(ctx, text)

	f.mu.Lock()
	f.state.IsSubmitting = false
	if err != nil {
		f.state.SubmitMessage = FailureMessage
		f.mu.Unlock()
		f.logger.Error("submission failed", "error", err)
		return err
	}
	f.state.Text = ""
	f.state.Touched = false
	f.state.SubmitMessage = SuccessMessage
	f.state.SubmitSuccess = true
	f.mu.Unlock()

	f.logger.Debug("submission created", "id", created.ID)
	if f.bus != nil {
		f.bus.Publish(created)
	}
	return nil
}
