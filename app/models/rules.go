package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"textsubmission/app/apperr"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// TextRule bounds the length of submission text in characters. Presence and
// the lower bound are checked on the trimmed text, the upper bound on the
// text as given.
type TextRule struct {
	Min int
	Max int
}

var (
	// DefaultServerRule is what the API enforces before persisting.
	DefaultServerRule = TextRule{Min: 1, Max: 1000}
	// DefaultClientRule is what the form and dashboard enforce before calling the API.
	DefaultClientRule = TextRule{Min: 10, Max: 50}
)

const textRequiredMessage = "Text is required."

// Check returns an apperr validation error when text breaks the rule.
func (r TextRule) Check(text string) error {
	trimmed := strings.TrimSpace(text)
	if err := validate.Var(trimmed, "required"); err != nil {
		return apperr.Validation(textRequiredMessage)
	}
	if err := validate.Var(trimmed, fmt.Sprintf("min=%d", r.Min)); err != nil {
		return apperr.Validation(r.Message())
	}
	if err := validate.Var(text, fmt.Sprintf("max=%d", r.Max)); err != nil {
		return apperr.Validation(r.Message())
	}
	return nil
}

// Valid reports whether text satisfies the rule.
func (r TextRule) Valid(text string) bool {
	return r.Check(text) == nil
}

// Message describes the bound to a user.
func (r TextRule) Message() string {
	if r.Min <= 1 {
		return fmt.Sprintf("Text must not exceed %d characters.", r.Max)
	}
	return fmt.Sprintf("Text must be between %d and %d characters.", r.Min, r.Max)
}

// Counter renders the live "<n>/<max>" character counter.
func (r TextRule) Counter(text string) string {
	return fmt.Sprintf("%d/%d", CharCount(text), r.Max)
}

// CharCount counts characters the same way the validator does.
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}
