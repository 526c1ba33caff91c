package rules

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// FieldError describes one invalid field of one provider.
type FieldError struct {
	Provider string `json:"provider"`
	Field    string `json:"field"`
	Reason   string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("provider %q: %s %s", e.Provider, e.Field, e.Reason)
}

// ValidationError aggregates every invalid field found in a database.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return "invalid rule database: " + strings.Join(msgs, "; ")
}

// Validate checks the structural constraints of every provider: a non-empty
// name, a urlPattern, and no empty patterns. It does not compile patterns.
func (d *Database) Validate() error {
	var verr ValidationError
	for _, e := range d.Entries() {
		if strings.TrimSpace(e.Name) == "" {
			verr.Errors = append(verr.Errors, FieldError{Provider: e.Name, Field: "name", Reason: "is empty"})
		}

		err := structValidator().Struct(e.Provider)
		if err == nil {
			continue
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("provider %q: %w", e.Name, err)
		}
		for _, fe := range fieldErrs {
			verr.Errors = append(verr.Errors, FieldError{
				Provider: e.Name,
				Field:    fe.Namespace(),
				Reason:   "failed " + fe.Tag(),
			})
		}
	}

	if len(verr.Errors) > 0 {
		return &verr
	}
	return nil
}
