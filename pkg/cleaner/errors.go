package cleaner

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL matches any *ParseError.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInvalidRedirect matches any *RedirectError.
	ErrInvalidRedirect = errors.New("invalid redirect target")

	// ErrNilDatabase is returned by New when no rule database is given.
	ErrNilDatabase = errors.New("rule database is nil")
)

// CompileError reports a provider pattern that failed to compile. It is
// never returned from Clean: the provider is dropped and the error is kept
// on the Cleaner.
type CompileError struct {
	Provider string
	Field    string
	Index    int // -1 for urlPattern
	Pattern  string
	Err      error
}

func (e *CompileError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("provider %q: invalid %s %q: %v", e.Provider, e.Field, e.Pattern, e.Err)
	}
	return fmt.Sprintf("provider %q: invalid %s[%d] %q: %v", e.Provider, e.Field, e.Index, e.Pattern, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// ParseError reports an input URL, or a URL produced by a raw rule, that
// could not be parsed.
type ParseError struct {
	Input    string
	Provider string // set when a raw rule produced the input
	Err      error
}

func (e *ParseError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("raw rule of provider %q produced invalid URL %q: %v", e.Provider, e.Input, e.Err)
	}
	return fmt.Sprintf("failed to parse URL %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrInvalidURL, e.Err} }

// RedirectError reports a redirection target that could not be decoded or
// parsed.
type RedirectError struct {
	Provider string
	Target   string
	Err      error
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("provider %q: invalid redirect target %q: %v", e.Provider, e.Target, e.Err)
}

func (e *RedirectError) Unwrap() []error { return []error{ErrInvalidRedirect, e.Err} }
