package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for interpretation calls.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrTransport matches every failed call to the completion API: network,
	// authentication and service errors alike. The call is never retried.
	ErrTransport = errors.New("llm request failed")

	// ErrFatalAPI marks failures that will not go away on their own (bad
	// credential, exhausted quota, billing). It is always combined with
	// ErrTransport.
	ErrFatalAPI = errors.New("fatal llm api error")

	// ErrConfiguration indicates the model could not be constructed from the
	// configuration, e.g. the provider's API key is missing.
	ErrConfiguration = errors.New("llm configuration invalid")

	// ErrEmptyDream is returned for blank input. Callers treat it as "nothing
	// to do" rather than as a failure to display.
	ErrEmptyDream = errors.New("dream text is empty")

	// ErrNoChoices indicates a successful response without any completion.
	ErrNoChoices = errors.New("no response choices")
)

// AnalysisError is the failure side of an interpretation call.
type AnalysisError struct {
	Model string
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("interpret with %s: %v", e.Model, e.Err)
}

// Unwrap exposes both ErrTransport and the underlying cause.
func (e *AnalysisError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// fatalPatterns are lower-case fragments of provider error messages that
// indicate a credential or account problem.
var fatalPatterns = []string{
	"credit balance",
	"rate limit",
	"quota exceeded",
	"billing",
	"invalid api key",
	"invalid x-api-key",
	"authentication",
	"unauthorized",
	"permission denied",
	"401",
	"403",
}

// isFatalAPIError reports whether err looks like a credential or account
// problem rather than a transient failure.
func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range fatalPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// wrapFatalError tags fatal errors with ErrFatalAPI and returns other errors
// unchanged.
func wrapFatalError(err error) error {
	if !isFatalAPIError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFatalAPI, err)
}

// Describe renders err as a message suitable for showing to the user.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return fmt.Sprintf("Configuration error: %v", err)
	case errors.Is(err, ErrFatalAPI):
		return fmt.Sprintf("Error analyzing dream: %v (check your API key and account)", err)
	default:
		return fmt.Sprintf("Error analyzing dream: %v", err)
	}
}
