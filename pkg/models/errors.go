package models

import "errors"

// Error kinds surfaced by the case pipeline. Wrap with fmt.Errorf and
// match with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrTransport       = errors.New("transport error")
	ErrSubmission      = errors.New("submission error")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrTimedOut        = errors.New("timed out")
)
