// Package faults defines the closed error vocabulary that crosses the
// data-access boundary. Adapters catch every underlying failure (driver
// errors, provider API errors, transport errors) and re-raise exactly one
// of the kinds below; nothing else reaches callers.
package faults

import "errors"

// Kind sentinels. Callers match with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrNotFound           = errors.New("not found")
	ErrValidationFailed   = errors.New("validation failed")
)

var kinds = []error{
	ErrInvalidCredentials,
	ErrUserAlreadyExists,
	ErrEmailNotVerified,
	ErrServiceUnavailable,
	ErrNotFound,
	ErrValidationFailed,
}

// Fault couples a taxonomy kind with a human-readable message and,
// optionally, the raw underlying error. The raw error is for logging
// only and must never be surfaced to users.
type Fault struct {
	kind  error
	msg   string
	cause error
}

// New returns a Fault of the given kind with a message.
func New(kind error, msg string) error {
	return &Fault{kind: kind, msg: msg}
}

// Wrap returns a Fault of the given kind that retains cause as the
// originating raw error.
func Wrap(kind error, msg string, cause error) error {
	return &Fault{kind: kind, msg: msg, cause: cause}
}

func (f *Fault) Error() string {
	if f.msg != "" {
		return f.msg
	}
	return f.kind.Error()
}

// Unwrap exposes both the kind sentinel and the raw cause, so
// errors.Is(err, faults.ErrNotFound) matches and the cause stays
// reachable for logs.
func (f *Fault) Unwrap() []error {
	if f.cause == nil {
		return []error{f.kind}
	}
	return []error{f.kind, f.cause}
}

// Cause returns the originating raw error, if any.
func (f *Fault) Cause() error {
	return f.cause
}

// Kind returns the taxonomy sentinel matched by err, or nil when err is
// not a taxonomy error.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
