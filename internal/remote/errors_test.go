package remote

import (
	"errors"
	"testing"

	"spendio/internal/faults"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"already taxonomy", faults.New(faults.ErrNotFound, "gone"), faults.ErrNotFound},
		{"transport failure", errors.New("dial tcp: connection refused"), faults.ErrServiceUnavailable},
		{"server error", &APIError{Status: 500}, faults.ErrServiceUnavailable},
		{"gateway error", &APIError{Status: 502, Message: "bad gateway"}, faults.ErrServiceUnavailable},
		{"duplicate account code", &APIError{Status: 422, Code: "user_already_exists"}, faults.ErrUserAlreadyExists},
		{"duplicate account message", &APIError{Status: 400, Message: "A user with this email address has already been registered"}, faults.ErrUserAlreadyExists},
		{"unconfirmed email", &APIError{Status: 400, Code: "email_not_confirmed"}, faults.ErrEmailNotVerified},
		{"bad credentials code", &APIError{Status: 400, Code: "invalid_credentials"}, faults.ErrInvalidCredentials},
		{"bad credentials message", &APIError{Status: 400, Message: "Invalid login credentials"}, faults.ErrInvalidCredentials},
		{"bad email address", &APIError{Status: 400, Message: "Unable to validate email address: invalid format"}, faults.ErrValidationFailed},
		{"unprocessable", &APIError{Status: 422, Message: "Signup requires a valid password"}, faults.ErrValidationFailed},
		{"singular row missing", &APIError{Status: 406, Code: "PGRST116"}, faults.ErrNotFound},
		{"row security rejection", &APIError{Status: 403, Code: "42501"}, faults.ErrNotFound},
		{"unique violation", &APIError{Status: 409, Code: "23505"}, faults.ErrValidationFailed},
		{"not null violation", &APIError{Status: 400, Code: "23502"}, faults.ErrValidationFailed},
		{"expired token", &APIError{Status: 401, Message: "JWT expired"}, faults.ErrInvalidCredentials},
		{"forbidden", &APIError{Status: 403, Message: "insufficient privileges"}, faults.ErrInvalidCredentials},
		{"missing endpoint", &APIError{Status: 404}, faults.ErrNotFound},
		{"other client error", &APIError{Status: 400, Code: "user_not_found", Message: "User not found"}, faults.ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(tt.err)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("normalize() = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Fatalf("normalize() = %v, want kind %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeKeepsCauseForLogs(t *testing.T) {
	api := &APIError{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"}
	err := normalize(api)

	var fault *faults.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("expected a *Fault, got %T", err)
	}
	if !errors.Is(fault.Cause(), api) {
		t.Fatalf("cause = %v, want the raw API error", fault.Cause())
	}
}

func TestParseContentRangeTotal(t *testing.T) {
	tests := []struct {
		header  string
		want    int
		wantErr bool
	}{
		{"0-9/42", 42, false},
		{"*/0", 0, false},
		{"10-11/3", 3, false},
		{"", 0, true},
		{"0-9", 0, true},
		{"0-9/*", 0, true},
		{"0-9/many", 0, true},
	}
	for _, tt := range tests {
		got, err := parseContentRangeTotal(tt.header)
		if (err != nil) != tt.wantErr {
			t.Fatalf("header %q: error = %v, wantErr %v", tt.header, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("header %q: total = %d, want %d", tt.header, got, tt.want)
		}
	}
}
