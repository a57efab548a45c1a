package remote

import (
	"errors"
	"strings"

	"spendio/internal/faults"
)

// normalize maps a raw backend failure onto the error taxonomy. This is
// the only place that knows the provider's error codes and message
// strings; everything else matches taxonomy kinds. The discriminating
// signals here follow the provider's current API and may drift across
// provider versions, which is why no caller depends on them directly.
func normalize(err error) error {
	if err == nil {
		return nil
	}
	if faults.Kind(err) != nil {
		return err
	}

	var api *APIError
	if !errors.As(err, &api) {
		// Transport failure: timeout, connection refused, DNS, etc.
		return faults.Wrap(faults.ErrServiceUnavailable, "backend unreachable", err)
	}

	if api.Status >= 500 {
		return faults.Wrap(faults.ErrServiceUnavailable, "backend error", api)
	}

	msg := strings.ToLower(api.Message)
	switch {
	case api.Code == "user_already_exists",
		api.Code == "email_exists",
		strings.Contains(msg, "already been registered"),
		strings.Contains(msg, "already registered"):
		return faults.Wrap(faults.ErrUserAlreadyExists, "account already exists", api)

	case api.Code == "email_not_confirmed",
		strings.Contains(msg, "email not confirmed"):
		return faults.Wrap(faults.ErrEmailNotVerified, "email not verified", api)

	case api.Code == "invalid_credentials",
		strings.Contains(msg, "invalid login credentials"):
		return faults.Wrap(faults.ErrInvalidCredentials, "email or password incorrect", api)

	case api.Code == "validation_failed",
		strings.Contains(msg, "unable to validate email address"),
		api.Status == 422:
		return faults.Wrap(faults.ErrValidationFailed, "input rejected by backend", api)

	// Table API: no (or multiple) rows for a singular request.
	case api.Code == "PGRST116":
		return faults.Wrap(faults.ErrNotFound, "row not found", api)

	// Row-level security rejection: an owner-mismatched row presents as
	// absent, never as a permission detail.
	case api.Code == "42501":
		return faults.Wrap(faults.ErrNotFound, "row not found", api)

	// Constraint violations on row writes.
	case api.Code == "23505", api.Code == "23502":
		return faults.Wrap(faults.ErrValidationFailed, "row rejected by backend", api)

	case api.Status == 401, api.Status == 403:
		return faults.Wrap(faults.ErrInvalidCredentials, "not authorized", api)

	case api.Status == 404:
		return faults.Wrap(faults.ErrNotFound, "not found", api)

	// Any other 4xx is something about the request, not an outage.
	case api.Status >= 400:
		return faults.Wrap(faults.ErrValidationFailed, "request rejected by backend", api)
	}

	return faults.Wrap(faults.ErrServiceUnavailable, "unexpected backend error", api)
}
