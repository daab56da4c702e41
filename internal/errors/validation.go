package errors

import (
	"net/http"
	"strings"
)

// FieldViolation describes a single invalid field in a submitted filter.
type FieldViolation struct {
	// Field is the dotted path of the offending field, e.g. "white_elo".
	Field string `json:"field"`
	// Reason is a short human-readable explanation.
	Reason string `json:"reason"`
}

// ValidationErrors aggregates every violated field of a request. Validation
// never short-circuits: callers collect all violations and surface them as a
// single rejection so the user can correct everything at once.
type ValidationErrors struct {
	Violations []FieldViolation `json:"violations"`
}

// Add records one violation. A nil receiver is not supported; construct with
// new(ValidationErrors) or a literal.
func (v *ValidationErrors) Add(field, reason string) {
	v.Violations = append(v.Violations, FieldViolation{Field: field, Reason: reason})
}

// Empty reports whether no violations were collected.
func (v *ValidationErrors) Empty() bool {
	return v == nil || len(v.Violations) == 0
}

// AsError returns nil when no violations were collected, otherwise the
// receiver itself, so it can be used as the single return value of Validate.
func (v *ValidationErrors) AsError() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	parts := make([]string, 0, len(v.Violations))
	for _, f := range v.Violations {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ToAppError renders the collected violations as a 400 AppError with one
// detail entry per field.
func (v *ValidationErrors) ToAppError() *AppError {
	details := make(map[string]interface{}, len(v.Violations))
	for _, f := range v.Violations {
		details[f.Field] = f.Reason
	}
	return &AppError{
		HTTPStatusCode: http.StatusBadRequest,
		Code:           CodeInvalidFilter,
		Message:        "filter validation failed",
		Details:        details,
	}
}
