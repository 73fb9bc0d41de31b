package service

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	minNameLength            = 2
	maxNameLength            = 100
	maxSpecialRequestsLength = 500
)

// Field messages shown next to the offending form input.
const (
	msgNameTooShort    = "Name must be at least 2 characters."
	msgNameTooLong     = "Name must not exceed 100 characters."
	msgInvalidEmail    = "Please enter a valid email address."
	msgRequestsTooLong = "Requests must not exceed 500 characters."
)

// emailRegex accepts dot-separated local parts of [A-Za-z0-9_'+-] whose last
// character is not an apostrophe, followed by one or more domain labels and an
// alphabetic TLD of at least two letters.
var emailRegex = regexp.MustCompile(
	`^([A-Za-z0-9_'+-]+\.)*[A-Za-z0-9_'+-]*[A-Za-z0-9_+-]@([A-Za-z0-9][A-Za-z0-9-]*\.)+[A-Za-z]{2,}$`,
)

// ValidationError lists every field that failed validation.
// It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

// Is reports whether target is ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ValidRSVP is a normalized, accepted RSVP payload.
type ValidRSVP struct {
	Name            string
	Email           string
	SpecialRequests *string
}

// ValidateRSVP trims the input and checks it against the RSVP rules.
// Blank special requests normalize to nil.
func ValidateRSVP(input CreateRSVPInput) (ValidRSVP, error) {
	out := ValidRSVP{
		Name:  strings.TrimSpace(input.Name),
		Email: strings.TrimSpace(input.Email),
	}
	fields := make(map[string]string)

	switch n := utf8.RuneCountInString(out.Name); {
	case n < minNameLength:
		fields["name"] = msgNameTooShort
	case n > maxNameLength:
		fields["name"] = msgNameTooLong
	}

	if !IsValidEmail(out.Email) {
		fields["email"] = msgInvalidEmail
	}

	if input.SpecialRequests != nil {
		requests := strings.TrimSpace(*input.SpecialRequests)
		if utf8.RuneCountInString(requests) > maxSpecialRequestsLength {
			fields["special_requests"] = msgRequestsTooLong
		} else if requests != "" {
			out.SpecialRequests = &requests
		}
	}

	if len(fields) > 0 {
		return ValidRSVP{}, &ValidationError{Fields: fields}
	}
	return out, nil
}

// IsValidEmail reports whether email has standard address syntax.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
