// Package validate provides pure, stateless field validation for record
// payloads. Rules are declared per resource and checked in order; the first
// violation is reported as a domain.ValidationError.
package validate

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/versebook/versebook/internal/domain"
)

// Kind selects the format check applied to a field value.
type Kind int

const (
	// KindText accepts any non-empty string (after trimming).
	KindText Kind = iota

	// KindName accepts letters and spaces only.
	KindName

	// KindAge accepts a number in the inclusive range [1, 150].
	KindAge

	// KindContact accepts exactly 10 digits.
	KindContact

	// KindEmail accepts a basic local@domain.tld shape.
	KindEmail

	// KindURL accepts a non-empty http(s) URL.
	KindURL
)

// Rule binds a payload field to a format check.
type Rule struct {
	Field    string
	Kind     Kind
	Required bool
}

var (
	nameRegex    = regexp.MustCompile(`^[A-Za-z\s]+$`)
	contactRegex = regexp.MustCompile(`^[0-9]{10}$`)
	emailRegex   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	urlRegex     = regexp.MustCompile(`^https?://\S+$`)
)

// Payload checks a payload against the rules and returns the first
// violation. With partial set, absent fields are neither required nor
// validated; present fields always follow their rule. An explicit null is
// rejected for required fields, since a merge would strip the field from
// the record; null on an optional field clears it.
func Payload(payload domain.Document, rules []Rule, partial bool) error {
	for _, r := range rules {
		v, present := payload[r.Field]
		if !present {
			if !partial && r.Required {
				return domain.NewValidationError(r.Field, "is required")
			}
			continue
		}
		if v == nil {
			if r.Required {
				return domain.NewValidationError(r.Field, "cannot be null")
			}
			continue
		}
		if err := checkField(r, v); err != nil {
			return err
		}
	}
	return nil
}

func checkField(r Rule, v any) error {
	switch r.Kind {
	case KindName:
		s, ok := trimmedString(v)
		if !ok || s == "" {
			return domain.NewValidationError(r.Field, "is required")
		}
		if !nameRegex.MatchString(s) {
			return domain.NewValidationError(r.Field, "must contain only letters and spaces")
		}
	case KindAge:
		n, ok := numeric(v)
		if !ok || n < 1 || n > 150 {
			return domain.NewValidationError(r.Field, "must be a valid number between 1 and 150")
		}
	case KindContact:
		s := stringify(v)
		if !contactRegex.MatchString(s) {
			return domain.NewValidationError(r.Field, "must be a valid 10-digit number")
		}
	case KindEmail:
		s, ok := trimmedString(v)
		if !ok || !emailRegex.MatchString(s) {
			return domain.NewValidationError(r.Field, "must be a valid email address")
		}
	case KindURL:
		s, ok := trimmedString(v)
		if !ok || !urlRegex.MatchString(s) {
			return domain.NewValidationError(r.Field, "must be a valid http(s) URL")
		}
	default:
		s, ok := trimmedString(v)
		if !ok || s == "" {
			return domain.NewValidationError(r.Field, "must be a non-empty string")
		}
	}
	return nil
}

// trimmedString returns the value as a trimmed string if it is one.
func trimmedString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// stringify renders string or numeric values for pattern checks.
// JSON decoding yields float64 for contact numbers sent unquoted.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return ""
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// numeric extracts a number from the value types JSON decoding produces.
func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
