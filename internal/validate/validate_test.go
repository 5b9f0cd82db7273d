package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versebook/versebook/internal/domain"
)

var userRules = []Rule{
	{Field: "name", Kind: KindName, Required: true},
	{Field: "age", Kind: KindAge, Required: true},
	{Field: "contact", Kind: KindContact, Required: true},
	{Field: "city", Kind: KindText, Required: true},
	{Field: "email", Kind: KindEmail, Required: true},
}

func validUser() domain.Document {
	return domain.Document{
		"name":    "Ada Lovelace",
		"age":     float64(36),
		"contact": "9876543210",
		"city":    "London",
		"email":   "ada@example.com",
	}
}

func TestPayloadValid(t *testing.T) {
	require.NoError(t, Payload(validUser(), userRules, false))
}

func TestPayloadMissingRequiredField(t *testing.T) {
	payload := validUser()
	delete(payload, "email")

	err := Payload(payload, userRules, false)
	require.Error(t, err)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "email", vErr.Field)
}

func TestPayloadFirstViolationWins(t *testing.T) {
	payload := validUser()
	payload["name"] = "Ada 2.0"
	payload["email"] = "not-an-email"

	err := Payload(payload, userRules, false)
	require.Error(t, err)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Field, "rules are checked in declaration order")
}

func TestPayloadPartialSkipsAbsentFields(t *testing.T) {
	payload := domain.Document{"age": float64(37)}
	require.NoError(t, Payload(payload, userRules, true))
}

func TestPayloadPartialStillChecksPresentFields(t *testing.T) {
	payload := domain.Document{"age": float64(200)}

	err := Payload(payload, userRules, true)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "age", vErr.Field)
}

func TestPayloadRejectsNullRequiredFields(t *testing.T) {
	// A null merges as a field deletion, so required fields refuse it
	// in both full and partial validation.
	payload := validUser()
	payload["email"] = nil

	for _, partial := range []bool{false, true} {
		err := Payload(payload, userRules, partial)
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "email", vErr.Field)
	}
}

func TestPayloadAllowsNullOptionalFields(t *testing.T) {
	rules := []Rule{
		{Field: "title", Kind: KindText, Required: true},
		{Field: "description", Kind: KindText},
	}
	payload := domain.Document{"description": nil}
	require.NoError(t, Payload(payload, rules, true))
}

func TestPayloadWrapsBadRequest(t *testing.T) {
	payload := validUser()
	payload["contact"] = "123"

	err := Payload(payload, userRules, false)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCheckFieldKinds(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		value   any
		wantErr bool
	}{
		{"name with letters and spaces", Rule{Field: "name", Kind: KindName}, "Mary Shelley", false},
		{"name with digits", Rule{Field: "name", Kind: KindName}, "Mary 2", true},
		{"name not a string", Rule{Field: "name", Kind: KindName}, 42, true},
		{"age lower bound", Rule{Field: "age", Kind: KindAge}, float64(1), false},
		{"age upper bound", Rule{Field: "age", Kind: KindAge}, float64(150), false},
		{"age zero", Rule{Field: "age", Kind: KindAge}, float64(0), true},
		{"age too large", Rule{Field: "age", Kind: KindAge}, float64(151), true},
		{"age as string", Rule{Field: "age", Kind: KindAge}, "36", true},
		{"contact string of ten digits", Rule{Field: "contact", Kind: KindContact}, "0123456789", false},
		{"contact unquoted number", Rule{Field: "contact", Kind: KindContact}, float64(9876543210), false},
		{"contact nine digits", Rule{Field: "contact", Kind: KindContact}, "012345678", true},
		{"contact with letters", Rule{Field: "contact", Kind: KindContact}, "01234abcde", true},
		{"email basic shape", Rule{Field: "email", Kind: KindEmail}, "a@b.co", false},
		{"email no domain dot", Rule{Field: "email", Kind: KindEmail}, "a@bco", true},
		{"email with spaces", Rule{Field: "email", Kind: KindEmail}, "a b@c.co", true},
		{"url http", Rule{Field: "url", Kind: KindURL}, "http://example.com/x", false},
		{"url https", Rule{Field: "url", Kind: KindURL}, "https://example.com", false},
		{"url other scheme", Rule{Field: "url", Kind: KindURL}, "ftp://example.com", true},
		{"text non-empty", Rule{Field: "city", Kind: KindText}, "Pune", false},
		{"text whitespace only", Rule{Field: "city", Kind: KindText}, "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkField(tt.rule, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
