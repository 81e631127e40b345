package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	periodRegex   = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Validator collects field errors
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records message for field unless the field already has one.
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Err returns the collected errors as an *Error, or nil when valid.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	return &Error{Fields: v.Errors}
}

// Email validates email format
func (v *Validator) Email(field, email string) {
	v.Check(emailRegex.MatchString(email), field, "must be a valid email address")
}

// Required checks if a value is not empty
func (v *Validator) Required(field string, value interface{}) {
	if value == nil {
		v.AddError(field, "must not be nil")
		return
	}

	switch val := value.(type) {
	case string:
		trimmed := strings.TrimSpace(val)
		v.Check(trimmed != "", field, "must not be empty")
	case []string:
		v.Check(len(val) > 0, field, "must contain at least one item")
	case float64:
		v.Check(val != 0, field, "must not be zero")
	case int:
		v.Check(val != 0, field, "must not be zero")
	case uint:
		v.Check(val != 0, field, "must not be zero")
	}
}

// MinLength checks if a string has at least n characters
func (v *Validator) MinLength(field string, value string, n int) {
	v.Check(len(value) >= n, field, fmt.Sprintf("must be at least %d characters long", n))
}

// MaxLength checks if a string has at most n characters
func (v *Validator) MaxLength(field string, value string, n int) {
	v.Check(len(value) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// Range checks if a number is between min and max
func (v *Validator) Range(field string, value float64, min, max float64) {
	v.Check(value >= min && value <= max, field, fmt.Sprintf("must be between %v and %v", min, max))
}

func (v *Validator) NonNegative(field string, value float64) {
	v.Check(value >= 0, field, "must not be negative")
}

// PeriodMonth checks a YYYY-MM period.
func (v *Validator) PeriodMonth(field, value string) {
	v.Check(IsPeriodMonth(value), field, "must be a period in YYYY-MM format")
}

// Date checks an optional YYYY-MM-DD date. Empty values pass.
func (v *Validator) Date(field, value string) {
	if value == "" {
		return
	}
	v.Check(IsDate(value), field, "must be a date in YYYY-MM-DD format")
}

// Currency checks a three letter upper-case ISO 4217 code.
func (v *Validator) Currency(field, value string) {
	v.Check(IsCurrency(value), field, "must be a 3-letter ISO currency code")
}

// OneOf checks that value is one of allowed. Empty values pass.
func (v *Validator) OneOf(field, value string, allowed ...string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field, "must be one of: "+strings.Join(allowed, ", "))
}

// Password validates password strength
func (v *Validator) Password(field, password string) {
	v.MinLength(field, password, MinPasswordLength)
	v.MaxLength(field, password, MaxPasswordLength)

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	v.Check(hasUpper, field, "must contain at least one uppercase letter")
	v.Check(hasLower, field, "must contain at least one lowercase letter")
	v.Check(hasNumber, field, "must contain at least one number")
	v.Check(hasSpecial, field, "must contain at least one special character")
}

func IsPeriodMonth(s string) bool {
	return periodRegex.MatchString(s)
}

func IsDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func IsCurrency(s string) bool {
	return currencyRegex.MatchString(s)
}

// Error is returned by Validator.Err.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}
