// Package identity implements user accounts: password rules, hashing, role
// membership and the built-in roles.
package identity

import (
	"strconv"
	"unicode"

	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/config"
)

// Policy enforces the configured password rules.
type Policy struct {
	config.PasswordPolicy
}

// Check returns a VALIDATION_ERROR listing every rule password breaks.
func (p Policy) Check(password string) error {
	if password == "" {
		return common.ValidationError([]common.FieldError{{Field: "password", Rule: "required"}})
	}
	var digit, lower, upper, other bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case !unicode.IsLetter(r):
			other = true
		}
	}
	var details []common.FieldError
	if p.RequiredLength > 0 && len([]rune(password)) < p.RequiredLength {
		details = append(details, common.FieldError{Field: "password", Rule: "min", Param: strconv.Itoa(p.RequiredLength)})
	}
	if p.RequireDigit && !digit {
		details = append(details, common.FieldError{Field: "password", Rule: "digit"})
	}
	if p.RequireLowercase && !lower {
		details = append(details, common.FieldError{Field: "password", Rule: "lowercase"})
	}
	if p.RequireUppercase && !upper {
		details = append(details, common.FieldError{Field: "password", Rule: "uppercase"})
	}
	if p.RequireNonAlphanumeric && !other {
		details = append(details, common.FieldError{Field: "password", Rule: "nonalphanumeric"})
	}
	if len(details) > 0 {
		return common.ValidationError(details)
	}
	return nil
}
