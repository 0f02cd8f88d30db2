package identity

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

const MinPasswordLength = 6

// NormalizeEmail trims and lower-cases a bare address and rejects
// anything that is not one.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", common.ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", fmt.Errorf("%w: invalid email address", common.ErrValidation)
	}
	return email, nil
}

// ValidatePassword requires MinPasswordLength characters with at least one
// lower-case letter, upper-case letter, digit and symbol.
func ValidatePassword(p string) error {
	var problems []string

	if len([]rune(p)) < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("at least %d characters", MinPasswordLength))
	}

	var lower, upper, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			symbol = true
		}
	}
	if !lower {
		problems = append(problems, "a lower-case letter")
	}
	if !upper {
		problems = append(problems, "an upper-case letter")
	}
	if !digit {
		problems = append(problems, "a digit")
	}
	if !symbol {
		problems = append(problems, "a non-alphanumeric character")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: password must contain %s", common.ErrValidation, strings.Join(problems, ", "))
	}
	return nil
}
