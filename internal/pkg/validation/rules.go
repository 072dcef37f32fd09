// Package validation registers the request binding rules shared by the DTOs.
package validation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Rule tags usable in `binding:"..."` struct tags
const (
	TagCountryCode = "country_code"
	TagPassword    = "strong_password"
	TagDegreeLevel = "degree_level"
)

// Validation rule patterns
var (
	// ISO 3166-1 alpha-2
	CountryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

	PasswordMinLength = 8

	DegreeLevels = []string{"high_school", "bachelor", "master", "doctorate", "diploma"}
)

// CountryCode accepts two upper-case letters
func CountryCode(fl validator.FieldLevel) bool {
	return CountryCodePattern.MatchString(fl.Field().String())
}

// StrongPassword requires the minimum length and a mix of letters and digits
func StrongPassword(fl validator.FieldLevel) bool {
	return IsStrongPassword(fl.Field().String())
}

// IsStrongPassword is StrongPassword outside of struct validation
func IsStrongPassword(password string) bool {
	if len(password) < PasswordMinLength {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// DegreeLevel accepts one of DegreeLevels, case-insensitively
func DegreeLevel(fl validator.FieldLevel) bool {
	v := strings.ToLower(strings.TrimSpace(fl.Field().String()))
	for _, level := range DegreeLevels {
		if v == level {
			return true
		}
	}
	return false
}

// Register adds the custom rules to v
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		TagCountryCode: CountryCode,
		TagPassword:    StrongPassword,
		TagDegreeLevel: DegreeLevel,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// RegisterWithGin adds the custom rules to gin's default binding validator
func RegisterWithGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return Register(v)
}
