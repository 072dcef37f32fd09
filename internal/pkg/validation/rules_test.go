package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Country  *string `validate:"omitempty,country_code"`
	Password string  `validate:"strong_password"`
	Level    string  `validate:"degree_level"`
}

func TestRules(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	tr, lower := "TR", "tr"

	tests := []struct {
		name  string
		in    sample
		valid bool
	}{
		{"valid", sample{Country: &tr, Password: "secret123", Level: "bachelor"}, true},
		{"no country", sample{Password: "secret123", Level: "Master"}, true},
		{"lower-case country", sample{Country: &lower, Password: "secret123", Level: "bachelor"}, false},
		{"letters only password", sample{Password: "secretpass", Level: "bachelor"}, false},
		{"short password", sample{Password: "ab1", Level: "bachelor"}, false},
		{"unknown level", sample{Password: "secret123", Level: "kindergarten"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestIsStrongPassword(t *testing.T) {
	assert.True(t, IsStrongPassword("abcdefg1"))
	assert.False(t, IsStrongPassword("12345678"))
}
