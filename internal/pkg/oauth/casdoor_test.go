package oauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		in          string
		first, last string
	}{
		{"", "", ""},
		{"Ada", "Ada", ""},
		{"Ada Lovelace", "Ada", "Lovelace"},
		{"Mary Ann  Evans", "Mary Ann", "Evans"},
	}
	for _, tt := range tests {
		first, last := splitName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}

func TestExchange_CancelledContext(t *testing.T) {
	e := NewCasdoorExchanger(Config{Endpoint: "http://casdoor.invalid"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Exchange(ctx, "abc123")
	assert.ErrorIs(t, err, context.Canceled)
}
