// Package oauth exchanges OAuth authorization codes with Casdoor.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
)

// ErrNotConfigured is returned when no Casdoor endpoint is set
var ErrNotConfigured = errors.New("oauth provider not configured")

// Config holds the Casdoor application settings
type Config struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Certificate  string
	Organization string
	Application  string
	RedirectURL  string
}

// Profile is the identity the provider vouched for
type Profile struct {
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
	Role       string
}

// CasdoorExchanger trades a code for a token and reads the user from its claims
type CasdoorExchanger struct {
	client      *casdoorsdk.Client
	redirectURL string
}

// NewCasdoorExchanger creates a Casdoor client from cfg
func NewCasdoorExchanger(cfg Config) *CasdoorExchanger {
	return &CasdoorExchanger{
		client: casdoorsdk.NewClient(
			cfg.Endpoint,
			cfg.ClientID,
			cfg.ClientSecret,
			cfg.Certificate,
			cfg.Organization,
			cfg.Application,
		),
		redirectURL: cfg.RedirectURL,
	}
}

// AuthorizeURL is where the browser starts the OAuth flow
func (e *CasdoorExchanger) AuthorizeURL() string {
	return e.client.GetSigninUrl(e.redirectURL)
}

// Exchange redeems code. The SDK call is not cancellable, so ctx is only checked
// before it starts.
func (e *CasdoorExchanger) Exchange(ctx context.Context, code string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	token, err := e.client.GetOAuthToken(code, "")
	if err != nil {
		return nil, fmt.Errorf("casdoor token exchange failed: %w", err)
	}
	claims, err := e.client.ParseJwtToken(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("casdoor token parse failed: %w", err)
	}

	u := claims.User
	first, last := u.FirstName, u.LastName
	if first == "" && last == "" {
		first, last = splitName(u.DisplayName)
	}
	return &Profile{
		ExternalID: u.Id,
		Email:      strings.ToLower(u.Email),
		FirstName:  first,
		LastName:   last,
		Role:       u.Properties["role"],
	}, nil
}

func splitName(display string) (string, string) {
	parts := strings.Fields(display)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}
