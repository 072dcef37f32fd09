package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/auth"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/flight"
	"golang.org/x/sync/singleflight"
)

// authParams are read from, and stripped out of, callback URLs
var authParams = []string{"code", "error_description", "access_token", "refresh_token", "expires_in", "token_type"}

// CallbackState is the position of the callback state machine
type CallbackState string

const (
	CallbackIdle           CallbackState = "idle"
	CallbackExchangingCode CallbackState = "exchanging_code"
	CallbackResolved       CallbackState = "resolved"
)

// redeemedTTL is how long an exchanged code keeps answering repeat callbacks
const redeemedTTL = time.Minute

// exchangeTimeout bounds a shared code exchange independently of its callers
const exchangeTimeout = 15 * time.Second

// CallbackParams are the auth parameters found in a callback URL
type CallbackParams struct {
	Code             string
	ErrorDescription string
	AccessToken      string
	RefreshToken     string
	ExpiresIn        string
	TokenType        string
}

// Empty reports whether the URL carried no auth parameters at all
func (p CallbackParams) Empty() bool {
	return p == CallbackParams{}
}

// ParseCallback reads auth parameters from the query and the hash fragment. Query
// values win when both carry the same key.
func ParseCallback(rawURL string) (CallbackParams, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return CallbackParams{}, fmt.Errorf("invalid callback url: %w", err)
	}
	query := u.Query()
	fragment, _ := url.ParseQuery(u.Fragment)

	get := func(key string) string {
		if v := query.Get(key); v != "" {
			return v
		}
		return fragment.Get(key)
	}
	return CallbackParams{
		Code:             get("code"),
		ErrorDescription: get("error_description"),
		AccessToken:      get("access_token"),
		RefreshToken:     get("refresh_token"),
		ExpiresIn:        get("expires_in"),
		TokenType:        get("token_type"),
	}, nil
}

// SanitizeURL removes the auth parameters from query and fragment and keeps
// everything else. An unparseable URL is reduced to "/".
func SanitizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}

	query := u.Query()
	for _, k := range authParams {
		query.Del(k)
	}
	u.RawQuery = query.Encode()

	if u.Fragment != "" {
		if fragment, err := url.ParseQuery(u.Fragment); err == nil && strings.Contains(u.Fragment, "=") {
			for _, k := range authParams {
				fragment.Del(k)
			}
			u.Fragment = fragment.Encode()
			u.RawFragment = ""
		}
	}
	return u.String()
}

// SessionExchanger turns callback credentials into a session
type SessionExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*SessionResult, error)
	AdoptTokens(ctx context.Context, accessToken, refreshToken string) (*SessionResult, error)
}

// RoleSource yields the current resolution of an identity
type RoleSource interface {
	Get(ctx context.Context, identityID uuid.UUID) models.RoleResolution
	Refresh(ctx context.Context, identityID uuid.UUID) models.RoleResolution
}

// CallbackResult is what the client needs after a callback: the URL to put in
// its history, the session when one was established, and where to go next.
type CallbackResult struct {
	SanitizedURL  string
	State         CallbackState
	Session       *SessionResult
	Role          models.Role
	Destination   string
	Redirect      bool
	ProviderError string
}

// RedirectDecision is the result of one redirect evaluation
type RedirectDecision struct {
	Role        models.Role
	Destination string
	Redirect    bool
	// Skipped is set when an evaluation for the same identity was already running
	Skipped bool
}

// AuthRedirectService runs the callback state machine and role-based redirects
type AuthRedirectService struct {
	sessions SessionExchanger
	roles    RoleSource
	policy   *RedirectPolicy
	logger   zerolog.Logger

	exchanges  singleflight.Group
	evaluating *flight.Guard

	mu       sync.Mutex
	redeemed map[string]redeemedCode
	now      func() time.Time
}

type redeemedCode struct {
	result  *SessionResult
	expires time.Time
}

// NewAuthRedirectService creates a new AuthRedirectService
func NewAuthRedirectService(sessions SessionExchanger, roles RoleSource, policy *RedirectPolicy, logger zerolog.Logger) *AuthRedirectService {
	return &AuthRedirectService{
		sessions:   sessions,
		roles:      roles,
		policy:     policy,
		logger:     logger.With().Str("component", "auth_redirect").Logger(),
		evaluating: flight.NewGuard(),
		redeemed:   make(map[string]redeemedCode),
		now:        time.Now,
	}
}

// HandleCallback processes a redirect URL. A code is exchanged at most once, no
// matter how many callers present it concurrently or shortly after each other.
// The sanitized URL is returned on success and on failure.
func (s *AuthRedirectService) HandleCallback(ctx context.Context, rawURL string) (*CallbackResult, error) {
	result := &CallbackResult{SanitizedURL: SanitizeURL(rawURL), State: CallbackIdle}

	params, err := ParseCallback(rawURL)
	if err != nil {
		return result, err
	}
	if params.Empty() {
		return result, nil
	}

	var session *SessionResult
	switch {
	case params.Code != "":
		result.State = CallbackExchangingCode
		session, err = s.exchangeOnce(ctx, params.Code)
	case params.AccessToken != "":
		result.State = CallbackExchangingCode
		session, err = s.sessions.AdoptTokens(ctx, params.AccessToken, params.RefreshToken)
	default:
		result.ProviderError = params.ErrorDescription
		s.logger.Warn().Str("error_description", params.ErrorDescription).Msg("Auth provider returned an error")
		return result, nil
	}
	if err != nil {
		result.State = CallbackIdle
		s.logger.Error().Err(err).Msg("Auth callback exchange failed")
		return result, err
	}

	res := s.roles.Refresh(ctx, session.Identity.ID)
	path := pathOf(result.SanitizedURL)
	result.Session = session
	result.Role = res.Role
	result.Destination, result.Redirect = s.policy.Destination(res, path)
	result.State = CallbackResolved
	return result, nil
}

// exchangeOnce redeems code at most once across concurrent callbacks. The shared
// exchange runs on a context detached from the caller that started it, so a
// cancelled request only gives up its own wait.
func (s *AuthRedirectService) exchangeOnce(ctx context.Context, code string) (*SessionResult, error) {
	ch := s.exchanges.DoChan(code, func() (interface{}, error) {
		if r, ok := s.lookupRedeemed(code); ok {
			return r, nil
		}
		exchangeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exchangeTimeout)
		defer cancel()
		r, err := s.sessions.ExchangeCode(exchangeCtx, code)
		if err != nil {
			return nil, err
		}
		s.remember(code, r)
		return r, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*SessionResult), nil
	}
}

func (s *AuthRedirectService) lookupRedeemed(code string) (*SessionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, r := range s.redeemed {
		if now.After(r.expires) {
			delete(s.redeemed, k)
		}
	}
	r, ok := s.redeemed[code]
	return r.result, ok
}

func (s *AuthRedirectService) remember(code string, r *SessionResult) {
	s.mu.Lock()
	s.redeemed[code] = redeemedCode{result: r, expires: s.now().Add(redeemedTTL)}
	s.mu.Unlock()
}

// EvaluateRedirect resolves the identity's role and computes where it belongs.
// Only one evaluation per identity runs at a time; an overlapping call is dropped
// and reports Skipped.
func (s *AuthRedirectService) EvaluateRedirect(ctx context.Context, identityID uuid.UUID, currentPath string) RedirectDecision {
	if identityID == uuid.Nil {
		dest, redirect := s.policy.Destination(models.NoIdentity(), currentPath)
		return RedirectDecision{Role: models.RoleNone, Destination: dest, Redirect: redirect}
	}

	var decision RedirectDecision
	ran := s.evaluating.TryRun(identityID.String(), func() {
		res := s.roles.Get(ctx, identityID)
		decision.Role = res.Role
		decision.Destination, decision.Redirect = s.policy.Destination(res, currentPath)
	})
	if !ran {
		return RedirectDecision{Skipped: true}
	}
	return decision
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// SessionResult is an established session with the identity it belongs to
type SessionResult struct {
	Identity  *models.Identity
	SessionID uuid.UUID
	Tokens    *auth.TokenPair
}
