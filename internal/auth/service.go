// Package auth verifies back-office callers and checks their admin role.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/rs/zerolog"
)

// Principal is an authenticated caller.
type Principal struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
	Admin bool   `json:"admin"`
}

// TokenVerifier turns a bearer token into a principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// RoleChecker answers whether a uid may use the back office.
type RoleChecker interface {
	IsAdmin(ctx context.Context, uid string) (bool, error)
}

// AccessDeniedError is returned when a caller is not let in. Unauthenticated
// distinguishes a missing or bad token from a valid caller lacking the role.
type AccessDeniedError struct {
	Reason          string
	Unauthenticated bool
}

func (e *AccessDeniedError) Error() string {
	return e.Reason
}

// IsAccessDenied checks if error is access denied.
func IsAccessDenied(err error) bool {
	var ade *AccessDeniedError
	return errors.As(err, &ade)
}

// Service implements bearer authentication plus the admin role check.
type Service struct {
	verifier TokenVerifier
	roles    RoleChecker
	logger   zerolog.Logger
}

func NewService(verifier TokenVerifier, roles RoleChecker, logger zerolog.Logger) *Service {
	return &Service{
		verifier: verifier,
		roles:    roles,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate verifies the Authorization header value.
func (s *Service) Authenticate(ctx context.Context, header string) (*Principal, error) {
	token, ok := BearerToken(header)
	if !ok {
		return nil, &AccessDeniedError{Reason: "missing bearer token", Unauthenticated: true}
	}
	p, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.logger.Debug().Err(err).Msg("token rejected")
		return nil, &AccessDeniedError{Reason: "invalid or expired token", Unauthenticated: true}
	}
	return p, nil
}

// RequireAdmin authenticates the caller and checks the admin role.
func (s *Service) RequireAdmin(ctx context.Context, header string) (*Principal, error) {
	p, err := s.Authenticate(ctx, header)
	if err != nil {
		return nil, err
	}
	isAdmin, err := s.roles.IsAdmin(ctx, p.UID)
	if err != nil {
		return nil, fmt.Errorf("checking admin role: %w", err)
	}
	if !isAdmin {
		s.logger.Warn().Str("uid", p.UID).Str("email", p.Email).Msg("admin access denied")
		return nil, &AccessDeniedError{Reason: "admin role required"}
	}
	p.Admin = true
	return p, nil
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// FirebaseVerifier checks Firebase ID tokens.
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	t, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}
	p := &Principal{UID: t.UID}
	if email, ok := t.Claims["email"].(string); ok {
		p.Email = email
	}
	return p, nil
}

// StaticVerifier accepts a fixed token to uid mapping. Used for local runs without
// Firebase credentials.
type StaticVerifier map[string]Principal

var errUnknownToken = errors.New("unknown token")

func (v StaticVerifier) Verify(_ context.Context, token string) (*Principal, error) {
	p, ok := v[token]
	if !ok {
		return nil, errUnknownToken
	}
	return &p, nil
}
