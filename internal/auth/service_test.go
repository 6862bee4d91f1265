package auth

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoles map[string]bool

func (f fakeRoles) IsAdmin(_ context.Context, uid string) (bool, error) {
	if uid == "broken" {
		return false, errors.New("store offline")
	}
	return f[uid], nil
}

func newTestService() *Service {
	verifier := StaticVerifier{
		"admin-token":  {UID: "u-admin", Email: "owner@example.com"},
		"sales-token":  {UID: "u-sales"},
		"broken-token": {UID: "broken"},
	}
	return NewService(verifier, fakeRoles{"u-admin": true}, zerolog.New(io.Discard))
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer   abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer  ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			token, ok := BearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, err := svc.RequireAdmin(ctx, "Bearer admin-token")
	require.NoError(t, err)
	assert.Equal(t, "u-admin", p.UID)
	assert.True(t, p.Admin)

	_, err = svc.RequireAdmin(ctx, "Bearer sales-token")
	var ade *AccessDeniedError
	require.ErrorAs(t, err, &ade)
	assert.False(t, ade.Unauthenticated)

	_, err = svc.RequireAdmin(ctx, "Bearer forged")
	require.ErrorAs(t, err, &ade)
	assert.True(t, ade.Unauthenticated)

	_, err = svc.RequireAdmin(ctx, "")
	assert.True(t, IsAccessDenied(err))

	_, err = svc.RequireAdmin(ctx, "Bearer broken-token")
	require.Error(t, err)
	assert.False(t, IsAccessDenied(err))
}

func TestPrincipalContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), &Principal{UID: "u1"})
	p, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", p.UID)
}
