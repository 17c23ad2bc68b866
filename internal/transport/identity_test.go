package transport_test

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/token"
	"github.com/meridianhq/authcore/internal/transport"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type fakeValidator struct {
	claims *token.Claims
	err    error
}

func (f *fakeValidator) Validate(ctx context.Context, tokenString string) (*token.Claims, error) {
	return f.claims, f.err
}

func TestIdentityServerInterceptor_RejectsMissingBearer(t *testing.T) {
	interceptor := transport.IdentityServerInterceptor(&fakeValidator{})
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler should not run without a valid bearer token")
		return nil, nil
	})
	require.Error(t, err)
}

func TestIdentityServerInterceptor_PopulatesIdentityFromRevalidatedClaims(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	claims := &token.Claims{
		TenantID: tenantID,
		Email:    "user@example.com",
		Roles:    []string{"user"},
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()},
	}
	interceptor := transport.IdentityServerInterceptor(&fakeValidator{claims: claims})

	md := metadata.Pairs("authorization", "Bearer some-token")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	var seen transport.Identity
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req interface{}) (interface{}, error) {
		var ok bool
		seen, ok = transport.FromContext(ctx)
		require.True(t, ok)
		return nil, nil
	})
	require.NoError(t, err)
	require.Equal(t, userID, seen.UserID)
	require.Equal(t, tenantID, seen.TenantID)
	require.Equal(t, "user@example.com", seen.Email)
}

func TestIdentityClientInterceptor_AttachesOutgoingToken(t *testing.T) {
	ctx := transport.WithOutgoingIdentity(context.Background(), "abc123")
	var captured context.Context
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		captured = ctx
		return nil
	}
	err := transport.IdentityClientInterceptor(ctx, "/svc/Method", nil, nil, nil, invoker)
	require.NoError(t, err)

	md, ok := metadata.FromOutgoingContext(captured)
	require.True(t, ok)
	require.Equal(t, []string{"Bearer abc123"}, md.Get("authorization"))
}
