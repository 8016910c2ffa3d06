package service

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apikeydomain "github.com/brightclass/insight/internal/apikey/domain"
	"github.com/brightclass/insight/internal/apikey/repository"
	"github.com/brightclass/insight/internal/tenantcontext"
	"github.com/brightclass/insight/pkg/db"
)

func setupKeyService(t *testing.T) apikeydomain.Service {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&apikeydomain.APIKey{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func tenantCtx(tenantID int64) context.Context {
	return tenantcontext.WithTenantID(context.Background(), snowflake.ID(tenantID))
}

func TestCreateAndAuthenticate(t *testing.T) {
	svc := setupKeyService(t)
	ctx := tenantCtx(42)

	secret, err := svc.Create(ctx, apikeydomain.CreateRequest{
		Name:   "ingest",
		Scopes: []string{apikeydomain.ScopeEventsWrite},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(secret.APIKey, "ik_live_key_"))
	require.NotEmpty(t, secret.KeyID)

	key, err := svc.Authenticate(context.Background(), secret.APIKey)
	require.NoError(t, err)
	require.EqualValues(t, 42, key.TenantID)
	require.True(t, key.HasScope(apikeydomain.ScopeEventsWrite))
	require.False(t, key.HasScope(apikeydomain.ScopeAnalyticsRead))

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "ingest", items[0].Name)
	// The raw secret is never stored.
	require.NotContains(t, items[0].Scopes, secret.APIKey)
}

func TestCreateValidation(t *testing.T) {
	svc := setupKeyService(t)

	_, err := svc.Create(tenantCtx(42), apikeydomain.CreateRequest{Name: "  "})
	require.ErrorIs(t, err, apikeydomain.ErrInvalidName)

	_, err = svc.Create(tenantCtx(42), apikeydomain.CreateRequest{
		Name:   "bad scopes",
		Scopes: []string{"admin:everything"},
	})
	require.ErrorIs(t, err, apikeydomain.ErrInvalidScope)

	_, err = svc.Create(context.Background(), apikeydomain.CreateRequest{Name: "no tenant"})
	require.ErrorIs(t, err, apikeydomain.ErrInvalidTenant)
}

func TestCreateDefaultsToEventsWrite(t *testing.T) {
	svc := setupKeyService(t)

	secret, err := svc.Create(tenantCtx(7), apikeydomain.CreateRequest{Name: "default"})
	require.NoError(t, err)

	key, err := svc.Authenticate(context.Background(), secret.APIKey)
	require.NoError(t, err)
	require.True(t, key.HasScope(apikeydomain.ScopeEventsWrite))
}

func TestRotateKeepsOldKeyDuringGrace(t *testing.T) {
	svc := setupKeyService(t)
	ctx := tenantCtx(42)

	original, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "ingest"})
	require.NoError(t, err)

	rotated, err := svc.Rotate(ctx, original.KeyID)
	require.NoError(t, err)
	require.NotEqual(t, original.KeyID, rotated.KeyID)

	// Both keys resolve while the grace period runs.
	oldKey, err := svc.Authenticate(context.Background(), original.APIKey)
	require.NoError(t, err)
	require.NotNil(t, oldKey.ExpiresAt)

	newKey, err := svc.Authenticate(context.Background(), rotated.APIKey)
	require.NoError(t, err)
	require.Nil(t, newKey.ExpiresAt)
	require.NotNil(t, newKey.RotatedFromKeyID)
	require.Equal(t, original.KeyID, *newKey.RotatedFromKeyID)

	// Rotating an already rotated key fails once it was revoked.
	require.NoError(t, svc.Revoke(ctx, original.KeyID))
	_, err = svc.Rotate(ctx, original.KeyID)
	require.ErrorIs(t, err, apikeydomain.ErrNotFound)
}

func TestRevokeBlocksAuthentication(t *testing.T) {
	svc := setupKeyService(t)
	ctx := tenantCtx(42)

	secret, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "ingest"})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, secret.KeyID))

	_, err = svc.Authenticate(context.Background(), secret.APIKey)
	require.ErrorIs(t, err, apikeydomain.ErrUnauthorized)

	require.ErrorIs(t, svc.Revoke(ctx, "missing"), apikeydomain.ErrNotFound)
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	svc := setupKeyService(t)

	_, err := svc.Authenticate(context.Background(), "")
	require.ErrorIs(t, err, apikeydomain.ErrUnauthorized)

	_, err = svc.Authenticate(context.Background(), "sk_test_not_ours")
	require.ErrorIs(t, err, apikeydomain.ErrUnauthorized)

	_, err = svc.Authenticate(context.Background(), "ik_live_key_unknown_deadbeef")
	require.ErrorIs(t, err, apikeydomain.ErrUnauthorized)
}
