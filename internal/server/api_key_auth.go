package server

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	obscontext "github.com/brightclass/insight/internal/observability/context"
	"github.com/brightclass/insight/internal/tenantcontext"
)

const (
	contextAuthTypeKey     = "auth_type"
	contextTenantIDKey     = "tenant_id"
	contextAPIKeyIDKey     = "api_key_id"
	contextAPIKeyScopesKey = "api_key_scopes"

	authTypeAPIKey = "api_key"
	authTypeAdmin  = "admin"

	headerTenantID = "X-Tenant-Id"
)

// APIKeyRequired authenticates requests with a tenant API key carrying
// the given scope. The instance admin key, when configured, passes any
// scope check and reads its tenant from the X-Tenant-Id header.
func (s *Server) APIKeyRequired(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if s.isAdminKey(raw) {
			ctx := c.Request.Context()
			ctx = context.WithValue(ctx, contextAuthTypeKey, authTypeAdmin)
			ctx = obscontext.WithActor(ctx, authTypeAdmin, "instance")
			if tenantID, ok := headerTenant(c); ok {
				ctx = tenantcontext.WithTenantID(ctx, tenantID)
				ctx = obscontext.WithTenantID(ctx, tenantID.String())
			}
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		key, err := s.apiKeySvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if scope != "" && !key.HasScope(scope) {
			AbortWithError(c, ErrForbidden)
			return
		}

		ctx := c.Request.Context()
		scopes := make([]string, 0, len(key.Scopes))
		scopes = append(scopes, key.Scopes...)
		ctx = context.WithValue(ctx, contextAuthTypeKey, authTypeAPIKey)
		ctx = context.WithValue(ctx, contextTenantIDKey, int64(key.TenantID))
		ctx = context.WithValue(ctx, contextAPIKeyIDKey, int64(key.ID))
		ctx = context.WithValue(ctx, contextAPIKeyScopesKey, scopes)
		ctx = tenantcontext.WithTenantID(ctx, key.TenantID)
		ctx = obscontext.WithTenantID(ctx, key.TenantID.String())
		ctx = obscontext.WithActor(ctx, authTypeAPIKey, key.KeyID)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) isAdminKey(raw string) bool {
	admin := strings.TrimSpace(s.cfg.AdminAPIKey)
	if admin == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(admin), []byte(raw)) == 1
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func headerTenant(c *gin.Context) (snowflake.ID, bool) {
	value := strings.TrimSpace(c.GetHeader(headerTenantID))
	if value == "" {
		return 0, false
	}
	parsed, err := snowflake.ParseString(value)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return parsed, true
}

func requestTenantID(c *gin.Context) (snowflake.ID, bool) {
	return tenantcontext.TenantIDFromContext(c.Request.Context())
}
