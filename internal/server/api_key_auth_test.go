package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apikeydomain "github.com/brightclass/insight/internal/apikey/domain"
	apikeyrepository "github.com/brightclass/insight/internal/apikey/repository"
	apikeyservice "github.com/brightclass/insight/internal/apikey/service"
	"github.com/brightclass/insight/internal/config"
	"github.com/brightclass/insight/internal/tenantcontext"
	"github.com/brightclass/insight/pkg/db"
)

func newAuthTestServer(t *testing.T) (*Server, apikeydomain.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(&apikeydomain.APIKey{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	svc := apikeyservice.New(apikeyservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  apikeyrepository.Provide(),
	})

	srv := &Server{
		cfg:       config.Config{AdminAPIKey: "admin-test-secret"},
		db:        conn,
		apiKeySvc: svc,
	}
	return srv, svc
}

func mintKey(t *testing.T, svc apikeydomain.Service, tenantID snowflake.ID, scopes []string) string {
	t.Helper()
	ctx := tenantcontext.WithTenantID(context.Background(), tenantID)
	secret, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "test key", Scopes: scopes})
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	return secret.APIKey
}

func authProbeRouter(srv *Server, scope string) *gin.Engine {
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/probe", srv.APIKeyRequired(scope), func(c *gin.Context) {
		tenant := ""
		if tenantID, ok := tenantcontext.TenantIDFromContext(c.Request.Context()); ok {
			tenant = tenantID.String()
		}
		c.JSON(http.StatusOK, gin.H{"tenant_id": tenant})
	})
	return router
}

func TestAPIKeyRequiredRejectsMissingAndMalformed(t *testing.T) {
	srv, _ := newAuthTestServer(t)
	router := authProbeRouter(srv, apikeydomain.ScopeEventsWrite)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer ik_live_key_unknown"} {
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, resp.Code)
		}
	}
}

func TestAPIKeyRequiredResolvesTenant(t *testing.T) {
	srv, svc := newAuthTestServer(t)
	raw := mintKey(t, svc, snowflake.ID(42), []string{apikeydomain.ScopeEventsWrite})
	router := authProbeRouter(srv, apikeydomain.ScopeEventsWrite)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if body := resp.Body.String(); body != `{"tenant_id":"42"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestAPIKeyRequiredEnforcesScope(t *testing.T) {
	srv, svc := newAuthTestServer(t)
	raw := mintKey(t, svc, snowflake.ID(42), []string{apikeydomain.ScopeEventsWrite})
	router := authProbeRouter(srv, apikeydomain.ScopeKeysManage)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestAPIKeyRequiredAdminBootstrap(t *testing.T) {
	srv, _ := newAuthTestServer(t)
	router := authProbeRouter(srv, apikeydomain.ScopeKeysManage)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer admin-test-secret")
	req.Header.Set(headerTenantID, "7")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if body := resp.Body.String(); body != `{"tenant_id":"7"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestAPIKeyRequiredAdminDisabledWhenUnset(t *testing.T) {
	srv, _ := newAuthTestServer(t)
	srv.cfg.AdminAPIKey = ""
	router := authProbeRouter(srv, apikeydomain.ScopeKeysManage)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer admin-test-secret")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
