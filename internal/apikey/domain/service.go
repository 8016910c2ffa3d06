package domain

import (
	"context"
	"errors"
	"time"
)

const (
	ScopeEventsWrite   = "events:write"
	ScopeAnalyticsRead = "analytics:read"
	ScopeKeysManage    = "keys:manage"
)

// KnownScopes lists every scope a key can be created with.
var KnownScopes = []string{ScopeEventsWrite, ScopeAnalyticsRead, ScopeKeysManage}

type Service interface {
	List(ctx context.Context) ([]Response, error)
	Create(ctx context.Context, req CreateRequest) (*SecretResponse, error)
	Rotate(ctx context.Context, keyID string) (*SecretResponse, error)
	Revoke(ctx context.Context, keyID string) error
	// Authenticate resolves a raw bearer key to its active record and
	// touches last_used_at.
	Authenticate(ctx context.Context, rawKey string) (*APIKey, error)
}

type CreateRequest struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

type Response struct {
	KeyID            string     `json:"key_id"`
	Name             string     `json:"name"`
	Scopes           []string   `json:"scopes"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	LastUsedAt       *time.Time `json:"last_used_at"`
	ExpiresAt        *time.Time `json:"expires_at"`
	RotatedFromKeyID *string    `json:"rotated_from_key_id"`
}

type SecretResponse struct {
	KeyID  string `json:"key_id"`
	APIKey string `json:"api_key"`
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidKeyID  = errors.New("invalid_key_id")
	ErrInvalidScope  = errors.New("invalid_scope")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not_found")
)
