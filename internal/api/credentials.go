package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoCredential is returned when no bearer token is configured.
var ErrNoCredential = errors.New("no API token configured")

// CredentialProvider supplies the bearer credential attached to every request.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// CredentialFunc adapts a function to CredentialProvider.
type CredentialFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f CredentialFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken is a fixed bearer token.
type StaticToken string

// Token returns the token, or ErrNoCredential when empty.
func (t StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(t)) == "" {
		return "", ErrNoCredential
	}
	return string(t), nil
}

// TokenInfo is what can be read from a JWT bearer token without verifying it.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token expiry has passed at now.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// InspectToken reads the subject and expiry of a JWT. The signature is not
// verified; the server remains the authority on whether the token is valid.
func InspectToken(token string) (TokenInfo, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("parse token: %w", err)
	}
	var info TokenInfo
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}
