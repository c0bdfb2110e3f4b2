package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/otd-engine/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// AdminRole is the role claim required on admin endpoints.
const AdminRole = "admin"

// AdminClaims are the claims carried by admin tokens.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth signs and validates HS256 admin tokens. A zero-length secret
// disables admin access entirely.
type AdminAuth struct {
	secret []byte
}

// NewAdminAuth creates an AdminAuth with the given shared secret.
func NewAdminAuth(secret string) *AdminAuth {
	return &AdminAuth{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured.
func (a *AdminAuth) Enabled() bool {
	return len(a.secret) > 0
}

// IssueToken signs an admin token for subject valid for ttl.
func (a *AdminAuth) IssueToken(subject string, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", errors.New("admin auth disabled")
	}
	now := time.Now()
	claims := AdminClaims{
		Role: AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateToken parses tokenString and checks it carries the admin role.
func (a *AdminAuth) ValidateToken(tokenString string) (*AdminClaims, error) {
	if !a.Enabled() {
		return nil, &domain.ErrUnauthorized{Message: "admin access is disabled"}
	}

	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token claims"}
	}
	if claims.Role != AdminRole {
		return nil, &domain.ErrUnauthorized{Message: "admin role required"}
	}
	return claims, nil
}
