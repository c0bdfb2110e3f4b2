package service_test

import (
	"testing"
	"time"

	"github.com/boddenberg/otd-engine/internal/domain"
	"github.com/boddenberg/otd-engine/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminAuth_RoundTrip(t *testing.T) {
	auth := service.NewAdminAuth("s3cret")

	tok, err := auth.IssueToken("ops", time.Minute)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, service.AdminRole, claims.Role)
}

func TestAdminAuth_Rejects(t *testing.T) {
	auth := service.NewAdminAuth("s3cret")

	expired, err := auth.IssueToken("ops", -time.Minute)
	require.NoError(t, err)

	otherKey, err := service.NewAdminAuth("other").IssueToken("ops", time.Minute)
	require.NoError(t, err)

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "ops"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.jwt"},
		{"expired", expired},
		{"wrong key", otherKey},
		{"missing role", noRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.ValidateToken(tt.token)
			var unauth *domain.ErrUnauthorized
			assert.ErrorAs(t, err, &unauth)
		})
	}
}

func TestAdminAuth_Disabled(t *testing.T) {
	auth := service.NewAdminAuth("")
	assert.False(t, auth.Enabled())

	_, err := auth.IssueToken("ops", time.Minute)
	assert.Error(t, err)

	_, err = auth.ValidateToken("anything")
	var unauth *domain.ErrUnauthorized
	assert.ErrorAs(t, err, &unauth)
}
