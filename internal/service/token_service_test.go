package service

import (
	"testing"
	"time"

	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTTokenService_RoundTrip(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "discount-buddy")
	userID := uuid.New()

	token, expiry, err := svc.Generate(userID, domain.RoleMerchant)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, domain.RoleMerchant, claims.Role)
}

func TestJWTTokenService_RejectsWrongSecret(t *testing.T) {
	issuer := NewJWTTokenService("secret-a", time.Hour, "discount-buddy")
	verifier := NewJWTTokenService("secret-b", time.Hour, "discount-buddy")

	token, _, err := issuer.Generate(uuid.New(), domain.RoleCustomer)
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsExpired(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", -time.Minute, "discount-buddy")

	token, _, err := svc.Generate(uuid.New(), domain.RoleCustomer)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsGarbage(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "discount-buddy")

	_, err := svc.Validate("not.a.token")
	assert.Error(t, err)
}
