package jwt_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smallwares/backoffice/internal/domain"
	customjwt "github.com/smallwares/backoffice/internal/jwt"
)

func TestGeneratorRoundTrip(t *testing.T) {
	generator := customjwt.NewGenerator([]byte("test-secret-test-secret-test-secret!"), time.Hour)
	user := domain.User{ID: 99, Email: "user@example.com"}

	token, err := generator.Generate(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := generator.Validate(token)
	require.NoError(t, err)
	require.Equal(t, int64(99), claims.UserID)
	require.Equal(t, "user@example.com", claims.Email)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	generator := customjwt.NewGenerator([]byte("test-secret-test-secret-test-secret!"), time.Hour)
	token, err := generator.Generate(domain.User{ID: 1, Email: "user@example.com"})
	require.NoError(t, err)

	other := customjwt.NewGenerator([]byte("other-secret-other-secret-other-secret!"), time.Hour)
	_, err = other.Validate(token)
	require.ErrorIs(t, err, customjwt.ErrTokenInvalid)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	generator := customjwt.NewGenerator([]byte("test-secret-test-secret-test-secret!"), time.Hour)
	token, err := generator.Generate(domain.User{ID: 1, Email: "user@example.com"})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	_, err = generator.Validate(tampered)
	require.ErrorIs(t, err, customjwt.ErrTokenInvalid)

	_, err = generator.Validate("garbage")
	require.ErrorIs(t, err, customjwt.ErrTokenInvalid)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	generator := customjwt.NewGenerator([]byte("test-secret-test-secret-test-secret!"), -time.Minute)
	token, err := generator.Generate(domain.User{ID: 1, Email: "user@example.com"})
	require.NoError(t, err)

	_, err = generator.Validate(token)
	require.ErrorIs(t, err, customjwt.ErrTokenExpired)
}
