package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smallwares/backoffice/internal/password"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := password.Hash("secret1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))
	require.NotEqual(t, "secret1", hash)

	require.True(t, password.Verify("secret1", hash))
	require.False(t, password.Verify("secret2", hash))
}

func TestHashSaltsPerCall(t *testing.T) {
	first, err := password.Hash("secret1")
	require.NoError(t, err)
	second, err := password.Hash("secret1")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, password.Verify("secret1", first))
	require.True(t, password.Verify("secret1", second))
}

func TestVerifyMalformedHash(t *testing.T) {
	cases := []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=65536,t=3,p=2$salt",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA",
	}
	for _, encoded := range cases {
		require.False(t, password.Verify("secret1", encoded), "hash %q must not verify", encoded)
	}
}
