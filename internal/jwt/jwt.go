// Package jwt issues and verifies the signed session tokens handed out on
// registration and login. Tokens are stateless: verification needs only the
// signing secret, never a store lookup, and there is no revocation.
package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/smallwares/backoffice/internal/domain"
)

var (
	// ErrTokenInvalid covers malformed tokens and signature mismatches.
	ErrTokenInvalid = errors.New("jwt: token invalid")
	// ErrTokenExpired means the token was well-formed and signed by us but
	// its expiry has passed.
	ErrTokenExpired = errors.New("jwt: token expired")
)

// SessionClaims is the custom payload carried alongside the standard claims.
type SessionClaims struct {
	UserID int64  `json:"user_id,string"`
	Email  string `json:"email"`
}

// Generator signs and verifies session tokens with a process-wide HS256 key.
type Generator struct {
	secret []byte
	ttl    time.Duration
}

// NewGenerator constructs a Generator. ttl bounds the lifetime of every
// issued token.
func NewGenerator(secret []byte, ttl time.Duration) *Generator {
	return &Generator{secret: secret, ttl: ttl}
}

// Generate produces a signed token for the user embedding id and email.
func (g *Generator) Generate(user domain.User) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: g.secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	now := time.Now().UTC()
	std := gojwt.Claims{
		Subject:   strconv.FormatInt(user.ID, 10),
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		Expiry:    gojwt.NewNumericDate(now.Add(g.ttl)),
	}
	custom := SessionClaims{UserID: user.ID, Email: user.Email}

	token, err := gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize jwt: %w", err)
	}
	return token, nil
}

// Validate checks signature and expiry and returns the session claims.
func (g *Generator) Validate(token string) (*SessionClaims, error) {
	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	var std gojwt.Claims
	var custom SessionClaims
	if err := parsed.Claims(g.secret, &std, &custom); err != nil {
		return nil, ErrTokenInvalid
	}

	if err := std.ValidateWithLeeway(gojwt.Expected{Time: time.Now()}, 0); err != nil {
		if errors.Is(err, gojwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if custom.UserID == 0 || custom.Email == "" {
		return nil, ErrTokenInvalid
	}
	return &custom, nil
}
