// Package token issues and validates the bearer tokens a relay accepts
// during connection establishment.
package token

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer signs short-lived relay auth tokens with an ECDSA private key.
type Issuer struct {
	privateKey *ecdsa.PrivateKey
	kid        string
}

// NewIssuer parses a PEM-encoded EC private key.
func NewIssuer(privateKey []byte) (*Issuer, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &Issuer{
		privateKey: key,
		kid:        fmt.Sprintf("ES256-%v", uuid.New()),
	}, nil
}

// IssueToken signs a token for the given client ID, valid for ttl.
func (i *Issuer) IssueToken(clientID uuid.UUID, ttl time.Duration) (string, jwt.Claims, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, &jwt.RegisteredClaims{
		Subject:   clientID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	// kid goes into the header because it needs to be read
	// *before* the token is verified.
	// https://datatracker.ietf.org/doc/html/rfc7515#section-4.1.4
	token.Header["kid"] = i.kid

	tokenString, err := token.SignedString(i.privateKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, token.Claims, nil
}

// KeyID returns the key ID stamped into issued tokens (kid hint).
func (i *Issuer) KeyID() string {
	return i.kid
}
