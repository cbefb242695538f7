package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims for an access token. The subject is the
// user ID; validity is proven entirely by signature and expiry, with no
// store lookup.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies access tokens with a shared HS256 secret.
type TokenManager struct {
	secret       []byte
	accessExpiry time.Duration
	issuer       string
}

// NewTokenManager creates a token manager with the given secret and access
// token lifetime.
func NewTokenManager(secret string, accessExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:       []byte(secret),
		accessExpiry: accessExpiry,
		issuer:       "mentora-api",
	}
}

// AccessExpiry returns the configured access token lifetime.
func (m *TokenManager) AccessExpiry() time.Duration {
	return m.accessExpiry
}

// GenerateAccessToken creates a signed access token for the given user.
// Issued-at is now and expires-at is now + the configured lifetime.
func (m *TokenManager) GenerateAccessToken(userID, email string) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessExpiry)),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signedToken, nil
}

// ValidateAccessToken parses and verifies an access token, returning its
// claims. Signature integrity is checked before expiry; no leeway is
// applied, so a token presented exactly at its expiry instant is invalid.
// Callers treat any returned error as one opaque failure; the wrapped error
// retains the specific reason for logging.
func (m *TokenManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}

	return claims, nil
}
