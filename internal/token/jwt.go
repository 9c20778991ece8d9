package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errInvalidToken = errors.New("invalid token")

// Claims are the channel grants carried by a JWT room token.
type Claims struct {
	Channel string `json:"channel"`
	Role    Role   `json:"role"`
	jwt.RegisteredClaims
}

// JWTIssuer signs HS256 room tokens. It is used when no vendor SDK is configured.
type JWTIssuer struct {
	appID  string
	secret []byte
}

// NewJWTIssuer creates an issuer. The secret must be non-empty.
func NewJWTIssuer(appID, secret string) (*JWTIssuer, error) {
	if appID == "" || secret == "" {
		return nil, fmt.Errorf("jwt: app_id and secret required")
	}
	return &JWTIssuer{appID: appID, secret: []byte(secret)}, nil
}

// Issue signs a token valid from now for Validity.
func (s *JWTIssuer) Issue(channel, subjectID string, role Role, now time.Time) (Token, error) {
	claims := Claims{
		Channel: channel,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.appID,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Validity)),
			ID:        uuid.New().String(),
		},
	}
	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("jwt: sign: %w", err)
	}
	return newToken(s.appID, value, channel, subjectID, role, now), nil
}

// Validate parses a token as of now, returning its claims.
func (s *JWTIssuer) Validate(value string, now time.Time) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(value, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }), jwt.WithIssuer(s.appID))
	if err != nil {
		return nil, errInvalidToken
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}
