// Package auth derives the acting user from a bearer token.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tansive/tansive-tenancy/internal/common/uuid"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/config"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

// Claims are the identity claims of a tenancy token. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Active    bool `json:"active"`
	Superuser bool `json:"superuser"`
}

// ParseToken validates an HS256 token and returns the user it identifies.
func ParseToken(tokenString string, cfg config.AuthConfig) (types.User, error) {
	if cfg.SigningKey == "" {
		return types.AnonymousUser, ErrNoSigningKey
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.SigningKey), nil
	}, opts...)
	if err != nil {
		return types.AnonymousUser, ErrInvalidToken.Err(err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return types.AnonymousUser, ErrMissingSubject
	}
	return types.User{
		ID:              id,
		IsActive:        claims.Active,
		IsAuthenticated: true,
		IsSuperuser:     claims.Superuser,
	}, nil
}

// NewToken signs a token for user that expires after ttl.
func NewToken(user types.User, cfg config.AuthConfig, ttl time.Duration) (string, error) {
	if cfg.SigningKey == "" {
		return "", ErrNoSigningKey
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
		Active:    user.IsActive,
		Superuser: user.IsSuperuser,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SigningKey))
	if err != nil {
		return "", ErrTokenGeneration.Err(err)
	}
	return s, nil
}
