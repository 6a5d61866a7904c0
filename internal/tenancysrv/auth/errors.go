package auth

import (
	"net/http"

	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
)

var (
	ErrAuth apperrors.Error = apperrors.New("auth error").SetStatusCode(http.StatusInternalServerError)
)

var (
	ErrInvalidToken    apperrors.Error = ErrAuth.New("invalid token").SetStatusCode(http.StatusUnauthorized)
	ErrMissingSubject  apperrors.Error = ErrInvalidToken.New("token has no valid subject")
	ErrNoSigningKey    apperrors.Error = ErrAuth.New("no signing key configured")
	ErrTokenGeneration apperrors.Error = ErrAuth.New("failed to generate token")
)
