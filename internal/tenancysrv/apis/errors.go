package apis

import (
	"net/http"

	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
)

var (
	ErrAPI apperrors.Error = apperrors.New("api error").SetStatusCode(http.StatusInternalServerError)
)

var (
	ErrGroupNotFound      apperrors.Error = ErrAPI.New("group not found").SetStatusCode(http.StatusNotFound)
	ErrTenantNotFound     apperrors.Error = ErrAPI.New("tenant not found").SetStatusCode(http.StatusNotFound)
	ErrAssignmentNotFound apperrors.Error = ErrAPI.New("role assignment not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidRequest     apperrors.Error = ErrAPI.New("invalid request").SetStatusCode(http.StatusBadRequest)
	ErrUnauthenticated    apperrors.Error = ErrAPI.New("authentication required").SetStatusCode(http.StatusUnauthorized)
	ErrMissingScope       apperrors.Error = ErrAPI.New("request is not scoped to a group")
)
