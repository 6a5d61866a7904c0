package authz

import (
	"net/http"

	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
)

var (
	ErrAuthzError         apperrors.Error = apperrors.New("authorization error").SetStatusCode(http.StatusInternalServerError)
	ErrInvalidPermission  apperrors.Error = ErrAuthzError.New("invalid permission").SetStatusCode(http.StatusBadRequest)
	ErrDisallowedByPolicy apperrors.Error = ErrAuthzError.New("user is not allowed to perform this action").SetStatusCode(http.StatusForbidden)
)
