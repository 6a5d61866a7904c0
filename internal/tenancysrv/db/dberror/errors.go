package dberror

import (
	"net/http"

	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
)

var (
	ErrDatabase        apperrors.Error = apperrors.New("db error").SetStatusCode(http.StatusInternalServerError)
	ErrAlreadyExists   apperrors.Error = ErrDatabase.New("already exists").SetStatusCode(http.StatusConflict)
	ErrNotFound        apperrors.Error = ErrDatabase.New("not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidInput    apperrors.Error = ErrDatabase.New("invalid input").SetStatusCode(http.StatusBadRequest)
	ErrMultipleResults apperrors.Error = ErrDatabase.New("multiple records returned").SetStatusCode(http.StatusConflict)
	ErrMissingTenantID apperrors.Error = ErrInvalidInput.New("missing tenant ID").SetStatusCode(http.StatusBadRequest)
	ErrInvalidGroup    apperrors.Error = ErrInvalidInput.New("invalid group").SetStatusCode(http.StatusBadRequest)
	ErrInvalidTenant   apperrors.Error = ErrInvalidInput.New("invalid tenant").SetStatusCode(http.StatusBadRequest)
	// ErrScopeViolation is returned when a tenant-scoped repository call is not anchored to its
	// tenant or carries a different tenant. It marks a programming error and is never retried.
	ErrScopeViolation apperrors.Error = ErrDatabase.New("tenant scope violation").SetStatusCode(http.StatusConflict)
	// ErrInvariantViolation is returned when a role assignment would be stored in an inconsistent state.
	ErrInvariantViolation apperrors.Error = ErrDatabase.New("invariant violation").SetStatusCode(http.StatusBadRequest)
)
