package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	uuidv7 "github.com/tansive/tansive-tenancy/internal/common/uuid"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
)

// GetOrCreateBackend returns the backend called name, registering it first if needed.
func (h *TenancyDb) GetOrCreateBackend(ctx context.Context, name string) (*models.Backend, bool, apperrors.Error) {
	b := &models.Backend{BackendID: uuidv7.New(), Name: name}
	if err := models.Validate(b); err != nil {
		return nil, false, err
	}
	query := `
		INSERT INTO backends (backend_id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
		RETURNING backend_id;`
	err := h.conn.QueryRowContext(ctx, query, b.BackendID, b.Name).Scan(&b.BackendID)
	if err == nil {
		return b, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Ctx(ctx).Error().Err(err).Str("backend", name).Msg("failed to create backend")
		return nil, false, dberror.ErrDatabase.Err(err)
	}
	err = h.conn.QueryRowContext(ctx, `SELECT backend_id FROM backends WHERE name = $1;`, name).Scan(&b.BackendID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("backend", name).Msg("failed to get backend")
		return nil, false, dberror.ErrDatabase.Err(err)
	}
	return b, false, nil
}

func (h *TenancyDb) ListBackends(ctx context.Context) ([]*models.Backend, apperrors.Error) {
	rows, err := h.conn.QueryContext(ctx, `SELECT backend_id, name FROM backends ORDER BY name;`)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list backends")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()
	var backends []*models.Backend
	for rows.Next() {
		b := &models.Backend{}
		if err := rows.Scan(&b.BackendID, &b.Name); err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		backends = append(backends, b)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return backends, nil
}
