package migrations

import (
	"io"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(files, "sql")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	r, _, err := src.ReadUp(first)
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	r.Close()

	ddl := string(body)
	assert.Contains(t, ddl, "CONSTRAINT tenants_group_id_slug_key UNIQUE (group_id, slug)")
	assert.Contains(t, ddl, "CONSTRAINT tenants_group_id_name_key UNIQUE (group_id, name)")
	assert.Contains(t, ddl, "tenants_group_id_slug_lower_idx ON tenants (group_id, lower(slug))")
	assert.Contains(t, ddl, "tenant_id   UUID REFERENCES tenants (tenant_id) ON DELETE SET NULL")
	assert.Contains(t, ddl, "tenant_id     UUID REFERENCES tenants (tenant_id) ON DELETE CASCADE")

	_, _, err = src.ReadDown(first)
	require.NoError(t, err)
}
