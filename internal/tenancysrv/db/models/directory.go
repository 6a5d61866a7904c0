package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

/*
   Table "tenant_groups"
    Column     |           Type           | Nullable
---------------+--------------------------+----------
 group_id      | uuid                     | not null
 name          | character varying(64)    | not null
 slug          | character varying(64)    | not null
 description   | text                     | not null
 created_at    | timestamp with time zone |
 updated_at    | timestamp with time zone |
Indexes:
    "tenant_groups_pkey" PRIMARY KEY, btree (group_id)
    "tenant_groups_name_key" UNIQUE CONSTRAINT, btree (name)
    "tenant_groups_slug_key" UNIQUE CONSTRAINT, btree (slug)
*/

type TenantGroup struct {
	GroupID     uuid.UUID `db:"group_id" json:"id"`
	Name        string    `db:"name" json:"name" validate:"required,max=64"`
	Slug        string    `db:"slug" json:"slug" validate:"required,max=64,slug"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (g *TenantGroup) String() string {
	return g.Name
}

func (g *TenantGroup) AbsoluteURL() string {
	return fmt.Sprintf("/groups/%s/", g.Slug)
}

/*
   Table "tenants"
    Column     |           Type           | Nullable
---------------+--------------------------+----------
 tenant_id     | uuid                     | not null
 group_id      | uuid                     | not null
 name          | character varying(64)    | not null
 slug          | character varying(64)    | not null
 description   | text                     | not null
 created_at    | timestamp with time zone |
 updated_at    | timestamp with time zone |
Indexes:
    "tenants_pkey" PRIMARY KEY, btree (tenant_id)
    "tenants_group_id_slug_key" UNIQUE CONSTRAINT, btree (group_id, slug)
    "tenants_group_id_name_key" UNIQUE CONSTRAINT, btree (group_id, name)
Foreign-key constraints:
    "tenants_group_id_fkey" FOREIGN KEY (group_id) REFERENCES tenant_groups(group_id) ON DELETE CASCADE
*/

type Tenant struct {
	TenantID    uuid.UUID `db:"tenant_id" json:"id"`
	GroupID     uuid.UUID `db:"group_id" json:"group_id"`
	Name        string    `db:"name" json:"name" validate:"required,max=64"`
	Slug        string    `db:"slug" json:"slug" validate:"required,max=64,slug"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
	// Group columns joined in on reads.
	GroupName string `db:"-" json:"group_name,omitempty"`
	GroupSlug string `db:"-" json:"group_slug,omitempty"`
}

func (t *Tenant) String() string {
	return fmt.Sprintf("%s (%s)", t.Name, t.GroupName)
}

func (t *Tenant) AbsoluteURL() string {
	return fmt.Sprintf("/groups/%s/tenants/%s/", t.GroupSlug, t.Slug)
}
