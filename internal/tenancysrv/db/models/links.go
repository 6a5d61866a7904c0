package models

import (
	"fmt"

	"github.com/google/uuid"
)

/*
   Table "backends"
    Column   |          Type          | Nullable
-------------+------------------------+----------
 backend_id  | uuid                   | not null
 name        | character varying(20)  | not null
Indexes:
    "backends_pkey" PRIMARY KEY, btree (backend_id)
    "backends_name_key" UNIQUE CONSTRAINT, btree (name)
*/

// Backend is an external message channel.
type Backend struct {
	BackendID uuid.UUID `db:"backend_id" json:"id"`
	Name      string    `db:"name" json:"name" validate:"required,max=20"`
}

/*
   Table "backend_links"
    Column      |          Type          | Nullable
----------------+------------------------+----------
 link_id        | uuid                   | not null
 tenant_id      | uuid                   |
 backend_name   | character varying(20)  | not null
Indexes:
    "backend_links_pkey" PRIMARY KEY, btree (link_id)
    "backend_links_backend_name_key" UNIQUE CONSTRAINT, btree (backend_name)
Foreign-key constraints:
    "backend_links_tenant_id_fkey" FOREIGN KEY (tenant_id) REFERENCES tenants(tenant_id) ON DELETE SET NULL
    "backend_links_backend_name_fkey" FOREIGN KEY (backend_name) REFERENCES backends(name) ON DELETE CASCADE
*/

// BackendLink attaches an external backend to at most one tenant.
type BackendLink struct {
	LinkID      uuid.UUID  `db:"link_id" json:"id"`
	TenantID    *uuid.UUID `db:"tenant_id" json:"tenant_id,omitempty"`
	BackendName string     `db:"backend_name" json:"backend_name" validate:"required,max=20"`
}

func (l *BackendLink) TenantRef() *uuid.UUID      { return l.TenantID }
func (l *BackendLink) SetTenantRef(id *uuid.UUID) { l.TenantID = id }
func (l *BackendLink) Ownership() Ownership {
	if l == nil {
		return Ownership{}
	}
	return Ownership{TenantID: l.TenantID}
}
func (l *BackendLink) String() string    { return l.BackendName }
func (l *BackendLink) Columns() []string { return []string{"link_id", "tenant_id", "backend_name"} }
func (l *BackendLink) ScanDest() []any   { return []any{&l.LinkID, &l.TenantID, &l.BackendName} }
func (l *BackendLink) Values() []any     { return []any{l.LinkID, refValue(l.TenantID), l.BackendName} }

func (l *BackendLink) SetColumn(column string, value any) error {
	switch column {
	case "link_id":
		return assignUUID(&l.LinkID, value)
	case TenantColumn:
		return assignUUIDRef(&l.TenantID, value)
	case "backend_name":
		return assignString(&l.BackendName, value)
	}
	return fmt.Errorf("unknown column %q", column)
}

/*
   Table "contact_links"
    Column      |          Type          | Nullable
----------------+------------------------+----------
 link_id        | uuid                   | not null
 tenant_id      | uuid                   |
 contact_id     | character varying(64)  | not null
 description    | character varying(200) | not null
 email          | character varying(254) |
Indexes:
    "contact_links_pkey" PRIMARY KEY, btree (link_id)
    "contact_links_contact_id_key" UNIQUE CONSTRAINT, btree (contact_id)
Foreign-key constraints:
    "contact_links_tenant_id_fkey" FOREIGN KEY (tenant_id) REFERENCES tenants(tenant_id) ON DELETE SET NULL
*/

// ContactLink attaches an external contact to at most one tenant.
type ContactLink struct {
	LinkID      uuid.UUID  `db:"link_id" json:"id"`
	TenantID    *uuid.UUID `db:"tenant_id" json:"tenant_id,omitempty"`
	ContactID   string     `db:"contact_id" json:"contact_id" validate:"required,max=64"`
	Description string     `db:"description" json:"description" validate:"max=200"`
	Email       *string    `db:"email" json:"email,omitempty" validate:"omitempty,email,max=254"`
}

func (c *ContactLink) TenantRef() *uuid.UUID      { return c.TenantID }
func (c *ContactLink) SetTenantRef(id *uuid.UUID) { c.TenantID = id }
func (c *ContactLink) Ownership() Ownership {
	if c == nil {
		return Ownership{}
	}
	return Ownership{TenantID: c.TenantID}
}
func (c *ContactLink) String() string { return c.ContactID }

func (c *ContactLink) Columns() []string {
	return []string{"link_id", "tenant_id", "contact_id", "description", "email"}
}

func (c *ContactLink) ScanDest() []any {
	return []any{&c.LinkID, &c.TenantID, &c.ContactID, &c.Description, &c.Email}
}

func (c *ContactLink) Values() []any {
	var email any
	if c.Email != nil {
		email = *c.Email
	}
	return []any{c.LinkID, refValue(c.TenantID), c.ContactID, c.Description, email}
}

func (c *ContactLink) SetColumn(column string, value any) error {
	switch column {
	case "link_id":
		return assignUUID(&c.LinkID, value)
	case TenantColumn:
		return assignUUIDRef(&c.TenantID, value)
	case "contact_id":
		return assignString(&c.ContactID, value)
	case "description":
		return assignString(&c.Description, value)
	case "email":
		if value == nil {
			c.Email = nil
			return nil
		}
		var s string
		if err := assignString(&s, value); err != nil {
			return err
		}
		c.Email = &s
		return nil
	}
	return fmt.Errorf("unknown column %q", column)
}
