package models

import (
	"github.com/google/uuid"
)

// TenantOwned is implemented by records that carry an optional tenant reference.
// A nil reference means the record is unassigned and belongs to no tenant.
type TenantOwned interface {
	TenantRef() *uuid.UUID
	SetTenantRef(id *uuid.UUID)
}

// Ownership is the group and tenant a record refers to, as declared by its type.
type Ownership struct {
	GroupID  *uuid.UUID
	TenantID *uuid.UUID
}

// Owner is implemented by records whose group or tenant references take part in authorization.
type Owner interface {
	Ownership() Ownership
}

// Row is a tenant-owned record that can be stored in a generic table.
// Columns, Values and ScanDest are index-aligned.
type Row interface {
	TenantOwned
	Owner
	Columns() []string
	Values() []any
	ScanDest() []any
	SetColumn(column string, value any) error
}

const TenantColumn = "tenant_id"
