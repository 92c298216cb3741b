package domain

import "time"

// Tenant is an isolated customer organization sharing the suite's process.
// IDs are UUIDs; Subdomain is the case-insensitive key used by host- and
// header-based tenant resolution.
type Tenant struct {
	ID        string
	Name      string
	Code      string
	Subdomain string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Membership grants a user access to a tenant beyond their home tenant.
type Membership struct {
	UserID   string
	TenantID string
	Role     string
}
