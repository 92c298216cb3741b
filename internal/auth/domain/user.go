package domain

import "time"

// User is a suite account within its home tenant. The auth core only reads
// what it needs for authentication and claim assembly; the rest of the user
// model belongs to the suite's CRUD layer.
type User struct {
	ID           string
	TenantID     string
	Email        string
	Name         string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
