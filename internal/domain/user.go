package domain

import "time"

// RoleName enumerates the helpdesk roles.
type RoleName string

const (
	RoleUser       RoleName = "User"
	RoleTechnician RoleName = "Technician"
	RoleSecretary  RoleName = "Secretary"
	RoleDeputyDSI  RoleName = "Deputy-DSI"
	RoleDSI        RoleName = "DSI"
	RoleAdmin      RoleName = "Admin"
)

// IsManager reports whether the role can assign and delegate tickets.
func (r RoleName) IsManager() bool {
	return r == RoleDSI || r == RoleDeputyDSI || r == RoleAdmin
}

// User is the domain model for anyone present in the directory, from
// requesters to technicians and managers.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	Role         RoleName
	Agency       string
	Active       bool
	CreatedAt    time.Time
}
