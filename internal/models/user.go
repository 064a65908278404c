package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleMentor UserRole = "mentor"
	RoleIntern UserRole = "intern"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleMentor, RoleIntern:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
// Interns start inactive and must be activated by an admin before they
// can be enrolled or assigned tasks.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// InternOverview is an intern row enriched with the mentor bound at
// enrollment time, as shown on the admin roster.
type InternOverview struct {
	ID         string  `db:"id" json:"id"`
	FullName   string  `db:"full_name" json:"full_name"`
	Email      string  `db:"email" json:"email"`
	Active     bool    `db:"active" json:"active"`
	MentorID   *string `db:"mentor_id" json:"mentor_id,omitempty"`
	MentorName *string `db:"mentor_name" json:"mentor_name,omitempty"`
}

// MentorOverview is a mentor row with the number of interns enrolled
// under them across all programs.
type MentorOverview struct {
	ID          string `db:"id" json:"id"`
	FullName    string `db:"full_name" json:"full_name"`
	Email       string `db:"email" json:"email"`
	InternCount int    `db:"intern_count" json:"intern_count"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
