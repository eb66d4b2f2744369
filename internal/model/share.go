package model

import "time"

// Permission is the access level granted by a MemoryShare.
type Permission string

const (
	PermissionView Permission = "view"
	PermissionEdit Permission = "edit"
)

// Valid reports whether p is "view" or "edit".
func (p Permission) Valid() bool {
	return p == PermissionView || p == PermissionEdit
}

// MemoryShare is an explicit grant of access to one memory for one email
// address. The grantee may not have an account yet, so the email is the
// addressing key and SharedWithUserID is only filled in when a user with that
// email already existed at grant time.
//
// Several shares for the same (memory, email) pair may exist; each one is
// revoked on its own.
type MemoryShare struct {
	ID               string     `json:"id"`
	MemoryID         string     `json:"memoryId"`
	SharedWithEmail  string     `json:"sharedWithEmail"`
	SharedWithUserID string     `json:"sharedWithUserId,omitempty"`
	SharedByUserID   string     `json:"sharedByUserId"`
	Permission       Permission `json:"permission"`
	CreatedAt        time.Time  `json:"createdAt"`
}
