package users

import (
	"slices"
	"strings"
	"time"
)

// Permission is a capability granted to a local user.
type Permission string

type User struct {
	ID          string       `json:"id,omitempty"`          // Unique identifier for the user
	Username    string       `json:"username,omitempty"`    // Reddit username, unique
	Active      bool         `json:"active"`                // Inactive users cannot log in
	Permissions []Permission `json:"permissions,omitempty"` // Granted capabilities
	DateJoined  time.Time    `json:"date_joined,omitempty"` // Date and time the user was created
	LastLogin   time.Time    `json:"last_login,omitempty"`  // Last time the user logged in
}

// CleanUsername normalises a remote username before it is used as a lookup key.
func CleanUsername(username string) string {
	return strings.TrimSpace(username)
}

func (u *User) HasPermission(p Permission) bool {
	return slices.Contains(u.Permissions, p)
}

// Grant adds permissions the user does not already hold.
func (u *User) Grant(perms ...Permission) {
	for _, p := range perms {
		if p != "" && !u.HasPermission(p) {
			u.Permissions = append(u.Permissions, p)
		}
	}
}
