// Package user defines the account identity used throughout the application:
// it is what the session carries and what the generation quota is keyed by.
package user

import "strings"

// User represents an account of the hosted auth service.
type User struct {
	// ID is the unique identifier assigned by the account service, meaning a UUID.
	ID string

	// Email is the sign-in address. The quota exemption is matched against it.
	Email string

	// FullName is the display name stored in the profile row.
	FullName string
}

// IsAnonymous reports whether no account is attached.
func (u *User) IsAnonymous() bool {
	return u == nil || u.ID == ""
}

// NormalizeEmail lowercases and trims an address for comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
