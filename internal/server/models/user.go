// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an identity created by the external OAuth collaborator.
// This core only reads users, for attribution and membership.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Picture     string
	CreatedAt   time.Time
}

// Name returns the presentation name of the user: the display name when
// set, otherwise the email.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
