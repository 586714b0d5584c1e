// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// User represents a registered account as the identity service knows it.
//
// Accounts are created by email + password registration or, when GitHub
// OAuth is configured, on first GitHub sign-in. GitHubID is zero for
// password accounts.
//
// PasswordHash is a bcrypt hash and is never serialized: the json:"-" tag
// keeps it out of every API response, even by accident.
type User struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GitHubID     int64     `json:"githubId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Name is the greeting name shown in the navigation bar: the display name,
// or the part of the email before the "@" when no display name was given.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}
