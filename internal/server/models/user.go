package models

import "time"

// User is an identity record. PasswordHash is never serialized.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	Surname        string    `json:"surname,omitempty"`
	PasswordHash   string    `json:"-"`
	EmailConfirmed bool      `json:"email_confirmed"`
	CreatedAt      time.Time `json:"created_at"`
}

// Profile is the externally visible view of a user with its roles.
type Profile struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	Name           string   `json:"name,omitempty"`
	Surname        string   `json:"surname,omitempty"`
	EmailConfirmed bool     `json:"email_confirmed"`
	Roles          []string `json:"roles"`
}

func NewProfile(u *User, roles []string) Profile {
	if roles == nil {
		roles = []string{}
	}
	return Profile{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Surname:        u.Surname,
		EmailConfirmed: u.EmailConfirmed,
		Roles:          roles,
	}
}
