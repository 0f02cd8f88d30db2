package authrpc

import "time"

type Empty struct{}

type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Name            string `json:"name,omitempty"`
	Surname         string `json:"surname,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ConfirmEmailRequest struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// EmailRequest is used by forgot-password and resend-confirmation.
type EmailRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email"`
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// RefreshRequest carries a refresh token for rotation or logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ListUsersRequest selects [Start, End), or every user when All is set.
type ListUsersRequest struct {
	Start int  `json:"start"`
	End   int  `json:"end"`
	All   bool `json:"all,omitempty"`
}

type SessionReply struct {
	Message          string    `json:"message"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at,omitzero"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at,omitzero"`
}

type StatusReply struct {
	Message string `json:"message"`
}

type Profile struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	Name           string   `json:"name,omitempty"`
	Surname        string   `json:"surname,omitempty"`
	EmailConfirmed bool     `json:"email_confirmed"`
	Roles          []string `json:"roles"`
}

type UsersReply struct {
	Users []Profile `json:"users"`
}

type PingReply struct {
	Status string `json:"status"`
}
