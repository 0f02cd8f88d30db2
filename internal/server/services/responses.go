package services

import (
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Result is the common part of every flow response. Cause carries the
// sentinel that decided a failure so transports can pick a status code;
// it is never serialized.
type Result struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	Cause   error    `json:"-"`
}

// SessionResponse is returned by register, login and refresh.
type SessionResponse struct {
	Result
	AccessToken      string    `json:"access_token,omitempty"`
	RefreshToken     string    `json:"refresh_token,omitempty"`
	AccessExpiresAt  time.Time `json:"access_expires_at,omitzero"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at,omitzero"`
}

// StatusResponse is returned by flows that produce no payload.
type StatusResponse struct {
	Result
}

type ProfileResponse struct {
	Result
	Payload *models.Profile `json:"payload,omitempty"`
}

type UsersResponse struct {
	Result
	Payload []models.Profile `json:"payload,omitempty"`
}

func ok(message string) Result {
	return Result{Success: true, Message: message}
}

func fail(message string, cause error, errs ...string) Result {
	return Result{Message: message, Cause: cause, Errors: errs}
}
