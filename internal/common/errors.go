package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrDuplicateValue  = errors.New("duplicate token value")
	ErrStoreFailure    = errors.New("store failure")

	// Transport-level errors.
	ErrorForbidden = errors.New("forbidden")

	// Validation errors.
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")

	// Token transport and signature errors.
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidSignature = errors.New("invalid token signature")

	// Token lifecycle errors.
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenAlreadyUsed   = errors.New("token already used")
	ErrPurposeMismatch    = errors.New("token purpose mismatch")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")
)
