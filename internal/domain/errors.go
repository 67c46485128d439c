package domain

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("not authorized")
	ErrNoRecipients   = errors.New("no recipients found")
	ErrInvalidToken   = errors.New("invalid device token")
	ErrPersistence    = errors.New("persistence failed")

	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("token has been revoked")
)
