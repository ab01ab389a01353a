package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the email/password pair does not match an account.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInactiveAccount is returned when a deactivated user tries to log in.
	ErrInactiveAccount = errors.New("auth: inactive account")
	// ErrAccountLocked is returned while a user is inside a lockout window.
	ErrAccountLocked = errors.New("auth: account locked")

	// ErrInvalidToken covers bad signatures, unparsable tokens and unexpected algorithms.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrExpiredToken is returned when the exp claim has passed.
	ErrExpiredToken = errors.New("auth: token expired")
	// ErrMalformedPayload is returned when a verified token does not carry the expected claims.
	ErrMalformedPayload = errors.New("auth: malformed token payload")

	// ErrAuthenticationFailed is the only error the refresh protocol exposes.
	ErrAuthenticationFailed = errors.New("auth: authentication failed")
	// ErrDuplicateToken signals a refresh token collision in the session store.
	ErrDuplicateToken = errors.New("auth: duplicate refresh token")
)
