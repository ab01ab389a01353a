package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	iauth "github.com/charlesng35/itemhub/internal/auth"
	appErrors "github.com/charlesng35/itemhub/pkg/errors"
	appValidator "github.com/charlesng35/itemhub/pkg/validator"
)

func TestFormatValidationError(t *testing.T) {
	err := appValidator.ValidationErrors{
		{Field: "username", Tag: "email"},
		{Field: "fingerprint", Tag: "fingerprint"},
		{Field: "password", Tag: "min", Param: "8"},
	}

	msg := formatValidationError(err)
	require.Equal(t,
		"username must be a valid email address; fingerprint must be 1 to 256 printable characters; password must be at least 8 characters",
		msg,
	)

	require.Equal(t, "invalid request payload", formatValidationError(errors.New("other")))
	require.Equal(t, "invalid request payload", formatValidationError(nil))
}

func TestMapAuthError(t *testing.T) {
	cases := []struct {
		in   error
		want *appErrors.AppError
	}{
		{iauth.ErrInvalidCredentials, appErrors.ErrInvalidCredentials},
		{iauth.ErrInactiveAccount, appErrors.ErrInactiveAccount},
		{fmt.Errorf("wrapped: %w", iauth.ErrAccountLocked), appErrors.ErrAccountLocked},
		{iauth.ErrInvalidToken, appErrors.ErrAuthenticationFailed},
		{iauth.ErrExpiredToken, appErrors.ErrAuthenticationFailed},
		{iauth.ErrMalformedPayload, appErrors.ErrAuthenticationFailed},
		{iauth.ErrAuthenticationFailed, appErrors.ErrAuthenticationFailed},
	}
	for _, tc := range cases {
		require.Same(t, tc.want, mapAuthError(tc.in), tc.in.Error())
	}

	raw := errors.New("db down")
	require.Same(t, raw, mapAuthError(raw))
}
