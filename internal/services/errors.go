package services

import (
	"net/http"

	apperrors "github.com/charlesng35/itemhub/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "The user with this username does not exist in the system", http.StatusNotFound)
	// ErrUserExists is returned when the email is already registered.
	ErrUserExists = apperrors.New("USER_EXISTS", "The user with this username already exists in the system", http.StatusConflict)
	// ErrOpenRegistrationDisabled rejects self sign-up when the server does not allow it.
	ErrOpenRegistrationDisabled = apperrors.New("OPEN_REGISTRATION_DISABLED", "Open user registration is forbidden on this server", http.StatusForbidden)
	// ErrItemNotFound indicates the requested item does not exist.
	ErrItemNotFound = apperrors.New("ITEM_NOT_FOUND", "Item not found", http.StatusNotFound)
)
