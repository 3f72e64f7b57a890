package auth

import (
	"errors"

	"github.com/odyssey-erp/odyssey-pos/internal/users"
)

var (
	// ErrEmailInUse indicates signup with an address that already has an account.
	ErrEmailInUse = users.ErrEmailInUse
	// ErrWeakPassword indicates a password shorter than users.MinPasswordLength.
	ErrWeakPassword = users.ErrWeakPassword
	// ErrInvalidEmail indicates a malformed address.
	ErrInvalidEmail = errors.New("auth: invalid email")
	// ErrUserNotFound indicates no account exists for the email.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrWrongPassword indicates the password does not match.
	ErrWrongPassword = errors.New("auth: wrong password")
	// ErrInactive indicates a disabled account.
	ErrInactive = errors.New("auth: account disabled")
	// ErrInvalidToken indicates a bearer token that failed verification.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Message maps identity errors to text safe to show on the login and signup forms.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrEmailInUse):
		return "An account with this email already exists."
	case errors.Is(err, ErrWeakPassword):
		return "Password should be at least 6 characters."
	case errors.Is(err, ErrInvalidEmail):
		return "Invalid email address."
	case errors.Is(err, ErrUserNotFound):
		return "No account found with this email."
	case errors.Is(err, ErrWrongPassword):
		return "Incorrect password."
	case errors.Is(err, ErrInactive):
		return "This account has been disabled."
	default:
		return "Login failed. Please try again."
	}
}
