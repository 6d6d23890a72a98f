// Package services defines the business logic for accounts and preferences.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the
// handler layer.
package services

import "errors"

var (
	// ErrMissingFields is returned when a signup or login request omits a
	// required field.
	ErrMissingFields = errors.New("email, password and name are required")

	// ErrEmailTaken is returned when the signup email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned when login fails. It deliberately
	// does not distinguish an unknown email from a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidPreference is returned when a preference key or value falls
	// outside the accepted shape.
	ErrInvalidPreference = errors.New("invalid preference key or value")
)
