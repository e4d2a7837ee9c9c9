/*
 * stream-web is a browser-based client for Xtream-Codes IPTV services.
 * Copyright (C) 2025  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package resolver

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned by URL builders when no credentials are
// present.
var ErrNotAuthenticated = errors.New("not authenticated, please login first")

// AuthFailure classifies why an authentication handshake failed.
type AuthFailure int

const (
	// AuthUnreachable covers DNS failures, refused connections and timeouts.
	AuthUnreachable AuthFailure = iota
	// AuthUnauthorized is a 401 from the provider: bad username/password.
	AuthUnauthorized
	// AuthForbidden is a 403: the account or subscription state was rejected.
	AuthForbidden
	// AuthServerError is any other non-2xx provider status.
	AuthServerError
	// AuthMalformedResponse is a 2xx response missing the account-info shape.
	AuthMalformedResponse
)

// AuthError is the single descriptive error value surfaced to the login UI.
// Never retried internally.
type AuthError struct {
	Reason AuthFailure
	Status int
	msg    string
	cause  error
}

func (e *AuthError) Error() string { return e.msg }

func (e *AuthError) Unwrap() error { return e.cause }

// authError builds the classified error with the user-facing message.
func authError(reason AuthFailure, status int, cause error) *AuthError {
	var msg string
	switch reason {
	case AuthUnreachable:
		msg = "Cannot connect to IPTV server. Please check the URL and port."
	case AuthUnauthorized:
		msg = "Invalid username or password."
	case AuthForbidden:
		msg = "Account access denied. Please check your subscription status."
	case AuthServerError:
		msg = fmt.Sprintf("Server error: %d", status)
	case AuthMalformedResponse:
		msg = "Invalid credentials or server response."
	default:
		msg = "Login failed. Please check your credentials and try again."
	}
	return &AuthError{Reason: reason, Status: status, msg: msg, cause: cause}
}
