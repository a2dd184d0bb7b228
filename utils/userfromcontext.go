package utils

import (
	"butikk/globals"
	"net/http"
)

// GetUserIDFromRequest returns the authenticated user id, or "" when the
// request carried no valid token.
func GetUserIDFromRequest(r *http.Request) string {
	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetUsernameFromRequest returns the authenticated username, or "".
func GetUsernameFromRequest(r *http.Request) string {
	username, ok := r.Context().Value(globals.UsernameKey).(string)
	if !ok {
		return ""
	}
	return username
}
