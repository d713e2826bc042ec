package server

import (
	"context"
	"net/http"
	"strings"
)

// Authentication lives with the external identity provider; by the time
// a request reaches us the gateway has resolved the token and set the
// user id header, which we trust as given.
const userIDHeader = "X-User-Id"

type contextKey string

const userIDKey contextKey = "user_id"

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(userIDHeader))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
