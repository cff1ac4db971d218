package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dpetrovs/finledger/internal/server/auth"
)

type ctxKey int

const userIDKey ctxKey = 0

// withAuth verifies the Bearer access token and stores the authenticated
// user id in the request context. Handlers behind it can assume a user id
// is present.
func (s *Server) withAuth(next func(http.ResponseWriter, *http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		userID, err := auth.GetUserIDFromToken(token, s.secretKey)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
