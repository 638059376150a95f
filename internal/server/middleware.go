package server

import (
	"context"
	"database/sql"
	"net/http"
)

type ctxKey int

const ctxKeyHost ctxKey = iota

// hostAuthMiddleware guards the game-mutating routes behind the host
// session cookie.
func hostAuthMiddleware(db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := hostFromRequest(r, db)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyHost, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
