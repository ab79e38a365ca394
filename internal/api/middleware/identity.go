package middleware

import (
	"net/http"

	"github.com/mbarlow/lectern-api/internal/api/shared"
)

// UserIDHeader names the header the upstream gateway sets after
// authenticating the caller. The value is trusted as-is; ownership checks
// downstream compare it against the owner encoded in task IDs.
const UserIDHeader = "X-User-ID"

// IdentityMiddleware extracts the caller's user ID from the request header
// and stores it in the context. Requests without an identity are rejected.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserIDHeader)
		if userID == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing user identity")
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.WithUserID(r.Context(), userID)))
	})
}
