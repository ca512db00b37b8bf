package api

// This file contains the middleware resolving the owner identity each
// request acts on behalf of.

import (
	"context"
	"fmt"
	"net/http"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey string

const ownerContextKey = contextKey("owner")

// Authenticator resolves the owner id a request belongs to. Real
// authentication lives with the external collaborator fronting this
// service; the default implementation simply trusts what it forwards.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// HeaderAuthenticator reads the owner from the X-Owner-ID header, with
// the "owner" query parameter as a fallback for clients that cannot
// set headers.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	owner := r.Header.Get("X-Owner-ID")
	if owner == "" {
		owner = r.URL.Query().Get("owner")
	}
	if owner == "" {
		return "", fmt.Errorf("missing owner identity")
	}
	return owner, nil
}

// OwnerMiddleware resolves the request's owner and injects it into the
// request context for downstream handlers to use.
func (s *Server) OwnerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := s.auth.Authenticate(r)
		if err != nil {
			RespondWithError(w, http.StatusUnauthorized, "Unauthorized: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), ownerContextKey, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getOwnerFromContext is a helper to safely retrieve the owner id from
// the request context. It returns "" if no owner was resolved.
func getOwnerFromContext(r *http.Request) string {
	owner, ok := r.Context().Value(ownerContextKey).(string)
	if !ok {
		return ""
	}
	return owner
}
