// Package middleware provides HTTP middleware for the titan trading client.
package middleware

import (
	"net/http"

	"github.com/adirathodd/titan-trading/internal/session"
)

// AuthMiddleware gates local UI routes on the session store. This guards
// what the UI shows; the remote backend still verifies every token it
// receives.
type AuthMiddleware struct {
	store *session.Store
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(store *session.Store) *AuthMiddleware {
	return &AuthMiddleware{store: store}
}

// RequireAuth is middleware that requires a live session.
// Redirects to the login page if not authenticated.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.store.IsAuthenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RedirectIfAuthenticated redirects to the dashboard if already logged in.
// Used for login/register pages.
func (m *AuthMiddleware) RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.store.IsAuthenticated() {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
