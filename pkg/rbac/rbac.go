// Package rbac guards routes by the isAdmin claim. Both guards expect
// middleware.Authenticate to have run first.
package rbac

import (
	"net/http"

	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

// AdminOnly lets only admins through.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.FromContext(r.Context())
		if !ok {
			response.Unauthorized(w)
			return
		}
		if !claims.IsAdmin {
			response.Error(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CustomerOnly blocks admins from shopper-only routes (cart, checkout).
func CustomerOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.FromContext(r.Context())
		if !ok {
			response.Unauthorized(w)
			return
		}
		if claims.IsAdmin {
			response.Error(w, http.StatusForbidden, "Admins cannot use this route")
			return
		}
		next.ServeHTTP(w, r)
	})
}
