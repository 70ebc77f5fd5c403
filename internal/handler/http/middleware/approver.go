package middleware

import (
	"net/http"

	"github.com/glowhouse/portal-backend-go/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// ApproverOnly restricts a route to employees carrying the approver claim.
func ApproverOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			isApprover, ok := claims["is_approver"].(bool)
			if !ok || !isApprover {
				response.Forbidden(w, "Approver role required")
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}
