package auth

import (
	"context"
	"net/http"

	"github.com/veriscope/console/pkg/errors"
	"github.com/veriscope/console/pkg/httputil"
)

// RequireSession rejects requests until the operator is logged in and puts
// the operator's name on the request context. The first request triggers
// session verification if startup did not.
func (m *Manager) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.Initialize(context.WithoutCancel(r.Context()))
		if !s.Authenticated() {
			httputil.Error(w, errors.Unauthorized("not authenticated"))
			return
		}

		ctx := httputil.WithUsername(r.Context(), s.User.Username())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
