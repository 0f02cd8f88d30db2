package httpapi

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

type principalKey struct{}

// Principal is the verified caller of an authenticated endpoint.
type Principal struct {
	SubjectID string
	Roles     []string
}

func principalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}

// RequireAuth verifies the access token and, when roles are given,
// requires the caller to hold one of them.
func (a *API) RequireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				a.returnJson(w, http.StatusUnauthorized, services.Result{Message: "Unauthorized", Errors: []string{"access token required"}})
				return
			}

			subject, have, err := a.svc.VerifyAccessToken(token)
			if err != nil {
				a.log.Debug(r.Context(), "access token rejected", "error", err)
				a.returnJson(w, http.StatusUnauthorized, services.Result{Message: "Unauthorized", Errors: []string{err.Error()}})
				return
			}

			if len(roles) > 0 && !slices.ContainsFunc(roles, func(want string) bool { return slices.Contains(have, want) }) {
				a.returnJson(w, http.StatusForbidden, services.Result{Message: "Forbidden", Errors: []string{common.ErrorForbidden.Error()}})
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, Principal{SubjectID: subject, Roles: have})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// accessLog logs method, path, status and duration. Query strings are left
// out because confirmation links carry tokens.
func (a *API) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		a.log.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
