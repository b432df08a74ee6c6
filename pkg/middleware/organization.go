package middleware

import (
	"context"
	"net/http"
)

const organizationHeader = "X-Organization"

type orgCtxKey struct{}

// Organization plumbs the already-authenticated tenant id from the
// X-Organization header into the request context. Authentication itself
// happens upstream; requests without the header fall back to defaultOrg,
// which covers local development.
func Organization(defaultOrg string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			org := r.Header.Get(organizationHeader)
			if org == "" {
				org = defaultOrg
			}
			ctx := context.WithValue(r.Context(), orgCtxKey{}, org)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OrgFromContext returns the tenant id set by Organization, or empty when
// the middleware did not run.
func OrgFromContext(ctx context.Context) string {
	org, _ := ctx.Value(orgCtxKey{}).(string)
	return org
}
