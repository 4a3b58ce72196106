package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/truckflow/dispatch-core/api/responses"
	"github.com/truckflow/dispatch-core/pkg/auth"
	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
	"github.com/truckflow/dispatch-core/pkg/logger"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

// UserResolver returns the upstream user behind a set of credentials.
type UserResolver interface {
	Me(ctx context.Context, creds truckflow.Credentials) (*truckflow.User, error)
}

// Credentials requires a bearer token and forwards it, with the optional impersonated
// org id, to every upstream call made with the request context. The token itself is
// validated by the upstream API.
func Credentials(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token := raw
			if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" || token == raw {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			orgID := strings.TrimSpace(r.Header.Get(truckflow.HeaderOrgID))
			if orgID != "" {
				if id, err := strconv.ParseInt(orgID, 10, 64); err != nil || id <= 0 {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid organization header").
						WithDetails(map[string]any{"header": truckflow.HeaderOrgID}))
					return
				}
			}

			ctx := truckflow.WithCredentials(r.Context(), truckflow.Credentials{Token: token, OrgID: orgID})
			if logg != nil && orgID != "" {
				ctx = logg.WithOrgID(ctx, orgID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Identity resolves the caller through the cached upstream /auth/me and seeds the
// context with the user and its organization scope. It must run after Credentials.
// An org id header naming a foreign org is rejected unless the user may impersonate.
func Identity(resolver UserResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, ok := truckflow.CredentialsFrom(r.Context())
			if !ok || creds.Token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			user, err := resolver.Me(r.Context(), creds)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			scope, err := auth.OrgScope(creds.OrgID, user)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := WithUser(r.Context(), user)
			ctx = WithScope(ctx, scope)
			if logg != nil {
				ctx = logg.WithIdentity(ctx, user.ID, scope)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
