package controllers

import (
	"context"
	"net/http"

	"github.com/truckflow/dispatch-core/api/middleware"
	"github.com/truckflow/dispatch-core/api/responses"
	"github.com/truckflow/dispatch-core/api/validators"
	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
	"github.com/truckflow/dispatch-core/pkg/logger"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

// LoginService logs users in against the upstream API.
type LoginService interface {
	Login(ctx context.Context, email, password string) (*truckflow.LoginResponse, error)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthLogin proxies the upstream login and returns the token with its user.
func AuthLogin(svc LoginService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AuthMe returns the user resolved by the identity middleware.
func AuthMe(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"user":  user,
			"scope": middleware.ScopeFromContext(r.Context()),
		})
	}
}
