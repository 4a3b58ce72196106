package controllers

import (
	"context"
	"net/http"

	"github.com/truckflow/dispatch-core/api/middleware"
	"github.com/truckflow/dispatch-core/api/responses"
	"github.com/truckflow/dispatch-core/api/validators"
	"github.com/truckflow/dispatch-core/internal/fleet"
	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
	"github.com/truckflow/dispatch-core/pkg/logger"
)

// FleetLocations returns the cached snapshot for the caller's organization,
// computing one on a miss. ?refresh=true forces an exclusive pass.
func FleetLocations(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := loadSnapshot(w, r, svc, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// FleetLocationsGeoJSON renders the same snapshot as a FeatureCollection.
func FleetLocationsGeoJSON(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := loadSnapshot(w, r, svc, logg)
		if !ok {
			return
		}
		responses.WriteGeoJSON(w, fleet.GeoJSON(snapshot))
	}
}

// FleetRefresh runs a pass under the scope lock. A pass already in flight yields the
// cached snapshot flagged refreshing with 202.
func FleetRefresh(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := requireFleet(w, r, svc, logg)
		if !ok {
			return
		}
		snapshot, err := svc.RefreshExclusive(r.Context(), scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if snapshot.Refreshing {
			status = http.StatusAccepted
		}
		responses.WriteSuccessStatus(w, status, snapshot)
	}
}

func loadSnapshot(w http.ResponseWriter, r *http.Request, svc fleet.Service, logg *logger.Logger) (*fleet.Snapshot, bool) {
	scope, ok := requireFleet(w, r, svc, logg)
	if !ok {
		return nil, false
	}
	force, err := validators.ParseQueryBool(r, "refresh", false)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}

	load := svc.Current
	if force {
		load = func(ctx context.Context, scope string) (*fleet.Snapshot, error) {
			return svc.RefreshExclusive(ctx, scope)
		}
	}
	snapshot, err := load(r.Context(), scope)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	return snapshot, true
}

func requireFleet(w http.ResponseWriter, r *http.Request, svc fleet.Service, logg *logger.Logger) (string, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fleet service unavailable"))
		return "", false
	}
	scope := middleware.ScopeFromContext(r.Context())
	if scope == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "organization scope missing"))
		return "", false
	}
	return scope, true
}
