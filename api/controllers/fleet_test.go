package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/truckflow/dispatch-core/internal/fleet"
	"github.com/truckflow/dispatch-core/pkg/enums"
)

type stubFleet struct {
	fleet.Service
	snapshot  *fleet.Snapshot
	busy      bool
	current   int
	exclusive int
	scope     string
}

func (s *stubFleet) Current(ctx context.Context, scope string) (*fleet.Snapshot, error) {
	s.current++
	s.scope = scope
	return s.snapshot, nil
}

func (s *stubFleet) RefreshExclusive(ctx context.Context, scope string) (*fleet.Snapshot, error) {
	s.exclusive++
	s.scope = scope
	out := *s.snapshot
	out.Refreshing = s.busy
	return &out, nil
}

func newStubFleet() *stubFleet {
	site := int64(2)
	return &stubFleet{snapshot: &fleet.Snapshot{
		Scope:       "org:7",
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Locations: []fleet.Location{
			{DriverID: 9, DriverName: "Ana", JobID: 1, JobStatus: enums.JobStatusLoaded, Lat: 46.05, Lng: 14.5, Source: enums.LocationSourceSite, SiteID: &site},
		},
		Unlocated: []fleet.UnlocatedDriver{},
	}}
}

func TestFleetLocationsUsesScope(t *testing.T) {
	svc := newStubFleet()
	rec := httptest.NewRecorder()
	FleetLocations(svc, testLogger())(rec, withScope(httptest.NewRequest(http.MethodGet, "/api/v1/fleet/locations", nil), "org:7"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got fleet.Snapshot
	decodeData(t, rec, &got)
	if len(got.Locations) != 1 || got.Locations[0].Source != enums.LocationSourceSite {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if svc.scope != "org:7" || svc.current != 1 || svc.exclusive != 0 {
		t.Fatalf("expected cached read for org:7, got scope=%q current=%d exclusive=%d", svc.scope, svc.current, svc.exclusive)
	}
}

func TestFleetLocationsForceRefresh(t *testing.T) {
	svc := newStubFleet()
	rec := httptest.NewRecorder()
	FleetLocations(svc, testLogger())(rec, withScope(httptest.NewRequest(http.MethodGet, "/api/v1/fleet/locations?refresh=true", nil), "org:7"))
	if rec.Code != http.StatusOK || svc.exclusive != 1 || svc.current != 0 {
		t.Fatalf("expected forced refresh, got code=%d exclusive=%d", rec.Code, svc.exclusive)
	}

	rec = httptest.NewRecorder()
	FleetLocations(svc, testLogger())(rec, withScope(httptest.NewRequest(http.MethodGet, "/?refresh=maybe", nil), "org:7"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad refresh flag, got %d", rec.Code)
	}
}

func TestFleetLocationsRequiresScope(t *testing.T) {
	rec := httptest.NewRecorder()
	FleetLocations(newStubFleet(), testLogger())(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestFleetLocationsGeoJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	FleetLocationsGeoJSON(newStubFleet(), testLogger())(rec, withScope(httptest.NewRequest(http.MethodGet, "/", nil), "org:7"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("decode geojson: %v", err)
	}
	if doc.Type != "FeatureCollection" || len(doc.Features) != 1 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if coords := doc.Features[0].Geometry.Coordinates; len(coords) != 2 || coords[0] != 14.5 || coords[1] != 46.05 {
		t.Fatalf("expected lng,lat ordering, got %v", coords)
	}
}

func TestFleetRefreshStatus(t *testing.T) {
	svc := newStubFleet()
	rec := httptest.NewRecorder()
	FleetRefresh(svc, testLogger())(rec, withScope(httptest.NewRequest(http.MethodPost, "/api/v1/fleet/refresh", nil), "org:7"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	svc.busy = true
	rec = httptest.NewRecorder()
	FleetRefresh(svc, testLogger())(rec, withScope(httptest.NewRequest(http.MethodPost, "/api/v1/fleet/refresh", nil), "org:7"))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 while a pass is running, got %d", rec.Code)
	}
	var got fleet.Snapshot
	decodeData(t, rec, &got)
	if !got.Refreshing {
		t.Fatal("expected refreshing flag")
	}
}
