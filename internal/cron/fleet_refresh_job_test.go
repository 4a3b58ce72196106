package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/truckflow/dispatch-core/internal/fleet"
	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

type stubCredentials struct {
	creds truckflow.Credentials
	user  *truckflow.User
	err   error
}

func (s stubCredentials) ServiceCredentials(context.Context) (truckflow.Credentials, *truckflow.User, error) {
	return s.creds, s.user, s.err
}

type stubFleet struct {
	fleet.Service
	scopes   []string
	creds    truckflow.Credentials
	snapshot *fleet.Snapshot
	err      error
}

func (s *stubFleet) RefreshExclusive(ctx context.Context, scope string) (*fleet.Snapshot, error) {
	s.scopes = append(s.scopes, scope)
	s.creds, _ = truckflow.CredentialsFrom(ctx)
	return s.snapshot, s.err
}

func TestFleetRefreshJobUsesServiceScope(t *testing.T) {
	orgID := int64(12)
	svc := &stubFleet{snapshot: &fleet.Snapshot{Warnings: []string{"job 4: status events unavailable"}}}
	job, err := NewFleetRefreshJob(FleetRefreshJobParams{
		Logger: testLogger(),
		Fleet:  svc,
		Credentials: stubCredentials{
			creds: truckflow.Credentials{Token: "svc-token"},
			user:  &truckflow.User{ID: 3, OrgID: &orgID},
		},
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if job.Name() != "fleet-refresh" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(svc.scopes) != 1 || svc.scopes[0] != "org:12" {
		t.Fatalf("expected org scope, got %v", svc.scopes)
	}
	if svc.creds.Token != "svc-token" {
		t.Fatalf("expected service credentials on ctx, got %+v", svc.creds)
	}
}

func TestFleetRefreshJobImpersonatedOrgWins(t *testing.T) {
	svc := &stubFleet{snapshot: &fleet.Snapshot{Refreshing: true}}
	job, _ := NewFleetRefreshJob(FleetRefreshJobParams{
		Logger:      testLogger(),
		Fleet:       svc,
		Credentials: stubCredentials{creds: truckflow.Credentials{Token: "t", OrgID: "44"}, user: &truckflow.User{ID: 1, Role: "super_admin"}},
	})
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if svc.scopes[0] != "org:44" || svc.creds.OrgID != "44" {
		t.Fatalf("expected impersonated org, got scope=%v creds=%+v", svc.scopes, svc.creds)
	}
}

func TestFleetRefreshJobRejectsForeignOrgForRegularUser(t *testing.T) {
	own := int64(12)
	svc := &stubFleet{snapshot: &fleet.Snapshot{}}
	job, _ := NewFleetRefreshJob(FleetRefreshJobParams{
		Logger: testLogger(),
		Fleet:  svc,
		Credentials: stubCredentials{
			creds: truckflow.Credentials{Token: "t", OrgID: "44"},
			user:  &truckflow.User{ID: 1, OrgID: &own, Role: "dispatcher"},
		},
	})
	if err := job.Run(context.Background()); pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(svc.scopes) != 0 {
		t.Fatalf("refresh must not run for a foreign org, got %v", svc.scopes)
	}
}

func TestFleetRefreshJobPropagatesErrors(t *testing.T) {
	job, _ := NewFleetRefreshJob(FleetRefreshJobParams{
		Logger:      testLogger(),
		Fleet:       &stubFleet{},
		Credentials: stubCredentials{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "service credentials are not configured")},
	})
	if err := job.Run(context.Background()); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	failing := &stubFleet{err: errors.New("upstream down")}
	job, _ = NewFleetRefreshJob(FleetRefreshJobParams{
		Logger:      testLogger(),
		Fleet:       failing,
		Credentials: stubCredentials{creds: truckflow.Credentials{Token: "t"}, user: &truckflow.User{ID: 1}},
	})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
}

func TestNewFleetRefreshJobValidates(t *testing.T) {
	if _, err := NewFleetRefreshJob(FleetRefreshJobParams{}); err == nil {
		t.Fatal("expected error without dependencies")
	}
}
