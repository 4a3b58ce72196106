package cron

import (
	"context"
	"fmt"

	"github.com/truckflow/dispatch-core/internal/fleet"
	"github.com/truckflow/dispatch-core/pkg/auth"
	"github.com/truckflow/dispatch-core/pkg/logger"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

// CredentialsProvider yields the credentials the worker acts with.
type CredentialsProvider interface {
	ServiceCredentials(ctx context.Context) (truckflow.Credentials, *truckflow.User, error)
}

// FleetRefreshJobParams configure the fleet refresh job.
type FleetRefreshJobParams struct {
	Logger      *logger.Logger
	Fleet       fleet.Service
	Credentials CredentialsProvider
}

type fleetRefreshJob struct {
	logg        *logger.Logger
	fleet       fleet.Service
	credentials CredentialsProvider
}

// NewFleetRefreshJob returns the job that recomputes the fleet snapshot for the
// worker's own organization.
func NewFleetRefreshJob(params FleetRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Fleet == nil {
		return nil, fmt.Errorf("fleet service required")
	}
	if params.Credentials == nil {
		return nil, fmt.Errorf("credentials provider required")
	}
	return &fleetRefreshJob{
		logg:        params.Logger,
		fleet:       params.Fleet,
		credentials: params.Credentials,
	}, nil
}

func (j *fleetRefreshJob) Name() string {
	return "fleet-refresh"
}

func (j *fleetRefreshJob) Run(ctx context.Context) error {
	creds, user, err := j.credentials.ServiceCredentials(ctx)
	if err != nil {
		return fmt.Errorf("service credentials: %w", err)
	}
	scope, err := auth.OrgScope(creds.OrgID, user)
	if err != nil {
		return fmt.Errorf("service scope: %w", err)
	}
	ctx = truckflow.WithCredentials(ctx, creds)

	snapshot, err := j.fleet.RefreshExclusive(ctx, scope)
	if err != nil {
		return err
	}
	ctx = j.logg.WithScope(ctx, scope)
	if snapshot.Refreshing {
		j.logg.Info(ctx, "fleet refresh already running for scope")
		return nil
	}
	if len(snapshot.Warnings) > 0 {
		j.logg.Warn(j.logg.WithField(ctx, "warnings", snapshot.Warnings), "fleet refresh completed with warnings")
	}
	return nil
}
