package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/truckflow/dispatch-core/api/responses"
	"github.com/truckflow/dispatch-core/api/validators"
	"github.com/truckflow/dispatch-core/pkg/enums"
	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
	"github.com/truckflow/dispatch-core/pkg/logger"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

// JobStatusUpdater posts status transitions upstream.
type JobStatusUpdater interface {
	UpdateJobStatus(ctx context.Context, jobID int64, req truckflow.UpdateJobStatusRequest) (*truckflow.Job, error)
}

type jobStatusRequest struct {
	Status string   `json:"status" validate:"required"`
	Lat    *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng    *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	Note   *string  `json:"note" validate:"omitempty,max=500"`
}

// JobStatusUpdate proxies a status transition, optionally with the driver's position.
func JobStatusUpdate(svc JobStatusUpdater, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "jobs client unavailable"))
			return
		}

		jobID, err := validators.ParsePathID(r, "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body jobStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseJobStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job status").
				WithDetails(map[string]any{"status": "is invalid"}))
			return
		}
		if (body.Lat == nil) != (body.Lng == nil) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng must be sent together").
				WithDetails(map[string]any{"lat": "requires lng", "lng": "requires lat"}))
			return
		}

		req := truckflow.UpdateJobStatusRequest{Status: status, Lat: body.Lat, Lng: body.Lng}
		if body.Note != nil {
			if note := strings.TrimSpace(*body.Note); note != "" {
				req.Note = &note
			}
		}

		job, err := svc.UpdateJobStatus(r.Context(), jobID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}
