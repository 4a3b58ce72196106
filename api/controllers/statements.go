package controllers

import (
	"net/http"

	"github.com/truckflow/dispatch-core/api/middleware"
	"github.com/truckflow/dispatch-core/api/responses"
	"github.com/truckflow/dispatch-core/api/validators"
	"github.com/truckflow/dispatch-core/internal/statements"
	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
	"github.com/truckflow/dispatch-core/pkg/logger"
)

func StatementNotesGet(svc statements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "statement notes unavailable"))
			return
		}
		statementID, err := validators.ParsePathID(r, "statementId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		note, err := svc.Get(r.Context(), middleware.ScopeFromContext(r.Context()), statementID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, note)
	}
}

// StatementNotesPut replaces the note body. An empty body clears it.
func StatementNotesPut(svc statements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "statement notes unavailable"))
			return
		}
		statementID, err := validators.ParsePathID(r, "statementId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body statements.SaveNoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var updatedBy *int64
		if user := middleware.UserFromContext(r.Context()); user != nil {
			id := user.ID
			updatedBy = &id
		}

		note, err := svc.Save(r.Context(), middleware.ScopeFromContext(r.Context()), statementID, body.Body, updatedBy)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, note)
	}
}
