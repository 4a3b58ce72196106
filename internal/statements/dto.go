package statements

import (
	"time"

	"github.com/truckflow/dispatch-core/pkg/db/models"
)

// Note is the API view of a statement note. A statement without notes has an
// empty body and no timestamps.
type Note struct {
	StatementID int64      `json:"statement_id"`
	Body        string     `json:"body"`
	UpdatedBy   *int64     `json:"updated_by,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// SaveNoteRequest is the body accepted by the notes PUT endpoint.
type SaveNoteRequest struct {
	Body string `json:"body" validate:"max=4000"`
}

func noteFromModel(statementID int64, m *models.StatementNote) Note {
	if m == nil {
		return Note{StatementID: statementID}
	}
	updatedAt := m.UpdatedAt.UTC()
	return Note{
		StatementID: m.StatementID,
		Body:        m.Body,
		UpdatedBy:   m.UpdatedBy,
		UpdatedAt:   &updatedAt,
	}
}
