package statements

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/truckflow/dispatch-core/pkg/db/models"
	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
	"github.com/truckflow/dispatch-core/pkg/logger"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

// MaxNoteLength bounds a note body in characters.
const MaxNoteLength = 4000

// StatementSource confirms statements exist upstream.
type StatementSource interface {
	GetStatement(ctx context.Context, statementID int64) (*truckflow.Statement, error)
}

// Service reads and writes statement notes for an organization scope.
type Service interface {
	Get(ctx context.Context, orgKey string, statementID int64) (Note, error)
	Save(ctx context.Context, orgKey string, statementID int64, body string, updatedBy *int64) (Note, error)
}

type service struct {
	repo     Repository
	upstream StatementSource
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the notes dependencies. logg may be nil.
func NewService(repo Repository, upstream StatementSource, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "statement notes repository required")
	}
	if upstream == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "statement source required")
	}
	return &service{repo: repo, upstream: upstream, logg: logg, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, orgKey string, statementID int64) (Note, error) {
	if err := validateKey(orgKey, statementID); err != nil {
		return Note{}, err
	}
	note, err := s.repo.Get(ctx, orgKey, statementID)
	if err != nil {
		return Note{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load statement note")
	}
	return noteFromModel(statementID, note), nil
}

// Save upserts the note. A blank body removes it.
func (s *service) Save(ctx context.Context, orgKey string, statementID int64, body string, updatedBy *int64) (Note, error) {
	if err := validateKey(orgKey, statementID); err != nil {
		return Note{}, err
	}
	if n := utf8.RuneCountInString(body); n > MaxNoteLength {
		return Note{}, pkgerrors.New(pkgerrors.CodeValidation, "note is too long").
			WithDetails(map[string]any{"field": "body", "max": MaxNoteLength, "length": n})
	}

	if _, err := s.upstream.GetStatement(ctx, statementID); err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return Note{}, typed
		}
		return Note{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load statement")
	}

	if strings.TrimSpace(body) == "" {
		removed, err := s.repo.Delete(ctx, orgKey, statementID)
		if err != nil {
			return Note{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete statement note")
		}
		if removed && s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "statement_id", statementID), "statement note cleared")
		}
		return Note{StatementID: statementID}, nil
	}

	now := s.now().UTC()
	note := &models.StatementNote{
		OrgKey:      orgKey,
		StatementID: statementID,
		Body:        body,
		UpdatedBy:   updatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Upsert(ctx, note); err != nil {
		return Note{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save statement note")
	}
	return noteFromModel(statementID, note), nil
}

func validateKey(orgKey string, statementID int64) error {
	if strings.TrimSpace(orgKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization scope required")
	}
	if statementID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "statement id must be positive").
			WithDetails(map[string]any{"field": "statement_id"})
	}
	return nil
}
