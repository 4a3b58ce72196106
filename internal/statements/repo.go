package statements

import (
	"context"
	"errors"

	"github.com/truckflow/dispatch-core/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists statement notes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, orgKey string, statementID int64) (*models.StatementNote, error)
	Upsert(ctx context.Context, note *models.StatementNote) error
	Delete(ctx context.Context, orgKey string, statementID int64) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a statement notes repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// Get returns nil, nil when no note exists.
func (r *repositoryImpl) Get(ctx context.Context, orgKey string, statementID int64) (*models.StatementNote, error) {
	var note models.StatementNote
	err := r.db.WithContext(ctx).
		Where("org_key = ? AND statement_id = ?", orgKey, statementID).
		Take(&note).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

func (r *repositoryImpl) Upsert(ctx context.Context, note *models.StatementNote) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_key"}, {Name: "statement_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"body", "updated_by", "updated_at"}),
		}).
		Create(note).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, orgKey string, statementID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("org_key = ? AND statement_id = ?", orgKey, statementID).
		Delete(&models.StatementNote{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
