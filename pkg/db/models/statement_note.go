package models

import "time"

// StatementNote stores free-text notes an organization keeps against an upstream statement.
type StatementNote struct {
	OrgKey      string    `gorm:"column:org_key;type:text;primaryKey"`
	StatementID int64     `gorm:"column:statement_id;primaryKey;autoIncrement:false"`
	Body        string    `gorm:"type:text;not null"`
	UpdatedBy   *int64    `gorm:"column:updated_by"`
	CreatedAt   time.Time `gorm:"type:timestamptz;default:now()"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;default:now()"`
}

func (StatementNote) TableName() string {
	return "statement_notes"
}
