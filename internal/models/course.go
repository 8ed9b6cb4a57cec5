package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CourseModality distinguishes how a course is delivered.
type CourseModality string

// Supported course modalities.
const (
	CourseModalityOnsite  CourseModality = "ONSITE"
	CourseModalityVirtual CourseModality = "VIRTUAL"
	CourseModalityHybrid  CourseModality = "HYBRID"
)

// Course represents an offered course open for inscription.
type Course struct {
	ID        int64           `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	ShortCode string          `db:"short_code" json:"short_code"`
	Modality  CourseModality  `db:"modality" json:"modality"`
	Price     decimal.Decimal `db:"price" json:"price"`
	StartDate time.Time       `db:"start_date" json:"start_date"`
	EndDate   time.Time       `db:"end_date" json:"end_date"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// CourseFilter encapsulates allowed search parameters for listing courses.
type CourseFilter struct {
	Search    string
	Modality  CourseModality
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
