package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType categorises applied discounts.
type DiscountType string

// Supported discount types.
const (
	DiscountTypeGroup       DiscountType = "GROUP"
	DiscountTypeFlat        DiscountType = "FLAT"
	DiscountTypePercentage  DiscountType = "PERCENTAGE"
	DiscountTypeInstitution DiscountType = "INSTITUTION"
)

// Discount is optionally attached to at most one inscription.
type Discount struct {
	ID           int64           `db:"id" json:"id"`
	Type         DiscountType    `db:"type" json:"type"`
	StudentCount int             `db:"student_count" json:"student_count"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Percentage   decimal.Decimal `db:"percentage" json:"percentage"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
