package models

import "time"

// BillingProfile carries invoicing data supplied by a registrant. A person
// may register several profiles over time, so no uniqueness beyond the
// primary key applies.
type BillingProfile struct {
	ID        int64     `db:"id" json:"id"`
	PersonID  int64     `db:"person_id" json:"person_id"`
	LegalName string    `db:"legal_name" json:"legal_name"`
	TaxID     string    `db:"tax_id" json:"tax_id"`
	Phone     string    `db:"phone" json:"phone"`
	Email     string    `db:"email" json:"email"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
