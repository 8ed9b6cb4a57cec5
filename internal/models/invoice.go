package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the staff-issued financial record against one inscription.
// Once PaymentVerified turns true it can never be reset and the invoice can
// no longer be deleted.
type Invoice struct {
	ID              int64           `db:"id" json:"id"`
	InscriptionID   int64           `db:"inscription_id" json:"inscription_id"`
	BillingID       int64           `db:"billing_id" json:"billing_id"`
	AmountPaid      decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	PaymentVerified bool            `db:"payment_verified" json:"payment_verified"`
	IncomeNumber    string          `db:"income_number" json:"income_number"`
	InvoiceNumber   string          `db:"invoice_number" json:"invoice_number"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// InvoiceDetail widens an invoice with course, person and billing context.
type InvoiceDetail struct {
	Invoice
	CourseName  string `db:"course_name" json:"course_name"`
	PersonName  string `db:"person_name" json:"person_name"`
	BillingName string `db:"billing_name" json:"billing_name"`
}

// InvoiceNumberChanges carries the partial-update field set for the
// administrative numbers. A number is only touched when its Optional was
// supplied in the request; an explicit null clears it back to unassigned.
type InvoiceNumberChanges struct {
	InvoiceNumber Optional[string] `json:"invoice_number"`
	IncomeNumber  Optional[string] `json:"income_number"`
}

// Empty reports whether no field was supplied.
func (c InvoiceNumberChanges) Empty() bool {
	return !c.InvoiceNumber.Set && !c.IncomeNumber.Set
}

// InvoiceFilter provides filters for listing invoices.
type InvoiceFilter struct {
	Verified      *bool
	IncludeDetail bool
	Page          int
	PageSize      int
}
