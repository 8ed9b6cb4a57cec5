package models

import "time"

// Audit actions recorded for completed state transitions.
const (
	AuditActionInscriptionCreated = "INSCRIPTION_CREATED"
	AuditActionInscriptionUpdated = "INSCRIPTION_UPDATED"
	AuditActionInscriptionDeleted = "INSCRIPTION_DELETED"
	AuditActionStudentEnrolled    = "STUDENT_ENROLLED"
	AuditActionInvoiceCreated     = "INVOICE_CREATED"
	AuditActionInvoiceDeleted     = "INVOICE_DELETED"
	AuditActionPaymentVerified    = "PAYMENT_VERIFIED"
)

// AuditLog is an append-only trail record. Recording failures never fail the
// primary operation.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *int64    `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *int64    `db:"resource_id" json:"resource_id,omitempty"`
	Detail     string    `db:"detail" json:"detail"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
