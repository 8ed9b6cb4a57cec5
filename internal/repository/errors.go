package repository

import "fmt"

// Typed conflict results surfaced by transactional writes. Services map them
// onto business-level conflict errors; they carry the offending values so
// messages can name the rule that fired.

// DuplicateInscriptionError reports a second inscription for a
// (course, person) pair.
type DuplicateInscriptionError struct {
	CourseID int64
	PersonID int64
}

func (e *DuplicateInscriptionError) Error() string {
	return fmt.Sprintf("inscription already exists for course %d and person %d", e.CourseID, e.PersonID)
}

// DuplicateVoucherError reports a voucher already referenced by another
// inscription.
type DuplicateVoucherError struct {
	VoucherID int64
}

func (e *DuplicateVoucherError) Error() string {
	return fmt.Sprintf("voucher %d is already referenced by an inscription", e.VoucherID)
}

// DuplicateInvoiceError reports a second invoice for an inscription.
type DuplicateInvoiceError struct {
	InscriptionID int64
}

func (e *DuplicateInvoiceError) Error() string {
	return fmt.Sprintf("invoice already exists for inscription %d", e.InscriptionID)
}

// AlreadyVerifiedError reports a verify call against an invoice whose
// payment was already verified.
type AlreadyVerifiedError struct {
	InvoiceID int64
}

func (e *AlreadyVerifiedError) Error() string {
	return fmt.Sprintf("invoice %d is already verified", e.InvoiceID)
}

// DuplicateNumberError reports a duplicated invoice or income number,
// naming the specific field.
type DuplicateNumberError struct {
	Field string
	Value string
}

func (e *DuplicateNumberError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

// DuplicatePersonFieldError reports a duplicated person identification or
// email, naming the specific field.
type DuplicatePersonFieldError struct {
	Field string
	Value string
}

func (e *DuplicatePersonFieldError) Error() string {
	return fmt.Sprintf("person %s %q already exists", e.Field, e.Value)
}
