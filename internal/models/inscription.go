package models

import "time"

// InscriptionStatus is derived from the enrolled flag; it is never stored.
type InscriptionStatus string

// Possible inscription statuses.
const (
	InscriptionStatusPending  InscriptionStatus = "PENDING"
	InscriptionStatusEnrolled InscriptionStatus = "ENROLLED"
)

// StatusOf derives the lifecycle status from the enrolled flag.
func StatusOf(enrolled bool) InscriptionStatus {
	if enrolled {
		return InscriptionStatusEnrolled
	}
	return InscriptionStatusPending
}

// Inscription is the aggregate root tying a person to a course via a billing
// profile and a payment voucher, optionally carrying a discount.
type Inscription struct {
	ID         int64     `db:"id" json:"id"`
	CourseID   int64     `db:"course_id" json:"course_id"`
	PersonID   int64     `db:"person_id" json:"person_id"`
	BillingID  int64     `db:"billing_id" json:"billing_id"`
	VoucherID  int64     `db:"voucher_id" json:"voucher_id"`
	DiscountID *int64    `db:"discount_id" json:"discount_id,omitempty"`
	Enrolled   bool      `db:"enrolled" json:"enrolled"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Status reports the derived lifecycle state.
func (i Inscription) Status() InscriptionStatus {
	return StatusOf(i.Enrolled)
}

// InscriptionDetail enriches an inscription with related entity context.
type InscriptionDetail struct {
	Inscription
	DerivedStatus   InscriptionStatus `db:"status" json:"status"`
	CourseName      string            `db:"course_name" json:"course_name"`
	CourseShortCode string            `db:"course_short_code" json:"course_short_code"`
	PersonName      string            `db:"person_name" json:"person_name"`
	PersonEmail     string            `db:"person_email" json:"person_email"`
	BillingName     string            `db:"billing_name" json:"billing_name"`
	VoucherFilename string            `db:"voucher_filename" json:"voucher_filename"`
}

// InscriptionChanges carries the partial-update field set. A field is only
// applied when its Optional was supplied in the request; DiscountID supports
// an explicit clear.
type InscriptionChanges struct {
	CourseID   Optional[int64] `json:"course_id"`
	BillingID  Optional[int64] `json:"billing_id"`
	DiscountID Optional[int64] `json:"discount_id"`
	Enrolled   Optional[bool]  `json:"enrolled"`
}

// Empty reports whether no field was supplied.
func (c InscriptionChanges) Empty() bool {
	return !c.CourseID.Set && !c.BillingID.Set && !c.DiscountID.Set && !c.Enrolled.Set
}

// InscriptionFilter provides filters for listing inscriptions.
type InscriptionFilter struct {
	CourseID  int64
	PersonID  int64
	Enrolled  *bool
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
