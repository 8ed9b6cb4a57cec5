package models

import "time"

// Voucher records metadata of an uploaded payment receipt. The bytes
// themselves live in external storage referenced by StorageKey; exactly one
// inscription may reference a voucher.
type Voucher struct {
	ID               int64     `db:"id" json:"id"`
	StorageKey       string    `db:"storage_key" json:"storage_key"`
	MIMEType         string    `db:"mime_type" json:"mime_type"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	UploadedAt       time.Time `db:"uploaded_at" json:"uploaded_at"`
}
