package models

import "time"

// Person represents a registrant. Identification number and email are
// globally unique.
type Person struct {
	ID             int64     `db:"id" json:"id"`
	Identification string    `db:"identification" json:"identification"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	Phone          string    `db:"phone" json:"phone"`
	Country        string    `db:"country" json:"country"`
	Region         string    `db:"region" json:"region"`
	City           string    `db:"city" json:"city"`
	Profession     string    `db:"profession" json:"profession"`
	Institution    string    `db:"institution" json:"institution"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// PersonFilter encapsulates search parameters for listing persons.
type PersonFilter struct {
	Search    string
	Country   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
