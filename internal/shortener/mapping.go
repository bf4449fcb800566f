package shortener

import "time"

// Code is the short key of a mapping.
type Code string

// PrincipalID identifies the caller that issued a link. Empty means anonymous.
type PrincipalID string

// Anonymous reports whether no principal was supplied.
func (p PrincipalID) Anonymous() bool {
	return p == ""
}

// Mapping is the canonical long URL to short key pair shared by every principal.
type Mapping struct {
	ID        int64
	Code      Code
	LongURL   string
	CreatedBy PrincipalID
	CreatedAt time.Time
}

// UserLink associates a principal with a mapping under a private title.
type UserLink struct {
	Principal PrincipalID
	Code      Code
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Link is a mapping as seen by one principal.
type Link struct {
	Mapping   Mapping
	Title     string
	UpdatedAt time.Time
}
