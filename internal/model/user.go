package model

import (
	"strings"
)

// User status constants
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusLocked   = "locked"
)

// User represents a staff member who can sign in.
type User struct {
	Base
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	LastName     string `json:"last_name" db:"last_name"`
	FirstName    string `json:"first_name" db:"first_name"`
	MiddleName   string `json:"middle_name" db:"middle_name"`
	Status       string `json:"status" db:"status"`
}

// FullName renders "Last First Middle".
func (u *User) FullName() string {
	return fullName(u.LastName, u.FirstName, u.MiddleName)
}

// ShortName renders "Last F. M.".
func (u *User) ShortName() string {
	return shortName(u.LastName, u.FirstName, u.MiddleName)
}

func fullName(last, first, middle string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{last, first, middle} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func shortName(last, first, middle string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(last))
	for _, p := range []string{first, middle} {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		r := []rune(p)
		b.WriteString(" ")
		b.WriteString(string(r[0]))
		b.WriteString(".")
	}
	return b.String()
}
