package domain

import (
	"strings"
	"time"
)

type Account struct {
	ID           string
	Email        string // unique, normalised with NormalizeEmail
	Name         string
	PasswordHash string // digest with embedded algorithm, cost and salt
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail is applied before every store lookup or insert so that
// uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
