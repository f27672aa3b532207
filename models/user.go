package models

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is the account record. Balances only ever grow through claims.
type User struct {
	ID           string   `gorm:"primaryKey;type:uuid" json:"id"`
	Name         string   `gorm:"not null" json:"name"`
	Email        string   `gorm:"uniqueIndex;not null" json:"email"`
	Phone        string   `json:"phone,omitempty"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(16);not null;default:'user'" json:"role"`

	PrimaryBalance   int64 `gorm:"not null;default:0" json:"primary_balance"`
	SecondaryBalance int64 `gorm:"not null;default:0" json:"secondary_balance"`

	// ClaimCount is the sequence of the latest claim and doubles as the
	// compare-and-swap version for claim commits.
	ClaimCount    int64      `gorm:"not null;default:0" json:"claim_count"`
	LastClaimedAt *time.Time `json:"last_claimed_at,omitempty"`

	Timestamps
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
