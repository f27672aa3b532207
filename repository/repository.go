// Package repository holds the storage capabilities used by the services.
// Two implementations exist: GormStore (postgres in production, sqlite in
// tests) and MemoryStore.
package repository

import (
	"context"
	"errors"
	"time"

	"daily-reward-system/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict is returned when a conditional write lost against a
	// concurrent writer.
	ErrConflict = errors.New("concurrent modification")
)

// TierFilter narrows ListTiers.
type TierFilter struct {
	ActiveOnly bool
}

type TierRepository interface {
	Create(ctx context.Context, tier *models.RewardTier) error
	// List returns tiers ordered by tier_index ascending.
	List(ctx context.Context, filter TierFilter) ([]models.RewardTier, error)
	GetByIndex(ctx context.Context, index int) (*models.RewardTier, error)
	GetByID(ctx context.Context, id string) (*models.RewardTier, error)
	Save(ctx context.Context, tier *models.RewardTier) error
	Delete(ctx context.Context, id string, hard bool) error
}

type ClaimRepository interface {
	Insert(ctx context.Context, claim *models.ClaimRecord) error
	// Latest returns the most recent claim of the user, or ErrNotFound.
	Latest(ctx context.Context, userID string) (*models.ClaimRecord, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]models.ClaimRecord, int64, error)
	// ListBetween returns claims with from <= claimed_at < to, oldest first.
	ListBetween(ctx context.Context, from, to time.Time) ([]models.ClaimRecord, error)
}

// ClaimCredit is the balance mutation applied together with a new claim.
type ClaimCredit struct {
	UserID           string
	ExpectedClaimSeq int64
	PrimaryDelta     int64
	SecondaryDelta   int64
	ClaimedAt        time.Time
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetRole(ctx context.Context, id string, role models.UserRole) error
	// Credit increments both balances. ErrNotFound when the user is missing.
	Credit(ctx context.Context, id string, primaryDelta, secondaryDelta int64) error
	// ApplyClaim increments balances and advances claim_count only if
	// claim_count still equals ExpectedClaimSeq; otherwise ErrConflict.
	ApplyClaim(ctx context.Context, credit ClaimCredit) error
}

// Store groups the repositories and runs units of work atomically.
type Store interface {
	Tiers() TierRepository
	Claims() ClaimRepository
	Users() UserRepository
	// WithinTx runs fn against a transactional view of the store. Nothing fn
	// wrote is visible to other callers if it returns an error.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
