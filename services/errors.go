package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("access denied, admin only")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")

	ErrUserNotFound = errors.New("user not found")
	ErrTierNotFound = errors.New("reward tier not found")

	ErrNotYetEligible     = errors.New("reward already claimed in the current window")
	ErrNoRewardsAvailable = errors.New("no rewards available")
	ErrDuplicateTier      = errors.New("reward tier with this index already exists")

	ErrStorage = errors.New("storage failure")
)

// EligibilityError is returned when a claim is attempted before the window
// has elapsed. errors.Is(err, ErrNotYetEligible) holds.
type EligibilityError struct {
	NextEligibleAt time.Time
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("you can claim again after %s", e.NextEligibleAt.UTC().Format(time.RFC3339))
}

func (e *EligibilityError) Is(target error) bool {
	return target == ErrNotYetEligible
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
