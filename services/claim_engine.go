package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"daily-reward-system/models"
	"daily-reward-system/repository"

	"github.com/google/uuid"
)

// ClaimResult is returned by a successful AttemptClaim.
type ClaimResult struct {
	Claim          models.ClaimRecord `json:"claim"`
	Tier           models.RewardTier  `json:"tier"`
	NextEligibleAt time.Time          `json:"next_eligible_at"`
}

// RewardPreview describes what the next claim would grant and when.
type RewardPreview struct {
	Tier           models.RewardTier   `json:"tier"`
	CyclePosition  int                 `json:"cycle_position"`
	CycleLength    int                 `json:"cycle_length"`
	Eligible       bool                `json:"eligible"`
	NextEligibleAt *time.Time          `json:"next_eligible_at"`
	LastClaim      *models.ClaimRecord `json:"last_claim,omitempty"`
}

// ClaimEngine decides claim eligibility, picks the reward tier and commits
// the claim together with the balance credit.
type ClaimEngine struct {
	store   repository.Store
	locks   *UserLocks
	window  time.Duration
	now     func() time.Time
	metrics *Metrics
	logger  *slog.Logger
}

type EngineOption func(*ClaimEngine)

func WithClock(now func() time.Time) EngineOption {
	return func(e *ClaimEngine) { e.now = now }
}

func WithWindow(window time.Duration) EngineOption {
	return func(e *ClaimEngine) {
		if window > 0 {
			e.window = window
		}
	}
}

func WithMetrics(m *Metrics) EngineOption {
	return func(e *ClaimEngine) { e.metrics = m }
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(e *ClaimEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLocks shares a lock table between engines. Each engine gets its own
// table by default.
func WithLocks(l *UserLocks) EngineOption {
	return func(e *ClaimEngine) { e.locks = l }
}

func NewClaimEngine(store repository.Store, opts ...EngineOption) *ClaimEngine {
	e := &ClaimEngine{
		store:  store,
		locks:  NewUserLocks(),
		window: DefaultClaimWindow,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *ClaimEngine) Window() time.Duration { return e.window }

// snapshot is what evaluate needs from storage.
type snapshot struct {
	user  *models.User
	last  *models.ClaimRecord
	tiers []models.RewardTier
}

func (e *ClaimEngine) load(ctx context.Context, userID string) (*snapshot, error) {
	user, err := e.store.Users().GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storageErr("load user", err)
	}

	last, err := e.store.Claims().Latest(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storageErr("load last claim", err)
	}

	tiers, err := e.store.Tiers().List(ctx, repository.TierFilter{ActiveOnly: true})
	if err != nil {
		return nil, storageErr("load catalog", err)
	}
	return &snapshot{user: user, last: last, tiers: tiers}, nil
}

// AttemptClaim grants the user's next reward if the claim window has elapsed.
// A claim made too early returns *EligibilityError and changes nothing.
func (e *ClaimEngine) AttemptClaim(ctx context.Context, userID string, wantsDouble bool) (*ClaimResult, error) {
	started := time.Now()

	release, err := e.locks.Lock(ctx, userID)
	if err != nil {
		e.metrics.observeClaim(OutcomeError, started)
		return nil, err
	}
	defer release()

	snap, err := e.load(ctx, userID)
	if err != nil {
		e.metrics.observeClaim(outcomeFor(err), started)
		return nil, err
	}

	now := e.now().UTC()
	d := evaluate(snap.last, snap.tiers, now, e.window)
	if !d.Eligible {
		e.metrics.observeClaim(OutcomeLockedOut, started)
		return nil, &EligibilityError{NextEligibleAt: d.NextEligibleAt}
	}
	if d.Tier == nil {
		e.metrics.observeClaim(OutcomeNoRewards, started)
		return nil, ErrNoRewardsAvailable
	}

	primary, secondary, multiplier := payout(d.Tier, wantsDouble)
	claim := models.ClaimRecord{
		ID:               uuid.NewString(),
		UserID:           userID,
		Sequence:         snap.user.ClaimCount + 1,
		TierID:           d.Tier.ID,
		TierIndex:        d.Tier.TierIndex,
		TierLabel:        d.Tier.Label,
		GrantedPrimary:   primary,
		GrantedSecondary: secondary,
		Multiplier:       multiplier,
		Doubled:          multiplier == MultiplierDouble,
		ClaimedAt:        now,
	}

	err = e.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().ApplyClaim(ctx, repository.ClaimCredit{
			UserID:           userID,
			ExpectedClaimSeq: snap.user.ClaimCount,
			PrimaryDelta:     primary,
			SecondaryDelta:   secondary,
			ClaimedAt:        now,
		}); err != nil {
			return err
		}
		return tx.Claims().Insert(ctx, &claim)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// another replica committed first; report its window
			e.metrics.observeClaim(OutcomeConflict, started)
			return nil, e.conflictError(ctx, userID, now)
		}
		e.metrics.observeClaim(OutcomeError, started)
		e.logger.Error("claim commit failed", "user_id", userID, "tier_index", claim.TierIndex, "error", err)
		return nil, storageErr("commit claim", err)
	}

	e.metrics.observeClaim(OutcomeGranted, started)
	e.metrics.observeGrant(primary, secondary)
	e.logger.Info("reward claimed",
		"user_id", userID,
		"tier_index", claim.TierIndex,
		"sequence", claim.Sequence,
		"granted_primary", primary,
		"granted_secondary", secondary,
		"doubled", claim.Doubled,
	)

	return &ClaimResult{
		Claim:          claim,
		Tier:           *d.Tier,
		NextEligibleAt: now.Add(e.window),
	}, nil
}

func (e *ClaimEngine) conflictError(ctx context.Context, userID string, now time.Time) error {
	last, err := e.store.Claims().Latest(ctx, userID)
	if err != nil {
		return &EligibilityError{NextEligibleAt: now.Add(e.window)}
	}
	return &EligibilityError{NextEligibleAt: last.ClaimedAt.Add(e.window)}
}

// PeekNextReward reports the tier the next claim would grant and when it
// becomes available, without side effects.
func (e *ClaimEngine) PeekNextReward(ctx context.Context, userID string) (*RewardPreview, error) {
	snap, err := e.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := evaluate(snap.last, snap.tiers, e.now().UTC(), e.window)
	if d.Tier == nil {
		return nil, ErrNoRewardsAvailable
	}

	preview := &RewardPreview{
		Tier:          *d.Tier,
		CyclePosition: d.Position,
		CycleLength:   len(snap.tiers),
		Eligible:      d.Eligible,
		LastClaim:     snap.last,
	}
	if !d.Eligible {
		at := d.NextEligibleAt
		preview.NextEligibleAt = &at
	}
	return preview, nil
}

// History returns the user's claims, newest first.
func (e *ClaimEngine) History(ctx context.Context, userID string, page, size int) ([]models.ClaimRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	claims, total, err := e.store.Claims().ListByUser(ctx, userID, (page-1)*size, size)
	if err != nil {
		return nil, 0, storageErr("list claims", err)
	}
	return claims, total, nil
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return OutcomeUnknownUser
	case errors.Is(err, ErrNoRewardsAvailable):
		return OutcomeNoRewards
	default:
		return OutcomeError
	}
}
