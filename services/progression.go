package services

import (
	"time"

	"daily-reward-system/models"
)

// DefaultClaimWindow is the minimum time between two claims of the same user.
const DefaultClaimWindow = 24 * time.Hour

// Multiplier values a claim may apply to the primary amount.
const (
	MultiplierSingle = 1
	MultiplierDouble = 2
)

// decision is the outcome of evaluating a user's next claim at a given time.
// AttemptClaim and PeekNextReward both go through evaluate so the preview can
// never disagree with the real claim.
type decision struct {
	Eligible       bool
	NextEligibleAt time.Time // zero when eligible now
	Tier           *models.RewardTier
	Position       int // 1-based position of Tier in the active cycle
}

// evaluate applies the rolling-window rule and picks the next tier.
// tiers must be the active catalog ordered by TierIndex ascending.
func evaluate(last *models.ClaimRecord, tiers []models.RewardTier, now time.Time, window time.Duration) decision {
	var d decision

	if last != nil {
		eligibleAt := last.ClaimedAt.Add(window)
		if now.Before(eligibleAt) {
			d.NextEligibleAt = eligibleAt
		} else {
			d.Eligible = true
		}
	} else {
		d.Eligible = true
	}

	prevIndex, hasPrev := 0, false
	if last != nil {
		prevIndex, hasPrev = last.TierIndex, true
	}
	d.Tier, d.Position = nextTier(tiers, prevIndex, hasPrev)
	return d
}

// nextTier returns the first tier with TierIndex greater than prev, wrapping
// to the first tier of the cycle. Without history it returns the first tier.
// Gaps in TierIndex are skipped; a removed previous tier does not break the
// cycle because only its index is consulted.
func nextTier(tiers []models.RewardTier, prev int, hasPrev bool) (*models.RewardTier, int) {
	if len(tiers) == 0 {
		return nil, 0
	}
	if hasPrev {
		for i := range tiers {
			if tiers[i].TierIndex > prev {
				return &tiers[i], i + 1
			}
		}
	}
	return &tiers[0], 1
}

// payout computes the granted amounts. Doubling applies to the primary amount only.
func payout(tier *models.RewardTier, wantsDouble bool) (primary, secondary int64, multiplier int) {
	multiplier = MultiplierSingle
	if wantsDouble {
		multiplier = MultiplierDouble
	}
	return tier.BaseAmountPrimary * int64(multiplier), tier.BaseAmountSecondary, multiplier
}
