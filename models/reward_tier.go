package models

// RewardTier is one step of the daily login-reward cycle.
// Tiers are granted in ascending TierIndex order and the cycle wraps to the
// smallest active index after the largest one.
type RewardTier struct {
	ID                  string `gorm:"primaryKey;type:uuid" json:"id"`
	TierIndex           int    `gorm:"not null;uniqueIndex:idx_reward_tiers_live_index,where:deleted_at IS NULL" json:"tier_index"`
	Label               string `gorm:"not null" json:"label"` // reward kind, e.g. "Coins"
	Slug                string `gorm:"size:128;index" json:"slug"`
	BaseAmountPrimary   int64  `gorm:"not null;default:0" json:"base_amount_primary"`
	BaseAmountSecondary int64  `gorm:"not null;default:0" json:"base_amount_secondary"`
	Active              bool   `gorm:"not null" json:"active"` // no gorm default, false must be written as-is

	Timestamps
}
