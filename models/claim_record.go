package models

import "time"

// ClaimRecord is an immutable entry of the claim ledger. One row is written
// per successful claim and never updated afterwards.
type ClaimRecord struct {
	ID               string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID           string    `gorm:"type:uuid;not null;index;uniqueIndex:idx_claim_records_user_seq,priority:1" json:"user_id"`
	Sequence         int64     `gorm:"not null;uniqueIndex:idx_claim_records_user_seq,priority:2" json:"sequence"` // 1-based claim ordinal per user
	TierID           string    `gorm:"type:uuid;not null" json:"tier_id"`
	TierIndex        int       `gorm:"not null" json:"tier_index"`
	TierLabel        string    `json:"tier_label"`
	GrantedPrimary   int64     `gorm:"not null" json:"granted_primary"`
	GrantedSecondary int64     `gorm:"not null" json:"granted_secondary"`
	Multiplier       int       `gorm:"not null;default:1" json:"multiplier"`
	Doubled          bool      `gorm:"not null;default:false" json:"doubled"`
	ClaimedAt        time.Time `gorm:"not null;index" json:"claimed_at"`
}
