package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"daily-reward-system/models"

	"gorm.io/gorm"
)

// GormStore implements Store on top of a *gorm.DB. The DB should be opened
// with gorm.Config{TranslateError: true} so unique violations surface as
// gorm.ErrDuplicatedKey.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Tiers() TierRepository   { return gormTiers{db: s.DB} }
func (s *GormStore) Claims() ClaimRepository { return gormClaims{db: s.DB} }
func (s *GormStore) Users() UserRepository   { return gormUsers{db: s.DB} }

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx})
	})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

// --- tiers ---

type gormTiers struct {
	db *gorm.DB
}

func (r gormTiers) Create(ctx context.Context, tier *models.RewardTier) error {
	return translate(r.db.WithContext(ctx).Create(tier).Error)
}

func (r gormTiers) List(ctx context.Context, filter TierFilter) ([]models.RewardTier, error) {
	query := r.db.WithContext(ctx).Model(&models.RewardTier{})
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}

	var tiers []models.RewardTier
	if err := query.Order("tier_index ASC").Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r gormTiers) GetByIndex(ctx context.Context, index int) (*models.RewardTier, error) {
	var tier models.RewardTier
	if err := r.db.WithContext(ctx).Where("tier_index = ?", index).First(&tier).Error; err != nil {
		return nil, translate(err)
	}
	return &tier, nil
}

func (r gormTiers) GetByID(ctx context.Context, id string) (*models.RewardTier, error) {
	var tier models.RewardTier
	if err := r.db.WithContext(ctx).First(&tier, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &tier, nil
}

func (r gormTiers) Save(ctx context.Context, tier *models.RewardTier) error {
	return translate(r.db.WithContext(ctx).Save(tier).Error)
}

func (r gormTiers) Delete(ctx context.Context, id string, hard bool) error {
	query := r.db.WithContext(ctx)
	if hard {
		query = query.Unscoped()
	}
	result := query.Delete(&models.RewardTier{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- claims ---

type gormClaims struct {
	db *gorm.DB
}

func (r gormClaims) Insert(ctx context.Context, claim *models.ClaimRecord) error {
	err := translate(r.db.WithContext(ctx).Create(claim).Error)
	if errors.Is(err, ErrDuplicate) {
		// (user_id, sequence) already taken by a concurrent claim
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func (r gormClaims) Latest(ctx context.Context, userID string) (*models.ClaimRecord, error) {
	var claim models.ClaimRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("claimed_at DESC").
		Order("sequence DESC").
		First(&claim).Error
	if err != nil {
		return nil, translate(err)
	}
	return &claim, nil
}

func (r gormClaims) ListByUser(ctx context.Context, userID string, offset, limit int) ([]models.ClaimRecord, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.ClaimRecord{}).Where("user_id = ?", userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var claims []models.ClaimRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("claimed_at DESC").
		Order("sequence DESC").
		Offset(offset).
		Limit(limit).
		Find(&claims).Error; err != nil {
		return nil, 0, err
	}
	return claims, total, nil
}

func (r gormClaims) ListBetween(ctx context.Context, from, to time.Time) ([]models.ClaimRecord, error) {
	var claims []models.ClaimRecord
	err := r.db.WithContext(ctx).
		Where("claimed_at >= ? AND claimed_at < ?", from, to).
		Order("claimed_at ASC").
		Find(&claims).Error
	return claims, err
}

// --- users ---

type gormUsers struct {
	db *gorm.DB
}

func (r gormUsers) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r gormUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r gormUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r gormUsers) SetRole(ctx context.Context, id string, role models.UserRole) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormUsers) Credit(ctx context.Context, id string, primaryDelta, secondaryDelta int64) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"primary_balance":   gorm.Expr("primary_balance + ?", primaryDelta),
			"secondary_balance": gorm.Expr("secondary_balance + ?", secondaryDelta),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormUsers) ApplyClaim(ctx context.Context, credit ClaimCredit) error {
	claimedAt := credit.ClaimedAt
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND claim_count = ?", credit.UserID, credit.ExpectedClaimSeq).
		Updates(map[string]interface{}{
			"primary_balance":   gorm.Expr("primary_balance + ?", credit.PrimaryDelta),
			"secondary_balance": gorm.Expr("secondary_balance + ?", credit.SecondaryDelta),
			"claim_count":       gorm.Expr("claim_count + 1"),
			"last_claimed_at":   &claimedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}
