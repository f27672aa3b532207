package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"daily-reward-system/models"
	"daily-reward-system/repository"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/unicode/norm"
)

type CatalogService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewCatalogService(store repository.Store, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{store: store, logger: logger}
}

// TierInput carries the fields of a new tier.
type TierInput struct {
	TierIndex           int
	Label               string
	BaseAmountPrimary   int64
	BaseAmountSecondary int64
	Active              *bool
}

// TierPatch carries optional updates; nil fields are left untouched.
type TierPatch struct {
	TierIndex           *int
	Label               *string
	BaseAmountPrimary   *int64
	BaseAmountSecondary *int64
	Active              *bool
}

func normalizeLabel(label string) string {
	return norm.NFC.String(strings.TrimSpace(label))
}

// CreateTier adds a tier to the catalog. The index must not be in use.
func (s *CatalogService) CreateTier(ctx context.Context, in TierInput) (*models.RewardTier, error) {
	if _, err := s.store.Tiers().GetByIndex(ctx, in.TierIndex); err == nil {
		return nil, ErrDuplicateTier
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storageErr("lookup tier", err)
	}

	label := normalizeLabel(in.Label)
	tier := &models.RewardTier{
		ID:                  uuid.NewString(),
		TierIndex:           in.TierIndex,
		Label:               label,
		Slug:                slug.Make(label),
		BaseAmountPrimary:   in.BaseAmountPrimary,
		BaseAmountSecondary: in.BaseAmountSecondary,
		Active:              true,
	}
	if in.Active != nil {
		tier.Active = *in.Active
	}

	if err := s.store.Tiers().Create(ctx, tier); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateTier
		}
		return nil, storageErr("create tier", err)
	}

	s.logger.Info("reward tier created", "tier_id", tier.ID, "tier_index", tier.TierIndex, "label", tier.Label)
	return tier, nil
}

// ListTiers returns the catalog ordered by tier index.
func (s *CatalogService) ListTiers(ctx context.Context, activeOnly bool) ([]models.RewardTier, error) {
	tiers, err := s.store.Tiers().List(ctx, repository.TierFilter{ActiveOnly: activeOnly})
	if err != nil {
		return nil, storageErr("list tiers", err)
	}
	return tiers, nil
}

// GetTierByIndex looks up an active tier. Inactive tiers are only visible
// through ListTiers and the id-based admin routes.
func (s *CatalogService) GetTierByIndex(ctx context.Context, index int) (*models.RewardTier, error) {
	tier, err := s.store.Tiers().GetByIndex(ctx, index)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTierNotFound
	}
	if err != nil {
		return nil, storageErr("get tier", err)
	}
	if !tier.Active {
		return nil, ErrTierNotFound
	}
	return tier, nil
}

func (s *CatalogService) UpdateTier(ctx context.Context, id string, patch TierPatch) (*models.RewardTier, error) {
	tier, err := s.store.Tiers().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTierNotFound
	}
	if err != nil {
		return nil, storageErr("get tier", err)
	}

	if patch.TierIndex != nil && *patch.TierIndex != tier.TierIndex {
		other, err := s.store.Tiers().GetByIndex(ctx, *patch.TierIndex)
		if err == nil && other.ID != tier.ID {
			return nil, ErrDuplicateTier
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, storageErr("lookup tier", err)
		}
		tier.TierIndex = *patch.TierIndex
	}
	if patch.Label != nil {
		tier.Label = normalizeLabel(*patch.Label)
		tier.Slug = slug.Make(tier.Label)
	}
	if patch.BaseAmountPrimary != nil {
		tier.BaseAmountPrimary = *patch.BaseAmountPrimary
	}
	if patch.BaseAmountSecondary != nil {
		tier.BaseAmountSecondary = *patch.BaseAmountSecondary
	}
	if patch.Active != nil {
		tier.Active = *patch.Active
	}

	if err := s.store.Tiers().Save(ctx, tier); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateTier
		}
		return nil, storageErr("update tier", err)
	}
	return tier, nil
}

// DeleteTier soft-deletes a tier, or removes it for good when hard is set.
// Claims keep their own copy of the tier index and label.
func (s *CatalogService) DeleteTier(ctx context.Context, id string, hard bool) error {
	err := s.store.Tiers().Delete(ctx, id, hard)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTierNotFound
	}
	if err != nil {
		return storageErr("delete tier", err)
	}
	s.logger.Info("reward tier deleted", "tier_id", id, "hard", hard)
	return nil
}

// TierSeedFile is the TOML layout accepted by SeedTiers:
//
//	[[tier]]
//	index = 1
//	label = "Coins"
//	primary = 10
//	secondary = 1
type TierSeedFile struct {
	Tiers []TierSeed `toml:"tier"`
}

type TierSeed struct {
	Index     int    `toml:"index"`
	Label     string `toml:"label"`
	Primary   int64  `toml:"primary"`
	Secondary int64  `toml:"secondary"`
	Active    *bool  `toml:"active"`
}

// LoadTierSeedFile decodes a TOML seed file.
func LoadTierSeedFile(path string) (*TierSeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed TierSeedFile
	if _, err := toml.Decode(string(data), &seed); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	for i, t := range seed.Tiers {
		if t.Index <= 0 {
			return nil, fmt.Errorf("seed tier #%d: index must be positive", i+1)
		}
		if strings.TrimSpace(t.Label) == "" {
			return nil, fmt.Errorf("seed tier #%d: label is required", i+1)
		}
		if t.Primary < 0 || t.Secondary < 0 {
			return nil, fmt.Errorf("seed tier #%d: amounts must not be negative", i+1)
		}
	}
	return &seed, nil
}

// SeedTiers creates the tiers of the seed whose index is not taken yet and
// returns how many were created.
func (s *CatalogService) SeedTiers(ctx context.Context, seed *TierSeedFile) (int, error) {
	created := 0
	for _, t := range seed.Tiers {
		_, err := s.CreateTier(ctx, TierInput{
			TierIndex:           t.Index,
			Label:               t.Label,
			BaseAmountPrimary:   t.Primary,
			BaseAmountSecondary: t.Secondary,
			Active:              t.Active,
		})
		if errors.Is(err, ErrDuplicateTier) {
			s.logger.Debug("seed tier already present", "tier_index", t.Index)
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
