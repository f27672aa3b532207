package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"daily-reward-system/models"
	"daily-reward-system/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

// stores runs fn against both Store implementations.
func stores(t *testing.T, fn func(t *testing.T, store repository.Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, repository.NewMemoryStore())
	})
	t.Run("gorm", func(t *testing.T) {
		fn(t, repository.NewGormStore(setupTestDB(t)))
	})
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func createUser(t *testing.T, store repository.Store) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         "Player One",
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         models.RoleUser,
	}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

// createTiers adds one active tier per {index, primary, secondary} triple.
func createTiers(t *testing.T, store repository.Store, rows ...[3]int64) []models.RewardTier {
	t.Helper()
	out := make([]models.RewardTier, 0, len(rows))
	for _, s := range rows {
		tier := models.RewardTier{
			ID:                  uuid.NewString(),
			TierIndex:           int(s[0]),
			Label:               fmt.Sprintf("Day %d", s[0]),
			BaseAmountPrimary:   s[1],
			BaseAmountSecondary: s[2],
			Active:              true,
		}
		require.NoError(t, store.Tiers().Create(context.Background(), &tier))
		out = append(out, tier)
	}
	return out
}
