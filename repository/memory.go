package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"daily-reward-system/models"

	"gorm.io/gorm"
)

type memState struct {
	tiers  map[string]models.RewardTier
	claims []models.ClaimRecord
	users  map[string]models.User
}

func (s *memState) clone() *memState {
	c := &memState{
		tiers:  make(map[string]models.RewardTier, len(s.tiers)),
		claims: make([]models.ClaimRecord, len(s.claims)),
		users:  make(map[string]models.User, len(s.users)),
	}
	for k, v := range s.tiers {
		c.tiers[k] = v
	}
	copy(c.claims, s.claims)
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

// MemoryStore is a process-local Store. A single mutex guards all state;
// WithinTx holds it for the whole unit of work and restores a snapshot when
// fn fails.
type MemoryStore struct {
	mu    *sync.Mutex
	state **memState
	inTx  bool
}

func NewMemoryStore() *MemoryStore {
	state := &memState{
		tiers: make(map[string]models.RewardTier),
		users: make(map[string]models.User),
	}
	return &MemoryStore{mu: &sync.Mutex{}, state: &state}
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) st() *memState { return *s.state }

func (s *MemoryStore) Tiers() TierRepository   { return memTiers{s} }
func (s *MemoryStore) Claims() ClaimRepository { return memClaims{s} }
func (s *MemoryStore) Users() UserRepository   { return memUsers{s} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.st().clone()
	tx := &MemoryStore{mu: s.mu, state: s.state, inTx: true}
	if err := fn(tx); err != nil {
		*s.state = snapshot
		return err
	}
	return nil
}

// --- tiers ---

type memTiers struct{ s *MemoryStore }

func (r memTiers) Create(_ context.Context, tier *models.RewardTier) error {
	defer r.s.lock()()
	st := r.s.st()
	if _, ok := st.tiers[tier.ID]; ok {
		return ErrDuplicate
	}
	for _, t := range st.tiers {
		if t.DeletedAt.Valid {
			continue
		}
		if t.TierIndex == tier.TierIndex {
			return ErrDuplicate
		}
	}
	now := time.Now()
	tier.CreatedAt, tier.UpdatedAt = now, now
	st.tiers[tier.ID] = *tier
	return nil
}

func (r memTiers) List(_ context.Context, filter TierFilter) ([]models.RewardTier, error) {
	defer r.s.lock()()
	out := make([]models.RewardTier, 0, len(r.s.st().tiers))
	for _, t := range r.s.st().tiers {
		if t.DeletedAt.Valid || (filter.ActiveOnly && !t.Active) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TierIndex < out[j].TierIndex })
	return out, nil
}

func (r memTiers) GetByIndex(_ context.Context, index int) (*models.RewardTier, error) {
	defer r.s.lock()()
	for _, t := range r.s.st().tiers {
		if !t.DeletedAt.Valid && t.TierIndex == index {
			tier := t
			return &tier, nil
		}
	}
	return nil, ErrNotFound
}

func (r memTiers) GetByID(_ context.Context, id string) (*models.RewardTier, error) {
	defer r.s.lock()()
	t, ok := r.s.st().tiers[id]
	if !ok || t.DeletedAt.Valid {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r memTiers) Save(_ context.Context, tier *models.RewardTier) error {
	defer r.s.lock()()
	st := r.s.st()
	for id, t := range st.tiers {
		if id != tier.ID && !t.DeletedAt.Valid && t.TierIndex == tier.TierIndex {
			return ErrDuplicate
		}
	}
	tier.UpdatedAt = time.Now()
	st.tiers[tier.ID] = *tier
	return nil
}

func (r memTiers) Delete(_ context.Context, id string, hard bool) error {
	defer r.s.lock()()
	st := r.s.st()
	t, ok := st.tiers[id]
	if !ok || (t.DeletedAt.Valid && !hard) {
		return ErrNotFound
	}
	if hard {
		delete(st.tiers, id)
		return nil
	}
	t.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	st.tiers[id] = t
	return nil
}

// --- claims ---

type memClaims struct{ s *MemoryStore }

func (r memClaims) Insert(_ context.Context, claim *models.ClaimRecord) error {
	defer r.s.lock()()
	st := r.s.st()
	for _, c := range st.claims {
		if c.UserID == claim.UserID && c.Sequence == claim.Sequence {
			return ErrConflict
		}
	}
	st.claims = append(st.claims, *claim)
	return nil
}

func (r memClaims) userClaims(userID string) []models.ClaimRecord {
	var out []models.ClaimRecord
	for _, c := range r.s.st().claims {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ClaimedAt.Equal(out[j].ClaimedAt) {
			return out[i].ClaimedAt.After(out[j].ClaimedAt)
		}
		return out[i].Sequence > out[j].Sequence
	})
	return out
}

func (r memClaims) Latest(_ context.Context, userID string) (*models.ClaimRecord, error) {
	defer r.s.lock()()
	claims := r.userClaims(userID)
	if len(claims) == 0 {
		return nil, ErrNotFound
	}
	return &claims[0], nil
}

func (r memClaims) ListByUser(_ context.Context, userID string, offset, limit int) ([]models.ClaimRecord, int64, error) {
	defer r.s.lock()()
	claims := r.userClaims(userID)
	total := int64(len(claims))
	if offset >= len(claims) {
		return []models.ClaimRecord{}, total, nil
	}
	end := offset + limit
	if end > len(claims) {
		end = len(claims)
	}
	return claims[offset:end], total, nil
}

func (r memClaims) ListBetween(_ context.Context, from, to time.Time) ([]models.ClaimRecord, error) {
	defer r.s.lock()()
	var out []models.ClaimRecord
	for _, c := range r.s.st().claims {
		if !c.ClaimedAt.Before(from) && c.ClaimedAt.Before(to) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ClaimedAt.Before(out[j].ClaimedAt) })
	return out, nil
}

// --- users ---

type memUsers struct{ s *MemoryStore }

func (r memUsers) Create(_ context.Context, user *models.User) error {
	defer r.s.lock()()
	st := r.s.st()
	if _, ok := st.users[user.ID]; ok {
		return ErrDuplicate
	}
	for _, u := range st.users {
		if u.Email == user.Email {
			return ErrDuplicate
		}
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	st.users[user.ID] = *user
	return nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	defer r.s.lock()()
	u, ok := r.s.st().users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.st().users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (r memUsers) SetRole(_ context.Context, id string, role models.UserRole) error {
	defer r.s.lock()()
	st := r.s.st()
	u, ok := st.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	st.users[id] = u
	return nil
}

func (r memUsers) Credit(_ context.Context, id string, primaryDelta, secondaryDelta int64) error {
	defer r.s.lock()()
	st := r.s.st()
	u, ok := st.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PrimaryBalance += primaryDelta
	u.SecondaryBalance += secondaryDelta
	st.users[id] = u
	return nil
}

func (r memUsers) ApplyClaim(_ context.Context, credit ClaimCredit) error {
	defer r.s.lock()()
	st := r.s.st()
	u, ok := st.users[credit.UserID]
	if !ok || u.ClaimCount != credit.ExpectedClaimSeq {
		return ErrConflict
	}
	claimedAt := credit.ClaimedAt
	u.PrimaryBalance += credit.PrimaryDelta
	u.SecondaryBalance += credit.SecondaryDelta
	u.ClaimCount++
	u.LastClaimedAt = &claimedAt
	st.users[credit.UserID] = u
	return nil
}
