package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"daily-reward-system/models"
	"daily-reward-system/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AccountService covers registration, login and balance lookups.
type AccountService struct {
	store      repository.Store
	tokens     *TokenManager
	bcryptCost int
	metrics    *Metrics
	logger     *slog.Logger
}

func NewAccountService(store repository.Store, tokens *TokenManager, metrics *Metrics, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		store:      store,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
		metrics:    metrics,
		logger:     logger,
	}
}

// SetBcryptCost is used by tests to keep hashing fast.
func (s *AccountService) SetBcryptCost(cost int) {
	s.bcryptCost = cost
}

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// LoginResult is returned by Login.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Balance is the user's running totals.
type Balance struct {
	UserID           string `json:"user_id"`
	PrimaryBalance   int64  `json:"primary_balance"`
	SecondaryBalance int64  `json:"secondary_balance"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// maxPasswordBytes is the most bcrypt will hash.
const maxPasswordBytes = 72

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if len(in.Password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	email := normalizeEmail(in.Email)
	if _, err := s.store.Users().GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storageErr("lookup user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, storageErr("create user", err)
	}

	s.metrics.observeRegistration()
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storageErr("lookup user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expires, User: user}, nil
}

func (s *AccountService) Balance(ctx context.Context, userID string) (*Balance, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Balance{
		UserID:           user.ID,
		PrimaryBalance:   user.PrimaryBalance,
		SecondaryBalance: user.SecondaryBalance,
	}, nil
}

// CreditBalance adds to both balances outside of the claim flow.
func (s *AccountService) CreditBalance(ctx context.Context, userID string, primaryDelta, secondaryDelta int64) error {
	if primaryDelta < 0 || secondaryDelta < 0 {
		return errors.New("balance credits must not be negative")
	}
	err := s.store.Users().Credit(ctx, userID, primaryDelta, secondaryDelta)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return storageErr("credit balance", err)
	}
	return nil
}

// Authenticate verifies a bearer token and returns the user id it names.
func (s *AccountService) Authenticate(token string) (string, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IsAdmin reads the role from storage so promotions apply without a new login.
func (s *AccountService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}

// SetRole changes the role of the account registered with email.
func (s *AccountService) SetRole(ctx context.Context, email string, role models.UserRole) (*models.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storageErr("lookup user", err)
	}
	if err := s.store.Users().SetRole(ctx, user.ID, role); err != nil {
		return nil, storageErr("set role", err)
	}
	user.Role = role
	s.logger.Info("user role changed", "user_id", user.ID, "role", role)
	return user, nil
}

func (s *AccountService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storageErr("load user", err)
	}
	return user, nil
}
