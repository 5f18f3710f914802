package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zqshi/thinkcraft-auth/internal/core/domain"
	"github.com/zqshi/thinkcraft-auth/internal/core/port"
	"github.com/zqshi/thinkcraft-auth/internal/infra/security"
	"github.com/zqshi/thinkcraft-auth/internal/repository"
)

// CodeVerifier checks and consumes a verification code.
type CodeVerifier interface {
	VerifyCode(ctx context.Context, phone, purpose, code string) error
}

// AuthService orchestrates authentication: login-or-register, explicit
// registration, token refresh, access-token validation, and logout.
type AuthService struct {
	accounts  port.AccountRepository
	codes     CodeVerifier
	tokens    port.TokenService
	publisher port.EventPublisher
	hasher    PasswordHasher
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewAuthService wires the orchestrator over its collaborators.
func NewAuthService(
	accounts port.AccountRepository,
	codes CodeVerifier,
	tokens port.TokenService,
	publisher port.EventPublisher,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		accounts:  accounts,
		codes:     codes,
		tokens:    tokens,
		publisher: publisher,
		hasher:    argonHasher{},
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithHasher overrides the password hasher, used in tests.
func (s *AuthService) WithHasher(hasher PasswordHasher) {
	if hasher != nil {
		s.hasher = hasher
	}
}

// WithClock overrides the time source, used in tests.
func (s *AuthService) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithIDGenerator overrides account ID generation, used in tests.
func (s *AuthService) WithIDGenerator(gen func() string) {
	if gen != nil {
		s.newID = gen
	}
}

// LoginOutcome is the tagged result of a login-or-register flow.
type LoginOutcome struct {
	Account   *domain.Account
	Tokens    *port.TokenPair
	IsNewUser bool
}

// AccessIdentity is the verified caller identity from an access token.
type AccessIdentity struct {
	AccountID string
	Phone     string
}

// Login verifies a login code and authenticates the account, creating it on
// first contact. A wrong code against a known account counts toward lockout.
func (s *AuthService) Login(ctx context.Context, rawPhone, code string) (*LoginOutcome, error) {
	phone, err := domain.NewPhone(rawPhone)
	if err != nil {
		return nil, ErrInvalidPhoneFormat
	}

	if err := s.codes.VerifyCode(ctx, phone.String(), PurposeLogin, code); err != nil {
		s.recordCodeFailure(ctx, phone, err)
		return nil, err
	}

	now := s.now()

	account, err := s.accounts.FindByPhone(ctx, phone)
	isNew := false
	switch {
	case errors.Is(err, repository.ErrNotFound):
		account = domain.NewAccount(s.newID(), phone, now)
		login := now
		account.LastLoginAt = &login
		if err := s.accounts.Create(ctx, account); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, ErrPhoneAlreadyRegistered
			}
			return nil, fmt.Errorf("create account for %s: %w", phone.Masked(), err)
		}
		isNew = true
	case err != nil:
		return nil, fmt.Errorf("lookup account for %s: %w", phone.Masked(), err)
	default:
		if !account.IsActive() {
			return nil, ErrAccountNotActive
		}
		lock := account.LockState(now)
		if lock.Locked {
			return nil, &AccountLockedError{RetryAfter: lock.RetryAfter}
		}
		account.RecordLogin(now)
		if err := s.accounts.Save(ctx, account); err != nil {
			return nil, fmt.Errorf("save account %s: %w", account.ID, err)
		}
	}

	pair, err := s.tokens.IssuePair(account.ID, account.Phone.String())
	if err != nil {
		return nil, fmt.Errorf("issue tokens for %s: %w", account.ID, err)
	}

	if isNew {
		s.publish(ctx, domain.EventAccountRegistered, domain.AccountRegisteredEvent{
			AccountID:   account.ID,
			MaskedPhone: account.Phone.Masked(),
			ViaLogin:    true,
			OccurredAt:  now,
		})
	}
	s.publish(ctx, domain.EventAccountLoggedIn, domain.AccountLoggedInEvent{
		AccountID:  account.ID,
		NewAccount: isNew,
		OccurredAt: now,
	})

	s.logger.Info("login succeeded",
		zap.String("account_id", account.ID),
		zap.String("phone", account.Phone.Masked()),
		zap.Bool("new_account", isNew),
	)

	return &LoginOutcome{Account: account, Tokens: pair, IsNewUser: isNew}, nil
}

// LoginWithPassword authenticates a known account with its password. A
// mismatch counts toward the same lockout as a wrong verification code.
func (s *AuthService) LoginWithPassword(ctx context.Context, rawPhone, password string) (*LoginOutcome, error) {
	phone, err := domain.NewPhone(rawPhone)
	if err != nil {
		return nil, ErrInvalidPhoneFormat
	}

	account, err := s.accounts.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account for %s: %w", phone.Masked(), err)
	}
	if !account.IsActive() {
		return nil, ErrAccountNotActive
	}

	now := s.now()
	lock := account.LockState(now)
	if lock.Locked {
		return nil, &AccountLockedError{RetryAfter: lock.RetryAfter}
	}
	if lock.ShouldClear {
		account.ClearLock(now)
	}

	if account.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	match, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password for %s: %w", account.ID, err)
	}
	if !match {
		s.registerFailedAttempt(ctx, account, now)
		return nil, ErrInvalidCredentials
	}

	account.RecordLogin(now)
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("save account %s: %w", account.ID, err)
	}

	pair, err := s.tokens.IssuePair(account.ID, account.Phone.String())
	if err != nil {
		return nil, fmt.Errorf("issue tokens for %s: %w", account.ID, err)
	}

	s.publish(ctx, domain.EventAccountLoggedIn, domain.AccountLoggedInEvent{
		AccountID:  account.ID,
		OccurredAt: now,
	})

	s.logger.Info("password login succeeded",
		zap.String("account_id", account.ID),
		zap.String("phone", account.Phone.Masked()),
	)

	return &LoginOutcome{Account: account, Tokens: pair}, nil
}

// Register verifies a register code and creates a fresh account.
func (s *AuthService) Register(ctx context.Context, rawPhone, code string) (*LoginOutcome, error) {
	phone, err := domain.NewPhone(rawPhone)
	if err != nil {
		return nil, ErrInvalidPhoneFormat
	}

	if err := s.codes.VerifyCode(ctx, phone.String(), PurposeRegister, code); err != nil {
		return nil, err
	}

	now := s.now()
	account := domain.NewAccount(s.newID(), phone, now)
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrPhoneAlreadyRegistered
		}
		return nil, fmt.Errorf("create account for %s: %w", phone.Masked(), err)
	}

	pair, err := s.tokens.IssuePair(account.ID, account.Phone.String())
	if err != nil {
		return nil, fmt.Errorf("issue tokens for %s: %w", account.ID, err)
	}

	s.publish(ctx, domain.EventAccountRegistered, domain.AccountRegisteredEvent{
		AccountID:   account.ID,
		MaskedPhone: account.Phone.Masked(),
		OccurredAt:  now,
	})

	s.logger.Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("phone", account.Phone.Masked()),
	)

	return &LoginOutcome{Account: account, Tokens: pair, IsNewUser: true}, nil
}

// RefreshToken verifies a refresh token and mints a new token pair. The old
// refresh token is not revoked; it verifies until its own expiry.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*port.TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, mapTokenError(err)
	}

	account, err := s.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account %s: %w", claims.AccountID, err)
	}
	if !account.IsActive() {
		return nil, ErrAccountNotActive
	}

	pair, err := s.tokens.IssuePair(account.ID, account.Phone.String())
	if err != nil {
		return nil, fmt.Errorf("issue tokens for %s: %w", account.ID, err)
	}

	return pair, nil
}

// ValidateAccessToken verifies an access token and checks the account is
// still allowed to act. An expired lockout is cleared and persisted here.
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*AccessIdentity, error) {
	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, mapTokenError(err)
	}

	account, err := s.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account %s: %w", claims.AccountID, err)
	}
	if !account.IsActive() {
		return nil, ErrAccountNotActive
	}

	now := s.now()
	lock := account.LockState(now)
	if lock.Locked {
		return nil, &AccountLockedError{RetryAfter: lock.RetryAfter}
	}
	if lock.ShouldClear {
		account.ClearLock(now)
		if err := s.accounts.Save(ctx, account); err != nil {
			return nil, fmt.Errorf("save account %s: %w", account.ID, err)
		}
	}

	return &AccessIdentity{AccountID: account.ID, Phone: account.Phone.String()}, nil
}

// Logout emits the logged-out event. Tokens stay valid until expiry; clients
// are expected to discard them.
func (s *AuthService) Logout(ctx context.Context, accountID string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account %s: %w", accountID, err)
	}

	s.publish(ctx, domain.EventAccountLoggedOut, domain.AccountLoggedOutEvent{
		AccountID:  account.ID,
		OccurredAt: s.now(),
	})

	return nil
}

// recordCodeFailure counts a wrong login code against a known account so the
// lockout invariant covers code guessing too.
func (s *AuthService) recordCodeFailure(ctx context.Context, phone domain.Phone, verifyErr error) {
	var invalidCode *InvalidCodeError
	if !errors.As(verifyErr, &invalidCode) && !errors.Is(verifyErr, ErrTooManyFailures) {
		return
	}

	account, err := s.accounts.FindByPhone(ctx, phone)
	if err != nil {
		return
	}

	s.registerFailedAttempt(ctx, account, s.now())
}

// registerFailedAttempt persists one failed authentication attempt and, when
// it crosses the threshold, announces the lockout.
func (s *AuthService) registerFailedAttempt(ctx context.Context, account *domain.Account, now time.Time) {
	locked := account.RecordFailedLogin(now)
	if err := s.accounts.Save(ctx, account); err != nil {
		s.logger.Error("save failed-attempt state",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
		return
	}
	if locked && account.LockedUntil != nil {
		s.publish(ctx, domain.EventAccountLocked, domain.AccountLockedEvent{
			AccountID:   account.ID,
			LockedUntil: *account.LockedUntil,
			OccurredAt:  now,
		})
		s.logger.Warn("account locked after repeated failures",
			zap.String("account_id", account.ID),
			zap.String("phone", account.Phone.Masked()),
		)
	}
}

func (s *AuthService) publish(ctx context.Context, eventType string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.logger.Error("publish event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, security.ErrTokenInvalid):
		return ErrTokenInvalid
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}
