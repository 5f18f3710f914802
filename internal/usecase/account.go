package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zqshi/thinkcraft-auth/internal/core/domain"
	"github.com/zqshi/thinkcraft-auth/internal/core/port"
	"github.com/zqshi/thinkcraft-auth/internal/infra/security"
	"github.com/zqshi/thinkcraft-auth/internal/repository"
)

// PasswordHasher abstracts credential hashing for tests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

type argonHasher struct{}

func (argonHasher) Hash(password string) (string, error) { return security.HashPassword(password) }
func (argonHasher) Verify(password, encoded string) (bool, error) {
	return security.VerifyPassword(password, encoded)
}

// AccountService covers account management: phone binding, password change,
// soft delete, and administrative lock state.
type AccountService struct {
	accounts  port.AccountRepository
	codes     CodeVerifier
	publisher port.EventPublisher
	validator *security.PasswordValidator
	hasher    PasswordHasher
	logger    *zap.Logger

	now func() time.Time
}

// NewAccountService wires the account management flows.
func NewAccountService(
	accounts port.AccountRepository,
	codes CodeVerifier,
	publisher port.EventPublisher,
	validator *security.PasswordValidator,
	logger *zap.Logger,
) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accounts:  accounts,
		codes:     codes,
		publisher: publisher,
		validator: validator,
		hasher:    argonHasher{},
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source, used in tests.
func (s *AccountService) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithHasher overrides the password hasher, used in tests.
func (s *AccountService) WithHasher(hasher PasswordHasher) {
	if hasher != nil {
		s.hasher = hasher
	}
}

// GetAccount loads an account by identifier.
func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// BindPhone attaches a verified phone to an account without one. The code
// must have been issued for the new phone with the bind purpose.
func (s *AccountService) BindPhone(ctx context.Context, accountID, rawPhone, code string) error {
	phone, err := domain.NewPhone(rawPhone)
	if err != nil {
		return ErrInvalidPhoneFormat
	}

	if err := s.codes.VerifyCode(ctx, phone.String(), PurposeBind, code); err != nil {
		return err
	}

	if err := s.ensurePhoneFree(ctx, phone); err != nil {
		return err
	}

	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}

	now := s.now()
	if err := account.BindPhone(phone, now); err != nil {
		return mapDomainError(err)
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrPhoneAlreadyRegistered
		}
		return fmt.Errorf("save account %s: %w", account.ID, err)
	}

	s.publish(ctx, domain.EventAccountPhoneBound, domain.AccountPhoneBoundEvent{
		AccountID:   account.ID,
		MaskedPhone: phone.Masked(),
		OccurredAt:  now,
	})

	return nil
}

// ChangePhone replaces the bound phone after the new phone is verified.
func (s *AccountService) ChangePhone(ctx context.Context, accountID, rawPhone, code string) error {
	phone, err := domain.NewPhone(rawPhone)
	if err != nil {
		return ErrInvalidPhoneFormat
	}

	if err := s.codes.VerifyCode(ctx, phone.String(), PurposeBind, code); err != nil {
		return err
	}

	if err := s.ensurePhoneFree(ctx, phone); err != nil {
		return err
	}

	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}

	now := s.now()
	if err := account.ChangePhone(phone, now); err != nil {
		return mapDomainError(err)
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrPhoneAlreadyRegistered
		}
		return fmt.Errorf("save account %s: %w", account.ID, err)
	}

	s.publish(ctx, domain.EventAccountPhoneBound, domain.AccountPhoneBoundEvent{
		AccountID:   account.ID,
		MaskedPhone: phone.Masked(),
		Replaced:    true,
		OccurredAt:  now,
	})

	return nil
}

// ChangePassword verifies the current password, validates the new one, and
// stores its hash. Accounts without a password yet skip the old-password
// check.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}

	if account.PasswordHash != "" {
		ok, err := s.hasher.Verify(oldPassword, account.PasswordHash)
		if err != nil {
			return fmt.Errorf("verify password for %s: %w", account.ID, err)
		}
		if !ok {
			return ErrInvalidCredentials
		}
	}

	if s.validator != nil {
		if err := s.validator.Validate(newPassword); err != nil {
			return err
		}
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", account.ID, err)
	}

	account.SetPasswordHash(hash, s.now())
	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save account %s: %w", account.ID, err)
	}

	s.logger.Info("password changed", zap.String("account_id", account.ID))

	return nil
}

// ResetPassword sets a new password after a reset-purpose code proves
// possession of the bound phone. A lockout in progress is cleared so the
// owner regains access immediately; an administrative lock stays in place.
func (s *AccountService) ResetPassword(ctx context.Context, rawPhone, code, newPassword string) error {
	phone, err := domain.NewPhone(rawPhone)
	if err != nil {
		return ErrInvalidPhoneFormat
	}

	if err := s.codes.VerifyCode(ctx, phone.String(), PurposeReset, code); err != nil {
		return err
	}

	account, err := s.accounts.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account for %s: %w", phone.Masked(), err)
	}
	if account.Status == domain.AccountStatusLocked {
		return ErrAccountNotActive
	}

	if s.validator != nil {
		if err := s.validator.Validate(newPassword); err != nil {
			return err
		}
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", account.ID, err)
	}

	now := s.now()
	account.SetPasswordHash(hash, now)
	account.ClearLock(now)
	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save account %s: %w", account.ID, err)
	}

	s.logger.Info("password reset",
		zap.String("account_id", account.ID),
		zap.String("phone", phone.Masked()),
	)

	return nil
}

// DeleteAccount soft-deletes the account after a fresh login-purpose code
// confirms possession of the bound phone.
func (s *AccountService) DeleteAccount(ctx context.Context, accountID, code string) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Phone == "" {
		return mapDomainError(domain.ErrPhoneNotBound)
	}

	if err := s.codes.VerifyCode(ctx, account.Phone.String(), PurposeLogin, code); err != nil {
		return err
	}

	now := s.now()
	if err := account.SoftDelete(now); err != nil {
		return mapDomainError(err)
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save account %s: %w", account.ID, err)
	}

	s.publish(ctx, domain.EventAccountDeleted, domain.AccountDeletedEvent{
		AccountID:  account.ID,
		OccurredAt: now,
	})

	s.logger.Info("account deleted",
		zap.String("account_id", account.ID),
		zap.String("phone", account.Phone.Masked()),
	)

	return nil
}

// Lock puts the account into the administratively locked state.
func (s *AccountService) Lock(ctx context.Context, accountID string) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}

	now := s.now()
	if err := account.Lock(now); err != nil {
		return mapDomainError(err)
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save account %s: %w", account.ID, err)
	}

	s.publish(ctx, domain.EventAccountLocked, domain.AccountLockedEvent{
		AccountID:  account.ID,
		OccurredAt: now,
	})

	return nil
}

// Unlock returns an administratively locked account to active.
func (s *AccountService) Unlock(ctx context.Context, accountID string) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}

	if err := account.Unlock(s.now()); err != nil {
		return mapDomainError(err)
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save account %s: %w", account.ID, err)
	}

	return nil
}

func (s *AccountService) loadAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account %s: %w", accountID, err)
	}
	return account, nil
}

func (s *AccountService) ensurePhoneFree(ctx context.Context, phone domain.Phone) error {
	_, err := s.accounts.FindByPhone(ctx, phone)
	if err == nil {
		return ErrPhoneAlreadyRegistered
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("lookup account for %s: %w", phone.Masked(), err)
}

func (s *AccountService) publish(ctx context.Context, eventType string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.logger.Error("publish event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func mapDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrAccountDeleted):
		return ErrAccountNotActive
	case errors.Is(err, domain.ErrPhoneAlreadyBound):
		return ErrPhoneAlreadyBound
	case errors.Is(err, domain.ErrAccountNotLockable):
		return ErrAccountNotActive
	default:
		return err
	}
}
