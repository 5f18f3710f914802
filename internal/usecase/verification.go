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

// Verification purposes. Each purpose keys its own code, so a login code can
// never be replayed for account deletion or phone binding.
const (
	PurposeRegister = "register"
	PurposeLogin    = "login"
	PurposeReset    = "reset"
	PurposeBind     = "bind"
)

const (
	codeKeyPrefix  = "sms:code:"
	rateKeyPrefix  = "sms:rate:"
	dailyKeyPrefix = "sms:daily:"
	failKeyPrefix  = "sms:fail:"
)

// VerificationOptions tunes the code protocol windows and limits.
type VerificationOptions struct {
	CodeTTL       time.Duration
	ResendWindow  time.Duration
	DailyLimit    int
	MaxFailures   int
	FailureWindow time.Duration
}

func (o VerificationOptions) withDefaults() VerificationOptions {
	if o.CodeTTL <= 0 {
		o.CodeTTL = 10 * time.Minute
	}
	if o.ResendWindow <= 0 {
		o.ResendWindow = time.Minute
	}
	if o.DailyLimit <= 0 {
		o.DailyLimit = 10
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = 5
	}
	if o.FailureWindow <= 0 {
		o.FailureWindow = 10 * time.Minute
	}
	return o
}

// VerificationService implements the code issuance and verification protocol.
type VerificationService struct {
	accounts port.AccountRepository
	store    port.CodeStore
	sender   port.CodeSender
	logger   *zap.Logger
	opts     VerificationOptions

	generateCode func(int) (string, error)
}

// NewVerificationService wires the protocol over its ports.
func NewVerificationService(
	accounts port.AccountRepository,
	store port.CodeStore,
	sender port.CodeSender,
	opts VerificationOptions,
	logger *zap.Logger,
) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		accounts:     accounts,
		store:        store,
		sender:       sender,
		logger:       logger,
		opts:         opts.withDefaults(),
		generateCode: security.GenerateNumericCode,
	}
}

// WithCodeGenerator overrides code generation, used in tests.
func (s *VerificationService) WithCodeGenerator(gen func(int) (string, error)) {
	if gen != nil {
		s.generateCode = gen
	}
}

// SendResult reports a successful issuance.
type SendResult struct {
	ExpiresIn time.Duration
}

// SendCode validates the request, issues a fresh code, and dispatches it.
// The resend window and daily cap are both claimed atomically (SetNX and
// INCR) so two concurrent sends for one phone cannot both pass; the stamp is
// released again when issuance fails past the gates.
func (s *VerificationService) SendCode(ctx context.Context, rawPhone, purpose string) (*SendResult, error) {
	phone, err := domain.NewPhone(rawPhone)
	if err != nil {
		return nil, ErrInvalidPhoneFormat
	}
	if !validPurpose(purpose) {
		return nil, ErrUnknownPurpose
	}

	if err := s.checkPurpose(ctx, phone, purpose); err != nil {
		return nil, err
	}

	rateKey := rateKeyPrefix + phone.String()
	stamped, err := s.store.SetNX(ctx, rateKey, "1", s.opts.ResendWindow)
	if err != nil {
		return nil, fmt.Errorf("stamp resend window for %s: %w", phone.Masked(), err)
	}
	if !stamped {
		remaining, err := s.store.TTL(ctx, rateKey)
		if err != nil {
			return nil, fmt.Errorf("check resend window for %s: %w", phone.Masked(), err)
		}
		if remaining <= 0 {
			remaining = s.opts.ResendWindow
		}
		return nil, &RateLimitedError{RetryAfter: remaining}
	}
	releaseStamp := func() { _ = s.store.Delete(ctx, rateKey) }

	count, err := s.store.Increment(ctx, dailyKeyPrefix+phone.String(), 24*time.Hour)
	if err != nil {
		releaseStamp()
		return nil, fmt.Errorf("bump daily counter for %s: %w", phone.Masked(), err)
	}
	if count > int64(s.opts.DailyLimit) {
		releaseStamp()
		return nil, ErrDailyLimitExceeded
	}

	code, err := s.generateCode(security.CodeLength)
	if err != nil {
		releaseStamp()
		return nil, fmt.Errorf("generate code: %w", err)
	}

	if err := s.store.Set(ctx, codeKey(phone, purpose), code, s.opts.CodeTTL); err != nil {
		releaseStamp()
		return nil, fmt.Errorf("store code for %s: %w", phone.Masked(), err)
	}
	// A fresh code starts with a clean failure counter.
	if err := s.store.Delete(ctx, failKeyPrefix+phone.String()); err != nil {
		releaseStamp()
		return nil, fmt.Errorf("reset failure counter for %s: %w", phone.Masked(), err)
	}

	if err := s.sender.SendCode(ctx, phone, code, purpose); err != nil {
		releaseStamp()
		s.logger.Error("code delivery failed",
			zap.String("phone", phone.Masked()),
			zap.String("purpose", purpose),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	s.logger.Info("verification code issued",
		zap.String("phone", phone.Masked()),
		zap.String("purpose", purpose),
	)

	return &SendResult{ExpiresIn: s.opts.CodeTTL}, nil
}

// VerifyCode checks a submitted code and consumes it on success. A wrong
// guess bumps the failure counter; at the limit the code itself is destroyed
// so even the correct value stops working.
func (s *VerificationService) VerifyCode(ctx context.Context, rawPhone, purpose, code string) error {
	phone, err := domain.NewPhone(rawPhone)
	if err != nil {
		return ErrInvalidPhoneFormat
	}
	if !validPurpose(purpose) {
		return ErrUnknownPurpose
	}
	if !security.IsWellFormedCode(code) {
		return ErrCodeMalformed
	}

	key := codeKey(phone, purpose)
	stored, found, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load code for %s: %w", phone.Masked(), err)
	}
	if !found {
		return ErrCodeExpiredOrMissing
	}

	failKey := failKeyPrefix + phone.String()
	if stored != code {
		failures, err := s.store.Increment(ctx, failKey, s.opts.FailureWindow)
		if err != nil {
			return fmt.Errorf("bump failure counter for %s: %w", phone.Masked(), err)
		}
		if failures >= int64(s.opts.MaxFailures) {
			if err := s.store.Delete(ctx, key, failKey); err != nil {
				return fmt.Errorf("invalidate code for %s: %w", phone.Masked(), err)
			}
			s.logger.Warn("verification code invalidated after repeated failures",
				zap.String("phone", phone.Masked()),
				zap.String("purpose", purpose),
			)
			return ErrTooManyFailures
		}
		return &InvalidCodeError{Remaining: s.opts.MaxFailures - int(failures)}
	}

	// Single use: consume the code and its failure counter.
	if err := s.store.Delete(ctx, key, failKey); err != nil {
		return fmt.Errorf("consume code for %s: %w", phone.Masked(), err)
	}

	return nil
}

// checkPurpose enforces the business precondition for each purpose before a
// code is issued.
func (s *VerificationService) checkPurpose(ctx context.Context, phone domain.Phone, purpose string) error {
	switch purpose {
	case PurposeLogin:
		return nil
	case PurposeRegister, PurposeBind:
		_, err := s.accounts.FindByPhone(ctx, phone)
		if err == nil {
			if purpose == PurposeRegister {
				return ErrPhoneAlreadyRegistered
			}
			return ErrPhoneAlreadyBound
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup account for %s: %w", phone.Masked(), err)
	case PurposeReset:
		_, err := s.accounts.FindByPhone(ctx, phone)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup account for %s: %w", phone.Masked(), err)
		}
		return nil
	default:
		return ErrUnknownPurpose
	}
}

func validPurpose(purpose string) bool {
	switch purpose {
	case PurposeRegister, PurposeLogin, PurposeReset, PurposeBind:
		return true
	}
	return false
}

func codeKey(phone domain.Phone, purpose string) string {
	return codeKeyPrefix + phone.String() + ":" + purpose
}
