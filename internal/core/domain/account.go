package domain

import (
	"errors"
	"time"
)

// AccountStatus captures the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "active"
	AccountStatusLocked  AccountStatus = "locked"
	AccountStatusDeleted AccountStatus = "deleted"
)

const (
	// MaxFailedLogins is the number of consecutive failures that triggers a lockout.
	MaxFailedLogins = 5
	// LockoutDuration is how long an account stays locked after too many failures.
	LockoutDuration = 30 * time.Minute
)

var (
	ErrAccountDeleted     = errors.New("account is deleted")
	ErrPhoneAlreadyBound  = errors.New("account already has a bound phone")
	ErrPhoneNotBound      = errors.New("account has no bound phone")
	ErrSamePhone          = errors.New("new phone matches the current one")
	ErrAccountNotLockable = errors.New("account cannot be locked in its current state")
)

// Account is the identity aggregate. All mutation goes through methods so the
// lockout and lifecycle invariants hold; repositories persist the whole struct.
type Account struct {
	ID               string
	Phone            Phone
	PasswordHash     string
	Status           AccountStatus
	FailedLoginCount int
	LockedUntil      *time.Time
	PhoneVerifiedAt  *time.Time
	LastLoginAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// NewAccount creates an active account bound to a verified phone.
func NewAccount(id string, phone Phone, now time.Time) *Account {
	verified := now
	return &Account{
		ID:              id,
		Phone:           phone,
		Status:          AccountStatusActive,
		PhoneVerifiedAt: &verified,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// LockState is the result of evaluating an account's temporary lockout.
type LockState struct {
	// Locked reports whether the account is currently locked out.
	Locked bool
	// ShouldClear reports that a past lockout has expired and the caller
	// should clear it and persist the account.
	ShouldClear bool
	// RetryAfter is how long until the lock expires, zero when not locked.
	RetryAfter time.Duration
}

// ComputeLockState evaluates a lockout deadline against the current time.
// It never mutates anything; callers decide whether to persist a clear.
func ComputeLockState(lockedUntil *time.Time, now time.Time) LockState {
	if lockedUntil == nil {
		return LockState{}
	}
	if now.Before(*lockedUntil) {
		return LockState{Locked: true, RetryAfter: lockedUntil.Sub(now)}
	}
	return LockState{ShouldClear: true}
}

// LockState evaluates the account's own lockout deadline.
func (a *Account) LockState(now time.Time) LockState {
	return ComputeLockState(a.LockedUntil, now)
}

// RecordFailedLogin increments the failure counter and, at the threshold,
// starts a lockout window. It reports whether this call locked the account.
func (a *Account) RecordFailedLogin(now time.Time) bool {
	a.FailedLoginCount++
	a.UpdatedAt = now
	if a.FailedLoginCount >= MaxFailedLogins {
		until := now.Add(LockoutDuration)
		a.LockedUntil = &until
		return true
	}
	return false
}

// ResetFailedLogins clears the failure counter and any lockout deadline.
func (a *Account) ResetFailedLogins(now time.Time) {
	a.FailedLoginCount = 0
	a.LockedUntil = nil
	a.UpdatedAt = now
}

// ClearLock removes an expired lockout without touching the counter history.
func (a *Account) ClearLock(now time.Time) {
	a.LockedUntil = nil
	a.FailedLoginCount = 0
	a.UpdatedAt = now
}

// RecordLogin stamps a successful login and resets the failure state.
func (a *Account) RecordLogin(now time.Time) {
	a.ResetFailedLogins(now)
	login := now
	a.LastLoginAt = &login
}

// VerifyPhone marks the bound phone as verified.
func (a *Account) VerifyPhone(now time.Time) {
	verified := now
	a.PhoneVerifiedAt = &verified
	a.UpdatedAt = now
}

// BindPhone attaches a phone to an account that has none.
func (a *Account) BindPhone(phone Phone, now time.Time) error {
	if a.Status == AccountStatusDeleted {
		return ErrAccountDeleted
	}
	if a.Phone != "" {
		return ErrPhoneAlreadyBound
	}
	a.Phone = phone
	a.VerifyPhone(now)
	return nil
}

// ChangePhone replaces the bound phone with a newly verified one.
func (a *Account) ChangePhone(phone Phone, now time.Time) error {
	if a.Status == AccountStatusDeleted {
		return ErrAccountDeleted
	}
	if a.Phone == "" {
		return ErrPhoneNotBound
	}
	if a.Phone == phone {
		return ErrSamePhone
	}
	a.Phone = phone
	a.VerifyPhone(now)
	return nil
}

// SetPasswordHash stores a new credential hash.
func (a *Account) SetPasswordHash(hash string, now time.Time) {
	a.PasswordHash = hash
	a.UpdatedAt = now
}

// Lock puts the account into the administratively locked state.
func (a *Account) Lock(now time.Time) error {
	if a.Status == AccountStatusDeleted {
		return ErrAccountNotLockable
	}
	a.Status = AccountStatusLocked
	a.UpdatedAt = now
	return nil
}

// Unlock returns an administratively locked account to active and clears
// any pending lockout window.
func (a *Account) Unlock(now time.Time) error {
	if a.Status == AccountStatusDeleted {
		return ErrAccountDeleted
	}
	a.Status = AccountStatusActive
	a.ClearLock(now)
	return nil
}

// SoftDelete marks the account deleted. Deleted is terminal.
func (a *Account) SoftDelete(now time.Time) error {
	if a.Status == AccountStatusDeleted {
		return ErrAccountDeleted
	}
	a.Status = AccountStatusDeleted
	deleted := now
	a.DeletedAt = &deleted
	a.UpdatedAt = now
	return nil
}

// IsActive reports whether the account can authenticate.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}
