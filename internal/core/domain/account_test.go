package domain

import (
	"errors"
	"testing"
	"time"
)

func testPhone(t *testing.T, raw string) Phone {
	t.Helper()
	p, err := NewPhone(raw)
	if err != nil {
		t.Fatalf("NewPhone(%q): %v", raw, err)
	}
	return p
}

func TestNewPhoneValidation(t *testing.T) {
	valid := []string{"13800138000", "19912345678", "15011112222"}
	for _, raw := range valid {
		if _, err := NewPhone(raw); err != nil {
			t.Errorf("NewPhone(%q) unexpected error: %v", raw, err)
		}
	}

	invalid := []string{"", "12800138000", "1380013800", "138001380000", "23800138000", "1380013800a", "+8613800138000"}
	for _, raw := range invalid {
		if _, err := NewPhone(raw); !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("NewPhone(%q) expected ErrInvalidPhone, got %v", raw, err)
		}
	}
}

func TestPhoneMasked(t *testing.T) {
	p := testPhone(t, "13800138000")
	if got := p.Masked(); got != "138****8000" {
		t.Fatalf("Masked() = %q, want 138****8000", got)
	}
}

func TestRecordFailedLoginLocksAtThreshold(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	acct := NewAccount("acct-1", testPhone(t, "13800138000"), now)

	for i := 0; i < MaxFailedLogins-1; i++ {
		if locked := acct.RecordFailedLogin(now); locked {
			t.Fatalf("locked after %d failures, threshold is %d", i+1, MaxFailedLogins)
		}
	}
	if acct.LockedUntil != nil {
		t.Fatalf("LockedUntil set before threshold")
	}

	if locked := acct.RecordFailedLogin(now); !locked {
		t.Fatalf("expected lock at failure %d", MaxFailedLogins)
	}
	if acct.LockedUntil == nil {
		t.Fatalf("LockedUntil not set after lock")
	}
	if want := now.Add(LockoutDuration); !acct.LockedUntil.Equal(want) {
		t.Fatalf("LockedUntil = %v, want %v", acct.LockedUntil, want)
	}
}

func TestComputeLockState(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if st := ComputeLockState(nil, now); st.Locked || st.ShouldClear {
		t.Fatalf("nil deadline: got %+v, want zero state", st)
	}

	future := now.Add(10 * time.Minute)
	st := ComputeLockState(&future, now)
	if !st.Locked {
		t.Fatalf("future deadline: expected Locked")
	}
	if st.RetryAfter != 10*time.Minute {
		t.Fatalf("RetryAfter = %v, want 10m", st.RetryAfter)
	}

	past := now.Add(-time.Second)
	st = ComputeLockState(&past, now)
	if st.Locked {
		t.Fatalf("past deadline: expected unlocked")
	}
	if !st.ShouldClear {
		t.Fatalf("past deadline: expected ShouldClear")
	}
}

func TestRecordLoginResetsFailureState(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	acct := NewAccount("acct-1", testPhone(t, "13800138000"), now)

	for i := 0; i < MaxFailedLogins; i++ {
		acct.RecordFailedLogin(now)
	}
	acct.RecordLogin(now.Add(LockoutDuration + time.Minute))

	if acct.FailedLoginCount != 0 {
		t.Fatalf("FailedLoginCount = %d after login", acct.FailedLoginCount)
	}
	if acct.LockedUntil != nil {
		t.Fatalf("LockedUntil still set after login")
	}
	if acct.LastLoginAt == nil {
		t.Fatalf("LastLoginAt not stamped")
	}
}

func TestBindPhone(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	acct := &Account{ID: "acct-1", Status: AccountStatusActive, CreatedAt: now, UpdatedAt: now}

	phone := testPhone(t, "13800138000")
	if err := acct.BindPhone(phone, now); err != nil {
		t.Fatalf("BindPhone: %v", err)
	}
	if acct.Phone != phone {
		t.Fatalf("Phone = %q, want %q", acct.Phone, phone)
	}
	if acct.PhoneVerifiedAt == nil {
		t.Fatalf("bound phone not marked verified")
	}

	if err := acct.BindPhone(testPhone(t, "13900139000"), now); !errors.Is(err, ErrPhoneAlreadyBound) {
		t.Fatalf("second bind: got %v, want ErrPhoneAlreadyBound", err)
	}
}

func TestChangePhone(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	acct := NewAccount("acct-1", testPhone(t, "13800138000"), now)

	if err := acct.ChangePhone(testPhone(t, "13800138000"), now); !errors.Is(err, ErrSamePhone) {
		t.Fatalf("same phone: got %v, want ErrSamePhone", err)
	}

	next := testPhone(t, "13900139000")
	if err := acct.ChangePhone(next, now); err != nil {
		t.Fatalf("ChangePhone: %v", err)
	}
	if acct.Phone != next {
		t.Fatalf("Phone = %q, want %q", acct.Phone, next)
	}

	unbound := &Account{ID: "acct-2", Status: AccountStatusActive}
	if err := unbound.ChangePhone(next, now); !errors.Is(err, ErrPhoneNotBound) {
		t.Fatalf("unbound change: got %v, want ErrPhoneNotBound", err)
	}
}

func TestSoftDeleteIsTerminal(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	acct := NewAccount("acct-1", testPhone(t, "13800138000"), now)

	if err := acct.SoftDelete(now); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if acct.Status != AccountStatusDeleted {
		t.Fatalf("Status = %q after delete", acct.Status)
	}
	if acct.DeletedAt == nil {
		t.Fatalf("DeletedAt not stamped")
	}

	if err := acct.SoftDelete(now); !errors.Is(err, ErrAccountDeleted) {
		t.Fatalf("double delete: got %v, want ErrAccountDeleted", err)
	}
	if err := acct.BindPhone(testPhone(t, "13900139000"), now); !errors.Is(err, ErrAccountDeleted) {
		t.Fatalf("bind after delete: got %v, want ErrAccountDeleted", err)
	}
	if err := acct.Lock(now); !errors.Is(err, ErrAccountNotLockable) {
		t.Fatalf("lock after delete: got %v, want ErrAccountNotLockable", err)
	}
	if err := acct.Unlock(now); !errors.Is(err, ErrAccountDeleted) {
		t.Fatalf("unlock after delete: got %v, want ErrAccountDeleted", err)
	}
}

func TestAdminLockUnlock(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	acct := NewAccount("acct-1", testPhone(t, "13800138000"), now)

	if err := acct.Lock(now); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if acct.IsActive() {
		t.Fatalf("account active after admin lock")
	}

	acct.RecordFailedLogin(now)
	if err := acct.Unlock(now); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if !acct.IsActive() {
		t.Fatalf("account not active after unlock")
	}
	if acct.FailedLoginCount != 0 || acct.LockedUntil != nil {
		t.Fatalf("unlock did not clear failure state")
	}
}
