package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/zqshi/thinkcraft-auth/internal/core/domain"
)

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newVerificationFixture(t *testing.T) (*VerificationService, *memAccounts, *memStore, *stubSender, *testClock) {
	t.Helper()

	clock := &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	accounts := newMemAccounts()
	store := newMemStore(clock.now)
	sender := &stubSender{}

	svc := NewVerificationService(accounts, store, sender, VerificationOptions{}, zaptest.NewLogger(t))
	svc.WithCodeGenerator(func(int) (string, error) { return "042319", nil })

	return svc, accounts, store, sender, clock
}

func seedAccount(t *testing.T, accounts *memAccounts, id, rawPhone string, at time.Time) *domain.Account {
	t.Helper()
	phone, err := domain.NewPhone(rawPhone)
	if err != nil {
		t.Fatalf("NewPhone(%q): %v", rawPhone, err)
	}
	account := domain.NewAccount(id, phone, at)
	if err := accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func TestSendCodeStoresAndDispatches(t *testing.T) {
	svc, _, store, sender, _ := newVerificationFixture(t)
	ctx := context.Background()

	result, err := svc.SendCode(ctx, "13800138000", PurposeLogin)
	if err != nil {
		t.Fatalf("SendCode: %v", err)
	}
	if result.ExpiresIn != 10*time.Minute {
		t.Fatalf("ExpiresIn = %v", result.ExpiresIn)
	}

	value, found, _ := store.Get(ctx, "sms:code:13800138000:login")
	if !found || value != "042319" {
		t.Fatalf("stored code = (%q, %v)", value, found)
	}

	if len(sender.sent) != 1 || sender.sent[0].code != "042319" || sender.sent[0].purpose != PurposeLogin {
		t.Fatalf("sent = %+v", sender.sent)
	}

	if _, found, _ := store.Get(ctx, "sms:rate:13800138000"); !found {
		t.Fatalf("resend window not stamped")
	}
	daily, found, _ := store.Get(ctx, "sms:daily:13800138000")
	if !found || daily != "1" {
		t.Fatalf("daily counter = (%q, %v)", daily, found)
	}
}

func TestSendCodeRejectsBadInput(t *testing.T) {
	svc, _, _, _, _ := newVerificationFixture(t)
	ctx := context.Background()

	if _, err := svc.SendCode(ctx, "12345", PurposeLogin); !errors.Is(err, ErrInvalidPhoneFormat) {
		t.Fatalf("bad phone: got %v", err)
	}
	if _, err := svc.SendCode(ctx, "13800138000", "admin"); !errors.Is(err, ErrUnknownPurpose) {
		t.Fatalf("bad purpose: got %v", err)
	}
}

func TestSendCodeResendWindow(t *testing.T) {
	svc, _, _, _, clock := newVerificationFixture(t)
	ctx := context.Background()

	if _, err := svc.SendCode(ctx, "13800138000", PurposeLogin); err != nil {
		t.Fatalf("first send: %v", err)
	}

	clock.advance(20 * time.Second)
	_, err := svc.SendCode(ctx, "13800138000", PurposeLogin)
	var rateLimited *RateLimitedError
	if !errors.As(err, &rateLimited) {
		t.Fatalf("second send: got %v, want RateLimitedError", err)
	}
	if rateLimited.RetryAfter <= 0 || rateLimited.RetryAfter > time.Minute {
		t.Fatalf("RetryAfter = %v", rateLimited.RetryAfter)
	}

	clock.advance(41 * time.Second)
	if _, err := svc.SendCode(ctx, "13800138000", PurposeLogin); err != nil {
		t.Fatalf("send after window: %v", err)
	}
}

func TestSendCodeDailyLimit(t *testing.T) {
	svc, _, _, _, clock := newVerificationFixture(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := svc.SendCode(ctx, "13800138000", PurposeLogin); err != nil {
			t.Fatalf("send %d: %v", i+1, err)
		}
		clock.advance(2 * time.Minute)
	}

	if _, err := svc.SendCode(ctx, "13800138000", PurposeLogin); !errors.Is(err, ErrDailyLimitExceeded) {
		t.Fatalf("11th send: got %v, want ErrDailyLimitExceeded", err)
	}
}

func TestSendCodeDailyLimitGatesOnCounterValue(t *testing.T) {
	svc, _, store, sender, _ := newVerificationFixture(t)
	ctx := context.Background()

	// The cap must hold against the incremented value itself, not a separate
	// read: a counter already at the limit rejects the send even though no
	// prior send happened in this process.
	if err := store.Set(ctx, "sms:daily:13800138000", "10", 24*time.Hour); err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	if _, err := svc.SendCode(ctx, "13800138000", PurposeLogin); !errors.Is(err, ErrDailyLimitExceeded) {
		t.Fatalf("send at cap: got %v, want ErrDailyLimitExceeded", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("code dispatched despite cap")
	}
	// A rejected send must not leave the resend window claimed.
	if _, found, _ := store.Get(ctx, "sms:rate:13800138000"); found {
		t.Fatalf("resend window stamped by rejected send")
	}

	if err := store.Set(ctx, "sms:daily:13800138000", "9", 24*time.Hour); err != nil {
		t.Fatalf("reset counter: %v", err)
	}
	if _, err := svc.SendCode(ctx, "13800138000", PurposeLogin); err != nil {
		t.Fatalf("10th send: %v", err)
	}
}

func TestSendCodeResendStampIsAtomic(t *testing.T) {
	svc, _, store, sender, _ := newVerificationFixture(t)
	ctx := context.Background()

	// A stamp claimed by another sender (e.g. a concurrent request that won
	// the SetNX race) blocks this send even without a prior local send.
	if ok, _ := store.SetNX(ctx, "sms:rate:13800138000", "1", time.Minute); !ok {
		t.Fatalf("seed stamp: key already present")
	}

	_, err := svc.SendCode(ctx, "13800138000", PurposeLogin)
	var rateLimited *RateLimitedError
	if !errors.As(err, &rateLimited) {
		t.Fatalf("send against claimed stamp: got %v, want RateLimitedError", err)
	}
	if rateLimited.RetryAfter <= 0 || rateLimited.RetryAfter > time.Minute {
		t.Fatalf("RetryAfter = %v", rateLimited.RetryAfter)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("code dispatched despite claimed stamp")
	}
}

func TestSendCodePurposeChecks(t *testing.T) {
	svc, accounts, _, _, clock := newVerificationFixture(t)
	ctx := context.Background()

	seedAccount(t, accounts, "acct-1", "13800138000", clock.now())

	if _, err := svc.SendCode(ctx, "13800138000", PurposeRegister); !errors.Is(err, ErrPhoneAlreadyRegistered) {
		t.Fatalf("register for existing phone: got %v", err)
	}
	if _, err := svc.SendCode(ctx, "13800138000", PurposeBind); !errors.Is(err, ErrPhoneAlreadyBound) {
		t.Fatalf("bind for taken phone: got %v", err)
	}
	if _, err := svc.SendCode(ctx, "13900139000", PurposeReset); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("reset for unknown phone: got %v", err)
	}

	if _, err := svc.SendCode(ctx, "13900139000", PurposeRegister); err != nil {
		t.Fatalf("register for new phone: %v", err)
	}
}

func TestVerifyCodeHappyPathIsSingleUse(t *testing.T) {
	svc, _, _, _, _ := newVerificationFixture(t)
	ctx := context.Background()

	if _, err := svc.SendCode(ctx, "13800138000", PurposeLogin); err != nil {
		t.Fatalf("SendCode: %v", err)
	}

	if err := svc.VerifyCode(ctx, "13800138000", PurposeLogin, "042319"); err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if err := svc.VerifyCode(ctx, "13800138000", PurposeLogin, "042319"); !errors.Is(err, ErrCodeExpiredOrMissing) {
		t.Fatalf("replay: got %v, want ErrCodeExpiredOrMissing", err)
	}
}

func TestVerifyCodePurposeIsolation(t *testing.T) {
	svc, _, _, _, _ := newVerificationFixture(t)
	ctx := context.Background()

	if _, err := svc.SendCode(ctx, "13800138000", PurposeLogin); err != nil {
		t.Fatalf("SendCode: %v", err)
	}

	if err := svc.VerifyCode(ctx, "13800138000", PurposeRegister, "042319"); !errors.Is(err, ErrCodeExpiredOrMissing) {
		t.Fatalf("cross-purpose verify: got %v, want ErrCodeExpiredOrMissing", err)
	}
}

func TestVerifyCodeExpiry(t *testing.T) {
	svc, _, _, _, clock := newVerificationFixture(t)
	ctx := context.Background()

	if _, err := svc.SendCode(ctx, "13800138000", PurposeLogin); err != nil {
		t.Fatalf("SendCode: %v", err)
	}

	clock.advance(10*time.Minute + time.Second)
	if err := svc.VerifyCode(ctx, "13800138000", PurposeLogin, "042319"); !errors.Is(err, ErrCodeExpiredOrMissing) {
		t.Fatalf("expired code: got %v, want ErrCodeExpiredOrMissing", err)
	}
}

func TestVerifyCodeFailureCounterDestroysCode(t *testing.T) {
	svc, _, _, _, _ := newVerificationFixture(t)
	ctx := context.Background()

	if _, err := svc.SendCode(ctx, "13800138000", PurposeLogin); err != nil {
		t.Fatalf("SendCode: %v", err)
	}

	for want := 4; want >= 1; want-- {
		err := svc.VerifyCode(ctx, "13800138000", PurposeLogin, "999999")
		var invalid *InvalidCodeError
		if !errors.As(err, &invalid) {
			t.Fatalf("wrong guess: got %v, want InvalidCodeError", err)
		}
		if invalid.Remaining != want {
			t.Fatalf("Remaining = %d, want %d", invalid.Remaining, want)
		}
	}

	if err := svc.VerifyCode(ctx, "13800138000", PurposeLogin, "999999"); !errors.Is(err, ErrTooManyFailures) {
		t.Fatalf("5th wrong guess: got %v, want ErrTooManyFailures", err)
	}

	// The code itself was destroyed, so even the right value no longer works.
	if err := svc.VerifyCode(ctx, "13800138000", PurposeLogin, "042319"); !errors.Is(err, ErrCodeExpiredOrMissing) {
		t.Fatalf("correct code after invalidation: got %v, want ErrCodeExpiredOrMissing", err)
	}
}

func TestVerifyCodeMalformed(t *testing.T) {
	svc, _, _, _, _ := newVerificationFixture(t)
	ctx := context.Background()

	for _, code := range []string{"", "12345", "12345a", "1234567"} {
		if err := svc.VerifyCode(ctx, "13800138000", PurposeLogin, code); !errors.Is(err, ErrCodeMalformed) {
			t.Errorf("VerifyCode(%q): got %v, want ErrCodeMalformed", code, err)
		}
	}
}

func TestSendCodeDeliveryFailure(t *testing.T) {
	svc, _, store, sender, _ := newVerificationFixture(t)
	ctx := context.Background()

	sender.err = errors.New("provider down")
	if _, err := svc.SendCode(ctx, "13800138000", PurposeLogin); !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("SendCode: got %v, want ErrDeliveryFailed", err)
	}

	// The resend stamp is released when delivery fails, so the next attempt
	// is not rate limited.
	if _, found, _ := store.Get(ctx, "sms:rate:13800138000"); found {
		t.Fatalf("resend window stamped despite delivery failure")
	}
	sender.err = nil
	if _, err := svc.SendCode(ctx, "13800138000", PurposeLogin); err != nil {
		t.Fatalf("retry after delivery failure: %v", err)
	}
}
