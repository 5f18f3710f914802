package domain

import "time"

// Event types published to the account event stream.
const (
	EventAccountRegistered = "auth.account.registered"
	EventAccountLoggedIn   = "auth.account.logged_in"
	EventAccountLoggedOut  = "auth.account.logged_out"
	EventAccountLocked     = "auth.account.locked"
	EventAccountPhoneBound = "auth.account.phone_bound"
	EventAccountDeleted    = "auth.account.deleted"
)

// AccountRegisteredEvent is emitted when a new account is created, either by
// explicit registration or by first login.
type AccountRegisteredEvent struct {
	AccountID   string    `json:"account_id"`
	MaskedPhone string    `json:"masked_phone"`
	ViaLogin    bool      `json:"via_login"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// AccountLoggedInEvent is emitted on every successful authentication.
type AccountLoggedInEvent struct {
	AccountID  string    `json:"account_id"`
	NewAccount bool      `json:"new_account"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AccountLoggedOutEvent is emitted when a session is explicitly ended.
type AccountLoggedOutEvent struct {
	AccountID  string    `json:"account_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AccountLockedEvent is emitted when repeated failures lock an account.
type AccountLockedEvent struct {
	AccountID   string    `json:"account_id"`
	LockedUntil time.Time `json:"locked_until"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// AccountPhoneBoundEvent is emitted when a phone is bound or replaced.
type AccountPhoneBoundEvent struct {
	AccountID   string    `json:"account_id"`
	MaskedPhone string    `json:"masked_phone"`
	Replaced    bool      `json:"replaced"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// AccountDeletedEvent is emitted when an account is soft deleted.
type AccountDeletedEvent struct {
	AccountID  string    `json:"account_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
