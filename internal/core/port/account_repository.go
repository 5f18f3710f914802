package port

import (
	"context"

	"github.com/zqshi/thinkcraft-auth/internal/core/domain"
)

// AccountRepository persists the identity aggregate.
type AccountRepository interface {
	// FindByID loads an account by identifier. Returns repository.ErrNotFound
	// when no account exists.
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	// FindByPhone loads an account by its bound phone number.
	FindByPhone(ctx context.Context, phone domain.Phone) (*domain.Account, error)
	// Create inserts a new account. Returns repository.ErrDuplicate when the
	// phone is already registered.
	Create(ctx context.Context, account *domain.Account) error
	// Save persists the full aggregate state of an existing account.
	Save(ctx context.Context, account *domain.Account) error
}
