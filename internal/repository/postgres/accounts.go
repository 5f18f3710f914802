package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/zqshi/thinkcraft-auth/internal/core/domain"
	"github.com/zqshi/thinkcraft-auth/internal/core/port"
	"github.com/zqshi/thinkcraft-auth/internal/repository"
)

const uniqueViolationCode = "23505"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var accountColumns = []string{
	"id",
	"phone",
	"password_hash",
	"status",
	"failed_login_count",
	"locked_until",
	"phone_verified_at",
	"last_login_at",
	"created_at",
	"updated_at",
	"deleted_at",
}

// AccountRepository implements port.AccountRepository backed by PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

var _ port.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository constructs a repository backed by any pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// FindByID loads an account, including soft-deleted ones, by identifier.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("auth.accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select account by id: %w", err)
	}

	return account, nil
}

// FindByPhone loads a live account by its bound phone. Soft-deleted accounts
// are invisible here so their phone can be re-registered.
func (r *AccountRepository) FindByPhone(ctx context.Context, phone domain.Phone) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("auth.accounts").
		Where(squirrel.Eq{"phone": phone.String()}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select account by phone: %w", err)
	}

	return account, nil
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	stmt, args, err := r.builder.
		Insert("auth.accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			phoneValue(account.Phone),
			nullableString(account.PasswordHash),
			string(account.Status),
			account.FailedLoginCount,
			account.LockedUntil,
			account.PhoneVerifiedAt,
			account.LastLoginAt,
			account.CreatedAt,
			account.UpdatedAt,
			account.DeletedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// Save persists the full aggregate state of an existing account.
func (r *AccountRepository) Save(ctx context.Context, account *domain.Account) error {
	stmt, args, err := r.builder.
		Update("auth.accounts").
		Set("phone", phoneValue(account.Phone)).
		Set("password_hash", nullableString(account.PasswordHash)).
		Set("status", string(account.Status)).
		Set("failed_login_count", account.FailedLoginCount).
		Set("locked_until", account.LockedUntil).
		Set("phone_verified_at", account.PhoneVerifiedAt).
		Set("last_login_at", account.LastLoginAt).
		Set("updated_at", account.UpdatedAt).
		Set("deleted_at", account.DeletedAt).
		Where(squirrel.Eq{"id": account.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update account sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account      domain.Account
		phone        sql.NullString
		passwordHash sql.NullString
		status       string
		lockedUntil  sql.NullTime
		verifiedAt   sql.NullTime
		lastLoginAt  sql.NullTime
		deletedAt    sql.NullTime
	)

	err := row.Scan(
		&account.ID,
		&phone,
		&passwordHash,
		&status,
		&account.FailedLoginCount,
		&lockedUntil,
		&verifiedAt,
		&lastLoginAt,
		&account.CreatedAt,
		&account.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if phone.Valid {
		account.Phone = domain.Phone(phone.String)
	}
	if passwordHash.Valid {
		account.PasswordHash = passwordHash.String
	}
	account.Status = domain.AccountStatus(status)
	if lockedUntil.Valid {
		t := lockedUntil.Time
		account.LockedUntil = &t
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		account.PhoneVerifiedAt = &t
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		account.LastLoginAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		account.DeletedAt = &t
	}

	return &account, nil
}

func phoneValue(phone domain.Phone) any {
	if phone == "" {
		return nil
	}
	return phone.String()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
