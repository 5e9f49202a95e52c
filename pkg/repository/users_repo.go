package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

const selectUser = `
	SELECT id, email, username, name, email_verified_at, onboarding_completed,
	       failed_login_attempts, locked_until, created_at, updated_at, deleted_at
	FROM users
`

// UsersRepository handles user persistence.
type UsersRepository struct {
	pool *store.Pool
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(pool *store.Pool) *UsersRepository {
	return &UsersRepository{pool: pool}
}

// CreateTx creates a new user within a transaction.
func (r *UsersRepository) CreateTx(ctx context.Context, q store.Querier, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, username, name, email_verified_at, onboarding_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.ExecContext(ctx, query,
		user.ID, user.Email, user.Username, user.Name, user.EmailVerifiedAt,
		user.OnboardingCompleted, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// GetByID retrieves a user by ID.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = $1 AND deleted_at IS NULL`, id)
}

// GetByEmail retrieves a user by email.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, selectUser+` WHERE email = $1 AND deleted_at IS NULL`, email)
}

// GetByEmailOrUsername retrieves a user by email or username.
func (r *UsersRepository) GetByEmailOrUsername(ctx context.Context, identifier string) (*domain.User, error) {
	return r.getOne(ctx, selectUser+` WHERE (email = $1 OR username = $1) AND deleted_at IS NULL`, identifier)
}

func (r *UsersRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	return store.Query(ctx, r.pool, func(ctx context.Context) (*domain.User, error) {
		user := &domain.User{}
		err := r.pool.DB().QueryRowContext(ctx, query, arg).Scan(
			&user.ID, &user.Email, &user.Username, &user.Name, &user.EmailVerifiedAt,
			&user.OnboardingCompleted, &user.FailedLoginAttempts, &user.LockedUntil,
			&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		if err != nil {
			return nil, err
		}
		return user, nil
	})
}

// ExistsByEmail checks if a user exists by email.
func (r *UsersRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)`, email)
}

// ExistsByUsername checks if a user exists by username.
func (r *UsersRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND deleted_at IS NULL)`, username)
}

func (r *UsersRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	return store.Query(ctx, r.pool, func(ctx context.Context) (bool, error) {
		var exists bool
		err := r.pool.DB().QueryRowContext(ctx, query, arg).Scan(&exists)
		return exists, err
	})
}

// Update writes the editable profile fields.
func (r *UsersRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $2, username = $3, name = $4, email_verified_at = $5, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL
	`
	n, err := execAffected(ctx, r.pool, query,
		user.ID, user.Email, user.Username, user.Name, user.EmailVerifiedAt, time.Now(),
	)
	return requireRow(n, err, domain.ErrUserNotFound)
}

// MarkEmailVerifiedTx records the verification time inside a transaction.
func (r *UsersRepository) MarkEmailVerifiedTx(ctx context.Context, q store.Querier, userID uuid.UUID, at time.Time) error {
	query := `
		UPDATE users
		SET email_verified_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`
	n, err := rowsAffected(q.ExecContext(ctx, query, userID, at))
	return requireRow(n, err, domain.ErrUserNotFound)
}

// IncrementFailedLoginAttempts increments the failed login counter and locks
// the account until lockUntil once maxAttempts is reached.
func (r *UsersRepository) IncrementFailedLoginAttempts(ctx context.Context, userID uuid.UUID, lockUntil time.Time, maxAttempts int) error {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN $3
		        ELSE locked_until
		    END,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := execAffected(ctx, r.pool, query, userID, maxAttempts, lockUntil)
	return err
}

// ResetFailedLoginAttempts resets the failed login attempts and clears lockout.
func (r *UsersRepository) ResetFailedLoginAttempts(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0,
		    locked_until = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := execAffected(ctx, r.pool, query, userID)
	return err
}

// Delete permanently deletes a user. Credentials, identities, sessions,
// tokens, notifications and learning records go with it through ON DELETE
// CASCADE.
func (r *UsersRepository) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := execAffected(ctx, r.pool, `DELETE FROM users WHERE id = $1`, id)
	return requireRow(n, err, domain.ErrUserNotFound)
}
