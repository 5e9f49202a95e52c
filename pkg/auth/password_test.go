package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/repository"
)

func TestPasswordService_Argon2Parameters(t *testing.T) {
	// Verify that Argon2 parameters are set correctly (OWASP recommended)
	if argon2Time != 1 {
		t.Errorf("argon2Time = %d, want 1", argon2Time)
	}
	if argon2Memory != 64*1024 {
		t.Errorf("argon2Memory = %d, want %d", argon2Memory, 64*1024)
	}
	if argon2Threads != 4 {
		t.Errorf("argon2Threads = %d, want 4", argon2Threads)
	}
	if argon2KeyLen != 32 {
		t.Errorf("argon2KeyLen = %d, want 32", argon2KeyLen)
	}
	if saltLen != 16 {
		t.Errorf("saltLen = %d, want 16", saltLen)
	}
}

func TestPasswordHashing_CaseSensitive(t *testing.T) {
	password := "TestPassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{
			name:     "exact match",
			password: "TestPassword123",
			want:     true,
		},
		{
			name:     "lowercase",
			password: "testpassword123",
			want:     false,
		},
		{
			name:     "uppercase",
			password: "TESTPASSWORD123",
			want:     false,
		},
		{
			name:     "mixed case different",
			password: "testPassword123",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifyPassword(tt.password, hash)
			if got != tt.want {
				t.Errorf("VerifyPassword(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestPasswordStrength_EdgeCases(t *testing.T) {
	// Test that various password lengths and characters can be hashed
	tests := []struct {
		name     string
		password string
	}{
		{
			name:     "very short (1 char)",
			password: "a",
		},
		{
			name:     "empty string",
			password: "",
		},
		{
			name:     "medium length",
			password: "mediumPassword123",
		},
		{
			name:     "special characters",
			password: "p@ssw0rd!#$%^&*()",
		},
		{
			name:     "unicode",
			password: "pässwörd123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			if err != nil {
				t.Errorf("HashPassword failed for %q: %v", tt.name, err)
				return
			}

			if !VerifyPassword(tt.password, hash) {
				t.Errorf("VerifyPassword failed for %q", tt.name)
			}
		})
	}
}

func TestVerifyPassword_RejectsMalformedHash(t *testing.T) {
	for _, h := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
	} {
		if VerifyPassword("secret", h) {
			t.Errorf("VerifyPassword accepted %q", h)
		}
	}
}

func newPasswordService(t *testing.T) (*PasswordService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pool, err := store.NewPool(db, store.PoolOptions{Logger: quietLogger()})
	require.NoError(t, err)
	return NewPasswordService(pool, repository.NewUsersRepository(pool), repository.NewCredentialsRepository(pool), nil, EmailRules{}), mock
}

var userCols = []string{
	"id", "email", "username", "name", "email_verified_at", "onboarding_completed",
	"failed_login_attempts", "locked_until", "created_at", "updated_at", "deleted_at",
}

func TestPasswordService_AuthenticateWrongPasswordCountsFailure(t *testing.T) {
	svc, mock := newPasswordService(t)
	id := uuid.New()
	hash, err := HashPassword("Correct1")
	require.NoError(t, err)

	mock.ExpectQuery(`FROM users`).WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(id.String(), "ada@example.com", nil, nil, nil, false, 4, nil, time.Now(), time.Now(), nil))
	mock.ExpectQuery(`FROM user_password`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "password_hash", "password_updated_at"}).
			AddRow(id.String(), hash, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("failed_login_attempts = failed_login_attempts + 1")).
		WithArgs(id, MaxFailedLoginAttempts, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = svc.Authenticate(context.Background(), " Ada@Example.com ", "Wrong1234")

	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordService_AuthenticateLockedAccount(t *testing.T) {
	svc, mock := newPasswordService(t)
	locked := time.Now().Add(10 * time.Minute)

	mock.ExpectQuery(`FROM users`).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(uuid.NewString(), "ada@example.com", nil, nil, nil, false, 5, locked, time.Now(), time.Now(), nil))

	_, err := svc.Authenticate(context.Background(), "ada@example.com", "Whatever1")
	assert.ErrorIs(t, err, domain.ErrAccountLocked)
}

func TestPasswordService_AuthenticateProviderOnlyAccount(t *testing.T) {
	svc, mock := newPasswordService(t)

	mock.ExpectQuery(`FROM users`).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(uuid.NewString(), "ada@example.com", nil, nil, time.Now(), false, 0, nil, time.Now(), time.Now(), nil))
	mock.ExpectQuery(`FROM user_password`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "password_hash", "password_updated_at"}))

	_, err := svc.Authenticate(context.Background(), "ada@example.com", "Whatever1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestPasswordService_RegisterRejectsWeakPasswordBeforeQuerying(t *testing.T) {
	svc, mock := newPasswordService(t)

	_, err := svc.Register(context.Background(), "ada@example.com", "short", "Ada", nil)

	assert.ErrorIs(t, err, domain.ErrWeakPassword)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordService_RegisterCreatesUserAndCredentials(t *testing.T) {
	svc, mock := newPasswordService(t)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email = \$1`).WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_password`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user, err := svc.Register(context.Background(), "Ada@Example.com", "Str0ngPass", "  Ada  ", nil)

	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada", *user.Name)
	assert.False(t, user.EmailVerified())
	assert.NoError(t, mock.ExpectationsWereMet())
}
