package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memTx runs fn directly, restoring the token store when fn fails so that a
// failed transaction leaves no trace.
type memTx struct {
	store *memTokens
	calls int
}

func (m *memTx) Tx(ctx context.Context, fn func(ctx context.Context, q store.Querier) error) error {
	m.calls++
	snapshot := m.store.snapshot()
	if err := fn(ctx, nil); err != nil {
		m.store.restore(snapshot)
		return err
	}
	return nil
}

// memTokens keeps tokens keyed by (user, purpose), mirroring the unique
// constraint of the real table.
type memTokens struct {
	mu   sync.Mutex
	rows map[string]domain.VerificationToken
}

func newMemTokens() *memTokens {
	return &memTokens{rows: make(map[string]domain.VerificationToken)}
}

func tokenKey(userID uuid.UUID, purpose domain.TokenPurpose) string {
	return userID.String() + "/" + string(purpose)
}

func (m *memTokens) snapshot() map[string]domain.VerificationToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]domain.VerificationToken, len(m.rows))
	for k, v := range m.rows {
		cp[k] = v
	}
	return cp
}

func (m *memTokens) restore(rows map[string]domain.VerificationToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
}

func (m *memTokens) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memTokens) Upsert(ctx context.Context, q store.Querier, t *domain.VerificationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[tokenKey(t.UserID, t.Purpose)] = *t
	return nil
}

func (m *memTokens) GetByHashForUpdate(ctx context.Context, q store.Querier, purpose domain.TokenPurpose, hash string) (*domain.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.TokenHash == hash && t.Purpose == purpose {
			t := t
			return &t, nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (m *memTokens) DeleteByID(ctx context.Context, q store.Querier, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.rows {
		if t.ID == id {
			delete(m.rows, k)
		}
	}
	return nil
}

func (m *memTokens) DeleteByUserAndPurpose(ctx context.Context, q store.Querier, userID uuid.UUID, purpose domain.TokenPurpose) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := tokenKey(userID, purpose)
	if _, ok := m.rows[k]; !ok {
		return 0, nil
	}
	delete(m.rows, k)
	return 1, nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeUsers struct {
	byEmail  map[string]*domain.User
	verified map[uuid.UUID]time.Time
	err      error
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{byEmail: map[string]*domain.User{}, verified: map[uuid.UUID]time.Time{}}
	for _, u := range users {
		f.byEmail[u.Email] = u
	}
	return f
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUsers) MarkEmailVerifiedTx(ctx context.Context, q store.Querier, userID uuid.UUID, at time.Time) error {
	f.verified[userID] = at
	return nil
}

type fakeCreds struct {
	withPassword map[uuid.UUID]bool
	upserted     []domain.UserPassword
	upsertErr    error
}

func (f *fakeCreds) HasPassword(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f.withPassword[userID], nil
}

func (f *fakeCreds) UpsertTx(ctx context.Context, q store.Querier, cred *domain.UserPassword) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, *cred)
	return nil
}

type fakeIdentities struct {
	identities []*domain.UserIdentity
}

func (f *fakeIdentities) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.UserIdentity, error) {
	return f.identities, nil
}

type sentMail struct {
	kind     string
	to       string
	link     string
	validFor time.Duration
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) record(kind, to, link string, validFor time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{kind: kind, to: to, link: link, validFor: validFor})
	return nil
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, to, name, link string, validFor time.Duration) error {
	return f.record("reset", to, link, validFor)
}

func (f *fakeMailer) SendPasswordChanged(ctx context.Context, to, name string) error {
	return f.record("changed", to, "", 0)
}

func (f *fakeMailer) SendVerification(ctx context.Context, to, name, link string, validFor time.Duration) error {
	return f.record("verify", to, link, validFor)
}

// deliveryErr stands in for the mail provider error type.
type deliveryErr struct{ err error }

func (e *deliveryErr) Error() string  { return "deliver: " + e.err.Error() }
func (e *deliveryErr) Unwrap() error  { return e.err }
func (e *deliveryErr) Delivery() bool { return true }

var errSMTPDown = &deliveryErr{err: errors.New("dial tcp: i/o timeout")}

type fakeRevoker struct {
	revoked []uuid.UUID
}

func (f *fakeRevoker) RevokeAllSessions(ctx context.Context, userID uuid.UUID) error {
	f.revoked = append(f.revoked, userID)
	return nil
}

type fakeNotifier struct {
	kinds []domain.NotificationKind
}

func (f *fakeNotifier) Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message string) error {
	f.kinds = append(f.kinds, kind)
	return nil
}
