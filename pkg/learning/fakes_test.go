package learning

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow() time.Time { return testNow }

type fakeCourses struct {
	byID       map[uuid.UUID]*domain.Course
	searches   []domain.CourseFilter
	searchErr  error
	categories []domain.CategoryCount
}

func newFakeCourses(courses ...*domain.Course) *fakeCourses {
	f := &fakeCourses{byID: map[uuid.UUID]*domain.Course{}}
	for _, c := range courses {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCourses) Search(ctx context.Context, filter domain.CourseFilter) ([]domain.Course, int64, error) {
	f.searches = append(f.searches, filter)
	if f.searchErr != nil {
		return nil, 0, f.searchErr
	}
	var all []domain.Course
	for _, c := range f.byID {
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Title < all[j].Title })
	total := int64(len(all))
	start := min((filter.Page-1)*filter.PageSize, len(all))
	end := min(start+filter.PageSize, len(all))
	return all[start:end], total, nil
}

func (f *fakeCourses) GetBySlug(ctx context.Context, slug string) (*domain.Course, error) {
	for _, c := range f.byID {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, domain.ErrCourseNotFound
}

func (f *fakeCourses) GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCourses) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	return f.categories, nil
}

type fakeCache struct {
	data   map[string][]byte
	getErr error
	setErr error
	ttls   []time.Duration
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *fakeCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = raw
	c.ttls = append(c.ttls, ttl)
	return nil
}

type progressKey struct{ user, course uuid.UUID }

type fakeProgress struct {
	rows    map[progressKey]*domain.CourseProgress
	saves   int
	saveErr error
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{rows: map[progressKey]*domain.CourseProgress{}}
}

func (f *fakeProgress) CreateIfAbsent(ctx context.Context, p *domain.CourseProgress) (*domain.CourseProgress, error) {
	k := progressKey{p.UserID, p.CourseID}
	if _, ok := f.rows[k]; !ok {
		cp := *p
		f.rows[k] = &cp
	}
	return f.Get(ctx, p.UserID, p.CourseID)
}

func (f *fakeProgress) Get(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error) {
	p, ok := f.rows[progressKey{userID, courseID}]
	if !ok {
		return nil, domain.ErrProgressNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProgress) Save(ctx context.Context, p *domain.CourseProgress, addMinutes int) (*domain.CourseProgress, bool, error) {
	if f.saveErr != nil {
		return nil, false, f.saveErr
	}
	f.saves++
	row, ok := f.rows[progressKey{p.UserID, p.CourseID}]
	if !ok {
		return nil, false, domain.ErrProgressNotFound
	}
	row.MinutesSpent += addMinutes
	row.LastAccessedAt = p.LastAccessedAt
	completed := false
	if row.Status != domain.StatusCompleted {
		row.Status = p.Status
		row.CompletedModules = p.CompletedModules
		row.Percent = p.Percent
		row.CompletedAt = p.CompletedAt
		completed = p.Status == domain.StatusCompleted
	}
	cp := *row
	return &cp, completed, nil
}

// staleProgress serves the snapshot taken when it was created, like a reader
// that raced a concurrent writer.
type staleProgress struct {
	*fakeProgress
	snapshot domain.CourseProgress
}

func (s *staleProgress) Get(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error) {
	cp := s.snapshot
	return &cp, nil
}

type flakyIssuer struct {
	next  Issuer
	fails int
	calls int
}

func (f *flakyIssuer) Issue(ctx context.Context, userID, courseID uuid.UUID) (*domain.Certification, error) {
	f.calls++
	if f.fails > 0 {
		f.fails--
		return nil, errors.New("storage unavailable")
	}
	return f.next.Issue(ctx, userID, courseID)
}

func (f *fakeProgress) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CourseProgress, error) {
	var out []domain.CourseProgress
	for k, p := range f.rows {
		if k.user == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProgress) Stats(ctx context.Context, userID uuid.UUID) (*domain.ProgressStats, error) {
	stats := &domain.ProgressStats{}
	var sum, n int
	for k, p := range f.rows {
		if k.user != userID {
			continue
		}
		switch p.Status {
		case domain.StatusInProgress:
			stats.InProgress++
		case domain.StatusCompleted:
			stats.Completed++
		}
		stats.TotalMinutes += int64(p.MinutesSpent)
		sum += p.Percent
		n++
	}
	if n > 0 {
		stats.AveragePercent = float64(sum) / float64(n)
	}
	return stats, nil
}

type fakeCerts struct {
	byID   map[uuid.UUID]*domain.Certification
	keyErr error
}

func newFakeCerts() *fakeCerts { return &fakeCerts{byID: map[uuid.UUID]*domain.Certification{}} }

func (f *fakeCerts) CreateIfAbsent(ctx context.Context, c *domain.Certification) (*domain.Certification, bool, error) {
	if existing, err := f.GetByCourse(ctx, c.UserID, c.CourseID); err == nil {
		return existing, false, nil
	}
	cp := *c
	f.byID[c.ID] = &cp
	out := cp
	return &out, true, nil
}

func (f *fakeCerts) GetByCourse(ctx context.Context, userID, courseID uuid.UUID) (*domain.Certification, error) {
	for _, c := range f.byID {
		if c.UserID == userID && c.CourseID == courseID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrCertificationNotFound
}

func (f *fakeCerts) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Certification, error) {
	c, ok := f.byID[id]
	if !ok || c.UserID != userID {
		return nil, domain.ErrCertificationNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCerts) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Certification, error) {
	var out []domain.Certification
	for _, c := range f.byID {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCerts) SetArtifactKey(ctx context.Context, id uuid.UUID, key string) error {
	if f.keyErr != nil {
		return f.keyErr
	}
	c, ok := f.byID[id]
	if !ok {
		return domain.ErrCertificationNotFound
	}
	c.ArtifactKey = &key
	return nil
}

type fakeArtifacts struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeArtifacts) Put(ctx context.Context, key, contentType string, body []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = body
	f.types[key] = contentType
	return nil
}

func (f *fakeArtifacts) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, ok := f.objects[key]; !ok {
		return "", errors.New("no such key")
	}
	return "https://files.test/" + key + "?expires=" + ttl.String(), nil
}

type fakeUsers struct {
	users map[uuid.UUID]*domain.User
}

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

type sentNotification struct {
	userID  uuid.UUID
	kind    domain.NotificationKind
	title   string
	message string
}

type fakeNotifier struct {
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentNotification{userID, kind, title, message})
	return nil
}

type published struct {
	subject string
	data    any
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, subject string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject, data})
	return nil
}

func (f *fakePublisher) subjects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.subject)
	}
	return out
}

type fakeProfiles struct {
	profiles map[uuid.UUID]*domain.LearnerProfile
	err      error
}

func (f *fakeProfiles) CompleteOnboarding(ctx context.Context, p *domain.LearnerProfile) error {
	if f.err != nil {
		return f.err
	}
	cp := *p
	f.profiles[p.UserID] = &cp
	return nil
}

func (f *fakeProfiles) Get(ctx context.Context, userID uuid.UUID) (*domain.LearnerProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}
