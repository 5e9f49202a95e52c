package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported database/sql driver names.
const (
	DriverPQ  = "postgres"
	DriverPGX = "pgx"
)

// Config describes how to reach the database.
type Config struct {
	Driver          string
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retry           Policy
}

// DSN returns URL if set, otherwise a postgres:// URL built from the parts.
// Both lib/pq and pgx accept the URL form.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   "/" + c.DBName,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{c.SSLMode}}.Encode()
	}
	return u.String()
}

// Opener creates a fresh database handle.
type Opener func(ctx context.Context) (*sql.DB, error)

// DialectorFunc builds the gorm dialector over an existing handle.
type DialectorFunc func(db *sql.DB) gorm.Dialector

// PostgresDialector is the DialectorFunc used in production.
func PostgresDialector(db *sql.DB) gorm.Dialector {
	return postgres.New(postgres.Config{Conn: db})
}

// PoolOptions configures NewPool.
type PoolOptions struct {
	Open      Opener
	Dialector DialectorFunc
	Retry     Policy
	Logger    *slog.Logger
}

// Pool owns the database handle shared by all repositories. The handle can be
// replaced at runtime by Reconnect; callers must fetch it through DB or ORM
// for every operation and never keep it.
type Pool struct {
	mu  sync.RWMutex
	db  *sql.DB
	orm *gorm.DB
	gen uint64

	reconnectMu sync.Mutex
	open        Opener
	dialector   DialectorFunc
	retrier     *Retrier
	logger      *slog.Logger
}

// NewPool wraps an open handle.
func NewPool(db *sql.DB, opts PoolOptions) (*Pool, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultPolicy()
	}

	p := &Pool{
		db:        db,
		open:      opts.Open,
		dialector: opts.Dialector,
		logger:    opts.Logger,
	}
	p.retrier = NewRetrier(opts.Retry, p, opts.Logger)

	orm, err := p.buildORM(db)
	if err != nil {
		return nil, err
	}
	p.orm = orm
	return p, nil
}

// Open connects using cfg, retrying the first ping under cfg.Retry.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Pool, error) {
	switch cfg.Driver {
	case DriverPQ, DriverPGX:
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}

	opener := func(ctx context.Context) (*sql.DB, error) {
		db, err := sql.Open(cfg.Driver, cfg.DSN())
		if err != nil {
			return nil, err
		}
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
		return db, nil
	}

	db, err := opener(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	pool, err := NewPool(db, PoolOptions{
		Open:      opener,
		Dialector: PostgresDialector,
		Retry:     cfg.Retry,
		Logger:    log,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := pool.Do(ctx, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return pool, nil
}

// DB returns the current handle.
func (p *Pool) DB() *sql.DB {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.db
}

// ORM returns a gorm session over the current handle.
func (p *Pool) ORM(ctx context.Context) (*gorm.DB, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.orm == nil {
		return nil, fmt.Errorf("store: no ORM dialector configured")
	}
	return p.orm.WithContext(ctx), nil
}

// Generation counts how many times the handle has been replaced.
func (p *Pool) Generation() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gen
}

// Reconnect replaces the handle if it is unhealthy. observed is the
// generation the caller saw when its operation failed; if another caller has
// already replaced the handle since then, Reconnect does nothing.
//
// The old handle is closed after the swap. sql.DB.Close lets queries already
// running on it finish.
func (p *Pool) Reconnect(ctx context.Context, observed uint64) error {
	p.reconnectMu.Lock()
	defer p.reconnectMu.Unlock()

	if p.Generation() != observed {
		return nil
	}
	if err := p.DB().PingContext(ctx); err == nil {
		return nil
	}
	if p.open == nil {
		return ErrReconnectUnsupported
	}

	fresh, err := p.open(ctx)
	if err != nil {
		return err
	}
	if err := fresh.PingContext(ctx); err != nil {
		fresh.Close()
		return err
	}
	orm, err := p.buildORM(fresh)
	if err != nil {
		fresh.Close()
		return err
	}

	p.mu.Lock()
	old := p.db
	p.db = fresh
	p.orm = orm
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	if err := old.Close(); err != nil {
		p.logger.Warn("closing replaced database handle", "error", err)
	}
	p.logger.Info("database reconnected", "generation", gen)
	return nil
}

// Do runs op with the pool's retry policy.
func (p *Pool) Do(ctx context.Context, op func(ctx context.Context) error) error {
	return p.retrier.Do(ctx, op)
}

// Tx runs fn inside a transaction. A transient failure retries the whole
// transaction on a fresh one.
func (p *Pool) Tx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	return p.Do(ctx, func(ctx context.Context) error {
		return WithTx(ctx, p.DB(), nil, fn)
	})
}

// Retrier exposes the retrier, mainly so tests can replace its sleep.
func (p *Pool) Retrier() *Retrier {
	return p.retrier
}

// Ping checks the current handle.
func (p *Pool) Ping(ctx context.Context) error {
	return p.DB().PingContext(ctx)
}

// Close closes the current handle.
func (p *Pool) Close() error {
	return p.DB().Close()
}

func (p *Pool) buildORM(db *sql.DB) (*gorm.DB, error) {
	if p.dialector == nil {
		return nil, nil
	}
	orm, err := gorm.Open(p.dialector(db), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("store: gorm: %w", err)
	}
	return orm, nil
}
