// Package app assembles the BlissLearn API from configuration: the database
// pool, repositories, services, optional Redis/NATS/S3 backends and the HTTP
// router.
//
// Usage:
//
//	a, err := app.New(ctx, cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//	go a.RunSweeper(ctx)
//	http.ListenAndServe(cfg.Addr(), a.Handler())
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/cache"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/config"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/events"
	httpserver "github.com/AlfredLandry1/blisslearn-sub002/internal/http"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/mailer"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/storage"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/auth"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/learning"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/notifications"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/repository"
)

// App is a fully wired API instance.
type App struct {
	logger  *slog.Logger
	pool    *store.Pool
	cache   *cache.Cache
	nats    *events.NATSPublisher
	sweeper *notifications.Sweeper
	handler http.Handler

	// Identities links external provider accounts. No HTTP route drives it;
	// an OAuth front end calls it after its own handshake.
	Identities *auth.IdentityService
}

// New connects to the configured backends and builds the router. Optional
// backends (Redis, NATS, S3) are only dialled when configured; a configured
// backend that cannot be reached fails startup.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := store.Open(ctx, storeConfig(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &App{logger: logger, pool: pool}

	if err := a.prepareSchema(ctx, cfg.Database.AutoMigrate); err != nil {
		_ = a.Close()
		return nil, err
	}

	if err := a.build(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) prepareSchema(ctx context.Context, migrate bool) error {
	if migrate {
		if err := a.pool.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		a.logger.Info("database migrations applied")
		return nil
	}
	if err := a.pool.CheckSchema(ctx); err != nil {
		return fmt.Errorf("schema check: %w (run migrations or set DB_AUTO_MIGRATE=true)", err)
	}
	return nil
}

func (a *App) build(ctx context.Context, cfg *config.Config) error {
	logger := a.logger

	var (
		publisher   events.Publisher = events.Nop{}
		catalogKV   learning.Cache
		sweepLock   notifications.Locker
		certificate learning.ArtifactStore
	)

	if cfg.HasRedis() {
		c, err := cache.Open(ctx, cache.Config{
			URL:      cfg.Redis.URL,
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.cache = c
		catalogKV, sweepLock = c, c
		logger.Info("redis cache enabled")
	}

	if cfg.HasNATS() {
		p, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		a.nats = p
		publisher = p
		logger.Info("event publishing enabled", "url", cfg.NATS.URL)
	}

	if cfg.HasS3() {
		s, err := storage.NewS3(ctx, storage.Config{
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			Bucket:       cfg.S3.Bucket,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
		if err != nil {
			return fmt.Errorf("configure s3: %w", err)
		}
		certificate = s
		logger.Info("certificate storage enabled", "bucket", cfg.S3.Bucket)
	}

	mail, err := mailer.New(mailer.Config{
		Provider: cfg.Email.Provider,
		From:     cfg.Email.From,
		FromName: cfg.Email.FromName,
		Timeout:  cfg.Email.Timeout,
		SMTP: mailer.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			User:     cfg.Email.SMTPUser,
			Password: cfg.Email.SMTPPassword,
		},
		APIKey:  cfg.Email.APIKey,
		BaseURL: cfg.Email.BaseURL,
	}, logger)
	if err != nil {
		return fmt.Errorf("configure mailer: %w", err)
	}

	pool := a.pool
	usersRepo := repository.NewUsersRepository(pool)
	credsRepo := repository.NewCredentialsRepository(pool)
	identitiesRepo := repository.NewIdentitiesRepository(pool)
	sessionsRepo := repository.NewSessionsRepository(pool)
	tokensRepo := repository.NewVerificationTokensRepository()
	notificationsRepo := repository.NewNotificationsRepository(pool)
	profilesRepo := repository.NewProfilesRepository(pool)
	progressRepo := repository.NewProgressRepository(pool)
	coursesRepo := repository.NewCoursesRepository(pool)
	certsRepo := repository.NewCertificationsRepository(pool)

	emailRules := auth.EmailRules{
		Strict:          cfg.Validation.StrictEmail,
		BlockDisposable: cfg.Validation.BlockDisposable,
	}
	policy := auth.NewPasswordPolicy(cfg.PasswordPolicy)

	notificationService := notifications.NewService(notificationsRepo, publisher, logger)
	passwordService := auth.NewPasswordService(pool, usersRepo, credsRepo, policy, emailRules)
	sessionService := auth.NewSessionService(auth.SessionConfig{
		AccessTokenTTL:     cfg.JWT.AccessTokenTTL,
		RefreshTokenTTL:    cfg.JWT.RefreshTokenTTL,
		JWTSecret:          []byte(cfg.JWT.Secret),
		Issuer:             cfg.JWT.Issuer,
		FingerprintEnabled: cfg.JWT.FingerprintEnabled,
		DetectReuseEnabled: cfg.JWT.DetectReuse,
	}, sessionsRepo, usersRepo)
	tokenService := auth.NewTokenService(pool, tokensRepo, auth.TokenConfig{
		PasswordResetTTL:     cfg.PasswordResetTTL,
		EmailVerificationTTL: cfg.EmailVerificationTTL,
	})
	recoveryService := auth.NewRecoveryService(auth.RecoveryDeps{
		Users:      usersRepo,
		Creds:      credsRepo,
		Identities: identitiesRepo,
		Tokens:     tokenService,
		Mailer:     mail,
		Sessions:   sessionService,
		Notifier:   notificationService,
		Policy:     policy,
		Email:      emailRules,
		AppBaseURL: cfg.App.BaseURL,
		Logger:     logger,
	})
	accountService := auth.NewAccountService(usersRepo, recoveryService, emailRules, logger)
	a.Identities = auth.NewIdentityService(pool, usersRepo, identitiesRepo)

	catalogService := learning.NewCatalogService(coursesRepo, catalogKV, cfg.Catalog.CacheTTL, logger)
	certificationService := learning.NewCertificationService(learning.CertificationDeps{
		Certifications: certsRepo,
		Progress:       progressRepo,
		Courses:        coursesRepo,
		Users:          usersRepo,
		Artifacts:      certificate,
		Events:         publisher,
		Logger:         logger,
	})
	progressService := learning.NewProgressService(learning.ProgressDeps{
		Progress: progressRepo,
		Courses:  coursesRepo,
		Issuer:   certificationService,
		Notifier: notificationService,
		Events:   publisher,
		Logger:   logger,
	})
	onboardingService := learning.NewOnboardingService(profilesRepo, notificationService, publisher, logger)

	a.sweeper = notifications.NewSweeper(notificationService, cfg.Notification.SweepInterval, sweepLock, logger)

	a.handler = httpserver.NewRouter(httpserver.RouterConfig{
		Logger:                   logger,
		Passwords:                passwordService,
		Sessions:                 sessionService,
		Recovery:                 recoveryService,
		Accounts:                 accountService,
		Profiles:                 onboardingService,
		Catalog:                  catalogService,
		Progress:                 progressService,
		Certifications:           certificationService,
		Notifications:            notificationService,
		Sweeper:                  a.sweeper,
		RateLimit:                cfg.RateLimit,
		SecurityHeaders:          cfg.SecurityHeaders,
		Validation:               cfg.Validation,
		AdminSecret:              cfg.Admin.Secret,
		CookieSecure:             cookieSecure(cfg.App.BaseURL),
		RequireEmailVerification: cfg.RequireEmailVerification,
	})
	return nil
}

// Handler returns the API router.
func (a *App) Handler() http.Handler {
	return a.handler
}

// RunSweeper deletes expired notifications on the configured interval until
// ctx is done.
func (a *App) RunSweeper(ctx context.Context) {
	a.sweeper.Run(ctx)
}

// Close releases every backend connection.
func (a *App) Close() error {
	var errs []error
	if a.nats != nil {
		errs = append(errs, a.nats.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.pool != nil {
		errs = append(errs, a.pool.Close())
	}
	return errors.Join(errs...)
}

func storeConfig(cfg *config.Config) store.Config {
	db := cfg.Database
	return store.Config{
		Driver:          db.Driver,
		URL:             db.URL,
		Host:            db.Host,
		Port:            db.Port,
		User:            db.User,
		Password:        db.Password,
		DBName:          db.Name,
		SSLMode:         db.SSLMode,
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
		Retry: store.Policy{
			MaxAttempts: db.RetryMaxAttempts,
			BaseDelay:   db.RetryBaseDelay,
		},
	}
}

// cookieSecure reports whether auth cookies need the Secure flag, which is
// whenever the public base URL is served over TLS.
func cookieSecure(baseURL string) bool {
	return strings.HasPrefix(strings.ToLower(baseURL), "https://")
}
