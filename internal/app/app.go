// Package app wires configuration, storage and services into one container
// shared by the API server and the operator CLI.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ownerdesk/ticket-engine/internal/auth"
	"github.com/ownerdesk/ticket-engine/internal/calendar"
	"github.com/ownerdesk/ticket-engine/internal/config"
	"github.com/ownerdesk/ticket-engine/internal/events"
	"github.com/ownerdesk/ticket-engine/internal/lock"
	"github.com/ownerdesk/ticket-engine/internal/observability"
	"github.com/ownerdesk/ticket-engine/internal/persistence"
	"github.com/ownerdesk/ticket-engine/internal/repository"
	"github.com/ownerdesk/ticket-engine/internal/repository/memory"
	"github.com/ownerdesk/ticket-engine/internal/service"
)

// Repositories groups every store the services need.
type Repositories struct {
	Tickets      repository.TicketRepository
	Envelopes    repository.EnvelopeRepository
	Agents       repository.AgentRepository
	Teams        repository.TeamRepository
	Customers    repository.CustomerRepository
	CaseFlags    repository.CaseFlagRepository
	Resolutions  repository.ResolutionRepository
	Calibrations repository.CalibrationRepository
	Alerts       repository.AlertRepository
	Timeline     repository.TimelineRepository
	Transactor   repository.Transactor
}

// Container holds the wired process.
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Postgres   *persistence.Postgres
	Redis      *persistence.Redis
	Dispatcher events.Dispatcher
	Repos      Repositories
	Tokens     *auth.TokenManager

	Timeline      *service.TimelineService
	Ownership     *service.OwnershipService
	Tickets       *service.TicketService
	Envelopes     *service.EnvelopeService
	Priority      *service.PriorityService
	Alerts        *service.AlertService
	Resolutions   *service.ResolutionService
	Calibration   *service.CalibrationService
	Directory     *service.DirectoryService
	Auth          *service.AuthService
	Notifications *service.NotificationService
}

// New connects storage and builds every service. Without POSTGRES_DSN the
// in-memory store is used; without REDIS_ADDR sweep locks are process local.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)

	matrix, err := config.LoadAlertMatrix(cfg.Engine.AlertMatrixFile)
	if err != nil {
		pg.Close()
		rdb.Close()
		return nil, err
	}

	c := &Container{
		Config:     cfg,
		Logger:     logger,
		Metrics:    observability.NewMetrics(),
		Postgres:   pg,
		Redis:      rdb,
		Dispatcher: events.NewInMemoryDispatcher(logger),
		Tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
	}
	if pg.Enabled() {
		c.Repos = postgresRepositories(pg)
	} else {
		c.Repos = memoryRepositories(memory.NewStore())
	}

	var locker lock.Locker = lock.NewMemoryLocker()
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb.Client, cfg.App.Name+":lock:")
	}

	loc := cfg.Engine.Location()
	cal := calendar.New(
		calendar.WithLocation(loc),
		calendar.WithHolidays(calendar.RegionHolidays(cfg.Engine.HolidayRegion)...),
	)

	c.buildServices(matrix, cal, locker)
	return c, nil
}

func (c *Container) buildServices(matrix config.AlertMatrix, cal calendar.Calendar, locker lock.Locker) {
	cfg, repos, logger := c.Config, c.Repos, c.Logger
	notifier := service.NewEventNotifier(c.Dispatcher, nil)
	groupManagers := service.NewTeamGroupManagers(repos.Teams, cfg.Engine.GroupManagerIDs)

	c.Timeline = service.NewTimelineService(service.TimelineDependencies{
		TimelineRepo: repos.Timeline,
		TicketRepo:   repos.Tickets,
		EnvelopeRepo: repos.Envelopes,
	})
	c.Ownership = service.NewOwnershipService(service.OwnershipDependencies{
		TicketRepo:   repos.Tickets,
		AgentRepo:    repos.Agents,
		EnvelopeRepo: repos.Envelopes,
		Transactor:   repos.Transactor,
		Timeline:     c.Timeline,
		Dispatcher:   c.Dispatcher,
		Metrics:      c.Metrics,
		Logger:       logger,
	})
	c.Tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo:   repos.Tickets,
		CustomerRepo: repos.Customers,
		TeamRepo:     repos.Teams,
		CaseFlagRepo: repos.CaseFlags,
		Transactor:   repos.Transactor,
		Ownership:    c.Ownership,
		Timeline:     c.Timeline,
		Matrix:       matrix,
		Dispatcher:   c.Dispatcher,
	})
	c.Envelopes = service.NewEnvelopeService(service.EnvelopeDependencies{
		TicketRepo:    repos.Tickets,
		EnvelopeRepo:  repos.Envelopes,
		AgentRepo:     repos.Agents,
		TeamRepo:      repos.Teams,
		Transactor:    repos.Transactor,
		Ownership:     c.Ownership,
		Timeline:      c.Timeline,
		Notifier:      notifier,
		Metrics:       c.Metrics,
		Logger:        logger,
		ResponseHours: cfg.Engine.EnvelopeDueHours,
	})
	c.Priority = service.NewPriorityService(service.PriorityDependencies{
		TicketRepo:   repos.Tickets,
		EnvelopeRepo: repos.Envelopes,
		CustomerRepo: repos.Customers,
		CaseFlagRepo: repos.CaseFlags,
		TeamRepo:     repos.Teams,
	})
	c.Alerts = service.NewAlertService(service.AlertDependencies{
		TicketRepo:    repos.Tickets,
		AgentRepo:     repos.Agents,
		TeamRepo:      repos.Teams,
		AlertRepo:     repos.Alerts,
		Matrix:        matrix,
		Calendar:      cal,
		GroupManagers: groupManagers,
		Notifier:      notifier,
		Locker:        locker,
		LockTTL:       cfg.Redis.LockTTL(),
		Concurrency:   cfg.Engine.SweepConcurrency,
		Metrics:       c.Metrics,
		Logger:        logger,
	})
	c.Resolutions = service.NewResolutionService(service.ResolutionDependencies{
		TicketRepo:      repos.Tickets,
		AgentRepo:       repos.Agents,
		TeamRepo:        repos.Teams,
		ResolutionRepo:  repos.Resolutions,
		CalibrationRepo: repos.Calibrations,
		CaseFlagRepo:    repos.CaseFlags,
		Transactor:      repos.Transactor,
		Timeline:        c.Timeline,
		GroupManagers:   groupManagers,
		Notifier:        notifier,
		Logger:          logger,
	})
	c.Calibration = service.NewCalibrationService(service.CalibrationDependencies{
		ResolutionRepo:  repos.Resolutions,
		CalibrationRepo: repos.Calibrations,
		AgentRepo:       repos.Agents,
		TeamRepo:        repos.Teams,
		Notifier:        notifier,
		Logger:          logger,
		SamplePct:       cfg.Engine.CalibrationSamplePct,
	})
	c.Directory = service.NewDirectoryService(service.DirectoryDependencies{
		TeamRepo:     repos.Teams,
		AgentRepo:    repos.Agents,
		CustomerRepo: repos.Customers,
		BcryptCost:   cfg.Auth.BcryptCost,
		Logger:       logger,
	})
	c.Auth = service.NewAuthService(repos.Agents, c.Tokens)
	c.Notifications = service.NewNotificationService(c.Dispatcher, logger, cfg.Notification)
}

// Bootstrap creates the configured admin account when credentials are set.
func (c *Container) Bootstrap(ctx context.Context) error {
	a := c.Config.Auth
	if a.BootstrapAdminEmail == "" || a.BootstrapAdminPassword == "" {
		return nil
	}
	admin, err := c.Directory.BootstrapAdmin(ctx, a.BootstrapAdminName, a.BootstrapAdminEmail, a.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	c.Logger.Info("admin account ready", zap.String("agent_id", admin.ID))
	return nil
}

// Close releases storage connections.
func (c *Container) Close() {
	c.Redis.Close()
	c.Postgres.Close()
}

func postgresRepositories(pg *persistence.Postgres) Repositories {
	pool := pg.Pool
	return Repositories{
		Tickets:      repository.NewTicketRepository(pool),
		Envelopes:    repository.NewEnvelopeRepository(pool),
		Agents:       repository.NewAgentRepository(pool),
		Teams:        repository.NewTeamRepository(pool),
		Customers:    repository.NewCustomerRepository(pool),
		CaseFlags:    repository.NewCaseFlagRepository(pool),
		Resolutions:  repository.NewResolutionRepository(pool),
		Calibrations: repository.NewCalibrationRepository(pool),
		Alerts:       repository.NewAlertRepository(pool),
		Timeline:     repository.NewTimelineRepository(pool),
		Transactor:   repository.NewTransactor(pool),
	}
}

func memoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Tickets:      store.Tickets(),
		Envelopes:    store.Envelopes(),
		Agents:       store.Agents(),
		Teams:        store.Teams(),
		Customers:    store.Customers(),
		CaseFlags:    store.CaseFlags(),
		Resolutions:  store.Resolutions(),
		Calibrations: store.Calibrations(),
		Alerts:       store.Alerts(),
		Timeline:     store.Timeline(),
		Transactor:   store.Transactor(),
	}
}
