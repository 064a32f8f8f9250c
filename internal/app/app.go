// Package app assembles the collaboration portal from configuration: stores,
// transports, services, the HTTP router and the job runner.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"gatherhub/collab-portal/collab-portal-backend/internal/accounts"
	"gatherhub/collab-portal/collab-portal-backend/internal/audit"
	"gatherhub/collab-portal/collab-portal-backend/internal/auth"
	"gatherhub/collab-portal/collab-portal-backend/internal/collaboration"
	"gatherhub/collab-portal/collab-portal-backend/internal/config"
	"gatherhub/collab-portal/collab-portal-backend/internal/database"
	"gatherhub/collab-portal/collab-portal-backend/internal/events"
	"gatherhub/collab-portal/collab-portal-backend/internal/jobs"
	"gatherhub/collab-portal/collab-portal-backend/internal/notifications"
	"gatherhub/collab-portal/collab-portal-backend/internal/notifications/websocket"
	"gatherhub/collab-portal/collab-portal-backend/internal/requirements"
	"gatherhub/collab-portal/collab-portal-backend/internal/settings"
	"gatherhub/collab-portal/collab-portal-backend/internal/transport"
	"gatherhub/collab-portal/collab-portal-backend/pkg/middleware"
	"gatherhub/collab-portal/collab-portal-backend/pkg/storage"
)

// directory is what the read side of the account service provides.
type directory interface {
	requirements.AccountSource
	collaboration.Directory
	notifications.RecipientDirectory
	jobs.Accounts
}

// stores groups the persistence chosen by the database driver.
type stores struct {
	collaborations collaboration.Repository
	notifications  notifications.Repository
	preferences    notifications.PreferenceStore
	directory      directory
	events         events.Source
}

// App is a fully wired portal.
type App struct {
	Config         *config.Config
	Logger         *zap.Logger
	Router         *gin.Engine
	Runner         *jobs.Runner
	Collaborations *collaboration.Service
	Notifications  *notifications.Service
	Evaluator      *requirements.Evaluator
	Hub            *websocket.Manager

	directory directory
	closers   []func() error
}

// New wires every component. Jobs are registered on the runner but not
// started; call Runner.Start in the process that hosts the schedule.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	st, err := a.openStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.directory = st.directory

	a.Hub = websocket.NewManager(logger.Named("websocket"), cfg.Server.AllowedOrigins...)
	a.closers = append(a.closers, func() error { a.Hub.Close(); return nil })

	out, err := transport.New(ctx, cfg, a.Hub, logger.Named("transport"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build transports: %w", err)
	}

	archiver, err := a.archiver(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	auditor, err := a.auditor()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Notifications = notifications.NewService(
		st.notifications,
		st.directory,
		st.preferences,
		out.Senders,
		archiver,
		logger.Named("notifications"),
		notifications.ServiceConfig{
			Retention:     cfg.Notifications.Retention,
			ActionBaseURL: cfg.Notifications.ActionBaseURL,
		},
	)
	a.Collaborations = collaboration.NewService(
		st.collaborations,
		st.directory,
		a.Notifications,
		auditor,
		logger.Named("collaboration"),
		collaboration.Config{ExpiryWindow: cfg.Workflow.ExpiryWindow},
	)
	a.Evaluator = requirements.NewEvaluator(
		st.directory,
		a.Notifications,
		logger.Named("requirements"),
		requirements.Config{
			ScheduledCooldown: cfg.Requirements.ScheduledCooldown,
			DashboardCooldown: cfg.Requirements.DashboardCooldown,
			ExpiringWithin:    cfg.Requirements.ExpiringWithin,
		},
	)

	if err := a.buildRunner(st); err != nil {
		a.Close()
		return nil, err
	}

	a.Router = a.buildRouter(st, out)
	return a, nil
}

func (a *App) openStores(ctx context.Context) (*stores, error) {
	switch a.Config.Database.Driver {
	case "memory":
		return a.memoryStores(), nil
	case "", "postgres":
		return a.postgresStores(ctx)
	}
	return nil, fmt.Errorf("unsupported database driver %q", a.Config.Database.Driver)
}

func (a *App) memoryStores() *stores {
	var seeds []accounts.Seed
	for _, id := range a.Config.Workflow.AdminIDs {
		seeds = append(seeds, accounts.Seed{
			Account: requirements.Account{PartyID: id},
			IsAdmin: true,
		})
	}
	a.Logger.Warn("using in-memory stores; state is lost on restart", zap.Int("admins", len(seeds)))
	return &stores{
		collaborations: collaboration.NewMemoryRepository(),
		notifications:  notifications.NewMemoryRepository(),
		preferences:    notifications.NewMemoryPreferenceStore(),
		directory:      accounts.NewMemoryStore(seeds...),
		events:         events.NewMemoryStore(),
	}
}

func (a *App) postgresStores(ctx context.Context) (*stores, error) {
	dbCfg := a.Config.Database
	db, err := sqlx.ConnectContext(ctx, "postgres", dbCfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if dbCfg.MaxConnections > 0 {
		db.SetMaxOpenConns(dbCfg.MaxConnections)
	}
	if dbCfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(dbCfg.MaxIdleConns)
	}
	if dbCfg.MaxLifetime > 0 {
		db.SetConnMaxLifetime(dbCfg.MaxLifetime)
	}

	orm, err := database.OpenGorm(db.DB, gormlogger.Warn)
	if err != nil {
		return nil, err
	}

	collabRepo := collaboration.NewGormRepository(orm)
	notifRepo := notifications.NewGormRepository(orm)
	if dbCfg.AutoMigrate {
		if err := collabRepo.Migrate(ctx); err != nil {
			return nil, err
		}
		if err := notifRepo.Migrate(ctx); err != nil {
			return nil, err
		}
		if err := accounts.Migrate(ctx, db); err != nil {
			return nil, err
		}
		if err := events.Migrate(ctx, db); err != nil {
			return nil, err
		}
		a.Logger.Info("database schema migrated")
	}
	n, err := collabRepo.NormalizeLegacyRows(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		a.Logger.Info("normalized legacy collaboration rows", zap.Int64("rows", n))
	}

	a.Logger.Info("connected to database",
		zap.String("host", dbCfg.Host),
		zap.String("database", dbCfg.DBName),
	)
	return &stores{
		collaborations: collabRepo,
		notifications:  notifRepo,
		preferences:    notifications.NewPreferenceManager(orm),
		directory:      accounts.NewPostgresStore(db),
		events:         events.NewPostgresStore(db),
	}, nil
}

func (a *App) archiver(ctx context.Context) (notifications.Archiver, error) {
	arch := a.Config.Archive
	if arch.Bucket == "" {
		return nil, nil
	}
	awsCfg, err := transport.LoadAWSConfig(ctx, a.Config.AWS)
	if err != nil {
		return nil, err
	}
	client := storage.NewS3Client(s3.NewFromConfig(awsCfg))
	return notifications.NewObjectArchiver(client, arch.Bucket, arch.Prefix), nil
}

func (a *App) auditor() (collaboration.Auditor, error) {
	ac := a.Config.Audit
	if len(ac.Addresses) == 0 {
		return audit.NewLogRecorder(a.Logger.Named("audit")), nil
	}
	rec, err := audit.NewElasticRecorder(audit.ElasticConfig{
		Addresses: ac.Addresses,
		Username:  ac.Username,
		Password:  ac.Password,
		Index:     ac.Index,
	}, a.Logger.Named("audit"))
	if err != nil {
		return nil, fmt.Errorf("failed to create audit recorder: %w", err)
	}
	return rec, nil
}

func (a *App) buildRunner(st *stores) error {
	sched := a.Config.Scheduler
	runnerCfg := jobs.DefaultRunnerConfig()
	if sched.Timezone != "" {
		loc, err := time.LoadLocation(sched.Timezone)
		if err != nil {
			return fmt.Errorf("invalid scheduler timezone %q: %w", sched.Timezone, err)
		}
		runnerCfg.Location = loc
	}
	if sched.JobTimeout > 0 {
		runnerCfg.Timeout = sched.JobTimeout
	}
	a.Runner = jobs.NewRunner(a.Logger.Named("jobs"), runnerCfg)
	a.closers = append(a.closers, func() error { a.Runner.StopAll(); return nil })

	sweeps := jobs.NewSweeps(
		st.events,
		st.directory,
		a.Notifications,
		a.Evaluator,
		a.Collaborations,
		a.Logger.Named("sweeps"),
		jobs.SweepConfig{
			ReminderCooldown: a.Config.Requirements.ScheduledCooldown,
			ExpiringWithin:   a.Config.Requirements.ExpiringWithin,
		},
	)
	return sweeps.RegisterAll(a.Runner, sched)
}

func (a *App) buildRouter(st *stores, out *transport.Outbound) *gin.Engine {
	router := gin.New()
	if a.Config.Logging.Development {
		router.Use(gin.Logger())
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router.Use(gin.Recovery(), middleware.CORS(a.Config.Server.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"push":      a.Hub.GetConnectionCount(),
		})
	})

	logger := a.Logger.Named("http")
	api := router.Group("/api/v1", middleware.JWTAuth(a.Config.Security.JWTSecret))
	{
		collaboration.NewHandler(a.Collaborations, logger).RegisterRoutes(api)
		notifications.NewHandler(a.Notifications, a.Hub, logger).RegisterRoutes(api)
		requirements.NewHandler(a.Evaluator, logger).RegisterRoutes(api)
		settings.NewHandler(settings.NewService(st.preferences, st.directory, logger), logger).RegisterRoutes(api)
		auth.NewHandler(st.directory, logger).RegisterRoutes(api)
		jobs.NewAdminHandler(a.Runner, st.directory, logger).RegisterRoutes(api)
		if out.Connections != nil {
			transport.NewConnectionHandler(out.Connections, logger).RegisterRoutes(api)
		}
	}
	return router
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
