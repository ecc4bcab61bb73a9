package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	appanalysis "github.com/bryanwahyu/sentinelai/internal/application/analysis"
	appscans "github.com/bryanwahyu/sentinelai/internal/application/scans"
	"github.com/bryanwahyu/sentinelai/internal/config"
	domain "github.com/bryanwahyu/sentinelai/internal/domain/scans"
	aiclient "github.com/bryanwahyu/sentinelai/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/sentinelai/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/sentinelai/internal/infra/db/postgres"
	sqlitep "github.com/bryanwahyu/sentinelai/internal/infra/db/sqlite"
	"github.com/bryanwahyu/sentinelai/internal/infra/notify"
	"github.com/bryanwahyu/sentinelai/internal/infra/report"
	minioStore "github.com/bryanwahyu/sentinelai/internal/infra/storage"
	"github.com/bryanwahyu/sentinelai/internal/logger"
	"github.com/bryanwahyu/sentinelai/internal/middleware"
)

// app holds everything built from config; optional parts stay nil.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	gateway  *appanalysis.Gateway
	archive  domain.Archive
	alerter  domain.Alerter
	reports  domain.ReportStore
	signer   *report.Signer
	checkers map[string]middleware.HealthChecker
	closers  []func() error
}

func loadApp(ctx context.Context, opts *rootOpts, withInfra bool) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	log := logger.New(level)

	if cfg.AI.APIKey == "" {
		log.Warn("AI_API_KEY not set - every scan will return the degraded result")
	}
	client := aiclient.NewClient(aiclient.Options{
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		TextModel:   cfg.AI.TextModel,
		VisionModel: cfg.AI.VisionModel,
		MaxTokens:   cfg.AI.MaxTokens,
	})

	a := &app{
		cfg:      cfg,
		log:      log,
		gateway:  appanalysis.NewGateway(client, log),
		checkers: map[string]middleware.HealthChecker{},
	}
	if !withInfra {
		return a, nil
	}
	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) connect(ctx context.Context) error {
	switch a.cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, a.cfg.MySQLDSN())
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		repo := mysqlp.NewArchiveRepository(db)
		a.useArchive(repo, repo, db)
	case "postgres":
		db, err := postgresp.Connect(ctx, a.cfg.PostgresDSN())
		if err != nil {
			return fmt.Errorf("postgres connect: %w", err)
		}
		repo := postgresp.NewArchiveRepository(db)
		a.useArchive(repo, repo, db)
	case "sqlite":
		db, err := sqlitep.Connect(ctx, a.cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("sqlite open: %w", err)
		}
		repo := sqlitep.NewArchiveRepository(db)
		a.useArchive(repo, repo, db)
	default:
		a.log.Info("database.driver=none - archive disabled")
	}

	if a.cfg.MinioEnabled() {
		store, err := minioStore.New(ctx,
			a.cfg.Minio.Endpoint,
			a.cfg.Minio.Region,
			a.cfg.Minio.BucketName,
			a.cfg.Minio.AccessKey,
			a.cfg.Minio.SecretKey,
			a.cfg.Minio.UseSSL,
			a.cfg.Minio.PresignTTL,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		a.reports = store
		a.checkers["storage"] = store
	}

	if p := a.cfg.Report.SigningKeyPath; p != "" {
		signer, err := report.LoadSigner(p, []byte(a.cfg.Report.SigningPassphrase))
		if err != nil {
			return fmt.Errorf("report signer: %w", err)
		}
		a.signer = signer
		a.log.WithField("fingerprint", signer.Fingerprint()).Info("report signing enabled")
	}

	if a.cfg.DiscordEnabled() {
		alerter, err := notify.NewDiscordAlerter(a.cfg.Discord.Token, a.cfg.Discord.ChannelID)
		if err != nil {
			// alerts are best effort
			a.log.WithError(err).Warn("Failed to initialize Discord client")
		} else {
			a.alerter = alerter
			a.closers = append(a.closers, alerter.Close)
			a.log.Info("Discord notifications enabled")
		}
	}
	return nil
}

func (a *app) deps() appscans.Deps {
	return appscans.Deps{
		Analyzer: a.gateway,
		Clock:    appscans.SystemClock{},
		Archive:  a.archive,
		Alerter:  a.alerter,
		Logger:   a.log,
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("close failed")
		}
	}
}

func (a *app) useArchive(repo domain.Archive, p middleware.Pinger, db *sql.DB) {
	a.archive = repo
	a.closers = append(a.closers, db.Close)
	a.checkers["database"] = &middleware.DatabaseHealthChecker{DB: p}
}
