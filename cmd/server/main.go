// Command server runs the fund simulation service: it owns the six SQLite
// databases, the weekly strategy scheduler and the HTTP API.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/config"
	"github.com/quantply/fundsim/internal/database"
	"github.com/quantply/fundsim/internal/modules/catalog"
	cataloghandlers "github.com/quantply/fundsim/internal/modules/catalog/handlers"
	"github.com/quantply/fundsim/internal/modules/ledger"
	ledgerhandlers "github.com/quantply/fundsim/internal/modules/ledger/handlers"
	"github.com/quantply/fundsim/internal/modules/marketdata"
	"github.com/quantply/fundsim/internal/modules/performance"
	performancehandlers "github.com/quantply/fundsim/internal/modules/performance/handlers"
	"github.com/quantply/fundsim/internal/modules/stats"
	statshandlers "github.com/quantply/fundsim/internal/modules/stats/handlers"
	"github.com/quantply/fundsim/internal/modules/strategy"
	strategyhandlers "github.com/quantply/fundsim/internal/modules/strategy/handlers"
	"github.com/quantply/fundsim/internal/modules/valuation"
	valuationhandlers "github.com/quantply/fundsim/internal/modules/valuation/handlers"
	"github.com/quantply/fundsim/internal/reliability"
	"github.com/quantply/fundsim/internal/scheduler"
	"github.com/quantply/fundsim/internal/server"
	"github.com/quantply/fundsim/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting fund simulator")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Service failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	// Databases
	openDB := func(name string, profile database.DatabaseProfile) (*database.DB, error) {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, name+".db"),
			Profile: profile,
			Name:    name,
		})
		if err != nil {
			return nil, err
		}
		return db, db.Migrate()
	}

	universeDB, err := openDB("universe", database.ProfileStandard)
	if err != nil {
		return err
	}
	defer universeDB.Close()

	configDB, err := openDB("config", database.ProfileStandard)
	if err != nil {
		return err
	}
	defer configDB.Close()

	ledgerDB, err := openDB("ledger", database.ProfileLedger)
	if err != nil {
		return err
	}
	defer ledgerDB.Close()

	portfolioDB, err := openDB("portfolio", database.ProfileStandard)
	if err != nil {
		return err
	}
	defer portfolioDB.Close()

	historyDB, err := openDB("history", database.ProfileStandard)
	if err != nil {
		return err
	}
	defer historyDB.Close()

	cacheDB, err := openDB("cache", database.ProfileCache)
	if err != nil {
		return err
	}
	defer cacheDB.Close()

	databases := []*database.DB{universeDB, configDB, ledgerDB, portfolioDB, historyDB, cacheDB}

	// Repositories
	instrumentRepo := catalog.NewInstrumentRepository(universeDB.Conn(), log)
	clientRepo := catalog.NewClientRepository(configDB.Conn(), log)
	allocationRepo := catalog.NewAllocationRepository(configDB.Conn(), log)
	eventRepo := ledger.NewTradeEventRepository(ledgerDB.Conn(), log)
	reconstructor := ledger.NewReconstructor(eventRepo, log)
	holdingsRepo := ledger.NewHoldingsRepository(portfolioDB.Conn(), reconstructor, log)
	seriesRepo := marketdata.NewSeriesRepository(historyDB.Conn(), log)
	statsRepo := stats.NewRepository(portfolioDB.Conn(), log)

	// Services
	provider := marketdata.NewSyntheticProvider(cfg.SyntheticSeed)
	collector := marketdata.NewCollector(provider, seriesRepo, log)
	recorder := strategy.NewRecorder(eventRepo, seriesRepo, instrumentRepo, log)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	strategySvc := strategy.NewService(
		clientRepo, allocationRepo, instrumentRepo,
		seriesRepo, eventRepo, reconstructor, recorder,
		rng, cfg.TargetVolatility, log,
	)
	valuationSvc := valuation.NewService(reconstructor, seriesRepo, log)
	performanceSvc := performance.NewService(valuationSvc, cfg.RiskFreeRate, log)
	metricsCache := performance.NewCache(cacheDB.Conn(), 0, log)
	statsSvc := stats.NewService(statsRepo, clientRepo, eventRepo, log)

	// Seed the catalog on first start
	seeder := catalog.NewSeeder(instrumentRepo, clientRepo, allocationRepo, cfg.TargetVolatility, log)
	if err := seeder.SeedIfEmpty(); err != nil {
		return err
	}

	// Scheduler
	sched := scheduler.New(log)
	strategyJob := scheduler.NewStrategyJob(
		collector, instrumentRepo, clientRepo, strategySvc, holdingsRepo, statsSvc, log,
	)
	// Mondays 07:00 UTC, after the week's first session data is available
	if err := sched.AddJob("0 7 * * MON", strategyJob); err != nil {
		return err
	}
	if err := sched.AddJob("@hourly", scheduler.NewMaintenanceJob(metricsCache, log)); err != nil {
		return err
	}

	if cfg.Backup.Enabled() {
		s3Client, err := reliability.NewS3Client(context.Background(), cfg.Backup.Bucket, cfg.Backup.Region, log)
		if err != nil {
			return err
		}
		backupSvc := reliability.NewBackupService(databases, s3Client, cfg.DataDir, cfg.Backup.Prefix, log)
		if err := sched.AddJob("@daily", scheduler.NewBackupJob(backupSvc, log)); err != nil {
			return err
		}
	} else {
		log.Info().Msg("S3 backups disabled, no bucket configured")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
		DataDir:     cfg.DataDir,
		Databases:   databases,
		Log:         log,
		Catalog:     cataloghandlers.NewHandler(instrumentRepo, clientRepo, allocationRepo, log),
		Ledger:      ledgerhandlers.NewHandler(eventRepo, holdingsRepo, reconstructor, log),
		Valuation:   valuationhandlers.NewHandler(valuationSvc, log),
		Performance: performancehandlers.NewHandler(performanceSvc, metricsCache, seriesRepo, log),
		Strategy:    strategyhandlers.NewHandler(strategySvc, clientRepo, log),
		Stats:       statshandlers.NewHandler(statsSvc, log),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
