package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"juscat/chain"
	"juscat/classifier"
	"juscat/config"
	"juscat/gateway/middleware"
	"juscat/gateway/routes"
	"juscat/history"
	"juscat/native/rewards"
	"juscat/observability/logging"
	"juscat/payout"
	"juscat/registry"
	"juscat/rpc"
	"juscat/storage"
)

const snapshotInterval = time.Minute

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	env := strings.TrimSpace(os.Getenv("JUSCAT_ENV"))
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("juscatd", env)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		panic(fmt.Sprintf("Failed to prepare data directory: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.LedgerDBPath())
	if err != nil {
		panic(fmt.Sprintf("Failed to open ledger database: %v", err))
	}
	defer db.Close()

	grantStore, err := registry.NewStore(cfg.GrantStorePath(), nil)
	if err != nil {
		panic(fmt.Sprintf("Failed to open grant store: %v", err))
	}
	defer grantStore.Close()

	timeout := time.Duration(cfg.RequestTimeoutSecs) * time.Second
	registryClient := registry.NewClient(cfg.RegistryEndpoints, timeout)
	blocks := chain.NewClient(cfg.ChainEndpoints, timeout)

	var sink rewards.PayoutSink
	if len(cfg.PayoutEndpoints) > 0 {
		sink = payout.NewClient(cfg.PayoutEndpoints, timeout)
	} else {
		logger.Warn("no payout endpoints configured; transfers are logged only")
		sink = &payout.NoopSink{Logger: logger}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	genesisCtx, cancelGenesis := context.WithTimeout(ctx, timeout)
	genesisBlock, err := blocks.CurrentBlock(genesisCtx)
	cancelGenesis()
	if err != nil {
		logger.Warn("could not fetch chain head; starting cycle clock at zero", "error", err)
		genesisBlock = 0
	}

	engine, err := rewards.NewEngine(rewards.Config{
		Params: rewards.Params{
			MaxSubmissionsPerCycle: cfg.MaxSubmissionsPerCycle,
			RewardPerSubmission:    cfg.RewardAmount(),
			CycleLengthBlocks:      cfg.CycleLengthBlocks,
			GateRequired:           cfg.GateRequired,
		},
		Operator:     cfg.Operator,
		Registry:     registryClient,
		Payout:       sink,
		Blocks:       blocks,
		Events:       &ledgerEvents{logger: logger, grants: grantStore},
		GenesisBlock: genesisBlock,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to build reward engine: %v", err))
	}

	restored, err := engine.Load(db)
	if err != nil {
		panic(fmt.Sprintf("Failed to restore ledger snapshot: %v", err))
	}
	if restored {
		logger.Info("restored ledger snapshot", "cycle", engine.Stats().CurrentCycle)
	}
	warmGateCache(engine, grantStore, logger)

	historyStore, err := openHistory(cfg.HistoryDSN)
	if err != nil {
		panic(fmt.Sprintf("Failed to open history store: %v", err))
	}
	if historyStore == nil {
		logger.Warn("no history DSN configured; duplicate detection is disabled")
	}

	var oracle classifier.Oracle
	if len(cfg.ClassifierEndpoints) > 0 {
		oracle = classifier.NewClient(cfg.ClassifierEndpoints, timeout)
	} else {
		logger.Warn("no classifier endpoints configured; photos are accepted unchecked")
	}

	rpcServer := rpc.NewServer(engine, cfg.RPCToken, logger)

	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    strings.TrimSpace(cfg.JWTSecret) != "",
		HMACSecret: cfg.JWTSecret,
	}, logger)
	limiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		"submissions": {RequestsPerMinute: cfg.RateLimitPerMin, Burst: cfg.RateLimitBurst},
	}, logger)
	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		MetricsPrefix: "juscat",
		LogRequests:   true,
	}, logger)

	gatewayHandler, err := routes.New(routes.Config{
		Engine:            engine,
		History:           historyStore,
		Classifier:        oracle,
		Passports:         registryClient,
		ValidityThreshold: cfg.ValidityThreshold,
		Authenticator:     auth,
		RateLimiter:       limiter,
		Observability:     obs,
		Logger:            logger,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to build gateway: %v", err))
	}

	rpcSrv := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           rpcServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	gatewaySrv := &http.Server{
		Addr:              cfg.GatewayAddress,
		Handler:           gatewayHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrs := make(chan error, 2)
	go func() {
		logger.Info("rpc listening", "address", cfg.RPCAddress)
		serverErrs <- rpcSrv.ListenAndServe()
	}()
	go func() {
		logger.Info("gateway listening", "address", cfg.GatewayAddress)
		serverErrs <- gatewaySrv.ListenAndServe()
	}()

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown requested")
			break loop
		case err := <-serverErrs:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server failed", "error", err)
			}
			break loop
		case <-ticker.C:
			if err := engine.Save(db); err != nil {
				logger.Error("periodic snapshot failed", "error", err)
			}
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = rpcSrv.Shutdown(shutdownCtx)
	_ = gatewaySrv.Shutdown(shutdownCtx)

	if err := engine.Save(db); err != nil {
		logger.Error("final snapshot failed", "error", err)
	} else {
		logger.Info("ledger snapshot saved")
	}
}

// ledgerEvents logs every ledger event and mirrors confirmed access grants
// into the persistent grant store so the cache survives restarts.
type ledgerEvents struct {
	logger *slog.Logger
	grants *registry.Store
}

func (l *ledgerEvents) AppendEvent(evt *rewards.Event) {
	attrs := make([]any, 0, 2+2*len(evt.Attributes))
	attrs = append(attrs, "type", evt.Type)
	for key, value := range evt.Attributes {
		attrs = append(attrs, key, value)
	}
	l.logger.Info("ledger event", attrs...)

	if evt.Type == rewards.EventAccessGranted && l.grants != nil {
		if actor, ok := evt.Attributes["actor"]; ok {
			if err := l.grants.Record(actor); err != nil {
				l.logger.Error("failed to persist grant", "actor", actor, "error", err)
			}
		}
	}
}

func warmGateCache(engine *rewards.Engine, store *registry.Store, logger *slog.Logger) {
	actors, err := store.Grants()
	if err != nil {
		logger.Error("failed to load persisted grants", "error", err)
		return
	}
	for _, actor := range actors {
		engine.Gate().Grant(actor)
	}
	if len(actors) > 0 {
		logger.Info("warmed access gate cache", "grants", len(actors))
	}
}

// openHistory connects to the submission history backend. Postgres is the
// production target; any other DSN is treated as a SQLite path for local runs.
func openHistory(dsn string) (*history.Store, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, nil
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "host=") {
		dialector = postgres.Open(trimmed)
	} else {
		dialector = sqlite.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return history.NewStore(db)
}
