package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/uhyunpark/perpdesk/params"
	"github.com/uhyunpark/perpdesk/pkg/api"
	"github.com/uhyunpark/perpdesk/pkg/app/core/market"
	"github.com/uhyunpark/perpdesk/pkg/crypto"
	"github.com/uhyunpark/perpdesk/pkg/ledger"
	"github.com/uhyunpark/perpdesk/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	// Log to stdout only unless LOG_FILE is set
	var logger *zap.Logger
	var err error
	if cfg.Log.File != "" {
		logger, err = util.NewLoggerWithFile(cfg.Log.File, util.LogRotation{
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})
	} else {
		logger, err = util.NewLogger()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Log.File)

	// ---- Markets ----
	markets := market.NewDefaultRegistry()
	if cfg.Orders.MarketsFile != "" {
		markets, err = market.LoadFile(cfg.Orders.MarketsFile)
		if err != nil {
			sugar.Fatalw("markets_load_failed", "file", cfg.Orders.MarketsFile, "err", err)
		}
	}
	sugar.Infow("markets_loaded", "count", markets.Count(), "file", cfg.Orders.MarketsFile)

	// ---- Upstream node ----
	nodeCfg := ledger.Config{
		BaseURL:        cfg.Node.URL,
		Timeout:        cfg.Node.Timeout,
		ConfirmTimeout: cfg.Node.ConfirmTimeout,
		PollInterval:   cfg.Node.PollInterval,
	}
	clock := util.RealClock{}

	apiServer := api.NewServer(api.Options{
		Markets:            markets,
		State:              ledger.NewStateClient(nodeCfg),
		Broadcaster:        ledger.NewBroadcaster(nodeCfg, sugar, clock),
		Domain:             crypto.DefaultDomain(cfg.Orders.ChainID),
		Logger:             sugar,
		Clock:              clock,
		CORSOrigins:        cfg.API.CORSOrigins,
		RemainderToLastLeg: cfg.Orders.LadderRemainderToLast,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("perpdesk_starting",
		"api_addr", cfg.API.Addr,
		"node_url", cfg.Node.URL,
		"chain_id", cfg.Orders.ChainID,
		"ladder_remainder_to_last", cfg.Orders.LadderRemainderToLast)

	if err := apiServer.Start(ctx, cfg.API.Addr); err != nil {
		sugar.Fatalw("api_server_failed", "err", err)
	}
	sugar.Info("perpdesk_stopped")
}
