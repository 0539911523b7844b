// Command backtester runs a single event-driven backtest of the footprint
// diagonal-ratio strategy against either a SQLite tick store or one of the
// built-in synthetic end-to-end scenarios, then prints the resulting
// performance report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orderflow-labs/footprint-backtester/internal/backtest"
	"github.com/orderflow-labs/footprint-backtester/internal/book"
	"github.com/orderflow-labs/footprint-backtester/internal/config"
	"github.com/orderflow-labs/footprint-backtester/internal/datasource"
	"github.com/orderflow-labs/footprint-backtester/internal/domain"
	"github.com/orderflow-labs/footprint-backtester/internal/execution"
	"github.com/orderflow-labs/footprint-backtester/internal/logger"
	"github.com/orderflow-labs/footprint-backtester/internal/portfolio"
	"github.com/orderflow-labs/footprint-backtester/internal/report"
	"github.com/orderflow-labs/footprint-backtester/internal/strategy"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	baseLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer baseLogger.Sync()

	// Every log line for this run carries the same run id, the way the
	// teacher's trading engine tags every order/trade with a uuid for
	// cross-service correlation; here there's one process, so one id per
	// invocation is enough to separate runs in aggregated log output.
	runID := uuid.NewString()
	zapLogger := baseLogger.With(zap.String("run_id", runID))

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("backtest run failed", zap.Error(err))
	}
}

func run(cfg config.Config, zapLogger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		zapLogger.Info("received shutdown signal, cancelling run")
		cancel()
	}()

	b := book.New(cfg.Symbol, cfg.TickSize, zapLogger)

	q := domain.NewEventQueue()
	p := portfolio.New(cfg.Capital, cfg.TickSize, cfg.TickValue, zapLogger)

	e := execution.New(execution.Config{
		Symbol:                 cfg.Symbol,
		TickSize:               cfg.TickSize,
		CommissionPerContract:  cfg.Commission,
		LatencyDataToSignalNs:  cfg.LatencyDataToSignalNs,
		LatencySignalToOrderNs: cfg.LatencySignalToOrderNs,
	}, b, q, zapLogger)

	s := strategy.New(strategy.Config{
		Symbol:              cfg.Symbol,
		TickSize:            cfg.TickSize,
		PercentageThreshold: cfg.PercentageThreshold,
		EnableZeroCompares:  cfg.EnableZeroCompares,
		ZeroCompareAction:   cfg.ZeroCompareAction,
		StopTicks:           cfg.StopTicks,
		RiskReward:          cfg.RiskReward,
		BarIntervalMinutes:  cfg.BarIntervalMinutes,
		MinLiquidityCheck:   cfg.MinLiquidityCheck,
	}, b, q, zapLogger)

	source, closeSource, err := openSource(cfg, s.StrategyID, zapLogger)
	if err != nil {
		return fmt.Errorf("opening data source: %w", err)
	}
	defer closeSource()

	ctrl := backtest.New(cfg.Symbol, q, b, p, e, s, source, cfg.MaxEvents, zapLogger)
	if err := ctrl.Run(ctx); err != nil {
		return fmt.Errorf("backtest loop: %w", err)
	}

	stats := report.Generate(p)
	printReport(stats)
	return nil
}

// openSource picks the synthetic scenario source when cfg.TestScenario is
// set, otherwise opens the SQLite tick store at cfg.DatabasePath. A
// connection failure here is the one fatal, non-recoverable error class
// per spec §7; everything downstream degrades to skip-and-log.
func openSource(cfg config.Config, strategyID string, zapLogger *zap.Logger) (backtest.MarketSource, func(), error) {
	if cfg.TestScenario != "" {
		zapLogger.Info("using synthetic scenario source", zap.String("scenario", cfg.TestScenario))
		return datasource.NewSyntheticScenario(cfg.TestScenario, cfg.Symbol, strategyID), func() {}, nil
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		return nil, func() {}, fmt.Errorf("datasource: open %s: %w", cfg.DatabasePath, err)
	}
	src, err := datasource.Open(db, cfg.Symbol, domain.DefaultSideFromFlags, zapLogger)
	if err != nil {
		return nil, func() {}, err
	}
	closeFn := func() {
		if err := src.Close(); err != nil {
			zapLogger.Warn("failed to close data source", zap.Error(err))
		}
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return src, closeFn, nil
}

func printReport(stats report.Stats) {
	fmt.Printf("Initial capital: %s\n", stats.InitialCapital.StringFixed(2))
	fmt.Printf("Final equity:    %s\n", stats.FinalEquity.StringFixed(2))
	fmt.Printf("Total net P&L:   %s\n", stats.TotalNetPnL.StringFixed(2))
	fmt.Printf("Total trades:    %d\n", stats.TotalTrades)
	fmt.Printf("Win rate:        %s\n", stats.WinRate.StringFixed(4))
	if stats.ProfitFactorInf {
		fmt.Println("Profit factor:   inf")
	} else {
		fmt.Printf("Profit factor:   %s\n", stats.ProfitFactor.StringFixed(4))
	}
	fmt.Printf("Max drawdown:    %s\n", stats.MaxDrawdown.StringFixed(2))
	if stats.SharpeValid {
		fmt.Printf("Sharpe (annual): %.4f\n", stats.SharpeRatio)
	} else {
		fmt.Println("Sharpe (annual): n/a")
	}
}
