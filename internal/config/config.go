// Package config loads the typed configuration described in spec.md §6
// through viper: a YAML file, environment variables (prefix BACKTEST_), and
// a set of sane defaults, layered in the teacher's defaults-then-override
// order (internal/config/strong_consistency_config.go).
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/orderflow-labs/footprint-backtester/internal/domain"
	"github.com/orderflow-labs/footprint-backtester/internal/price"
)

// Config is the fully-resolved, typed configuration for a single backtest
// run, covering every named key in spec.md §6.
type Config struct {
	Symbol   string
	TickSize price.TickSize
	TickValue price.TickValue
	Capital  decimal.Decimal
	Commission decimal.Decimal

	LatencyDataToSignalNs  int64
	LatencySignalToOrderNs int64

	MaxEvents    int
	TestScenario string

	DatabasePath string

	PercentageThreshold decimal.Decimal
	StopTicks           int
	RiskReward          decimal.Decimal
	BarIntervalMinutes  int
	EnableZeroCompares  bool
	ZeroCompareAction   domain.ZeroCompareAction
	MinLiquidityCheck   int64

	LogLevel string
}

// setDefaults mirrors the teacher's setDefaultConfiguration: every key has a
// usable value even when no file or environment override is present.
func setDefaults(v *viper.Viper) {
	v.SetDefault("symbol", "MNQ")
	v.SetDefault("tick_size", "0.25")
	v.SetDefault("tick_value", "12.50")
	v.SetDefault("capital", "100000")
	v.SetDefault("commission", "2.50")
	v.SetDefault("latency_data_signal_us", 100)
	v.SetDefault("latency_signal_order_us", 500)
	v.SetDefault("max_events", 0)
	v.SetDefault("test_scenario", "")
	v.SetDefault("database_path", "backtester.db")
	v.SetDefault("percentage_threshold", "150")
	v.SetDefault("stop_ticks", 11)
	v.SetDefault("risk_reward", "2.5")
	v.SetDefault("bar_interval_minutes", 1)
	v.SetDefault("enable_zero_compares", false)
	v.SetDefault("zero_compare_action", "SET_0_TO_1")
	v.SetDefault("min_liquidity_check", 0)
	v.SetDefault("log_level", "info")
}

// Load reads configPath (if non-empty and present), layers environment
// variables with prefix BACKTEST_ over it, falls back to defaults for any
// key left unset, and decodes the result into a Config. A missing config
// file is not an error and is not reported; defaults apply, matching the
// teacher's "file not found -> use defaults" path.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BACKTEST")
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: stat %s: %w", configPath, err)
			}
			// File not found: fall through and use defaults, matching the
			// teacher's setDefaultConfiguration fallback.
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("config: read %s: %w", configPath, err)
			}
		}
	}

	tickSize, err := price.NewTickSize(v.GetString("tick_size"))
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	tickValue, err := price.NewTickValue(v.GetString("tick_value"))
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	capital, err := decimal.NewFromString(v.GetString("capital"))
	if err != nil {
		return Config{}, fmt.Errorf("config: parse capital: %w", err)
	}
	commission, err := decimal.NewFromString(v.GetString("commission"))
	if err != nil {
		return Config{}, fmt.Errorf("config: parse commission: %w", err)
	}
	percentageThreshold, err := decimal.NewFromString(v.GetString("percentage_threshold"))
	if err != nil {
		return Config{}, fmt.Errorf("config: parse percentage_threshold: %w", err)
	}
	riskReward, err := decimal.NewFromString(v.GetString("risk_reward"))
	if err != nil {
		return Config{}, fmt.Errorf("config: parse risk_reward: %w", err)
	}

	var zeroCompareAction domain.ZeroCompareAction
	switch v.GetString("zero_compare_action") {
	case "SET_0_TO_1":
		zeroCompareAction = domain.SetZeroToOne
	case "SET_PERC_1000":
		zeroCompareAction = domain.SetPercent1000
	default:
		return Config{}, fmt.Errorf("config: unknown zero_compare_action %q", v.GetString("zero_compare_action"))
	}

	return Config{
		Symbol:                 v.GetString("symbol"),
		TickSize:               tickSize,
		TickValue:              tickValue,
		Capital:                capital,
		Commission:             commission,
		LatencyDataToSignalNs:  v.GetInt64("latency_data_signal_us") * 1000,
		LatencySignalToOrderNs: v.GetInt64("latency_signal_order_us") * 1000,
		MaxEvents:              v.GetInt("max_events"),
		TestScenario:           v.GetString("test_scenario"),
		DatabasePath:           v.GetString("database_path"),
		PercentageThreshold:    percentageThreshold,
		StopTicks:              v.GetInt("stop_ticks"),
		RiskReward:             riskReward,
		BarIntervalMinutes:     v.GetInt("bar_interval_minutes"),
		EnableZeroCompares:     v.GetBool("enable_zero_compares"),
		ZeroCompareAction:      zeroCompareAction,
		MinLiquidityCheck:      v.GetInt64("min_liquidity_check"),
		LogLevel:               v.GetString("log_level"),
	}, nil
}
