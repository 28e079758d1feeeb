// Package config loads League Core's on-disk settings with viper, in the
// teacher's style: a TOML file plus environment overrides, merged into a
// typed Config the rest of the program reads instead of touching viper
// directly.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"stormlightlabs.org/leaguecore/internal/leaguectx"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	League   LeagueConfig
}

// DatabaseConfig contains the SQLite file location.
type DatabaseConfig struct {
	Path string
}

// LeagueConfig contains the league.trade_rules block spec.md §6 describes.
type LeagueConfig struct {
	TradeRules leaguectx.TradeRulesConfig
}

var globalConfig *Config

// Load reads configuration from the specified file or environment variables.
// If configPath is empty, it looks for "league.toml" in the current
// directory, then $HOME/.leaguecore, then /etc/leaguecore.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("league")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.leaguecore")
		v.AddConfigPath("/etc/leaguecore")
	}

	v.SetDefault("database.path", "league.db")

	defaults := leaguectx.DefaultTradeRulesConfig()
	v.SetDefault("league.trade_rules.trade_deadline", defaults.TradeDeadline)
	v.SetDefault("league.trade_rules.salary_cap", defaults.SalaryCap)
	v.SetDefault("league.trade_rules.first_apron", defaults.FirstApron)
	v.SetDefault("league.trade_rules.second_apron", defaults.SecondApron)
	v.SetDefault("league.trade_rules.cap_auto_update", defaults.CapAutoUpdate)
	v.SetDefault("league.trade_rules.cap_base_amount", defaults.CapBaseAmount)
	v.SetDefault("league.trade_rules.cap_base_year", defaults.CapBaseYear)
	v.SetDefault("league.trade_rules.cap_annual_growth_rate", defaults.CapAnnualGrowthRate)
	v.SetDefault("league.trade_rules.cap_round_unit", defaults.CapRoundUnit)
	v.SetDefault("league.trade_rules.match_small_out_max", defaults.MatchSmallOutMax)
	v.SetDefault("league.trade_rules.match_mid_out_max", defaults.MatchMidOutMax)
	v.SetDefault("league.trade_rules.match_mid_add", defaults.MatchMidAdd)
	v.SetDefault("league.trade_rules.match_buffer", defaults.MatchBuffer)
	v.SetDefault("league.trade_rules.first_apron_mult", defaults.FirstApronMult)
	v.SetDefault("league.trade_rules.second_apron_mult", defaults.SecondApronMult)
	v.SetDefault("league.trade_rules.new_fa_sign_ban_days", defaults.NewFASignBanDays)
	v.SetDefault("league.trade_rules.aggregation_ban_days", defaults.AggregationBanDays)
	v.SetDefault("league.trade_rules.max_pick_years_ahead", defaults.MaxPickYearsAhead)
	v.SetDefault("league.trade_rules.stepien_lookahead", defaults.StepienLookahead)

	v.AutomaticEnv()
	v.BindEnv("database.path", "LEAGUE_DB_PATH")
	v.BindEnv("league.trade_rules.trade_deadline", "LEAGUE_TRADE_DEADLINE")
	v.BindEnv("league.trade_rules.salary_cap", "LEAGUE_SALARY_CAP")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		fmt.Fprintf(os.Stderr, "No config file found, using defaults and environment variables\n")
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		League: LeagueConfig{
			TradeRules: leaguectx.TradeRulesConfig{
				TradeDeadline:       v.GetString("league.trade_rules.trade_deadline"),
				SalaryCap:           v.GetInt64("league.trade_rules.salary_cap"),
				FirstApron:          v.GetInt64("league.trade_rules.first_apron"),
				SecondApron:         v.GetInt64("league.trade_rules.second_apron"),
				CapAutoUpdate:       v.GetBool("league.trade_rules.cap_auto_update"),
				CapBaseAmount:       v.GetInt64("league.trade_rules.cap_base_amount"),
				CapBaseYear:         v.GetInt("league.trade_rules.cap_base_year"),
				CapAnnualGrowthRate: v.GetFloat64("league.trade_rules.cap_annual_growth_rate"),
				CapRoundUnit:        v.GetInt64("league.trade_rules.cap_round_unit"),
				MatchSmallOutMax:    v.GetInt64("league.trade_rules.match_small_out_max"),
				MatchMidOutMax:      v.GetInt64("league.trade_rules.match_mid_out_max"),
				MatchMidAdd:         v.GetInt64("league.trade_rules.match_mid_add"),
				MatchBuffer:         v.GetInt64("league.trade_rules.match_buffer"),
				FirstApronMult:      v.GetFloat64("league.trade_rules.first_apron_mult"),
				SecondApronMult:     v.GetFloat64("league.trade_rules.second_apron_mult"),
				NewFASignBanDays:    v.GetInt("league.trade_rules.new_fa_sign_ban_days"),
				AggregationBanDays:  v.GetInt("league.trade_rules.aggregation_ban_days"),
				MaxPickYearsAhead:   v.GetInt("league.trade_rules.max_pick_years_ahead"),
				StepienLookahead:    v.GetInt("league.trade_rules.stepien_lookahead"),
			},
		},
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration.
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded; call config.Load() first")
	}
	return globalConfig
}

// MustLoad loads configuration or panics.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}
