package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends accepted by the store key.
const (
	StoreMemory   = "memory"
	StorePebble   = "pebble"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL             string
	Pool               string
	Signer             string
	TokenMap           map[string]string
	PublicTokens       []string
	TokenDecimals      map[string]uint8
	Store              string
	StorePath          string
	PGDSN              string
	RedisAddr          string
	Journal            string
	MaxWait            time.Duration
	ConfirmPoll        time.Duration
	MaxRetries         int
	RetryBackoff       time.Duration
	PreflightInvariant bool
	MetricsAddr        string
	LogLevel           string
	SetupHolder        string
	SetupLiquidity     []string
}

// Load merges config file, environment variables, and flags into Config.
// A .env file in the working directory is applied to the environment first
// without overriding variables that are already set.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SHIELDSWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc", "http://localhost:8080")
	v.SetDefault("store", StorePebble)
	v.SetDefault("store-path", "./data/store")
	v.SetDefault("journal", "./data/operations.jsonl")
	v.SetDefault("max-wait", 2*time.Minute)
	v.SetDefault("confirm-poll", time.Second)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("preflight-invariant", true)
	v.SetDefault("log-level", "info")
	v.SetDefault("setup-liquidity", "1000,23")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	decimals, err := parseDecimals(getSymbolMap(v, "token-decimals"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:             v.GetString("rpc"),
		Pool:               v.GetString("pool"),
		Signer:             v.GetString("signer"),
		TokenMap:           getSymbolMap(v, "token-map"),
		PublicTokens:       getStringSlice(v, "public-tokens"),
		TokenDecimals:      decimals,
		Store:              strings.ToLower(v.GetString("store")),
		StorePath:          v.GetString("store-path"),
		PGDSN:              v.GetString("pg-dsn"),
		RedisAddr:          v.GetString("redis-addr"),
		Journal:            v.GetString("journal"),
		MaxWait:            v.GetDuration("max-wait"),
		ConfirmPoll:        v.GetDuration("confirm-poll"),
		MaxRetries:         v.GetInt("max-retries"),
		RetryBackoff:       v.GetDuration("retry-backoff"),
		PreflightInvariant: v.GetBool("preflight-invariant"),
		MetricsAddr:        v.GetString("metrics-addr"),
		LogLevel:           v.GetString("log-level"),
		SetupHolder:        v.GetString("setup-holder"),
		SetupLiquidity:     getStringSlice(v, "setup-liquidity"),
	}

	switch cfg.Store {
	case StoreMemory, StorePebble, StorePostgres, StoreRedis:
	default:
		return Config{}, fmt.Errorf("unknown store %q", cfg.Store)
	}

	return cfg, nil
}

// IsPublic reports whether symbol was configured with a public balance.
func (c Config) IsPublic(symbol string) bool {
	for _, s := range c.PublicTokens {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}

func parseDecimals(raw map[string]string) (map[string]uint8, error) {
	out := make(map[string]uint8, len(raw))
	for symbol, value := range raw {
		d, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("token-decimals %s: %w", symbol, err)
		}
		out[symbol] = uint8(d)
	}
	return out, nil
}
