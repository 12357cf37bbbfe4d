package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	chainstore "github.com/iflb/neji-tutti-client/internal/adapters/secrets/chain"
	"github.com/iflb/neji-tutti-client/internal/application"
	"github.com/iflb/neji-tutti-client/internal/ports"
)

const (
	configDirName = ".neji-tutti"
	envPrefix     = "NJT"

	worksHostKey           = "works.host"
	worksUserKey           = "works.user"
	marketHostKey          = "market.host"
	marketUserKey          = "market.user"
	marketTokenLifetimeKey = "market.token_lifetime_ms"
	logLevelKey            = "log.level"
)

type app struct {
	config    clientConfig
	secrets   ports.SecretStore
	logger    *slog.Logger
	newClient func() *application.Client
}

type clientConfig struct {
	WorksHost           string
	WorksUser           string
	MarketHost          string
	MarketUser          string
	AccessTokenLifetime time.Duration
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	configDir := filepath.Join(homeDir, configDirName)

	cfg := viper.New()
	cfg.SetConfigName("config")
	cfg.SetConfigType("toml")
	cfg.AddConfigPath(configDir)
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	cfg.SetDefault(worksHostKey, "https://dev.neji-finder.tutti.works")
	cfg.SetDefault(worksUserKey, "admin")
	cfg.SetDefault(marketHostKey, "https://dev.neji-finder.tutti.market")
	cfg.SetDefault(marketUserKey, "requester1")
	cfg.SetDefault(marketTokenLifetimeKey, int64(0))
	cfg.SetDefault(logLevelKey, "warn")

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	secrets, err := chainstore.NewEnvFirstWithFileFallback(envPrefix, filepath.Join(configDir, "secrets"))
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.GetString(logLevelKey)),
	}))

	return &app{
		config: clientConfig{
			WorksHost:           cfg.GetString(worksHostKey),
			WorksUser:           cfg.GetString(worksUserKey),
			MarketHost:          cfg.GetString(marketHostKey),
			MarketUser:          cfg.GetString(marketUserKey),
			AccessTokenLifetime: time.Duration(cfg.GetInt64(marketTokenLifetimeKey)) * time.Millisecond,
		},
		secrets:   secrets,
		logger:    logger,
		newClient: func() *application.Client { return application.NewClient(logger) },
	}, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
