package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/storefront/internal/log"
)

type Application struct {
	Env     string `mapstructure:"env"      json:"env"`
	LogFile string `mapstructure:"log_file" json:"log_file"`
}

type Backend struct {
	BaseUrl    string        `mapstructure:"base_url"    json:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"     json:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" json:"max_retries"`
}

type Payment struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"     json:"poll_interval"`
	MaxPollAttempts int           `mapstructure:"max_poll_attempts" json:"max_poll_attempts"`
}

type Tracker struct {
	RefreshInterval    time.Duration `mapstructure:"refresh_interval"     json:"refresh_interval"`
	MaxRefreshAttempts int           `mapstructure:"max_refresh_attempts" json:"max_refresh_attempts"`
}

type Otel struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

type Config struct {
	Application `mapstructure:"application" json:"application"`
	Backend     `mapstructure:"backend"     json:"backend"`
	Payment     `mapstructure:"payment"     json:"payment"`
	Tracker     `mapstructure:"tracker"     json:"tracker"`
	Otel        `mapstructure:"otel"        json:"otel"`
}

var (
	once   sync.Once
	config *Config
)

func InitConfig(c context.Context, filename string) *Config {
	cfg := Config{}
	once.Do(func() {
		logger := zerolog.Ctx(c).
			With().
			Str(log.KeyTag, "main InitConfig").
			Str(log.KeyProcess, "init config").
			Str("filename", filename).
			Logger()

		viper.SetConfigName(filename)
		viper.AddConfigPath("./env")
		viper.SetConfigType("yaml")
		viper.SetEnvPrefix("storefront")
		viper.AutomaticEnv()

		viper.SetDefault("backend.timeout", 10*time.Second)
		viper.SetDefault("backend.max_retries", 3)
		viper.SetDefault("payment.poll_interval", 5*time.Second)
		viper.SetDefault("payment.max_poll_attempts", 60)
		viper.SetDefault("tracker.refresh_interval", 15*time.Second)
		viper.SetDefault("tracker.max_refresh_attempts", 240)

		logger = logger.With().Str(log.KeyProcess, "reading config").Logger()
		logger.Info().Msg("reading config")
		err := viper.ReadInConfig()
		if err != nil {
			err = fmt.Errorf("error when reading config with error=%w", err)
			logger.Fatal().Err(err).Msg(err.Error())
		}
		logger.Info().Msg("read config")

		logger = logger.With().Str(log.KeyProcess, "unmarshaling config").Logger()
		logger.Info().Msg("unmarshaling config")
		err = viper.Unmarshal(&cfg)
		if err != nil {
			err = fmt.Errorf("error unmarshaling config with error=%w", err)
			logger.Fatal().Err(err).Msg(err.Error())
		}
		config = &cfg
		logger = logger.With().Any(log.KeyConfig, cfg).Logger()
		logger.Info().Msg("unmarshaled config")
	})
	return config
}
