package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Alijeyrad/simward_backend/pkg/constants"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.body_limit_mb", 10)
	v.SetDefault("server.rate_limit.max", 60)
	v.SetDefault("server.rate_limit.expiration_seconds", 60)
	v.SetDefault("authentication.session_ttl_hours", 24)
	v.SetDefault("authentication.paseto.mode", "local")
	v.SetDefault("authorization.casbin_model_path", "casbin_model.conf")
	v.SetDefault("codes.join_code_length", 6)
	v.SetDefault("s3.presign_ttl_sec", 900)
	v.SetDefault("s3.max_upload_mb", 25)
	v.SetDefault("realtime.port", 8081)
	v.SetDefault("realtime.send_buffer", 256)
	v.SetDefault("observability.service_name", "simward_backend")
	v.SetDefault("observability.metrics.path", "/metrics")
	v.SetDefault("logging.level", "info")
}

func ReadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(constants.ConfigName)
	v.SetConfigType(constants.ConfigFormat)
	v.AddConfigPath(configPath)
	setDefaults(v)

	// Allow env vars to override config values.
	// e.g. SIMWARD_DATABASE_HOST overrides database.host
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The file is optional when the environment carries the settings.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if os.Getenv(constants.EnvPrefix+"_DATABASE_HOST") == "" {
			return nil, fmt.Errorf("config file not found in %q and %s_DATABASE_HOST is not set", configPath, constants.EnvPrefix)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
