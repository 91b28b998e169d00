package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/proximity/internal/adapters/rtc"
)

type Config struct {
	Mode            string          `mapstructure:"mode"`
	Port            int             `mapstructure:"port"`
	StaticPath      string          `mapstructure:"static_path"`
	ReadLimit       int64           `mapstructure:"read_limit"`
	PingPeriod      time.Duration   `mapstructure:"ping_period"`
	LogLevel        string          `mapstructure:"log_level"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	Backend         BackendConfig   `mapstructure:"backend"`
	Room            RoomConfig      `mapstructure:"room"`
	ICEServers      []rtc.ICEServer `mapstructure:"ice_servers"`
}

type BackendConfig struct {
	CustomServerPort int           `mapstructure:"custom_server_port"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	MoveInterval     time.Duration `mapstructure:"move_interval"`
	PingInterval     time.Duration `mapstructure:"ping_interval"`
}

type RoomConfig struct {
	JoinCooldown   time.Duration `mapstructure:"join_cooldown"`
	GameEndTimeout time.Duration `mapstructure:"game_end_timeout"`
}

const envPrefix = "PROXIMITY"

// Load reads .env, then config/config.<CONFIG_ENV>.yaml (or CONFIG_FILE), then
// PROXIMITY_* environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("module", "config").Msg("failed to read .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	fileName := os.Getenv("CONFIG_FILE")
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("log_level", "info")
	v.SetDefault("shutdown_timeout", "11m")

	v.SetDefault("backend.custom_server_port", 22044)
	v.SetDefault("backend.dial_timeout", "10s")
	v.SetDefault("backend.move_interval", "300ms")
	v.SetDefault("backend.ping_interval", "15s")

	v.SetDefault("room.join_cooldown", "5s")
	v.SetDefault("room.game_end_timeout", "10m")
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Backend.CustomServerPort <= 0 || c.Backend.CustomServerPort > 65535 {
		return fmt.Errorf("invalid backend.custom_server_port %d", c.Backend.CustomServerPort)
	}
	if c.PingPeriod <= 0 {
		return fmt.Errorf("invalid ping_period %s", c.PingPeriod)
	}
	return nil
}
