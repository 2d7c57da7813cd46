package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Server   Server
	Database Database
	Reaper   Reaper
	Session  Session
	Admin    Admin
}

type Server struct {
	Port         string   `validate:"required,numeric"`
	GinMode      string   `validate:"omitempty,oneof=debug release test"`
	AllowOrigins []string `validate:"min=1"`
}

type Database struct {
	Driver     string `validate:"required,oneof=postgres sqlite memory"`
	Host       string `validate:"required_if=Driver postgres"`
	Port       string `validate:"required_if=Driver postgres"`
	User       string
	Password   string
	Name       string `validate:"required_if=Driver postgres"`
	SSLMode    string
	SQLitePath string `validate:"required_if=Driver sqlite"`
}

// Reaper controls the background sweep that force-submits abandoned sessions.
type Reaper struct {
	Interval      time.Duration `validate:"gt=0"`
	GracePeriod   time.Duration `validate:"gte=0"`
	SubmitTimeout time.Duration `validate:"gt=0"`
	Concurrency   int           `validate:"gt=0"`
}

type Session struct {
	TestLinkBytes int `validate:"gte=8,lte=64"`
}

type Admin struct {
	APIKey string
}

// PostgresDSN builds the pgx connection string.
func (d Database) PostgresDSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslMode,
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("SQLITE_PATH", "codescreen.db")
	v.SetDefault("REAPER_INTERVAL", "60s")
	v.SetDefault("REAPER_GRACE_PERIOD", "5m")
	v.SetDefault("REAPER_SUBMIT_TIMEOUT", "10s")
	v.SetDefault("REAPER_CONCURRENCY", 8)
	v.SetDefault("TEST_LINK_BYTES", 16)
}

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file, using environment only")
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	var config Config

	config.Server.Port = v.GetString("SERVER_PORT")
	config.Server.GinMode = v.GetString("GIN_MODE")
	config.Server.AllowOrigins = splitList(v.GetString("CORS_ALLOW_ORIGINS"))

	config.Database.Driver = strings.ToLower(v.GetString("STORE_DRIVER"))
	config.Database.Host = v.GetString("DATABASE_HOST")
	config.Database.Port = v.GetString("DATABASE_PORT")
	config.Database.User = v.GetString("DATABASE_USER")
	config.Database.Password = v.GetString("DATABASE_PASSWORD")
	config.Database.Name = v.GetString("DATABASE_NAME")
	config.Database.SSLMode = v.GetString("DATABASE_SSLMODE")
	config.Database.SQLitePath = v.GetString("SQLITE_PATH")

	config.Reaper.Interval = v.GetDuration("REAPER_INTERVAL")
	config.Reaper.GracePeriod = v.GetDuration("REAPER_GRACE_PERIOD")
	config.Reaper.SubmitTimeout = v.GetDuration("REAPER_SUBMIT_TIMEOUT")
	config.Reaper.Concurrency = v.GetInt("REAPER_CONCURRENCY")

	config.Session.TestLinkBytes = v.GetInt("TEST_LINK_BYTES")
	config.Admin.APIKey = v.GetString("ADMIN_API_KEY")

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Info().
		Str("port", config.Server.Port).
		Str("storeDriver", config.Database.Driver).
		Dur("reaperInterval", config.Reaper.Interval).
		Dur("gracePeriod", config.Reaper.GracePeriod).
		Bool("adminKeySet", config.Admin.APIKey != "").
		Msg("Config loaded")
	return &config, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
