package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

type Config struct {
	Mode string

	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Payment   PaymentConfig
	Admin     AdminConfig
	Limits    LimitsConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Addr       string
	SessionTTL time.Duration
}

type DatabaseConfig struct {
	// Driver is "sqlite" (dev default) or "postgres".
	Driver string
	DSN    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PaymentConfig struct {
	// Secret signs payment links. Required in production mode: links
	// signed with an ephemeral secret do not survive a restart.
	Secret  string
	LinkTTL time.Duration
}

type AdminConfig struct {
	SuperuserEmail string

	// InitialPassword seeds the superuser account on first migrate.
	// Empty skips the seed.
	InitialPassword string
}

type LimitsConfig struct {
	Demo               int64
	ReferralFreePapers int64
	ReferralUnlock     int
	MonthlySpecific    int64
}

type SchedulerConfig struct {
	PurgeInterval time.Duration
}

func (c Config) IsProduction() bool { return c.Mode == ModeProduction }

func Load() (Config, error) {
	// Missing .env is fine; env vars win either way.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PAPERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", ModeDevelopment)
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.session_ttl", "24h")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/paperify.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("payment.secret", "")
	v.SetDefault("payment.link_ttl", "24h")
	v.SetDefault("admin.superuser_email", "bilal@paperify.com")
	v.SetDefault("admin.initial_password", "")
	v.SetDefault("limits.demo", 4)
	v.SetDefault("limits.referral_free_papers", 15)
	v.SetDefault("limits.referral_unlock", 10)
	v.SetDefault("limits.monthly_specific", 30)
	v.SetDefault("scheduler.purge_interval", "1h")

	cfg := Config{
		Mode: v.GetString("mode"),
		Server: ServerConfig{
			Addr:       v.GetString("server.addr"),
			SessionTTL: v.GetDuration("server.session_ttl"),
		},
		Database: DatabaseConfig{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Payment: PaymentConfig{
			Secret:  v.GetString("payment.secret"),
			LinkTTL: v.GetDuration("payment.link_ttl"),
		},
		Admin: AdminConfig{
			SuperuserEmail:  strings.ToLower(strings.TrimSpace(v.GetString("admin.superuser_email"))),
			InitialPassword: v.GetString("admin.initial_password"),
		},
		Limits: LimitsConfig{
			Demo:               v.GetInt64("limits.demo"),
			ReferralFreePapers: v.GetInt64("limits.referral_free_papers"),
			ReferralUnlock:     v.GetInt("limits.referral_unlock"),
			MonthlySpecific:    v.GetInt64("limits.monthly_specific"),
		},
		Scheduler: SchedulerConfig{
			PurgeInterval: v.GetDuration("scheduler.purge_interval"),
		},
	}

	return cfg, nil
}
