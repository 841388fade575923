package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config structure principale de configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Combat     CombatConfig     `mapstructure:"combat"`
	Matchmaking MatchmakingConfig `mapstructure:"matchmaking"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig configuration du serveur HTTP
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	CombatStartTimeout time.Duration `mapstructure:"combat_start_timeout"`
}

// DatabaseConfig configuration de la base de données.
// URL accepte postgres://... ou un chemin sqlite (file:duelist.db / duelist.db).
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig configuration du store éphémère.
// URL vide = fallback mémoire locale (mono-instance).
type CacheConfig struct {
	URL            string        `mapstructure:"url"`
	CombatStateTTL time.Duration `mapstructure:"combat_state_ttl"`
	AutoFightTTL   time.Duration `mapstructure:"autofight_ttl"`
	QueueTTL       time.Duration `mapstructure:"queue_ttl"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// JWTConfig configuration des tokens.
// Secrets est une liste séparée par des virgules : le premier signe,
// tous valident (rotation de clés sans invalider les tokens en cours).
type JWTConfig struct {
	Secrets          string        `mapstructure:"secrets"`
	AccessTokenTTL   time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `mapstructure:"refresh_token_ttl"`
}

// CORSConfig liste des origines autorisées
type CORSConfig struct {
	Origins string `mapstructure:"origins"`
}

// CombatConfig configuration du simulateur de combat
type CombatConfig struct {
	TurnCap          int           `mapstructure:"turn_cap"`
	AutoFightTurnGap time.Duration `mapstructure:"autofight_turn_gap"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
}

// MatchmakingConfig configuration du matchmaking PvP
type MatchmakingConfig struct {
	EloK           int           `mapstructure:"elo_k"`
	BaseWindow     int           `mapstructure:"base_window"`
	WindowStep     int           `mapstructure:"window_step"`
	WindowStepEvery time.Duration `mapstructure:"window_step_every"`
	WindowCap      int           `mapstructure:"window_cap"`
	BotFallbackAge time.Duration `mapstructure:"bot_fallback_age"`
	EnableBots     bool          `mapstructure:"enable_bots"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

// RateLimitConfig configuration du rate limiting
type RateLimitConfig struct {
	GlobalPerHour      int `mapstructure:"global_per_hour"`
	RegisterPerMinute  int `mapstructure:"register_per_minute"`
	LoginPerMinute     int `mapstructure:"login_per_minute"`
	CombatStartPerMinute int `mapstructure:"combat_start_per_minute"`
}

// MonitoringConfig configuration du monitoring
type MonitoringConfig struct {
	MetricsPath      string        `mapstructure:"metrics_path"`
	HealthPath       string        `mapstructure:"health_path"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
}

// LoggingConfig configuration des logs
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig charge la configuration depuis les variables d'environnement
func LoadConfig() (*Config, error) {
	// Configuration par défaut
	config := &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8000,
			Environment:        "development",
			ReadTimeout:        30 * time.Second,
			WriteTimeout:       30 * time.Second,
			RequestTimeout:     10 * time.Second,
			CombatStartTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			URL:             "file:idleduelist.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300 * time.Second,
		},
		Cache: CacheConfig{
			URL:            "",
			CombatStateTTL: time.Hour,
			AutoFightTTL:   30 * time.Minute,
			QueueTTL:       2 * time.Minute,
			SessionTTL:     5 * time.Minute,
			IdempotencyTTL: 10 * time.Minute,
		},
		JWT: JWTConfig{
			Secrets:         "dev-only-secret-do-not-use-in-production-0123456789",
			AccessTokenTTL:  24 * time.Hour,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		CORS: CORSConfig{
			Origins: "http://localhost:3000,http://localhost:8080",
		},
		Combat: CombatConfig{
			TurnCap:          200,
			AutoFightTurnGap: 200 * time.Millisecond,
			SweepInterval:    30 * time.Second,
		},
		Matchmaking: MatchmakingConfig{
			EloK:            32,
			BaseWindow:      50,
			WindowStep:      25,
			WindowStepEvery: 5 * time.Second,
			WindowCap:       500,
			BotFallbackAge:  60 * time.Second,
			EnableBots:      true,
			SweepInterval:   2 * time.Second,
		},
		RateLimit: RateLimitConfig{
			GlobalPerHour:        1000,
			RegisterPerMinute:    5,
			LoginPerMinute:       10,
			CombatStartPerMinute: 30,
		},
		Monitoring: MonitoringConfig{
			MetricsPath:      "/metrics",
			HealthPath:       "/health",
			SnapshotInterval: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	// Configuration Viper
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Mapping des variables d'environnement
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("server.environment", "ENVIRONMENT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	viper.BindEnv("server.request_timeout", "REQUEST_TIMEOUT")
	viper.BindEnv("server.combat_start_timeout", "COMBAT_START_TIMEOUT")

	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.conn_max_lifetime", "DATABASE_CONN_MAX_LIFETIME")

	viper.BindEnv("cache.url", "CACHE_URL")
	viper.BindEnv("cache.combat_state_ttl", "COMBAT_STATE_TTL")
	viper.BindEnv("cache.autofight_ttl", "AUTOFIGHT_TTL")
	viper.BindEnv("cache.queue_ttl", "QUEUE_TTL")
	viper.BindEnv("cache.session_ttl", "SESSION_TTL")
	viper.BindEnv("cache.idempotency_ttl", "IDEMPOTENCY_TTL")

	viper.BindEnv("jwt.secrets", "JWT_SECRET")
	viper.BindEnv("jwt.access_token_ttl", "JWT_ACCESS_TOKEN_TTL")
	viper.BindEnv("jwt.refresh_token_ttl", "JWT_REFRESH_TOKEN_TTL")

	viper.BindEnv("cors.origins", "CORS_ORIGINS")

	viper.BindEnv("combat.turn_cap", "COMBAT_TURN_CAP")
	viper.BindEnv("combat.autofight_turn_gap", "AUTOFIGHT_TURN_GAP")
	viper.BindEnv("combat.sweep_interval", "COMBAT_SWEEP_INTERVAL")

	viper.BindEnv("matchmaking.elo_k", "MATCHMAKING_ELO_K")
	viper.BindEnv("matchmaking.bot_fallback_age", "MATCHMAKING_BOT_FALLBACK_AGE")
	viper.BindEnv("matchmaking.enable_bots", "MATCHMAKING_ENABLE_BOTS")
	viper.BindEnv("matchmaking.sweep_interval", "MATCHMAKING_SWEEP_INTERVAL")

	viper.BindEnv("rate_limit.global_per_hour", "RATE_LIMIT_GLOBAL_PER_HOUR")
	viper.BindEnv("rate_limit.register_per_minute", "RATE_LIMIT_REGISTER_PER_MINUTE")
	viper.BindEnv("rate_limit.login_per_minute", "RATE_LIMIT_LOGIN_PER_MINUTE")
	viper.BindEnv("rate_limit.combat_start_per_minute", "RATE_LIMIT_COMBAT_START_PER_MINUTE")

	viper.BindEnv("monitoring.metrics_path", "MONITORING_METRICS_PATH")
	viper.BindEnv("monitoring.health_path", "MONITORING_HEALTH_PATH")
	viper.BindEnv("monitoring.snapshot_interval", "MONITORING_SNAPSHOT_INTERVAL")

	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("logging.format", "LOG_FORMAT")

	// Charger le fichier de configuration s'il existe
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Merger avec la configuration par défaut
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validation
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate valide la configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.Environment != "development" && c.Server.Environment != "production" {
		return fmt.Errorf("invalid environment: %s", c.Server.Environment)
	}

	// Chaque secret du key-ring doit faire au moins 32 octets
	for _, secret := range c.JWT.SecretList() {
		if len(secret) < 32 {
			return fmt.Errorf("JWT secret must be at least 32 bytes long")
		}
	}

	if c.IsProduction() {
		if strings.Contains(c.JWT.Secrets, "dev-only") {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		for _, origin := range c.CORS.OriginList() {
			if origin == "*" {
				return fmt.Errorf("wildcard CORS origin is forbidden in production")
			}
		}
	}

	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if c.Matchmaking.EloK <= 0 {
		return fmt.Errorf("elo K factor must be positive")
	}

	if c.Combat.TurnCap <= 0 {
		return fmt.Errorf("combat turn cap must be positive")
	}

	return nil
}

// IsProduction indique si le service tourne en production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// IsPostgres indique si l'URL désigne un backend PostgreSQL
func (c *DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://")
}

// SecretList retourne le key-ring JWT (le premier secret signe)
func (c *JWTConfig) SecretList() []string {
	var secrets []string
	for _, s := range strings.Split(c.Secrets, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	return secrets
}

// OriginList retourne la liste des origines CORS autorisées
func (c *CORSConfig) OriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.Origins, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
