package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
	Profiling ProfilingConfig
	Crypto    CryptoConfig
	Cache     CacheConfig
	OAuth     OAuthConfig
	Commerce  CommerceConfig
	Traffic   TrafficConfig
	Dashboard DashboardConfig
	Insight   InsightConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file path
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings. Tokens are issued by the upstream identity service;
// StorePulse only validates them and signs its own OAuth state tokens.
type JWTConfig struct {
	Secret             string
	Issuer             string
	StateTokenLifetime time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration
}

// ProfilingConfig holds Pyroscope continuous profiling settings
type ProfilingConfig struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	ProfileTypes      []string // cpu, alloc_space, inuse_space, goroutines, mutex_count, ...
	SpanProfiles      bool     // link CPU samples to trace spans; needs telemetry.enabled
}

// CryptoConfig holds the at-rest encryption key material
type CryptoConfig struct {
	SecretKey string
}

// CacheConfig holds result cache settings
type CacheConfig struct {
	RedisEnabled bool
	KeyPrefix    string
	DashboardTTL time.Duration
	InsightsTTL  time.Duration
}

// OAuthConfig holds token lifecycle settings
type OAuthConfig struct {
	ExpirySkew time.Duration // tokens expiring within this window are refreshed
}

// CommerceConfig holds commerce provider settings
type CommerceConfig struct {
	APIVersion        string
	BaseURL           string // optional override, e.g. for a proxy; default https://{shop}/admin/api/{version}
	RequestTimeout    time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerSecond float64
}

// TrafficConfig holds analytics provider settings
type TrafficConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	AuthURL         string
	TokenURL        string
	APIBaseURL      string
	Scopes          []string
	RequestTimeout  time.Duration
	DefaultRowLimit int
}

// DashboardConfig holds orchestrator settings
type DashboardConfig struct {
	FetchTimeout time.Duration
}

// InsightConfig holds correlation thresholds
type InsightConfig struct {
	LowStock     int64
	HighStock    int64
	HighTraffic  int64
	LowTraffic   int64
	ProductLimit int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOREPULSE_ prefix (e.g., STOREPULSE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("STOREPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v)

	cfg := fromViper(v)

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:             v.GetString("jwt.secret"),
			Issuer:             v.GetString("jwt.issuer"),
			StateTokenLifetime: v.GetDuration("jwt.state_token_lifetime"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Profiling: ProfilingConfig{
			Enabled:           v.GetBool("profiling.enabled"),
			ServerAddress:     v.GetString("profiling.server_address"),
			ApplicationName:   v.GetString("profiling.application_name"),
			BasicAuthUser:     v.GetString("profiling.basic_auth_user"),
			BasicAuthPassword: v.GetString("profiling.basic_auth_password"),
			ProfileTypes:      v.GetStringSlice("profiling.profile_types"),
			SpanProfiles:      v.GetBool("profiling.span_profiles"),
		},
		Crypto: CryptoConfig{
			SecretKey: v.GetString("crypto.secret_key"),
		},
		Cache: CacheConfig{
			RedisEnabled: v.GetBool("cache.redis_enabled"),
			KeyPrefix:    v.GetString("cache.key_prefix"),
			DashboardTTL: v.GetDuration("cache.dashboard_ttl"),
			InsightsTTL:  v.GetDuration("cache.insights_ttl"),
		},
		OAuth: OAuthConfig{
			ExpirySkew: v.GetDuration("oauth.expiry_skew"),
		},
		Commerce: CommerceConfig{
			APIVersion:        v.GetString("commerce.api_version"),
			BaseURL:           v.GetString("commerce.base_url"),
			RequestTimeout:    v.GetDuration("commerce.request_timeout"),
			MaxRetries:        v.GetInt("commerce.max_retries"),
			RetryDelay:        v.GetDuration("commerce.retry_delay"),
			RequestsPerSecond: v.GetFloat64("commerce.requests_per_second"),
		},
		Traffic: TrafficConfig{
			ClientID:        v.GetString("traffic.client_id"),
			ClientSecret:    v.GetString("traffic.client_secret"),
			RedirectURL:     v.GetString("traffic.redirect_url"),
			AuthURL:         v.GetString("traffic.auth_url"),
			TokenURL:        v.GetString("traffic.token_url"),
			APIBaseURL:      v.GetString("traffic.api_base_url"),
			Scopes:          v.GetStringSlice("traffic.scopes"),
			RequestTimeout:  v.GetDuration("traffic.request_timeout"),
			DefaultRowLimit: v.GetInt("traffic.default_row_limit"),
		},
		Dashboard: DashboardConfig{
			FetchTimeout: v.GetDuration("dashboard.fetch_timeout"),
		},
		Insight: InsightConfig{
			LowStock:     v.GetInt64("insight.low_stock"),
			HighStock:    v.GetInt64("insight.high_stock"),
			HighTraffic:  v.GetInt64("insight.high_traffic"),
			LowTraffic:   v.GetInt64("insight.low_traffic"),
			ProductLimit: v.GetInt("insight.product_limit"),
		},
	}
}

// registerDefaults covers the settings where zero is a legal explicit value
func registerDefaults(v *viper.Viper) {
	v.SetDefault("insight.low_stock", 10)
	v.SetDefault("insight.high_stock", 100)
	v.SetDefault("insight.high_traffic", 50)
	v.SetDefault("insight.low_traffic", 5)
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storepulse"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "storepulse"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "storepulse.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "storepulse"
	}
	if cfg.JWT.StateTokenLifetime == 0 {
		cfg.JWT.StateTokenLifetime = 10 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// Dashboard requests may wait for the full provider fetch timeout.
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// NOTE: CORS origins get no wildcard default; an empty list allows no cross-origin requests.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "storepulse"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = cfg.Telemetry.ServiceName
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "storepulse"
	}
	if cfg.Cache.DashboardTTL == 0 {
		cfg.Cache.DashboardTTL = 15 * time.Minute
	}
	if cfg.Cache.InsightsTTL == 0 {
		cfg.Cache.InsightsTTL = time.Hour
	}
	if cfg.OAuth.ExpirySkew == 0 {
		cfg.OAuth.ExpirySkew = 60 * time.Second
	}
	if cfg.Commerce.APIVersion == "" {
		cfg.Commerce.APIVersion = "2024-04"
	}
	if cfg.Commerce.RequestTimeout == 0 {
		cfg.Commerce.RequestTimeout = 30 * time.Second
	}
	if cfg.Commerce.MaxRetries == 0 {
		cfg.Commerce.MaxRetries = 3
	}
	if cfg.Commerce.RetryDelay == 0 {
		cfg.Commerce.RetryDelay = 2 * time.Second
	}
	if cfg.Commerce.RequestsPerSecond == 0 {
		cfg.Commerce.RequestsPerSecond = 2
	}
	if cfg.Traffic.AuthURL == "" {
		cfg.Traffic.AuthURL = "https://accounts.google.com/o/oauth2/auth"
	}
	if cfg.Traffic.TokenURL == "" {
		cfg.Traffic.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if cfg.Traffic.APIBaseURL == "" {
		cfg.Traffic.APIBaseURL = "https://analyticsdata.googleapis.com"
	}
	if len(cfg.Traffic.Scopes) == 0 {
		cfg.Traffic.Scopes = []string{"https://www.googleapis.com/auth/analytics.readonly"}
	}
	if cfg.Traffic.RequestTimeout == 0 {
		cfg.Traffic.RequestTimeout = 30 * time.Second
	}
	if cfg.Traffic.DefaultRowLimit == 0 {
		cfg.Traffic.DefaultRowLimit = 10000
	}
	if cfg.Dashboard.FetchTimeout == 0 {
		cfg.Dashboard.FetchTimeout = 20 * time.Second
	}
	if cfg.Insight.ProductLimit == 0 {
		cfg.Insight.ProductLimit = 100
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be 'postgres' or 'sqlite', got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Insight.LowStock < 0 || c.Insight.LowTraffic < 0 {
		return fmt.Errorf("insight.low_stock and insight.low_traffic cannot be negative")
	}
	if c.Insight.LowStock >= c.Insight.HighStock {
		return fmt.Errorf("insight.low_stock (%d) must be below insight.high_stock (%d)",
			c.Insight.LowStock, c.Insight.HighStock)
	}
	if c.Insight.LowTraffic >= c.Insight.HighTraffic {
		return fmt.Errorf("insight.low_traffic (%d) must be below insight.high_traffic (%d)",
			c.Insight.LowTraffic, c.Insight.HighTraffic)
	}
	if c.Insight.ProductLimit < 0 {
		return fmt.Errorf("insight.product_limit cannot be negative")
	}
	if c.Commerce.MaxRetries < 0 {
		return fmt.Errorf("commerce.max_retries cannot be negative")
	}
	if c.Commerce.RequestsPerSecond < 0 {
		return fmt.Errorf("commerce.requests_per_second cannot be negative")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Crypto.SecretKey == "" {
			return fmt.Errorf("crypto.secret_key is required in production")
		}
		if c.Database.Driver == "postgres" {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.Profiling.Enabled && c.Profiling.ServerAddress == "" {
		return fmt.Errorf("profiling.server_address is required when profiling is enabled")
	}

	return nil
}

// IsProduction reports whether the app runs with production checks
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
