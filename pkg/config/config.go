package config

import (
	"fmt"
	"time"

	"signaling-relay/pkg/constants"
	"signaling-relay/pkg/env"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Signaling SignalingConfig
	Auth      AuthConfig
	TURN      TURNConfig
	Redis     RedisConfig
	Log       LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port        int
	Environment string // development, staging, production
	ServiceName string
}

// SignalingConfig holds the relay's behavioural settings
type SignalingConfig struct {
	AllowedOrigins     []string // "*" allows every origin
	CallTimeout        time.Duration
	HealthCheckEnabled bool
	MaxConnections     int
}

// AuthConfig selects and configures the credential verifier
type AuthConfig struct {
	Mode                    string // jwt, firebase
	JWTSecret               string
	FirebaseProjectID       string
	FirebaseCredentialsPath string
}

// TURNConfig holds per-vendor credentials. An empty credential disables that vendor.
type TURNConfig struct {
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioAPIBase    string

	MeteredAPIKey string
	MeteredDomain string

	RESTSecret string
	RESTURLs   []string
	RESTTTL    int64

	ProviderTimeout time.Duration
}

// RedisConfig holds Redis configuration. An empty Host disables the presence mirror.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level    string // debug, info, warn, error
	Format   string // json, console
	Output   string // stdout, file
	FilePath string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        env.GetInt("PORT", 3000),
			Environment: env.GetString("ENV", "development"),
			ServiceName: env.GetString("SERVICE_NAME", "signaling-server"),
		},
		Signaling: SignalingConfig{
			AllowedOrigins:     env.GetStringSlice("ALLOWED_ORIGINS", []string{"*"}),
			CallTimeout:        time.Duration(env.GetPositiveInt("CALL_TIMEOUT_SECONDS", int(constants.DefaultCallTimeout/time.Second))) * time.Second,
			HealthCheckEnabled: env.GetBool("HEALTH_CHECK_ENABLED", true),
			MaxConnections:     env.GetPositiveInt("WS_MAX_CONNECTIONS", constants.DefaultMaxConnections),
		},
		Auth: AuthConfig{
			Mode:                    env.GetString("AUTH_MODE", constants.AuthModeJWT),
			JWTSecret:               env.GetStringFromFile("JWT_SECRET", ""),
			FirebaseProjectID:       env.GetStringFromFile("FIREBASE_PROJECT_ID", ""),
			FirebaseCredentialsPath: env.GetString("FIREBASE_CREDENTIALS_PATH", env.GetString("GOOGLE_APPLICATION_CREDENTIALS", "")),
		},
		TURN: TURNConfig{
			TwilioAccountSID: env.GetStringFromFile("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:  env.GetStringFromFile("TWILIO_AUTH_TOKEN", ""),
			TwilioAPIBase:    env.GetString("TWILIO_API_BASE", "https://api.twilio.com"),
			MeteredAPIKey:    env.GetStringFromFile("METERED_API_KEY", ""),
			MeteredDomain:    env.GetString("METERED_DOMAIN", "auroracall.metered.live"),
			RESTSecret:       env.GetStringFromFile("TURN_REST_SECRET", ""),
			RESTURLs:         env.GetStringSlice("TURN_REST_URLS", nil),
			RESTTTL:          int64(env.GetPositiveInt("TURN_REST_TTL", constants.DefaultTurnRESTTTL)),
			ProviderTimeout:  env.GetDuration("TURN_PROVIDER_TIMEOUT", constants.DefaultProviderTimeout),
		},
		Redis: RedisConfig{
			Host:     env.GetString("REDIS_HOST", ""),
			Port:     env.GetInt("REDIS_PORT", 6379),
			Password: env.GetStringFromFile("REDIS_PASSWORD", ""),
			DB:       env.GetInt("REDIS_DB", 0),
			PoolSize: env.GetPositiveInt("REDIS_POOL_SIZE", 10),
			Timeout:  env.GetDuration("REDIS_TIMEOUT", 5*time.Second),
		},
		Log: LogConfig{
			Level:    env.GetString("LOG_LEVEL", "info"),
			Format:   env.GetString("LOG_FORMAT", "json"),
			Output:   env.GetString("LOG_OUTPUT", "stdout"),
			FilePath: env.GetString("LOG_FILE_PATH", "/logs/app.log"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Auth.Mode {
	case constants.AuthModeJWT:
		if c.IsProduction() {
			if c.Auth.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET must be set in production")
			}
			if len(c.Auth.JWTSecret) < 32 {
				return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
			}
		}
	case constants.AuthModeFirebase:
		if c.Auth.FirebaseProjectID == "" && c.Auth.FirebaseCredentialsPath == "" {
			return fmt.Errorf("AUTH_MODE=firebase requires FIREBASE_PROJECT_ID or FIREBASE_CREDENTIALS_PATH")
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.Auth.Mode)
	}

	if c.TURN.RESTSecret != "" && len(c.TURN.RESTURLs) == 0 {
		return fmt.Errorf("TURN_REST_URLS must be set when TURN_REST_SECRET is set")
	}

	return nil
}

// IsProduction reports whether ENV=production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// AllowsAllOrigins reports whether the origin list contains the "*" wildcard
func (s SignalingConfig) AllowsAllOrigins() bool {
	for _, origin := range s.AllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return len(s.AllowedOrigins) == 0
}

// RedisEnabled reports whether a Redis host was configured
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}
