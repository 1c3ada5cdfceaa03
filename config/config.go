// Package config holds quadstore's top-level Config struct and the
// viper/afero/fsnotify loading pipeline, trimmed down from serv/config.go's
// Config/newViper/readInConfig trio to the handful of settings a quad store
// needs (database connection, table name, shortcut aliases/prefixes, LDF
// endpoints) plus the ambient logging/HTTP knobs every teacher service
// config carries.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Database holds the backing SQL connection settings.
type Database struct {
	// Type is "postgres", "mysql" or "mariadb"; empty defaults to postgres, mirroring
	// detectDBType's fall-through.
	Type       string `mapstructure:"type" validate:"omitempty,oneof=postgres mysql mariadb"`
	ConnString string `mapstructure:"conn_string" validate:"required"`
	Table      string `mapstructure:"table" validate:"required"`
}

// RateLimiter mirrors Serv's RateLimiter block. It is decoded and validated
// only: the LDF Mirror throttles each endpoint host at a fixed 5 requests
// per second and does not read RequestsPerSecond.
type RateLimiter struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// CORS mirrors serv/config.go's cors_allowed_origins/cors_allowed_headers
// block for the HTTP surface's rs/cors middleware.
type CORS struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	Debug          bool     `mapstructure:"debug"`
}

// Auth configures the HTTP surface's bearer-token checking, mirroring the
// teacher's dual JWT/JWKS auth support. Development disables the check
// entirely, matching auth.development's documented escape hatch.
type Auth struct {
	Development bool `mapstructure:"development"`

	// Secret HMAC-signs locally issued tokens, checked with golang-jwt/jwt.
	Secret string `mapstructure:"secret"`
	// JWKSURL, when set, validates bearer tokens against an external IdP's
	// published key set via lestrrat-go/jwx instead of the local secret.
	JWKSURL string `mapstructure:"jwks_url"`

	// AdminAPIKeyHash is a bcrypt hash of a static key accepted as an
	// alternative to a JWT on the HTTP surface.
	AdminAPIKeyHash string `mapstructure:"admin_api_key_hash"`
}

// Redis configures the optional shared second-level compiled-query cache.
// Addr empty disables it; the HTTP surface then relies solely on its
// in-process cache.
type Redis struct {
	Addr       string `mapstructure:"addr"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// Config is quadstore's full runtime configuration, decoded by viper with
// mapstructure tags the way serv/config.go's Config is.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	LogLevel string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	HostPort string `mapstructure:"host_port"`

	Database Database `mapstructure:"database"`

	// Aliases maps resource shortcuts to absolute IRIs, registered on the
	// Shortcut Resolver at startup (§4.A).
	Aliases map[string]string `mapstructure:"aliases"`
	// Prefixes maps namespace prefixes to absolute IRIs, also registered on
	// the Shortcut Resolver.
	Prefixes map[string]string `mapstructure:"prefixes"`
	// Endpoints maps a resource host to the LDF endpoint URL that serves it
	// (§4.F).
	Endpoints map[string]string `mapstructure:"endpoints"`

	RateLimiter RateLimiter `mapstructure:"rate_limiter"`

	CORS  CORS  `mapstructure:"cors"`
	Auth  Auth  `mapstructure:"auth"`
	Redis Redis `mapstructure:"redis"`

	// WatchAndReload mirrors serv/watcher.go's reload flag. It is decoded
	// only: nothing reads it, and hot reload happens only where a caller
	// invokes Config.Watch itself.
	WatchAndReload bool `mapstructure:"reload_on_config_change"`

	vi *viper.Viper
}

func newViperWithDefaults(fs afero.Fs) *viper.Viper {
	vi := viper.New()
	if fs != nil {
		vi.SetFs(fs)
	}

	vi.SetDefault("host_port", "0.0.0.0:8080")
	vi.SetDefault("log_level", "info")
	vi.SetDefault("database.type", "postgres")
	vi.SetDefault("database.table", "quads")
	vi.SetDefault("rate_limiter.requests_per_second", 5.0)
	vi.SetDefault("reload_on_config_change", false)
	vi.SetDefault("auth.development", true)
	vi.SetDefault("cors.allowed_origins", []string{"*"})
	vi.SetDefault("redis.ttl_seconds", 3600)

	vi.BindEnv("database.conn_string", "QUADSTORE_DB_URL")      //nolint:errcheck
	vi.BindEnv("host_port", "QUADSTORE_HOST_PORT")              //nolint:errcheck
	vi.BindEnv("log_level", "QUADSTORE_LOG_LEVEL")              //nolint:errcheck

	return vi
}

// Load reads configFile (YAML, by default) off fs (the real OS filesystem
// when fs is nil, or an in-memory afero.Fs in tests) and decodes it into a
// validated Config, mirroring readInConfig's AddConfigPath/ReadInConfig/
// Unmarshal sequence.
func Load(configFile string, fs afero.Fs) (*Config, error) {
	vi := newViperWithDefaults(fs)

	dir := filepath.Dir(configFile)
	name := strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	vi.SetConfigName(name)
	vi.AddConfigPath(dir)

	if err := vi.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
	}

	c := &Config{vi: vi}
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := vi.Unmarshal(c, decodeHook); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if err := c.decryptSecrets(); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(c); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return c, nil
}

// LoadFromEnv is a convenience wrapper reading the file named by the
// QUADSTORE_CONFIG environment variable, defaulting to ./quadstore.yaml.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("QUADSTORE_CONFIG")
	if path == "" {
		path = "./quadstore.yaml"
	}
	return Load(path, nil)
}

// ConfigFileUsed returns the path viper actually loaded, for diagnostics and
// for the fsnotify watcher to target.
func (c *Config) ConfigFileUsed() string {
	if c.vi == nil {
		return ""
	}
	return c.vi.ConfigFileUsed()
}
