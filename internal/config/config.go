package config

type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Auth       AuthConfig       `mapstructure:"auth" yaml:"auth"`
	Policy     PolicyConfig     `mapstructure:"policy" yaml:"policy"`
	CORS       CORSConfig       `mapstructure:"cors" yaml:"cors"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" yaml:"monitoring"`
}

// StorageConfig selects and configures the policy directory backend.
type StorageConfig struct {
	// Backend is "ldap" or "memory". The memory backend keeps everything
	// process-local and is meant for development and tests.
	Backend string     `mapstructure:"backend" yaml:"backend"`
	LDAP    LDAPConfig `mapstructure:"ldap" yaml:"ldap"`
}

type LDAPConfig struct {
	URL          string `mapstructure:"url" yaml:"url"`
	BindDN       string `mapstructure:"bind_dn" yaml:"bind_dn"`
	BindPassword string `mapstructure:"bind_password" yaml:"bind_password"`
	BaseDN       string `mapstructure:"base_dn" yaml:"base_dn"`
}

// CacheConfig configures the Valkey session/entity cache.
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Node     string `mapstructure:"node" yaml:"node"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	TTL      int    `mapstructure:"ttl" yaml:"ttl"` // seconds
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt" yaml:"jwt"`
}

type JWTConfig struct {
	Secret        string `mapstructure:"secret" yaml:"secret"`
	ExpiryMinutes int    `mapstructure:"expiry_minutes" yaml:"expiry_minutes"`
}

// PolicyConfig carries engine-level tunables.
type PolicyConfig struct {
	// DefaultTenant is used when a request carries no tenant header.
	DefaultTenant string `mapstructure:"default_tenant" yaml:"default_tenant"`
	// SessionTTLMinutes bounds how long an activated session stays valid.
	SessionTTLMinutes int `mapstructure:"session_ttl_minutes" yaml:"session_ttl_minutes"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	MetricsPath string `mapstructure:"metrics_path" yaml:"metrics_path"`
}
