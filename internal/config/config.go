package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	CRM     CRMConfig     `yaml:"crm" mapstructure:"crm"`
	Sync    SyncConfig    `yaml:"sync" mapstructure:"sync"`
	Uploads UploadsConfig `yaml:"uploads" mapstructure:"uploads"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// CRMConfig holds the Dataverse connection settings. The client secret is
// read from the CRM_CLIENT_SECRET environment variable in preference to the
// config file.
type CRMConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	TenantID     string `yaml:"tenant_id" mapstructure:"tenant_id"`
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	// AppID is the model-driven app used for record links in notification
	// emails.
	AppID string `yaml:"app_id" mapstructure:"app_id"`
	// SenderUserID is the system user notification emails are sent from.
	// Optional; when empty the email carries only the recipient party.
	SenderUserID string `yaml:"sender_user_id" mapstructure:"sender_user_id"`
	// RateLimit caps CRM calls per second; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// TokenURL returns the tenant's OAuth2 client-credentials endpoint.
func (c CRMConfig) TokenURL() string {
	return fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", c.TenantID)
}

// Scope returns the OAuth2 scope for the organization.
func (c CRMConfig) Scope() string {
	return c.BaseURL + "/.default"
}

// SyncConfig tunes the orchestration timings.
type SyncConfig struct {
	// ReplicationDelaySecs is the pause between creating the owner contact
	// and linking it, covering CRM replication lag.
	ReplicationDelaySecs int `yaml:"replication_delay_secs" mapstructure:"replication_delay_secs"`
	// WaitAttempts bounds the availability poll for a just-created account.
	WaitAttempts int `yaml:"wait_attempts" mapstructure:"wait_attempts"`
	// WaitDelayMs is the fixed delay between availability polls.
	WaitDelayMs int `yaml:"wait_delay_ms" mapstructure:"wait_delay_ms"`
}

// UploadsConfig configures attachment validation and the local mirror.
type UploadsConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	MaxFileSizeMB int    `yaml:"max_file_size_mb" mapstructure:"max_file_size_mb"`
}

// ServerConfig configures the form intake server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ONBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("sync.replication_delay_secs", 10)
	v.SetDefault("sync.wait_attempts", 10)
	v.SetDefault("sync.wait_delay_ms", 1000)
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.max_file_size_mb", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// Secrets prefer the environment over the config file.
	if secret := os.Getenv("CRM_CLIENT_SECRET"); secret != "" {
		cfg.CRM.ClientSecret = secret
	}

	return &cfg, nil
}

// Validate checks that every required field is present and within bounds.
// Called eagerly at startup so misconfiguration fails before any CRM call.
func (c *Config) Validate() error {
	var missing []string
	if c.CRM.BaseURL == "" {
		missing = append(missing, "crm.base_url")
	}
	if c.CRM.TenantID == "" {
		missing = append(missing, "crm.tenant_id")
	}
	if c.CRM.ClientID == "" {
		missing = append(missing, "crm.client_id")
	}
	if c.CRM.ClientSecret == "" {
		missing = append(missing, "crm.client_secret (or CRM_CLIENT_SECRET)")
	}
	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}

	if c.Uploads.MaxFileSizeMB < 1 || c.Uploads.MaxFileSizeMB > 100 {
		return eris.Errorf("config: uploads.max_file_size_mb must be between 1 and 100, got %d", c.Uploads.MaxFileSizeMB)
	}
	if c.Sync.WaitAttempts < 1 {
		return eris.Errorf("config: sync.wait_attempts must be at least 1, got %d", c.Sync.WaitAttempts)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
