package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Directory   DirectoryConfig   `yaml:"directory" mapstructure:"directory"`
	Registry    RegistryConfig    `yaml:"registry" mapstructure:"registry"`
	Contacts    ContactsConfig    `yaml:"contacts" mapstructure:"contacts"`
	EmailFinder EmailFinderConfig `yaml:"emailfinder" mapstructure:"emailfinder"`
	WebSearch   WebSearchConfig   `yaml:"websearch" mapstructure:"websearch"`
	Salesforce  SalesforceConfig  `yaml:"salesforce" mapstructure:"salesforce"`
	Notion      NotionConfig      `yaml:"notion" mapstructure:"notion"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Sectors     SectorsConfig     `yaml:"sectors" mapstructure:"sectors"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DirectoryConfig holds the company-directory API settings.
type DirectoryConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RegistryConfig holds the tax-ID registry lookup settings.
type RegistryConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ContactsConfig holds the decision-maker search API settings.
type ContactsConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// EmailFinderConfig holds the email discovery API settings.
type EmailFinderConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// WebSearchConfig holds the web-search API settings.
type WebSearchConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SalesforceConfig holds Salesforce JWT auth settings for lead export.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// NotionConfig holds Notion export credentials.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// PipelineConfig configures discovery and enrichment behavior.
type PipelineConfig struct {
	Concurrency       int `yaml:"concurrency" mapstructure:"concurrency"`
	EnrichTimeoutSecs int `yaml:"enrich_timeout_secs" mapstructure:"enrich_timeout_secs"`
	MetaMultiplier    int `yaml:"meta_multiplier" mapstructure:"meta_multiplier"`
	MetaFloor         int `yaml:"meta_floor" mapstructure:"meta_floor"`
}

// SectorsConfig points at the sector vocabulary file. Empty path means
// the built-in table.
type SectorsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospect.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("pipeline.concurrency", 5)
	v.SetDefault("pipeline.enrich_timeout_secs", 8)
	v.SetDefault("pipeline.meta_multiplier", 3)
	v.SetDefault("pipeline.meta_floor", 60)
	v.SetDefault("directory.base_url", "https://api.diretorioempresas.com.br/v1")
	v.SetDefault("directory.rate_limit", 10)
	v.SetDefault("registry.base_url", "https://api.cnpjregistro.com.br/v1")
	v.SetDefault("contacts.base_url", "https://api.contatosb2b.com/v1")
	v.SetDefault("emailfinder.base_url", "https://api.emailfinder.io/v2")
	v.SetDefault("websearch.base_url", "https://api.serpsearch.dev/v1")
	v.SetDefault("websearch.rate_limit", 5)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")

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

	return &cfg, nil
}

// MissingKeyError indicates a required collaborator credential is absent.
// Fatal at request scope: no partial work is attempted.
type MissingKeyError struct {
	Source string
}

// Code returns the wire error code, e.g. "MISSING_DIRECTORY_API_KEY".
func (e *MissingKeyError) Code() string {
	return fmt.Sprintf("MISSING_%s_API_KEY", strings.ToUpper(e.Source))
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("config: missing %s API key", e.Source)
}

// ValidateSecrets checks that every collaborator the discovery pipeline
// depends on has a credential configured.
func (c *Config) ValidateSecrets() error {
	checks := []struct {
		source string
		key    string
	}{
		{"directory", c.Directory.Key},
		{"registry", c.Registry.Key},
		{"contacts", c.Contacts.Key},
		{"emailfinder", c.EmailFinder.Key},
		{"websearch", c.WebSearch.Key},
	}
	for _, chk := range checks {
		if chk.key == "" {
			return &MissingKeyError{Source: chk.source}
		}
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
