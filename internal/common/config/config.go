// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Transport     TransportConfig    `mapstructure:"transport"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Observability ObsConfig          `mapstructure:"observability"`
}

// ObsConfig holds tracing/metrics exporter settings.
type ObsConfig struct {
	// Jaeger collector endpoint; empty disables tracing.
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	// Platform tag stamped onto every audit record (e.g. "android", "ios", "server").
	Platform string `mapstructure:"platform"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	// Index receiving audit records. Append-only; retention is handled outside the core.
	AuditIndex string `mapstructure:"audit_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TransportConfig holds settings for the push delivery transport.
type TransportConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			// Platform application the device tokens are registered against.
			PlatformApplicationARN string `mapstructure:"platform_application_arn"`
			// Topic the provider publishes inbound trigger messages to.
			TriggerTopicARN string `mapstructure:"trigger_topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
	// Timeout for a single display/publish call, milliseconds.
	DisplayTimeout int `mapstructure:"display_timeout"`
}

// NotificationConfig holds delivery-pipeline behavior knobs.
type NotificationConfig struct {
	// Render even when title and body are both empty, as long as the
	// custom-data map is non-empty.
	RenderOnDataOnly bool `mapstructure:"render_on_data_only"`
	// Cap on additional_info stored per audit record, characters.
	InfoCap int `mapstructure:"info_cap"`
	// TTL of the duplicate-trigger guard keyed by provider message id, seconds.
	DedupeTTL int `mapstructure:"dedupe_ttl"`
	// Timeout for a single audit write, milliseconds.
	AuditTimeout int `mapstructure:"audit_timeout"`

	OperatorAlert struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		ToEmail   string `mapstructure:"to_email"`
	} `mapstructure:"operator_alert"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
