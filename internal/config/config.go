package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret     string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer     string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience   string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL        time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	AdminPassword string        `mapstructure:"admin_password" yaml:"admin_password"`

	// Realtime connection limits.
	MaxMessageBytes    int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	SendQueueSize      int   `mapstructure:"send_queue_size" yaml:"send_queue_size"`
	RateLimitPerMinute int   `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`

	MessagePageSize      int `mapstructure:"message_page_size" yaml:"message_page_size"`
	ConversationPageSize int `mapstructure:"conversation_page_size" yaml:"conversation_page_size"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                 ":8080",
		ReadHeaderTimeout:    5 * time.Second,
		ShutdownTimeout:      5 * time.Second,
		LogLevel:             "info",
		LogFormat:            "console",
		DatabasePath:         "bitter.db",
		JWTSecret:            "change-me-in-production",
		JWTIssuer:            "bitter",
		JWTAudience:          "bitter-clients",
		JWTTTL:               31 * 24 * time.Hour,
		AdminPassword:        "pass123",
		MaxMessageBytes:      4096,
		SendQueueSize:        32,
		RateLimitPerMinute:   120,
		MessagePageSize:      10,
		ConversationPageSize: 8,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	setString(&c.Addr, other.Addr)
	setDuration(&c.ReadHeaderTimeout, other.ReadHeaderTimeout)
	setDuration(&c.ShutdownTimeout, other.ShutdownTimeout)
	setString(&c.LogLevel, other.LogLevel)
	setString(&c.LogFormat, other.LogFormat)
	setString(&c.DatabasePath, other.DatabasePath)
	setString(&c.JWTSecret, other.JWTSecret)
	setString(&c.JWTIssuer, other.JWTIssuer)
	setString(&c.JWTAudience, other.JWTAudience)
	setDuration(&c.JWTTTL, other.JWTTTL)
	setString(&c.AdminPassword, other.AdminPassword)
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	setInt(&c.SendQueueSize, other.SendQueueSize)
	setInt(&c.RateLimitPerMinute, other.RateLimitPerMinute)
	setInt(&c.MessagePageSize, other.MessagePageSize)
	setInt(&c.ConversationPageSize, other.ConversationPageSize)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
