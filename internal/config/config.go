package config

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
)

// Provider ids used in MAIL_PROVIDER_ORDER and usage records.
const (
	ProviderSMTPPrimary = "smtp-primary"
	ProviderBrevo       = "brevo"
	ProviderSMTPBackup  = "smtp-backup"
)

type Config struct {
	DatabaseDSN   string `env:"DATABASE_DSN,required=true"`
	RedisURL      string `env:"REDIS_URL"`
	APIPort       int    `env:"API_PORT,default=8080"`
	LogLevel      string `env:"LOG_LEVEL,default=info"`
	CommunityName string `env:"COMMUNITY_NAME,default=CampusHub"`

	SessionLifetimeMinutes int    `env:"SESSION_LIFETIME_MINUTES,default=60"`
	SessionDeepSweepAt     string `env:"SESSION_DEEP_SWEEP_AT,default=03:30"`
	TokenSweepAt           string `env:"TOKEN_SWEEP_AT,default=04:00"`

	MailFromAddress   string `env:"MAIL_FROM_ADDRESS,required=true"`
	MailFromName      string `env:"MAIL_FROM_NAME,default=CampusHub"`
	MailProviderOrder string `env:"MAIL_PROVIDER_ORDER"`

	SMTPHost       string `env:"SMTP_HOST,required=true"`
	SMTPPort       int    `env:"SMTP_PORT,default=587"`
	SMTPUser       string `env:"SMTP_USER"`
	SMTPPassword   string `env:"SMTP_PASSWORD"`
	SMTPDailyLimit int    `env:"SMTP_DAILY_LIMIT,default=300"`

	BrevoEndpoint   string `env:"BREVO_ENDPOINT,default=https://api.brevo.com/v3/smtp/email"`
	BrevoAPIKey     string `env:"BREVO_API_KEY"`
	BrevoDailyLimit int    `env:"BREVO_DAILY_LIMIT,default=100"`

	BackupSMTPHost       string `env:"BACKUP_SMTP_HOST"`
	BackupSMTPPort       int    `env:"BACKUP_SMTP_PORT,default=587"`
	BackupSMTPUser       string `env:"BACKUP_SMTP_USER"`
	BackupSMTPPassword   string `env:"BACKUP_SMTP_PASSWORD"`
	BackupSMTPDailyLimit int    `env:"BACKUP_SMTP_DAILY_LIMIT,default=100"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// ProviderOrder returns the configured provider priority. An unset
// MAIL_PROVIDER_ORDER yields the built-in order; unknown ids are
// rejected at wiring time, not here.
func (c *Config) ProviderOrder() []string {
	raw := strings.TrimSpace(c.MailProviderOrder)
	if raw == "" {
		return []string{ProviderSMTPPrimary, ProviderBrevo, ProviderSMTPBackup}
	}

	parts := strings.Split(raw, ",")
	order := make([]string, 0, len(parts))
	for _, part := range parts {
		if id := strings.TrimSpace(part); id != "" {
			order = append(order, id)
		}
	}
	return order
}
