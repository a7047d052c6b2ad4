package config

import (
	"os"
	"time"
)

// NotificationsConfig contains the customer-notification settings.
// Provider credentials never live in YAML; LoadCredentialsFromEnv pulls
// them from the environment at startup.
type NotificationsConfig struct {
	// RetryDelay is the pause between delivery attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// MaxRetries is how many times a failed delivery is retried.
	MaxRetries int `yaml:"max_retries"`

	// CountryCode is prepended to national phone numbers.
	CountryCode string `yaml:"country_code"`

	// AnnouncementChannel is the staff channel announcements post to.
	AnnouncementChannel string `yaml:"announcement_channel"`

	// Credentials are resolved from the environment, not YAML.
	SMS      SMSCredentials      `yaml:"-"`
	WhatsApp WhatsAppCredentials `yaml:"-"`
	Announce AnnounceCredentials `yaml:"-"`
}

// SMSCredentials identifies the SMS gateway account.
type SMSCredentials struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// WhatsAppCredentials identifies the WhatsApp gateway.
type WhatsAppCredentials struct {
	APIURL   string
	APIToken string
}

// AnnounceCredentials identifies the staff-announcement channel.
type AnnounceCredentials struct {
	Token string
}

// DefaultNotificationsConfig returns the built-in notification defaults.
func DefaultNotificationsConfig() *NotificationsConfig {
	return &NotificationsConfig{
		RetryDelay:  5 * time.Second,
		MaxRetries:  3,
		CountryCode: "55",
	}
}

// LoadCredentialsFromEnv fills provider credentials from environment
// variables. Missing variables leave the provider in simulation mode.
func (c *NotificationsConfig) LoadCredentialsFromEnv() {
	c.SMS = SMSCredentials{
		AccountSID: os.Getenv("SMS_ACCOUNT_SID"),
		AuthToken:  os.Getenv("SMS_AUTH_TOKEN"),
		FromNumber: os.Getenv("SMS_FROM_NUMBER"),
	}
	c.WhatsApp = WhatsAppCredentials{
		APIURL:   os.Getenv("WHATSAPP_API_URL"),
		APIToken: os.Getenv("WHATSAPP_API_TOKEN"),
	}
	c.Announce = AnnounceCredentials{
		Token: os.Getenv("ANNOUNCE_BOT_TOKEN"),
	}
}
