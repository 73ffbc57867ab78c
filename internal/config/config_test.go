package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		EncryptionKey:     "0123456789abcdef0123456789abcdef",
		WebhookSecret:     "webhook-secret",
		JWTSecret:         "jwt-secret",
		BankAPIURL:        "http://localhost:9090",
		BankAccountNumber: "0123456789",
		BankName:          "Zing Bank",
		BankAccountHolder: "Zing Survey Ltd",
		AdminEmail:        "admin@zingsurvey.com",
		EmailFrom:         "no-reply@zingsurvey.com",
		MailAPIKey:        "brevo-key",
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("complete config passes", func(t *testing.T) {
		require.NoError(t, validConfig().validate())
	})

	t.Run("every required variable is reported when missing", func(t *testing.T) {
		err := (&Config{}).validate()
		require.Error(t, err)
		for _, name := range []string{
			"ENCRYPTION_KEY",
			"PAYMENT_SECRET_KEY",
			"JWT_SECRET",
			"BANK_API_URL",
			"BANK_ACCOUNT_NUMBER",
			"BANK_NAME",
			"ACCOUNT_HOLDER_NAME",
			"ADMIN_EMAIL",
			"EMAIL_FROM",
			"BREVO_API_KEY",
		} {
			assert.Contains(t, err.Error(), name)
		}
	})

	t.Run("missing mail key", func(t *testing.T) {
		c := validConfig()
		c.MailAPIKey = ""
		err := c.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BREVO_API_KEY")
	})

	t.Run("missing bank URL", func(t *testing.T) {
		c := validConfig()
		c.BankAPIURL = ""
		err := c.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BANK_API_URL")
	})

	t.Run("short encryption key", func(t *testing.T) {
		c := validConfig()
		c.EncryptionKey = "too-short"
		err := c.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ENCRYPTION_KEY")
	})
}
