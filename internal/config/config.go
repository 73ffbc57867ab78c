package config

import (
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/zingsurvey/payment-gateway/pkg/logger"
)

const ConfigTagName = "env"
const ConfigDefaultTagName = "default"

var config *Config

// Config holds every environment value the gateway consumes. Only this
// struct may be used to read configuration; no direct env access anywhere
// else. Required secrets are checked at load time so the process aborts at
// startup instead of failing lazily on first use.
type Config struct {
	AppEnv              string `env:"APP_ENV" default:"dev"`
	AppName             string `env:"APP_NAME" default:"payment_gateway"`
	AppDebug            bool   `env:"APP_DEBUG" default:"1"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI"`

	HttpListenAddr         string `env:"HTTP_LISTEN_ADDR"`
	HttpServerReadTimeout  int    `env:"HTTP_SERVER_READ_TIMEOUT"`
	HttpServerWriteTimeout int    `env:"HTTP_SERVER_WRITE_TIMEOUT"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE"`

	LogLevel []string `env:"LOG_LEVEL"`

	// Receipt retry queue (redis streams).
	QueueName              string        `env:"QUEUE_NAME" default:"receipts:retry"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP" default:"dispatcher"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ"`

	// Bank integration.
	BankAPIURL        string `env:"BANK_API_URL"`
	BankAccountNumber string `env:"BANK_ACCOUNT_NUMBER"`
	BankName          string `env:"BANK_NAME"`
	BankAccountHolder string `env:"ACCOUNT_HOLDER_NAME"`

	// Secrets.
	EncryptionKey string `env:"ENCRYPTION_KEY"`
	WebhookSecret string `env:"PAYMENT_SECRET_KEY"`
	JWTSecret     string `env:"JWT_SECRET"`

	// Outbound email.
	AdminEmail      string `env:"ADMIN_EMAIL"`
	EmailFrom       string `env:"EMAIL_FROM" default:"no-reply@zingsurvey.com"`
	EmailSenderName string `env:"EMAIL_SENDER_NAME" default:"Zing Survey"`
	MailAPIKey      string `env:"BREVO_API_KEY"`
	MailAPIURL      string `env:"BREVO_API_URL" default:"https://api.brevo.com/v3/smtp/email"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)
	if err != nil {
		return errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}

	if err := c.validate(); err != nil {
		return err
	}

	config = c
	return nil
}

// validate aborts startup when a required secret or bank display field is
// missing, instead of surfacing the absence on first use.
func (c *Config) validate() error {
	var missing []string

	required := []struct {
		name  string
		value string
	}{
		{"ENCRYPTION_KEY", c.EncryptionKey},
		{"PAYMENT_SECRET_KEY", c.WebhookSecret},
		{"JWT_SECRET", c.JWTSecret},
		{"BANK_API_URL", c.BankAPIURL},
		{"BANK_ACCOUNT_NUMBER", c.BankAccountNumber},
		{"BANK_NAME", c.BankName},
		{"ACCOUNT_HOLDER_NAME", c.BankAccountHolder},
		{"ADMIN_EMAIL", c.AdminEmail},
		{"EMAIL_FROM", c.EmailFrom},
		{"BREVO_API_KEY", c.MailAPIKey},
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}

	if len(c.EncryptionKey) != 32 {
		return errors.New("ENCRYPTION_KEY must be exactly 32 bytes")
	}
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
