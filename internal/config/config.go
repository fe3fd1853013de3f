package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/blocapp/billing/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Firestore  FirestoreConfig
	Billing    BillingConfig `validate:"required"`
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
}

// BillingConfig carries the defaults used when an account has no custom
// pricing override
type BillingConfig struct {
	Currency      string          `validate:"required"`
	PricePerUnit  decimal.Decimal `validate:"required"`
	InvoicePrefix string          `validate:"required"`
	DueDays       int             `validate:"required,gt=0"`
	TrialDays     int             `validate:"required,gt=0"`
	TaxRate       decimal.Decimal
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	// Load .env for local development; missing file is fine
	_ = godotenv.Load()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/blocapp")

	v.SetEnvPrefix("BLOCAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decimalDecodeHook())); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeServer))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("billing.currency", "RON")
	v.SetDefault("billing.priceperunit", "5.00")
	v.SetDefault("billing.invoiceprefix", "BLC")
	v.SetDefault("billing.duedays", 14)
	v.SetDefault("billing.trialdays", 90)
	v.SetDefault("billing.taxrate", "0")
}

func (c *Configuration) Validate() error {
	return validator.New().Struct(c)
}

// GetDefaultConfig returns a configuration suitable for unit tests and
// local scripts
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelInfo},
		Billing: BillingConfig{
			Currency:      "RON",
			PricePerUnit:  decimal.RequireFromString("5.00"),
			InvoicePrefix: "BLC",
			DueDays:       14,
			TrialDays:     90,
			TaxRate:       decimal.Zero,
		},
	}
}
