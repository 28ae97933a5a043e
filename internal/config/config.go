package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	HomeCommunityID  string `mapstructure:"HOME_COMMUNITY_ID"`
	OrganizationName string `mapstructure:"ORGANIZATION_NAME"`

	// Backend processing endpoints, one per inbound transaction type.
	PDBackendURL string `mapstructure:"PD_BACKEND_URL"`
	DQBackendURL string `mapstructure:"DQ_BACKEND_URL"`
	DRBackendURL string `mapstructure:"DR_BACKEND_URL"`

	// Result delivery endpoints for outbound fan-out results.
	PDResultURL string `mapstructure:"PD_RESULT_URL"`
	DQResultURL string `mapstructure:"DQ_RESULT_URL"`
	DRResultURL string `mapstructure:"DR_RESULT_URL"`

	AWSRegion              string `mapstructure:"AWS_REGION"`
	MedicalDocumentsBucket string `mapstructure:"MEDICAL_DOCUMENTS_BUCKET"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	KafkaBrokers     []string `mapstructure:"KAFKA_BROKERS"`
	KafkaResultTopic string   `mapstructure:"KAFKA_RESULT_TOPIC"`

	InboundMaxInFlight    int `mapstructure:"INBOUND_MAX_IN_FLIGHT"`
	GatewayTimeoutSeconds int `mapstructure:"GATEWAY_TIMEOUT_SECONDS"`

	AuthIssuer      string `mapstructure:"AUTH_ISSUER"`
	AuthAudience    string `mapstructure:"AUTH_AUDIENCE"`
	AuthHS256Secret string `mapstructure:"AUTH_HS256_SECRET"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("INBOUND_MAX_IN_FLIGHT", 50)
	v.SetDefault("GATEWAY_TIMEOUT_SECONDS", 120)
	v.SetDefault("KAFKA_RESULT_TOPIC", "exchange-results")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("HOME_COMMUNITY_ID")
	v.BindEnv("ORGANIZATION_NAME")
	v.BindEnv("PD_BACKEND_URL")
	v.BindEnv("DQ_BACKEND_URL")
	v.BindEnv("DR_BACKEND_URL")
	v.BindEnv("PD_RESULT_URL")
	v.BindEnv("DQ_RESULT_URL")
	v.BindEnv("DR_RESULT_URL")
	v.BindEnv("AWS_REGION")
	v.BindEnv("MEDICAL_DOCUMENTS_BUCKET")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("KAFKA_BROKERS")
	v.BindEnv("KAFKA_RESULT_TOPIC")
	v.BindEnv("INBOUND_MAX_IN_FLIGHT")
	v.BindEnv("GATEWAY_TIMEOUT_SECONDS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_HS256_SECRET")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.KafkaBrokers == nil {
		brokers := v.GetString("KAFKA_BROKERS")
		if brokers != "" {
			cfg.KafkaBrokers = strings.Split(brokers, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the bridge cannot run without. Optional
// collaborators (database, kafka, S3) are validated where they are wired.
func (c *Config) Validate() error {
	if c.HomeCommunityID == "" {
		return fmt.Errorf("HOME_COMMUNITY_ID is required")
	}
	if c.OrganizationName == "" {
		return fmt.Errorf("ORGANIZATION_NAME is required")
	}
	if c.InboundMaxInFlight < 0 {
		return fmt.Errorf("INBOUND_MAX_IN_FLIGHT must not be negative")
	}
	if c.GatewayTimeoutSeconds <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
