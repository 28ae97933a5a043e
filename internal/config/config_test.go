package config

import "testing"

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			HomeCommunityID:       "2.16.840.1.113883.3.9999",
			OrganizationName:      "Example Health",
			InboundMaxInFlight:    50,
			GatewayTimeoutSeconds: 120,
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	noHome := base()
	noHome.HomeCommunityID = ""
	if err := noHome.Validate(); err == nil {
		t.Error("missing HOME_COMMUNITY_ID should fail validation")
	}

	noOrg := base()
	noOrg.OrganizationName = ""
	if err := noOrg.Validate(); err == nil {
		t.Error("missing ORGANIZATION_NAME should fail validation")
	}

	badTimeout := base()
	badTimeout.GatewayTimeoutSeconds = 0
	if err := badTimeout.Validate(); err == nil {
		t.Error("zero gateway timeout should fail validation")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HOME_COMMUNITY_ID", "1.2.3")
	t.Setenv("ORGANIZATION_NAME", "Test Org")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	t.Setenv("INBOUND_MAX_IN_FLIGHT", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HomeCommunityID != "1.2.3" {
		t.Errorf("home community = %q", cfg.HomeCommunityID)
	}
	if cfg.Port != "8080" {
		t.Errorf("default port = %q", cfg.Port)
	}
	if cfg.InboundMaxInFlight != 7 {
		t.Errorf("max in flight = %d", cfg.InboundMaxInFlight)
	}
	if len(cfg.KafkaBrokers) != 2 {
		t.Errorf("kafka brokers = %v", cfg.KafkaBrokers)
	}
}
