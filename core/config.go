package core

import (
	"fmt"
	"strings"
)

type DispatchConfig struct {
	// TimeoutMS bounds one outbound HTTP delivery. The in-flight request is
	// cancelled when the budget is exceeded, not merely abandoned.
	TimeoutMS int `koanf:"timeout_ms" mapstructure:"timeout_ms"`
	// Origin is the fixed company location string stamped on every payload.
	Origin string `koanf:"origin" mapstructure:"origin"`
}

type RetentionConfig struct {
	// MaxDeliveryLogs caps total retained delivery attempt rows; oldest rows
	// are evicted on every append once the cap is exceeded.
	MaxDeliveryLogs int `koanf:"max_delivery_logs" mapstructure:"max_delivery_logs"`
}

type RenderConfig struct {
	CurrencyPrefix string `koanf:"currency_prefix" mapstructure:"currency_prefix"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	Dispatch    DispatchConfig  `koanf:"dispatch" mapstructure:"dispatch"`
	Retention   RetentionConfig `koanf:"retention" mapstructure:"retention"`
	Render      RenderConfig    `koanf:"render" mapstructure:"render"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "cargo-notify",
		Dispatch: DispatchConfig{
			TimeoutMS: 5000,
		},
		Retention: RetentionConfig{
			MaxDeliveryLogs: 500,
		},
		Render: RenderConfig{
			CurrencyPrefix: "R$",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Dispatch.TimeoutMS <= 0 {
		return fmt.Errorf("core: dispatch.timeout_ms must be greater than zero")
	}
	if c.Retention.MaxDeliveryLogs <= 0 {
		return fmt.Errorf("core: retention.max_delivery_logs must be greater than zero")
	}
	return nil
}
