package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shl-go/shl/logging"
	"github.com/shl-go/shl/mqtt"
)

// appConfig is the YAML configuration of the shl2mqtt gateway.
type appConfig struct {
	Bridge  bridgeConfig   `yaml:"bridge"`
	MQTT    mqtt.Config    `yaml:"mqtt"`
	Logging logging.Config `yaml:"logging"`
}

type bridgeConfig struct {
	// Host is the bridge address: ip, ip:port, or a full ws:// URL.
	Host string `yaml:"host"`

	// AuthKey is the shared secret provisioned on the bridge.
	AuthKey string `yaml:"auth_key"`

	// ReconnectSeconds overrides the pause between reconnect
	// attempts. Zero keeps the default.
	ReconnectSeconds int `yaml:"reconnect_seconds"`
}

func (c bridgeConfig) reconnectDelay() time.Duration {
	return time.Duration(c.ReconnectSeconds) * time.Second
}

// loadConfig reads and validates the YAML configuration file.
func loadConfig(path string) (appConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return appConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg appConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return appConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Bridge.Host == "" {
		return appConfig{}, fmt.Errorf("config: bridge.host is required")
	}
	if cfg.Bridge.AuthKey == "" {
		return appConfig{}, fmt.Errorf("config: bridge.auth_key is required")
	}
	if cfg.MQTT.Host == "" {
		return appConfig{}, fmt.Errorf("config: mqtt.host is required")
	}
	if cfg.MQTT.Port == 0 {
		cfg.MQTT.Port = 1883
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "shl2mqtt"
	}
	return cfg, nil
}
