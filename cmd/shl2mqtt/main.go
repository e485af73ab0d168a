// shl2mqtt is a gateway that connects to a home-automation bridge via
// the shl client library and republishes its devices, sensors, and
// heated rooms onto an MQTT broker, accepting commands back over
// command topics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	shl "github.com/shl-go/shl"
	"github.com/shl-go/shl/logging"
	"github.com/shl-go/shl/mqtt"
)

// Version information, set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

const defaultConfigPath = "configs/shl2mqtt.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run holds the application logic, separated from main so shutdown
// paths and exit codes stay testable.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting shl2mqtt", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	var opts []shl.Option
	opts = append(opts, shl.WithLogger(log.With("component", "bridge")))
	if delay := cfg.Bridge.reconnectDelay(); delay > 0 {
		opts = append(opts, shl.WithReconnectDelay(delay))
	}
	bridge := shl.New(cfg.Bridge.Host, cfg.Bridge.AuthKey, opts...)

	runErr := make(chan error, 1)
	go func() { runErr <- bridge.Run(ctx) }()
	defer bridge.Close()

	log.Info("waiting for bridge catalogue", "host", cfg.Bridge.Host)
	if err := bridge.WaitForInitialization(ctx); err != nil {
		return fmt.Errorf("bridge initialization: %w", err)
	}
	log.Info("bridge ready")

	mqttClient, err := mqtt.Connect(cfg.MQTT, log.With("component", "mqtt"))
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
		"client_id", cfg.MQTT.ClientID,
	)

	republisher := mqtt.NewRepublisher(bridge, mqttClient, log.With("component", "republisher"))
	if err := republisher.Run(ctx); err != nil {
		return fmt.Errorf("republisher: %w", err)
	}

	bridge.Close()
	if err := <-runErr; err != nil {
		return fmt.Errorf("bridge run: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

// getConfigPath returns the configuration file path, preferring the
// SHL2MQTT_CONFIG environment variable over the default.
func getConfigPath() string {
	if path := os.Getenv("SHL2MQTT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
