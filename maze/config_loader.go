package maze

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the unified configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	config.ApplyDefaults()
	ApplyEnvOverrides(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ApplyEnvOverrides lets MQTT_* and MAZETRACK_SSH_HOST take precedence over the file
func ApplyEnvOverrides(config *Config) {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&config.Transport.MQTT.Broker, "MQTT_BROKER")
	override(&config.Transport.MQTT.ClientID, "MQTT_CLIENT_ID")
	override(&config.Transport.MQTT.Username, "MQTT_USERNAME")
	override(&config.Transport.MQTT.Password, "MQTT_PASSWORD")
	override(&config.Transport.MQTT.PublishPrefix, "MQTT_PUBLISH_PREFIX")
	override(&config.Transport.SSH.Host, "MAZETRACK_SSH_HOST")
}

// Validate checks required fields for the selected transport and the grid
func (c *Config) Validate() error {
	switch c.Transport.Kind {
	case TransportSSH:
		if c.Transport.SSH.Host == "" {
			return fmt.Errorf("transport.ssh.host is required")
		}
		if c.Transport.SSH.KeyFile == "" && c.Transport.SSH.Password == "" {
			return fmt.Errorf("transport.ssh needs keyFile or password")
		}
	case TransportMQTT:
		if c.Transport.MQTT.Broker == "" {
			return fmt.Errorf("transport.mqtt.broker is required")
		}
	case TransportFile:
		if c.Transport.File.Path == "" {
			return fmt.Errorf("transport.file.path is required")
		}
	case TransportWebSocket:
		if c.Transport.WebSocket.URL == "" {
			return fmt.Errorf("transport.websocket.url is required")
		}
	case TransportStdin:
	default:
		return fmt.Errorf("unknown transport kind %q", c.Transport.Kind)
	}

	return c.ValidateGrid()
}

// ValidateGrid checks the board, the start pose and the turn policies
func (c *Config) ValidateGrid() error {
	if c.Grid.Size < 1 {
		return fmt.Errorf("grid.size must be positive, got %d", c.Grid.Size)
	}
	if c.Grid.StartX < 0 || c.Grid.StartX >= c.Grid.Size || c.Grid.StartY < 0 || c.Grid.StartY >= c.Grid.Size {
		return fmt.Errorf("grid start (%d, %d) is outside the %dx%d grid", c.Grid.StartX, c.Grid.StartY, c.Grid.Size, c.Grid.Size)
	}
	m, err := ParseMode(string(c.Mode.Initial))
	if err != nil {
		return fmt.Errorf("mode.initial: %w", err)
	}
	c.Mode.Initial = m
	if !c.Mode.AutoTurn.Valid() {
		return fmt.Errorf("mode.autoTurn must be rotate or fused, got %q", c.Mode.AutoTurn)
	}
	if !c.Mode.ManualTurn.Valid() {
		return fmt.Errorf("mode.manualTurn must be rotate or fused, got %q", c.Mode.ManualTurn)
	}
	return nil
}
