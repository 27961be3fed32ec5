package maze

import "time"

// Config is the unified configuration file
type Config struct {
	Transport TransportConfig `yaml:"transport" json:"transport"`
	Grid      GridConfig      `yaml:"grid" json:"grid"`
	Mode      ModeConfig      `yaml:"mode" json:"mode"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Commands  CommandConfig   `yaml:"commands" json:"commands"`
	HTTP      HTTPConfig      `yaml:"http" json:"http"`
}

// TransportConfig selects and configures the telemetry channel
type TransportConfig struct {
	Kind      string          `yaml:"kind" json:"kind"` // ssh, mqtt, file, websocket or stdin
	SSH       SSHConfig       `yaml:"ssh,omitempty" json:"ssh,omitempty"`
	MQTT      MQTTConfig      `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
	File      FileConfig      `yaml:"file,omitempty" json:"file,omitempty"`
	WebSocket WebSocketConfig `yaml:"websocket,omitempty" json:"websocket,omitempty"`
}

// SSHConfig holds the remote controller's pipe locations
type SSHConfig struct {
	Host                  string `yaml:"host" json:"host"`
	Port                  int    `yaml:"port,omitempty" json:"port,omitempty"`
	User                  string `yaml:"user" json:"user"`
	KeyFile               string `yaml:"keyFile,omitempty" json:"keyFile,omitempty"`
	Password              string `yaml:"password,omitempty" json:"password,omitempty"`
	TelemetryPath         string `yaml:"telemetryPath" json:"telemetryPath"`
	CommandPath           string `yaml:"commandPath" json:"commandPath"`
	KnownHostsFile        string `yaml:"knownHostsFile,omitempty" json:"knownHostsFile,omitempty"`
	InsecureIgnoreHostKey bool   `yaml:"insecureIgnoreHostKey,omitempty" json:"insecureIgnoreHostKey,omitempty"`
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker         string `yaml:"broker" json:"broker"`
	ClientID       string `yaml:"clientId" json:"clientId"`
	Username       string `yaml:"username,omitempty" json:"username,omitempty"`
	Password       string `yaml:"password,omitempty" json:"password,omitempty"`
	TelemetryTopic string `yaml:"telemetryTopic" json:"telemetryTopic"`
	CommandTopic   string `yaml:"commandTopic" json:"commandTopic"`
	PublishPrefix  string `yaml:"publishPrefix" json:"publishPrefix"`
}

// FileConfig tails a local telemetry file
type FileConfig struct {
	Path         string        `yaml:"path" json:"path"`
	CommandPath  string        `yaml:"commandPath,omitempty" json:"commandPath,omitempty"`
	PollInterval time.Duration `yaml:"pollInterval,omitempty" json:"pollInterval,omitempty"`
}

// WebSocketConfig dials a controller websocket
type WebSocketConfig struct {
	URL string `yaml:"url" json:"url"`
}

// GridConfig sets the board and the starting pose
type GridConfig struct {
	Size           int       `yaml:"size" json:"size"`
	StartX         int       `yaml:"startX" json:"startX"`
	StartY         int       `yaml:"startY" json:"startY"`
	StartDirection Direction `yaml:"startDirection" json:"startDirection"`
}

// TelemetryConfig tunes line classification
type TelemetryConfig struct {
	Root           string   `yaml:"root" json:"root"`
	TerminateToken string   `yaml:"terminateToken" json:"terminateToken"`
	StatusPrefixes []string `yaml:"statusPrefixes,omitempty" json:"statusPrefixes,omitempty"`
}

// CommandConfig paces outbound commands
type CommandConfig struct {
	RatePerSecond float64 `yaml:"ratePerSecond" json:"ratePerSecond"`
	Burst         int     `yaml:"burst" json:"burst"`
	Handshake     bool    `yaml:"handshake" json:"handshake"`
}

// HTTPConfig configures the view server
type HTTPConfig struct {
	Port int `yaml:"port" json:"port"`
}

// Transport kinds
const (
	TransportSSH       = "ssh"
	TransportMQTT      = "mqtt"
	TransportFile      = "file"
	TransportWebSocket = "websocket"
	TransportStdin     = "stdin"
)

// Default paths on the robot controller
const (
	DefaultTelemetryPath = "/root/LegoRobotOutputFile/backend_sending_node_data"
	DefaultCommandPath   = "/root/LegoRobotOutputFile/frontend_sending_command"
)

// DefaultConfig returns a config with every default filled in
func DefaultConfig() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero values
func (c *Config) ApplyDefaults() {
	if c.Transport.Kind == "" {
		c.Transport.Kind = TransportSSH
	}
	if c.Transport.SSH.Port == 0 {
		c.Transport.SSH.Port = 22
	}
	if c.Transport.SSH.User == "" {
		c.Transport.SSH.User = "root"
	}
	if c.Transport.SSH.TelemetryPath == "" {
		c.Transport.SSH.TelemetryPath = DefaultTelemetryPath
	}
	if c.Transport.SSH.CommandPath == "" {
		c.Transport.SSH.CommandPath = DefaultCommandPath
	}
	if c.Transport.MQTT.ClientID == "" {
		c.Transport.MQTT.ClientID = "mazetrack"
	}
	if c.Transport.MQTT.TelemetryTopic == "" {
		c.Transport.MQTT.TelemetryTopic = "maze/telemetry"
	}
	if c.Transport.MQTT.CommandTopic == "" {
		c.Transport.MQTT.CommandTopic = "maze/command"
	}
	if c.Transport.MQTT.PublishPrefix == "" {
		c.Transport.MQTT.PublishPrefix = "mazetrack"
	}
	if c.Transport.File.PollInterval == 0 {
		c.Transport.File.PollInterval = 100 * time.Millisecond
	}
	if c.Grid.Size == 0 {
		c.Grid.Size = DefaultGridSize
		if c.Grid.StartX == 0 && c.Grid.StartY == 0 {
			c.Grid.StartX, c.Grid.StartY = DefaultGridSize/2, DefaultGridSize/2
		}
	}
	def := DefaultModeConfig()
	if c.Mode.Initial == "" {
		c.Mode.Initial = def.Initial
	}
	if c.Mode.AutoTurn == "" {
		c.Mode.AutoTurn = def.AutoTurn
	}
	if c.Mode.ManualTurn == "" {
		c.Mode.ManualTurn = def.ManualTurn
	}
	if c.Telemetry.Root == "" {
		c.Telemetry.Root = DefaultRoot
	}
	if c.Telemetry.TerminateToken == "" {
		c.Telemetry.TerminateToken = DefaultTerminateToken
	}
	if c.Telemetry.StatusPrefixes == nil {
		c.Telemetry.StatusPrefixes = append([]string(nil), DefaultStatusPrefixes...)
	}
	if c.Commands.RatePerSecond == 0 {
		c.Commands.RatePerSecond = 5
	}
	if c.Commands.Burst == 0 {
		c.Commands.Burst = 2
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
}

// SessionConfig derives the session settings
func (c *Config) SessionConfig() SessionConfig {
	return SessionConfig{
		GridSize: c.Grid.Size,
		Start:    Pose{X: c.Grid.StartX, Y: c.Grid.StartY, Dir: c.Grid.StartDirection},
		Mode:     c.Mode,
		Ingest: IngestOptions{
			TerminateToken: c.Telemetry.TerminateToken,
			StatusPrefixes: c.Telemetry.StatusPrefixes,
		},
		Root:      c.Telemetry.Root,
		Handshake: c.Commands.Handshake,
	}
}
