package maze

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// NewMQTTClient builds a paho client for cfg. It does not connect.
func NewMQTTClient(cfg MQTTConfig, onConnect mqtt.OnConnectHandler) mqtt.Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "mazetrack"
	}
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	// Connection settings
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false)
	opts.SetOrderMatters(true) // telemetry lines must stay in order

	if onConnect != nil {
		opts.SetOnConnectHandler(onConnect)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("[MQTT] Connection interrupted (%v), auto-reconnect will retry", err)
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		log.Println("[MQTT] Reconnecting...")
	})

	return mqtt.NewClient(opts)
}

// ConnectMQTT connects client, retrying with exponential backoff until ctx is done
func ConnectMQTT(ctx context.Context, client mqtt.Client) error {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("[MQTT] Connecting to broker...")

		token := client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("[MQTT] Connected to broker")
				return nil
			}
			log.Printf("[MQTT] Connection failed: %v", token.Error())
		} else {
			log.Println("[MQTT] Connection timeout")
		}

		log.Printf("[MQTT] Retrying connection in %v...", retryDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// MQTTTransport receives telemetry payloads on one topic and publishes
// commands on another
type MQTTTransport struct {
	client   mqtt.Client
	cfg      MQTTConfig
	token    string
	payloads chan []byte

	mu         sync.Mutex
	subscribed bool
}

// NewMQTTTransport creates the paho client; Stream connects it
func NewMQTTTransport(cfg MQTTConfig, token string) (*MQTTTransport, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt transport needs a broker")
	}
	t := newMQTTTransport(nil, cfg, token)
	t.client = NewMQTTClient(cfg, func(c mqtt.Client) {
		// resubscribe after every reconnect
		t.setSubscribed(false)
		if err := t.subscribe(c); err != nil {
			log.Printf("[MQTT] %v", err)
		}
	})
	return t, nil
}

// newMQTTTransport wraps an existing client; tests pass a mock here
func newMQTTTransport(client mqtt.Client, cfg MQTTConfig, token string) *MQTTTransport {
	if token == "" {
		token = DefaultTerminateToken
	}
	return &MQTTTransport{
		client:   client,
		cfg:      cfg,
		token:    token,
		payloads: make(chan []byte, 256),
	}
}

// Client exposes the connection so the state publisher can share it
func (t *MQTTTransport) Client() mqtt.Client { return t.client }

func (t *MQTTTransport) setSubscribed(v bool) {
	t.mu.Lock()
	t.subscribed = v
	t.mu.Unlock()
}

func (t *MQTTTransport) subscribe(c mqtt.Client) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.subscribed {
		return nil
	}
	log.Printf("[MQTT] Subscribing to %s", t.cfg.TelemetryTopic)
	token := c.Subscribe(t.cfg.TelemetryTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		payload := append([]byte(nil), msg.Payload()...)
		select {
		case t.payloads <- payload:
		default:
			log.Printf("[MQTT] Telemetry backlog full, dropping %d bytes", len(payload))
		}
	})
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		return fmt.Errorf("subscribing to %s: %w", t.cfg.TelemetryTopic, token.Error())
	}
	t.subscribed = true
	return nil
}

// Stream connects, subscribes and forwards every line of every payload
func (t *MQTTTransport) Stream(ctx context.Context, out chan<- string) error {
	if !t.client.IsConnected() {
		if err := ConnectMQTT(ctx, t.client); err != nil {
			return err
		}
	}
	if err := t.subscribe(t.client); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-t.payloads:
			ok, terminated := emitPayload(ctx, out, payload, t.token)
			if !ok {
				return ctx.Err()
			}
			if terminated {
				return nil
			}
		}
	}
}

// Send publishes cmd on the command topic
func (t *MQTTTransport) Send(ctx context.Context, cmd string) error {
	if !t.client.IsConnected() {
		countCommand(TransportMQTT, mqtt.ErrNotConnected)
		return fmt.Errorf("mqtt send: %w", mqtt.ErrNotConnected)
	}
	token := t.client.Publish(t.cfg.CommandTopic, 1, false, []byte(cmd))
	var err error
	select {
	case <-token.Done():
		err = token.Error()
	case <-ctx.Done():
		err = ctx.Err()
	}
	countCommand(TransportMQTT, err)
	if err != nil {
		return fmt.Errorf("mqtt send: %w", err)
	}
	return nil
}

// Terminate publishes the token on the telemetry topic so every reader stops
func (t *MQTTTransport) Terminate(ctx context.Context) error {
	if !t.client.IsConnected() {
		return fmt.Errorf("mqtt terminate: %w", mqtt.ErrNotConnected)
	}
	token := t.client.Publish(t.cfg.TelemetryTopic, 1, false, []byte(t.token))
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker
func (t *MQTTTransport) Close() error {
	if t.client != nil && t.client.IsConnected() {
		log.Println("[MQTT] Disconnecting from broker...")
		t.client.Disconnect(250)
	}
	return nil
}
