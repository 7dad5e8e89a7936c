package rover

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// TelemetryHandler receives every telemetry record from the broker. Exactly
// one of t and err is non-nil.
type TelemetryHandler func(t *Telemetry, err error)

// TelemetryClient subscribes to the simulator's telemetry topic and hands
// decoded records to a TelemetryHandler.
type TelemetryClient struct {
	client      mqtt.Client
	config      *Config
	handler     TelemetryHandler
	isConnected bool
	mu          sync.RWMutex
}

// envOr returns the environment variable key when set, otherwise fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// InitMQTT builds a TelemetryClient and starts connecting in the
// background. MQTT_BROKER, MQTT_CLIENT_ID, MQTT_USERNAME and MQTT_PASSWORD
// override the config values.
func InitMQTT(config *Config, handler TelemetryHandler) (*TelemetryClient, error) {
	if config == nil {
		return nil, fmt.Errorf("MQTT enabled but no configuration provided")
	}

	broker := envOr("MQTT_BROKER", config.MQTT.Broker)
	if broker == "" {
		return nil, fmt.Errorf("MQTT broker not configured")
	}
	if config.MQTT.TelemetryTopic == "" {
		return nil, fmt.Errorf("MQTT telemetry topic not configured")
	}

	c := &TelemetryClient{config: config, handler: handler}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(envOr("MQTT_CLIENT_ID", orDefault(config.MQTT.ClientID, "rovermesh")))

	if username := envOr("MQTT_USERNAME", config.MQTT.Username); username != "" {
		opts.SetUsername(username)
		opts.SetPassword(envOr("MQTT_PASSWORD", config.MQTT.Password))
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	// Ticks must reach the controller in the order the simulator sent them.
	opts.SetOrderMatters(true)

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.client = mqtt.NewClient(opts)
	go c.connectWithRetry()

	return c, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// connectWithRetry connects with exponential backoff capped at one minute.
func (c *TelemetryClient) connectWithRetry() {
	delay := time.Second
	const maxDelay = 60 * time.Second

	for {
		log.Println("[MQTT] Connecting to broker...")
		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("[MQTT] Connected")
				c.setConnected(true)
				return
			}
			log.Printf("[MQTT] Connection failed: %v", token.Error())
		} else {
			log.Println("[MQTT] Connection timeout")
		}

		log.Printf("[MQTT] Retrying in %v", delay)
		time.Sleep(delay)
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func (c *TelemetryClient) onConnect(client mqtt.Client) {
	c.setConnected(true)

	topic := c.config.MQTT.TelemetryTopic
	log.Printf("[MQTT] Subscribing to %s", topic)
	token := client.Subscribe(topic, c.config.MQTT.QoS, c.handleTelemetry)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("[MQTT] Error subscribing to %s: %v", topic, token.Error())
	}
}

func (c *TelemetryClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("[MQTT] Connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *TelemetryClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("[MQTT] Reconnecting...")
}

func (c *TelemetryClient) handleTelemetry(client mqtt.Client, msg mqtt.Message) {
	if c.handler == nil {
		return
	}
	t, err := DecodeTelemetry(msg.Payload())
	if err != nil {
		log.Printf("[MQTT] Dropping telemetry from %s (%d bytes): %v", msg.Topic(), len(msg.Payload()), err)
		c.handler(nil, err)
		return
	}
	c.handler(t, nil)
}

// IsConnected reports whether the broker session is up.
func (c *TelemetryClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *TelemetryClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect closes the broker session.
func (c *TelemetryClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("[MQTT] Disconnecting...")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// GetClient returns the underlying client so a CommandPublisher can share
// the session.
func (c *TelemetryClient) GetClient() mqtt.Client {
	return c.client
}

// newTelemetryClientWithMock wires a TelemetryClient to an existing
// mqtt.Client without connecting.
func newTelemetryClientWithMock(client mqtt.Client, config *Config, handler TelemetryHandler) *TelemetryClient {
	return &TelemetryClient{client: client, config: config, handler: handler}
}
