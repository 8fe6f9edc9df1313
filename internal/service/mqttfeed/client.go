package mqttfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"StepFuse/internal/domain/models"
	drepo "StepFuse/internal/domain/repository"
)

const disconnectQuiesceMs = 250

// Client implements a SensorStream backed by an MQTT broker, for devices
// that publish accelerometer readings over a local broker instead of a
// WebSocket bridge.
type Client struct {
	brokerURL string
	clientID  string
	topic     string
	qos       byte

	mu        sync.Mutex
	client    mqtt.Client
	samples   chan models.Sample
	errs      chan error
	connected bool
}

// New creates an MQTT-backed SensorStream subscribed to topic.
func New(brokerURL, clientID, topic string, qos byte) drepo.SensorStream {
	return &Client{
		brokerURL: brokerURL,
		clientID:  clientID,
		topic:     topic,
		qos:       qos,
		samples:   make(chan models.Sample, 1024),
		errs:      make(chan error, 1),
	}
}

var _ drepo.SensorStream = (*Client)(nil)

// Connect dials the broker. Auto-reconnect is left to the paho client.
func (c *Client) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.brokerURL).
		SetClientID(c.clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			select {
			case c.errs <- fmt.Errorf("mqttfeed connection lost: %w", err):
			default:
			}
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqttfeed connect: timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttfeed connect: %w", err)
	}

	c.mu.Lock()
	c.client = client
	c.connected = true
	c.mu.Unlock()
	return nil
}

type mqttSample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	T int64   `json:"t"` // ms
}

// Subscribe attaches the accelerometer topic handler.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return fmt.Errorf("mqttfeed not connected")
	}

	token := client.Subscribe(c.topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		var m mqttSample
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			return
		}
		at := time.UnixMilli(m.T)
		if m.T == 0 {
			at = time.Now()
		}
		select {
		case c.samples <- models.NewSample(m.X, m.Y, m.Z, at):
		default:
			// drop on backpressure
		}
	})
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqttfeed subscribe: timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttfeed subscribe %s: %w", c.topic, err)
	}
	return nil
}

// Read returns the sample and error channels. Channels stay open for the
// client's lifetime; the paho handler feeds them.
func (c *Client) Read(ctx context.Context) (<-chan models.Sample, <-chan error) {
	return c.samples, c.errs
}

// Reconnect is a no-op while paho's auto-reconnect is active; a dead client
// is redialed.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client != nil && client.IsConnected() {
		return nil
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close unsubscribes and disconnects.
func (c *Client) Close() error {
	c.mu.Lock()
	client := c.client
	c.connected = false
	c.mu.Unlock()
	if client != nil {
		_ = client.Unsubscribe(c.topic)
		client.Disconnect(disconnectQuiesceMs)
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return false
	}
	return c.connected && c.client.IsConnected()
}
