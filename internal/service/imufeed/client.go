package imufeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"StepFuse/internal/domain/models"
	drepo "StepFuse/internal/domain/repository"
)

// Client implements a SensorStream backed by an IMU bridge WebSocket.
type Client struct {
	websocketURL   string
	deviceID       string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a WebSocket-backed SensorStream.
func New(websocketURL, deviceID string, reconnectDelay, pingInterval time.Duration) drepo.SensorStream {
	return &Client{
		websocketURL:   websocketURL,
		deviceID:       deviceID,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("imufeed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("imufeed: connected")
	return nil
}

// Subscribe asks the bridge for the accelerometer channel of one device.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("imufeed not connected")
	}
	msg := map[string]string{"type": "subscribe", "channel": "accelerometer", "device": c.deviceID}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe accelerometer: %w", err)
	}
	log.Printf("imufeed: subscribed device %s", c.deviceID)
	return nil
}

type wsSample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	T int64   `json:"t"` // ms
}

type wsMessage struct {
	Type string     `json:"type"`
	Data []wsSample `json:"data"`
}

// Read streams accelerometer samples and errors.
func (c *Client) Read(ctx context.Context) (<-chan models.Sample, <-chan error) {
	samples := make(chan models.Sample, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(samples)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("imufeed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("imufeed read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-sample frames
					continue
				}
				if m.Type != "imu" {
					continue
				}
				for _, d := range m.Data {
					s := models.NewSample(d.X, d.Y, d.Z, time.UnixMilli(d.T))
					select {
					case samples <- s:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return samples, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
