package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Feed struct {
		Type      string `yaml:"type"` // websocket | mqtt | mock
		WebSocket struct {
			URL            string        `yaml:"url"`
			DeviceID       string        `yaml:"device_id"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay"`
			PingInterval   time.Duration `yaml:"ping_interval"`
		} `yaml:"websocket"`
		MQTT struct {
			BrokerURL string `yaml:"broker_url"`
			ClientID  string `yaml:"client_id"`
			Topic     string `yaml:"topic"`
			QoS       int    `yaml:"qos"`
		} `yaml:"mqtt"`
		Mock struct {
			RateHz    float64 `yaml:"rate_hz"`
			StepHz    float64 `yaml:"step_hz"`
			Amplitude float64 `yaml:"amplitude"`
			Noise     float64 `yaml:"noise"`
		} `yaml:"mock"`
	} `yaml:"feed"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		StepTopic     string   `yaml:"step_topic"`
		StateTopic    string   `yaml:"state_topic"`
		HardwareTopic string   `yaml:"hardware_topic"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Engine struct {
		Sensitivity float64 `yaml:"sensitivity"`
	} `yaml:"engine"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FEED_TYPE"); v != "" {
		c.Feed.Type = v
	}
	if v := os.Getenv("IMU_WS_URL"); v != "" {
		c.Feed.WebSocket.URL = v
	}
	if v := os.Getenv("MQTT_BROKER_URL"); v != "" {
		c.Feed.MQTT.BrokerURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Feed.Type {
	case "websocket":
		if c.Feed.WebSocket.URL == "" {
			return fmt.Errorf("feed.websocket.url is required")
		}
	case "mqtt":
		if c.Feed.MQTT.BrokerURL == "" {
			return fmt.Errorf("feed.mqtt.broker_url is required")
		}
		if c.Feed.MQTT.Topic == "" {
			return fmt.Errorf("feed.mqtt.topic is required")
		}
	case "mock":
	default:
		return fmt.Errorf("feed.type must be 'websocket', 'mqtt' or 'mock', got '%s'", c.Feed.Type)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
