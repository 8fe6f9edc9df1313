package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"StepFuse/pkg/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validYAML = `
environment: test
server:
  port: 8080
feed:
  type: mock
  mock:
    rate_hz: 50
    step_hz: 2.0
kafka:
  enabled: false
redis:
  enabled: false
engine:
  sensitivity: 0.5
`

func TestLoadValidConfig(t *testing.T) {
	c, err := config.Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	require.Equal(t, "test", c.Environment)
	require.Equal(t, 8080, c.Server.Port)
	require.Equal(t, "mock", c.Feed.Type)
	require.Equal(t, 50.0, c.Feed.Mock.RateHz)
	require.Equal(t, 0.5, c.Engine.Sensitivity)
}

func TestLoadMissingEnvironment(t *testing.T) {
	_, err := config.Load(writeConfig(t, "feed:\n  type: mock\n"))
	require.ErrorContains(t, err, "environment is required")
}

func TestLoadUnknownFeedType(t *testing.T) {
	_, err := config.Load(writeConfig(t, "environment: test\nfeed:\n  type: carrier-pigeon\n"))
	require.ErrorContains(t, err, "feed.type")
}

func TestLoadWebSocketFeedNeedsURL(t *testing.T) {
	_, err := config.Load(writeConfig(t, "environment: test\nfeed:\n  type: websocket\n"))
	require.ErrorContains(t, err, "feed.websocket.url")
}

func TestLoadKafkaEnabledNeedsBrokers(t *testing.T) {
	body := "environment: test\nfeed:\n  type: mock\nkafka:\n  enabled: true\n"
	_, err := config.Load(writeConfig(t, body))
	require.ErrorContains(t, err, "kafka.brokers")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("FEED_TYPE", "mock")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	t.Setenv("REDIS_HOST", "cache.internal")

	c, err := config.LoadWithEnv(writeConfig(t, validYAML))
	require.NoError(t, err)
	require.Equal(t, "mock", c.Feed.Type)
	require.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, c.Kafka.Brokers)
	require.Equal(t, "cache.internal", c.Redis.Host)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
