package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/skynet-core/internal/infrastructure/config"
)

// freePort asks the kernel for an unused TCP port.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// startBroker spins up an in-process MQTT broker and returns a client
// configuration pointing at it.
func startBroker(t *testing.T) config.MQTTConfig {
	t.Helper()
	port := freePort(t)

	broker := mochi.New(&mochi.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, broker.AddHook(&auth.AllowHook{}, nil))
	require.NoError(t, broker.AddListener(listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		ID:      "skynet-test",
		Address: fmt.Sprintf("127.0.0.1:%d", port),
	})))
	require.NoError(t, broker.Serve())
	t.Cleanup(func() { _ = broker.Close() })

	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     port,
			ClientID: "skynet-test-" + strings.ReplaceAll(t.Name(), "/", "-"),
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func connect(t *testing.T, cfg config.MQTTConfig) *Client {
	t.Helper()
	client, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// received is one delivered message.
type received struct {
	topic   string
	payload string
}

func collect(ch chan<- received) MessageHandler {
	return func(topic string, payload []byte) error {
		ch <- received{topic, string(payload)}
		return nil
	}
}

func waitFor(t *testing.T, ch <-chan received) received {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return received{}
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	client := connect(t, startBroker(t))
	require.True(t, client.IsConnected())
	require.NoError(t, client.HealthCheck(context.Background()))
}

func TestConnectInvalidBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the connect timeout")
	}
	cfg := startBroker(t)
	cfg.Broker.Port = freePort(t)

	_, err := Connect(cfg)
	require.ErrorIs(t, err, ErrConnectionFailed)
}

func TestClose(t *testing.T) {
	client, err := Connect(startBroker(t))
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.False(t, client.IsConnected())
	require.ErrorIs(t, client.HealthCheck(context.Background()), ErrNotConnected)
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	require.NoError(t, client.Close())
	require.False(t, client.IsConnected())
}

func TestHealthCheckCancelled(t *testing.T) {
	client := connect(t, startBroker(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, client.HealthCheck(ctx), context.Canceled)
}

func TestOnlineStatusIsRetained(t *testing.T) {
	cfg := startBroker(t)
	connect(t, cfg)

	watcherCfg := cfg
	watcherCfg.Broker.ClientID += "-watcher"
	watcher := connect(t, watcherCfg)

	ch := make(chan received, 4)
	require.NoError(t, watcher.Subscribe(TopicStatus, 1, collect(ch)))

	// Both clients publish a retained status; wait for the first client's.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-ch:
			var status statusPayload
			require.NoError(t, json.Unmarshal([]byte(msg.payload), &status))
			if status.ClientID == cfg.Broker.ClientID {
				require.Equal(t, statusOnline, status.Status)
				return
			}
		case <-deadline:
			t.Fatal("no retained online status received")
		}
	}
}

// =============================================================================
// Publish / Subscribe Tests
// =============================================================================

func TestPublishSubscribeRoundTrip(t *testing.T) {
	client := connect(t, startBroker(t))

	ch := make(chan received, 1)
	require.NoError(t, client.Subscribe("sensors/#", 0, collect(ch)))
	require.NoError(t, client.Subscribe("alarms/#", 0, collect(ch)))
	require.Equal(t, []string{"alarms/#", "sensors/#"}, client.Stats().Subscriptions)

	require.NoError(t, client.Publish("sensors/temperature/kitchen", []byte("time=1000,temp=21.5"), 0, false))

	msg := waitFor(t, ch)
	require.Equal(t, "sensors/temperature/kitchen", msg.topic)
	require.Equal(t, "time=1000,temp=21.5", msg.payload)
}

func TestPublishAsync(t *testing.T) {
	client := connect(t, startBroker(t))

	ch := make(chan received, 1)
	require.NoError(t, client.Subscribe("alarms/+/+", 0, collect(ch)))

	require.NoError(t, client.PublishAsync("alarms/siren/frontdoor", []byte("high"), 0, false))

	msg := waitFor(t, ch)
	require.Equal(t, "alarms/siren/frontdoor", msg.topic)
	require.Equal(t, "high", msg.payload)

	require.Eventually(t, func() bool {
		return client.Stats().Published >= 1
	}, 5*time.Second, 10*time.Millisecond)
	require.GreaterOrEqual(t, client.Stats().Received, uint64(1))
}

func TestUnsubscribe(t *testing.T) {
	client := connect(t, startBroker(t))

	ch := make(chan received, 4)
	require.NoError(t, client.Subscribe("sensors/#", 1, collect(ch)))
	require.NoError(t, client.Unsubscribe("sensors/#"))
	require.Empty(t, client.Stats().Subscriptions)

	require.NoError(t, client.Publish("sensors/temperature/kitchen", []byte("time=1,temp=1"), 1, false))

	select {
	case msg := <-ch:
		t.Fatalf("received %v after Unsubscribe", msg)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestHandlerErrorsAreCounted(t *testing.T) {
	client := connect(t, startBroker(t))
	logger := &mockLogger{}
	client.SetLogger(logger)

	done := make(chan struct{}, 1)
	require.NoError(t, client.Subscribe("sensors/#", 1, func(string, []byte) error {
		defer func() { done <- struct{}{} }()
		return errors.New("malformed")
	}))
	require.NoError(t, client.Publish("sensors/temperature/kitchen", []byte("x"), 1, false))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called")
	}
	require.Eventually(t, func() bool {
		return client.Stats().HandlerErrors == 1 && logger.warnCount() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

// =============================================================================
// Validation Tests (no broker needed)
// =============================================================================

func TestPublishValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{name: "empty topic", topic: "", qos: 0, wantErr: ErrInvalidTopic},
		{name: "wildcard topic", topic: "alarms/#", qos: 0, wantErr: ErrInvalidTopic},
		{name: "qos too high", topic: "alarms", qos: 3, wantErr: ErrInvalidQoS},
		{name: "payload too large", topic: "alarms", payload: make([]byte, maxPayloadSize+1), wantErr: ErrPublishFailed},
		{name: "not connected", topic: "alarms", payload: []byte("hello"), wantErr: ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, client.Publish(tt.topic, tt.payload, tt.qos, false), tt.wantErr)
			require.ErrorIs(t, client.PublishAsync(tt.topic, tt.payload, tt.qos, false), tt.wantErr)
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}
	noop := func(string, []byte) error { return nil }

	require.ErrorIs(t, client.Subscribe("", 0, noop), ErrInvalidTopic)
	require.ErrorIs(t, client.Subscribe("sensors/#", 3, noop), ErrInvalidQoS)
	require.ErrorIs(t, client.Subscribe("sensors/#", 0, nil), ErrSubscribeFailed)
	require.ErrorIs(t, client.Subscribe("sensors/#", 0, noop), ErrNotConnected)
	require.ErrorIs(t, client.Unsubscribe(""), ErrInvalidTopic)
	require.ErrorIs(t, client.Unsubscribe("sensors/#"), ErrNotConnected)
}

// =============================================================================
// Handler Wrapping Tests
// =============================================================================

// mockMessage implements pahomqtt.Message.
type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 0 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

// mockLogger records log calls.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *mockLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func TestWrapHandlerRecoversPanic(t *testing.T) {
	client := &Client{}
	logger := &mockLogger{}
	client.SetLogger(logger)

	wrapped := client.wrapHandler(func(string, []byte) error { panic("boom") })
	require.NotPanics(t, func() {
		wrapped(nil, &mockMessage{topic: "sensors/temperature/kitchen"})
	})

	require.Len(t, logger.errors, 1)
	require.Equal(t, uint64(1), client.Stats().HandlerErrors)
	require.Equal(t, uint64(1), client.Stats().Received)
}

func TestWrapHandlerWithoutLogger(t *testing.T) {
	client := &Client{}
	wrapped := client.wrapHandler(func(string, []byte) error { return errors.New("ignored") })
	require.NotPanics(t, func() {
		wrapped(nil, &mockMessage{topic: "alarms"})
	})
}

func TestWrapHandlerPassesMessage(t *testing.T) {
	client := &Client{}
	var gotTopic, gotPayload string
	wrapped := client.wrapHandler(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, string(payload)
		return nil
	})

	wrapped(nil, &mockMessage{topic: "alarms/siren/frontdoor", payload: []byte("online")})

	require.Equal(t, "alarms/siren/frontdoor", gotTopic)
	require.Equal(t, "online", gotPayload)
}

// =============================================================================
// Options Tests
// =============================================================================

func TestBrokerURL(t *testing.T) {
	cfg := config.MQTTConfig{Broker: config.MQTTBrokerConfig{Host: "broker.local", Port: 1883}}
	require.Equal(t, "tcp://broker.local:1883", brokerURL(cfg))

	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	require.Equal(t, "ssl://broker.local:8883", brokerURL(cfg))
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker:    config.MQTTBrokerConfig{Host: "127.0.0.1", Port: 1883, ClientID: "skynet-core", TLS: true},
		Auth:      config.MQTTAuthConfig{Username: "skynet", Password: "secret"},
		Reconnect: config.MQTTReconnectConfig{InitialDelay: 2, MaxDelay: 30},
	}
	opts := buildClientOptions(cfg)

	require.Equal(t, "skynet-core", opts.ClientID)
	require.Equal(t, "skynet", opts.Username)
	require.True(t, opts.CleanSession)
	require.True(t, opts.AutoReconnect)
	require.True(t, opts.Order)
	require.Equal(t, 30*time.Second, opts.MaxReconnectInterval)
	require.NotNil(t, opts.TLSConfig)
	require.Len(t, opts.Servers, 1)
	require.Equal(t, "ssl://127.0.0.1:1883", opts.Servers[0].String())
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(config.MQTTConfig{Broker: config.MQTTBrokerConfig{ClientID: "skynet-core"}})
	configureLWT(opts, "skynet-core")

	require.True(t, opts.WillEnabled)
	require.Equal(t, TopicStatus, opts.WillTopic)
	require.True(t, opts.WillRetained)

	var status statusPayload
	require.NoError(t, json.Unmarshal(opts.WillPayload, &status))
	require.Equal(t, statusOffline, status.Status)
	require.Equal(t, reasonUnexpected, status.Reason)
	require.Equal(t, "skynet-core", status.ClientID)
}

func TestBuildStatusPayload(t *testing.T) {
	var status statusPayload
	require.NoError(t, json.Unmarshal(buildStatusPayload("c1", statusOnline, ""), &status))
	require.Equal(t, statusOnline, status.Status)
	require.Empty(t, status.Reason)

	_, err := time.Parse(time.RFC3339, status.Timestamp)
	require.NoError(t, err)
}
