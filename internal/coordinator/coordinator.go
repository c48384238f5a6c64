package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/skynet-core/internal/automation"
	"github.com/nerrad567/skynet-core/internal/device"
	"github.com/nerrad567/skynet-core/internal/events"
	"github.com/nerrad567/skynet-core/internal/topic"
)

// DefaultHello is the payload published on the alarm discovery topic.
const DefaultHello = "hello"

// commandQoS is used for alarm commands: at most once, never retained.
const commandQoS byte = 0

// Gateway is the bus connection the coordinator publishes and subscribes
// through. Publish should hand the message off without waiting for the
// broker.
type Gateway interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(filter string, qos byte, handler func(topic string, payload []byte) error) error
	Unsubscribe(filter string) error
}

// Logger defines the logging interface used by the Coordinator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds coordinator settings. Zero values select the defaults.
type Config struct {
	// Codec maps topics to devices. Zero value means topic.Default.
	Codec topic.Codec

	// Parser decodes sensor payloads. Nil means device.DefaultParser.
	Parser device.ReadingParser

	// Hello is the discovery payload. Empty means DefaultHello.
	Hello string

	// QoS is used for subscriptions and the discovery message.
	QoS byte
}

// Coordinator routes inbound messages, keeps the alarm and trigger
// registry up to date and dispatches alarm commands.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - OnMessage calls are serialised in arrival order.
type Coordinator struct {
	gateway   Gateway
	codec     topic.Codec
	parser    device.ReadingParser
	hello     []byte
	qos       byte
	registry  *automation.Registry
	evaluator *automation.Evaluator
	notifier  *events.Notifier
	logger    Logger

	// procMu serialises message handling and Reset.
	procMu sync.Mutex

	runMu   sync.Mutex
	running bool
}

// New creates a coordinator. Nil registry or notifier are replaced with
// fresh ones.
func New(cfg Config, gateway Gateway, registry *automation.Registry, notifier *events.Notifier) *Coordinator {
	if registry == nil {
		registry = automation.NewRegistry()
	}
	if notifier == nil {
		notifier = events.NewNotifier()
	}

	codec := cfg.Codec
	if codec == (topic.Codec{}) {
		codec = topic.Default
	}
	parser := cfg.Parser
	if parser == nil {
		parser = device.DefaultParser
	}
	hello := cfg.Hello
	if hello == "" {
		hello = DefaultHello
	}

	return &Coordinator{
		gateway:   gateway,
		codec:     codec,
		parser:    parser,
		hello:     []byte(hello),
		qos:       cfg.QoS,
		registry:  registry,
		evaluator: automation.NewEvaluator(registry),
		notifier:  notifier,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the coordinator and its evaluator.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
	c.evaluator.SetLogger(logger)
}

// Start subscribes to the sensor and alarm namespaces and publishes the
// discovery hello so that online alarms announce themselves.
func (c *Coordinator) Start(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.running {
		return ErrAlreadyStarted
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("starting coordinator: %w", err)
	}

	filters := []string{c.codec.Filter(topic.Sensor), c.codec.Filter(topic.Alarm)}
	for i, f := range filters {
		if err := c.gateway.Subscribe(f, c.qos, c.OnMessage); err != nil {
			for _, done := range filters[:i] {
				_ = c.gateway.Unsubscribe(done)
			}
			return fmt.Errorf("subscribing to %s: %w", f, err)
		}
	}
	c.running = true

	c.sayHello()

	c.logger.Info("coordinator started",
		"sensor_filter", filters[0],
		"alarm_filter", filters[1],
	)
	return nil
}

// Stop unsubscribes from the bus. Registry state is kept.
func (c *Coordinator) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if !c.running {
		return
	}
	c.running = false

	for _, cat := range []topic.Category{topic.Sensor, topic.Alarm} {
		f := c.codec.Filter(cat)
		if err := c.gateway.Unsubscribe(f); err != nil {
			c.logger.Warn("unsubscribe failed", "filter", f, "error", err)
		}
	}
	c.logger.Info("coordinator stopped")
}

// Running reports whether Start has succeeded and Stop has not been called.
func (c *Coordinator) Running() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.running
}

// OnConnected re-announces the coordinator after a reconnect. The gateway
// restores subscriptions itself.
func (c *Coordinator) OnConnected() {
	if !c.Running() {
		return
	}
	c.sayHello()
}

// OnConnectionLost discards all session state: alarms are presumed stale
// and triggers are cleared with them.
func (c *Coordinator) OnConnectionLost(cause error) {
	c.logger.Warn("bus connection lost, resetting state", "error", cause)
	c.Reset()
}

// Reset clears every alarm and trigger. It waits for the message being
// handled, if any.
func (c *Coordinator) Reset() {
	c.procMu.Lock()
	defer c.procMu.Unlock()
	c.registry.Reset()
}

func (c *Coordinator) sayHello() {
	discovery := c.codec.Discovery(topic.Alarm)
	if err := c.gateway.Publish(discovery, c.hello, c.qos, false); err != nil {
		c.logger.Warn("discovery hello failed", "topic", discovery, "error", err)
		return
	}
	c.logger.Debug("discovery hello sent", "topic", discovery)
}

// AddTrigger registers a trigger. See automation.Registry.AddTrigger.
func (c *Coordinator) AddTrigger(t automation.Trigger) (automation.Trigger, error) {
	return c.registry.AddTrigger(t)
}

// RemoveTrigger unregisters a trigger and reports whether it existed.
func (c *Coordinator) RemoveTrigger(id string) bool {
	return c.registry.RemoveTrigger(id)
}

// Trigger returns one trigger by ID.
func (c *Coordinator) Trigger(id string) (automation.Trigger, error) {
	return c.registry.Trigger(id)
}

// TriggersForSensor returns the triggers watching a sensor.
func (c *Coordinator) TriggersForSensor(sensor device.ID) []automation.Trigger {
	return c.registry.TriggersForSensor(sensor)
}

// AllTriggers returns every registered trigger.
func (c *Coordinator) AllTriggers() []automation.Trigger {
	return c.registry.AllTriggers()
}

// AllAlarms returns every online alarm.
func (c *Coordinator) AllAlarms() []device.Alarm {
	return c.registry.AllAlarms()
}

// Counts returns the number of online alarms and registered triggers.
func (c *Coordinator) Counts() (alarms, triggers int) {
	return c.registry.Counts()
}

// RegisterListener adds an event listener for the given kinds (all when
// none are given).
func (c *Coordinator) RegisterListener(l events.Listener, kinds ...events.Kind) {
	c.notifier.Register(l, kinds...)
}

// UnregisterListener removes an event listener.
func (c *Coordinator) UnregisterListener(l events.Listener) {
	c.notifier.Unregister(l)
}
