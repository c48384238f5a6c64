package mqtt

import (
	"fmt"
	"sort"
)

// Subscribe registers a handler for messages matching filter.
//
// Filters can include MQTT wildcards:
//   - + (single-level): "sensors/+/kitchen" matches every kitchen sensor
//   - # (multi-level): "alarms/#" matches the alarm namespace
//
// Subscriptions are tracked and restored after a reconnect. Subscribing
// again to the same filter replaces the handler.
//
// Example:
//
//	err := client.Subscribe("sensors/#", 0, coordinator.OnMessage)
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	previous, hadPrevious := c.subscriptions[filter]
	c.subscriptions[filter] = subscription{qos: qos, handler: handler}
	c.subMu.Unlock()

	token := c.client.Subscribe(filter, qos, c.wrapHandler(handler))
	var err error
	if !token.WaitTimeout(defaultPublishTimeout) {
		err = fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	} else if tokenErr := token.Error(); tokenErr != nil {
		err = fmt.Errorf("%w: %w", ErrSubscribeFailed, tokenErr)
	}
	if err != nil {
		c.subMu.Lock()
		if hadPrevious {
			c.subscriptions[filter] = previous
		} else {
			delete(c.subscriptions, filter)
		}
		c.subMu.Unlock()
		return err
	}

	return nil
}

// Unsubscribe removes a subscription. Messages already in flight may still
// be delivered.
func (c *Client) Unsubscribe(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	delete(c.subscriptions, filter)
	c.subMu.Unlock()

	token := c.client.Unsubscribe(filter)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}

// filters returns the tracked subscription filters in sorted order.
func (c *Client) filters() []string {
	c.subMu.RLock()
	out := make([]string, 0, len(c.subscriptions))
	for f := range c.subscriptions {
		out = append(out, f)
	}
	c.subMu.RUnlock()
	sort.Strings(out)
	return out
}
