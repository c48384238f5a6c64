package mqtt

import "sync/atomic"

// Stats is a point-in-time copy of the gateway counters.
type Stats struct {
	Received      uint64   `json:"received"`
	Published     uint64   `json:"published"`
	PublishErrors uint64   `json:"publish_errors"`
	HandlerErrors uint64   `json:"handler_errors"`
	Reconnects    uint64   `json:"reconnects"`
	Subscriptions []string `json:"subscriptions"`
}

type counters struct {
	received      atomic.Uint64
	published     atomic.Uint64
	publishErrors atomic.Uint64
	handlerErrors atomic.Uint64
	reconnects    atomic.Uint64
}

// Stats returns the current counters.
func (c *Client) Stats() Stats {
	return Stats{
		Received:      c.stats.received.Load(),
		Published:     c.stats.published.Load(),
		PublishErrors: c.stats.publishErrors.Load(),
		HandlerErrors: c.stats.handlerErrors.Load(),
		Reconnects:    c.stats.reconnects.Load(),
		Subscriptions: c.filters(),
	}
}
