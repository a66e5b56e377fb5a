package notecard

import (
	"context"
	"fmt"
)

// Hub defaults applied at startup.
const (
	DefaultHubMode     = "continuous"
	DefaultHubOutbound = 360
	DefaultHubInbound  = 360
)

// HubConfig is the hub.set payload sent once at startup.
type HubConfig struct {
	// Product is the Notehub product UID.
	Product string

	// SerialNumber identifies this device on Notehub.
	SerialNumber string

	// Mode is the connection mode. Default: "continuous".
	Mode string

	// Outbound and Inbound are the sync periods in minutes. Default: 360.
	Outbound int
	Inbound  int

	// Restore issues card.restore before hub.set, resetting the card's
	// configuration to factory defaults.
	Restore bool
}

// Request builds the hub.set request for c, applying defaults.
func (c HubConfig) Request() Request {
	mode := c.Mode
	if mode == "" {
		mode = DefaultHubMode
	}
	outbound := c.Outbound
	if outbound == 0 {
		outbound = DefaultHubOutbound
	}
	inbound := c.Inbound
	if inbound == 0 {
		inbound = DefaultHubInbound
	}

	req := NewRequest(ReqHubSet).
		With("mode", mode).
		With("outbound", outbound).
		With("inbound", inbound)
	if c.Product != "" {
		req.With("product", c.Product)
	}
	if c.SerialNumber != "" {
		req.With("sn", c.SerialNumber)
	}
	return req
}

// Configure applies c to the device over sess.
func Configure(ctx context.Context, sess *Session, c HubConfig) error {
	if c.Restore {
		if _, err := sess.Transact(ctx, NewRequest(ReqCardRestore)); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}
	if _, err := sess.Transact(ctx, c.Request()); err != nil {
		return fmt.Errorf("hub.set: %w", err)
	}
	return nil
}
