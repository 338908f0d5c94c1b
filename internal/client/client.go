// Package client assembles the engine from configuration. It is the
// embedding surface: construct a Client, talk to its Gateway, consume
// its event bus.
package client

import (
	"github.com/craftscan/craftscan/internal/config"
	"github.com/craftscan/craftscan/internal/events"
	"github.com/craftscan/craftscan/internal/gateway"
)

// Client owns the wired session and its event bus.
type Client struct {
	Gateway *gateway.Gateway

	config *config.Config
	logger *events.Logger
	bus    *events.Bus
}

// New creates a client from configuration.
func New(cfg *config.Config, logger *events.Logger) (*Client, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	bus := events.NewBus(logger)

	gw, err := gateway.New(cfg, bus, logger)
	if err != nil {
		bus.Close()
		return nil, err
	}

	return &Client{
		Gateway: gw,
		config:  cfg,
		logger:  logger,
		bus:     bus,
	}, nil
}

// Events subscribes to the session event stream. The returned cancel
// func must be called exactly once.
func (c *Client) Events() (<-chan events.Event, func()) {
	return c.bus.Subscribe()
}

// Config returns the effective configuration.
func (c *Client) Config() *config.Config {
	return c.config
}

// Close releases the session and the event bus.
func (c *Client) Close() error {
	err := c.Gateway.Close()
	c.bus.Close()
	return err
}
