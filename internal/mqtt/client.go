// Package mqtt wraps the paho client with reconnect-safe subscriptions. The
// broker connection auto-reconnects; tracked subscriptions and the last-will
// registration are restored on every (re)connect.
package mqtt

import (
	"context"
	"fmt"
	"sync"

	"github.com/dchest/uniuri"
	pm "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Config holds broker connection parameters. WillTopic, when set, registers
// a retained last-will message so subscribers learn about unclean exits.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	WillTopic   string
	WillPayload []byte
}

// MessageHandler receives one inbound message.
type MessageHandler func(topic string, payload []byte)

// Client is a thin connection wrapper. All publishes use QoS 1.
type Client struct {
	cfg Config
	cli pm.Client

	mu        sync.Mutex
	subs      map[string]MessageHandler
	onConnect func()
}

func NewClient(cfg Config) *Client {
	c := &Client{
		cfg:  cfg,
		subs: make(map[string]MessageHandler),
	}

	opts := pm.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID + "_" + uniuri.New()).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetOnConnectHandler(c.handleConnect).
		SetConnectionLostHandler(handleConnectionLost)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}
	if cfg.WillTopic != "" {
		opts.SetBinaryWill(cfg.WillTopic, cfg.WillPayload, 1, true)
	}

	c.cli = pm.NewClient(opts)
	return c
}

// OnConnect registers a callback invoked after every successful (re)connect,
// once subscriptions have been restored. Must be called before Connect.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = fn
}

// Connect dials the broker and waits for the initial connection.
func (c *Client) Connect(ctx context.Context) error {
	token := c.cli.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", c.cfg.Broker, err)
	}
	return nil
}

// Disconnect flushes in-flight messages and closes the connection.
func (c *Client) Disconnect() {
	log.Info().Str("broker", c.cfg.Broker).Msg("Disconnecting from MQTT broker")
	c.cli.Disconnect(250)
}

func (c *Client) IsConnected() bool {
	return c.cli.IsConnectionOpen()
}

func (c *Client) Publish(topic string, payload []byte, retain bool) error {
	token := c.cli.Publish(topic, 1, retain, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers a handler for topic. The subscription survives
// reconnects.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()
	return c.subscribe(topic, handler)
}

func (c *Client) subscribe(topic string, handler MessageHandler) error {
	token := c.cli.Subscribe(topic, 1, func(_ pm.Client, msg pm.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// handleConnect restores tracked subscriptions. The broker forgets them on
// every reconnect since sessions are not persisted.
func (c *Client) handleConnect(_ pm.Client) {
	log.Info().Str("broker", c.cfg.Broker).Msg("Connected to MQTT broker")

	c.mu.Lock()
	subs := make(map[string]MessageHandler, len(c.subs))
	for topic, handler := range c.subs {
		subs[topic] = handler
	}
	onConnect := c.onConnect
	c.mu.Unlock()

	for topic, handler := range subs {
		if err := c.subscribe(topic, handler); err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("Failed to restore subscription")
		}
	}
	if onConnect != nil {
		onConnect()
	}
}

func handleConnectionLost(_ pm.Client, err error) {
	log.Warn().Err(err).Msg("MQTT connection lost, reconnecting")
}
