package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	piondtls "github.com/pion/dtls/v3"
	"github.com/plgd-dev/go-coap/v3/dtls"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/message/pool"
	"github.com/plgd-dev/go-coap/v3/options"
	"github.com/plgd-dev/go-coap/v3/udp/client"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tradfrid/internal/tradfri"
)

// DefaultPort is the gateway's CoAP-over-DTLS port.
const DefaultPort = 5684

const defaultTimeout = 10 * time.Second

// Config holds the connection parameters for one gateway.
type Config struct {
	Host     string
	Port     int
	Identity string // provisioned DTLS identity
	PSK      string // provisioned pre-shared key
	Timeout  time.Duration
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Client talks to a single gateway. Requests share one DTLS session that is
// re-established transparently when it dies; observations additionally fail
// over to the caller so the subscription can be re-registered.
type Client struct {
	cfg Config

	mu   sync.Mutex
	conn *client.Conn
}

var _ tradfri.Gateway = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg}
}

// Connect establishes the DTLS session and probes the gateway info resource.
func (c *Client) Connect(ctx context.Context) error {
	if _, err := c.connection(ctx); err != nil {
		return err
	}

	info, err := c.Info(ctx)
	if err != nil {
		return fmt.Errorf("probe gateway: %w", err)
	}

	log.Info().
		Str("host", c.cfg.Host).
		Str("firmware", info.Firmware).
		Msg("Connected to gateway")
	return nil
}

// Close tears down the DTLS session.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// connection returns the live session, dialing a fresh one if the previous
// session has died.
func (c *Client) connection(ctx context.Context) (*client.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		select {
		case <-c.conn.Done():
			log.Debug().Str("host", c.cfg.Host).Msg("Gateway session died, re-dialing")
		default:
			return c.conn, nil
		}
	}

	conn, err := dialDTLS(ctx, c.cfg.addr(), c.cfg.Identity, c.cfg.PSK)
	if err != nil {
		return nil, fmt.Errorf("dial gateway %s: %w", c.cfg.addr(), err)
	}
	c.conn = conn
	return conn, nil
}

// dialDTLS opens a CoAP session secured with the gateway's PSK scheme. The
// gateway only speaks TLS_PSK_WITH_AES_128_CCM_8.
func dialDTLS(ctx context.Context, addr, identity, psk string) (*client.Conn, error) {
	return dtls.Dial(addr, &piondtls.Config{
		PSK: func(hint []byte) ([]byte, error) {
			return []byte(psk), nil
		},
		PSKIdentityHint: []byte(identity),
		CipherSuites:    []piondtls.CipherSuiteID{piondtls.TLS_PSK_WITH_AES_128_CCM_8},
	}, options.WithContext(ctx))
}

// get fetches one resource and returns its body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	conn, err := c.connection(ctx)
	if err != nil {
		return nil, err
	}

	rctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := conn.Get(rctx, path)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	if resp.Code() != codes.Content {
		return nil, fmt.Errorf("get %s: unexpected response code %v", path, resp.Code())
	}
	body, err := resp.ReadBody()
	if err != nil {
		return nil, fmt.Errorf("get %s: read body: %w", path, err)
	}
	return body, nil
}

// Info is the gateway's own metadata.
type Info struct {
	Firmware string
}

func (c *Client) Info(ctx context.Context) (Info, error) {
	body, err := c.get(ctx, uriGateway)
	if err != nil {
		return Info{}, err
	}

	var doc gatewayInfoDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return Info{}, fmt.Errorf("decode gateway info: %w", err)
	}
	return Info{Firmware: doc.Firmware}, nil
}

// Devices fetches every device document. The resource root only lists ids,
// so each device costs one extra request.
func (c *Client) Devices(ctx context.Context) ([]tradfri.Device, error) {
	body, err := c.get(ctx, uriDevices)
	if err != nil {
		return nil, err
	}
	ids, err := decodeIDList(body)
	if err != nil {
		return nil, err
	}

	devices := make([]tradfri.Device, 0, len(ids))
	for _, id := range ids {
		dev, err := c.Device(ctx, id)
		if err != nil {
			return nil, err
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

func (c *Client) Device(ctx context.Context, id string) (tradfri.Device, error) {
	body, err := c.get(ctx, uriDevices+"/"+id)
	if err != nil {
		return tradfri.Device{}, err
	}
	return decodeDevice(body)
}

func (c *Client) Groups(ctx context.Context) ([]tradfri.Group, error) {
	body, err := c.get(ctx, uriGroups)
	if err != nil {
		return nil, err
	}
	ids, err := decodeIDList(body)
	if err != nil {
		return nil, err
	}

	groups := make([]tradfri.Group, 0, len(ids))
	for _, id := range ids {
		g, err := c.Group(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (c *Client) Group(ctx context.Context, id string) (tradfri.Group, error) {
	body, err := c.get(ctx, uriGroups+"/"+id)
	if err != nil {
		return tradfri.Group{}, err
	}
	return decodeGroup(body)
}

// Execute sends one state-changing command to the gateway.
func (c *Client) Execute(ctx context.Context, cmd tradfri.Command) error {
	path, payload, err := encodeCommand(cmd)
	if err != nil {
		return err
	}

	conn, err := c.connection(ctx)
	if err != nil {
		return err
	}

	log.Debug().
		Str("path", path).
		RawJSON("payload", payload).
		Msg("Sending gateway command")

	rctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := conn.Put(rctx, path, message.AppJSON, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	if resp.Code() != codes.Changed && resp.Code() != codes.Content {
		return fmt.Errorf("put %s: unexpected response code %v", path, resp.Code())
	}
	return nil
}

// ObserveDevice registers a push subscription on one device document and
// blocks until the subscription dies or the context ends.
func (c *Client) ObserveDevice(ctx context.Context, id string, onUpdate func(tradfri.Device)) error {
	return c.observe(ctx, uriDevices+"/"+id, func(body []byte) {
		dev, err := decodeDevice(body)
		if err != nil {
			log.Warn().Err(err).Str("device_id", id).Msg("Observe: dropping undecodable device notification")
			return
		}
		onUpdate(dev)
	})
}

// ObserveGroup is the group analog of ObserveDevice.
func (c *Client) ObserveGroup(ctx context.Context, id string, onUpdate func(tradfri.Group)) error {
	return c.observe(ctx, uriGroups+"/"+id, func(body []byte) {
		g, err := decodeGroup(body)
		if err != nil {
			log.Warn().Err(err).Str("group_id", id).Msg("Observe: dropping undecodable group notification")
			return
		}
		onUpdate(g)
	})
}

func (c *Client) observe(ctx context.Context, path string, handle func([]byte)) error {
	conn, err := c.connection(ctx)
	if err != nil {
		return err
	}

	obs, err := conn.Observe(ctx, path, func(msg *pool.Message) {
		body, err := msg.ReadBody()
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Observe: unreadable notification")
			return
		}
		handle(body)
	})
	if err != nil {
		return fmt.Errorf("observe %s: %w", path, err)
	}

	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
		defer cancel()
		_ = obs.Cancel(cctx)
		return nil
	case <-conn.Done():
		// The session owns the subscription, there is nothing left to cancel.
		return fmt.Errorf("observe %s: connection closed", path)
	}
}
