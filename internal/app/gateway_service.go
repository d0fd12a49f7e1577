package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dchest/uniuri"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tradfrid/internal/config"
	"github.com/dokzlo13/tradfrid/internal/discovery"
	"github.com/dokzlo13/tradfrid/internal/eventbus"
	"github.com/dokzlo13/tradfrid/internal/gateway"
	"github.com/dokzlo13/tradfrid/internal/storage"
	"github.com/dokzlo13/tradfrid/internal/storage/kv"
	"github.com/dokzlo13/tradfrid/internal/tradfri"
)

const (
	discoveryBucket  = "discovery"
	discoveryHostKey = "gateway_host"

	// Discovered addresses go stale when the gateway gets a new DHCP lease,
	// so the cache entry expires and a fresh browse happens eventually.
	discoveryCacheTTL = 24 * time.Hour
)

// GatewayService owns the gateway connection: address resolution, credential
// provisioning, the device registry and the per-resource observations.
type GatewayService struct {
	cfg *config.Config

	Client   *gateway.Client
	Registry *tradfri.Registry

	creds *storage.TypedStore[gateway.Credentials]
	cache kv.Bucket
	bus   *eventbus.Bus
}

// NewGatewayService creates a new GatewayService with all components
// initialized but not connected.
func NewGatewayService(cfg *config.Config, creds *storage.TypedStore[gateway.Credentials], kvm *kv.Manager, bus *eventbus.Bus) *GatewayService {
	return &GatewayService{
		cfg:      cfg,
		Registry: tradfri.NewRegistry(),
		creds:    creds,
		cache:    kvm.Bucket(discoveryBucket, true),
		bus:      bus,
	}
}

// Start resolves the gateway address, obtains credentials and connects.
func (s *GatewayService) Start(ctx context.Context) error {
	host, err := s.resolveHost(ctx)
	if err != nil {
		return err
	}

	creds, err := s.resolveCredentials(ctx, host)
	if err != nil {
		return err
	}

	s.Client = gateway.NewClient(gateway.Config{
		Host:     host,
		Port:     s.cfg.Gateway.Port,
		Identity: creds.Identity,
		PSK:      creds.PSK,
		Timeout:  s.cfg.Gateway.Timeout.Duration(),
	})
	return s.Client.Connect(ctx)
}

// resolveHost returns the configured gateway address, falling back to the
// cached discovery result and finally to a fresh mDNS browse.
func (s *GatewayService) resolveHost(ctx context.Context) (string, error) {
	if s.cfg.Gateway.Host != "" {
		return s.cfg.Gateway.Host, nil
	}

	if cached, err := s.cache.Get(discoveryHostKey); err == nil {
		if host, ok := cached.(string); ok && host != "" {
			log.Debug().Str("host", host).Msg("Using cached gateway address")
			return host, nil
		}
	}

	log.Info().Msg("No gateway host configured, browsing the local network")
	gw, err := discovery.Lookup(ctx, s.cfg.Gateway.DiscoveryTimeout.Duration())
	if err != nil {
		return "", fmt.Errorf("resolve gateway: %w", err)
	}

	if err := s.cache.Store(discoveryHostKey, gw.Host, discoveryCacheTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache discovered gateway address")
	}
	return gw.Host, nil
}

// resolveCredentials returns configured credentials, then persisted ones, and
// finally provisions fresh ones from the security code.
func (s *GatewayService) resolveCredentials(ctx context.Context, host string) (gateway.Credentials, error) {
	if s.cfg.Gateway.Identity != "" && s.cfg.Gateway.PSK != "" {
		return gateway.Credentials{Identity: s.cfg.Gateway.Identity, PSK: s.cfg.Gateway.PSK}, nil
	}

	stored, _, err := s.creds.Get(host)
	if err != nil {
		return gateway.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	if stored.Identity != "" && stored.PSK != "" {
		return stored, nil
	}

	if s.cfg.Gateway.SecurityCode == "" {
		return gateway.Credentials{}, errors.New("no stored credentials and gateway.security_code is not set")
	}

	pctx, cancel := context.WithTimeout(ctx, s.cfg.Gateway.Timeout.Duration())
	defer cancel()

	identity := "tradfrid-" + uniuri.NewLen(10)
	creds, err := gateway.Provision(pctx, host, s.cfg.Gateway.Port, s.cfg.Gateway.SecurityCode, identity)
	if err != nil {
		return gateway.Credentials{}, fmt.Errorf("provision credentials: %w", err)
	}

	if err := s.creds.Set(host, creds); err != nil {
		log.Warn().Err(err).Msg("Failed to persist provisioned credentials")
	}
	return creds, nil
}

// StartBackground runs the initial scan and starts the periodic rescan loop.
// The onFatalError callback is called when an observation exhausts its
// reconnect budget.
func (s *GatewayService) StartBackground(ctx context.Context, onFatalError func(error)) {
	if err := s.scan(ctx, onFatalError); err != nil {
		log.Error().Err(err).Msg("Initial gateway scan failed")
	}

	if s.cfg.Gateway.RescanInterval.Duration() > 0 {
		go s.runRescan(ctx, onFatalError)
	}
}

// scan fetches the device list, adopts new lights and groups into the
// registry and refreshes known ones. Observations never see a notification
// for a rename or a removal, only the scan does.
func (s *GatewayService) scan(ctx context.Context, onFatalError func(error)) error {
	devices, err := s.Client.Devices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	adopted := 0
	for _, dev := range devices {
		if !dev.HasLightControl() {
			continue
		}

		if existing, ok := s.Registry.Light(dev.ID); ok {
			existing.Refresh(dev)
		} else {
			l := tradfri.NewLightWithConfig(dev, s.Client, s.Client, s.observeConfig())
			if s.Registry.AddLight(l) {
				adopted++
				log.Info().
					Str("light_id", dev.ID).
					Str("name", dev.Name).
					Str("model", dev.Info.Model).
					Msg("Adopted light")
				go s.runLightObserver(ctx, l, onFatalError)
			}
		}
		s.bus.Publish(eventbus.NewEvent(eventbus.EventTypeDeviceUpdated, map[string]interface{}{
			"id":   dev.ID,
			"name": dev.Name,
		}))
	}

	if s.cfg.Gateway.Groups {
		if err := s.scanGroups(ctx, onFatalError); err != nil {
			return err
		}
	}

	if adopted > 0 {
		log.Info().Int("adopted", adopted).Int("total", len(s.Registry.Lights())).Msg("Gateway scan completed")
	}
	return nil
}

func (s *GatewayService) scanGroups(ctx context.Context, onFatalError func(error)) error {
	groups, err := s.Client.Groups(ctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}

	for _, g := range groups {
		if existing, ok := s.Registry.Group(g.ID); ok {
			existing.Refresh(g)
		} else {
			lg := tradfri.NewLightGroupWithConfig(g, s.Client, s.Client, s.observeConfig())
			if s.Registry.AddGroup(lg) {
				log.Info().
					Str("group_id", g.ID).
					Str("name", g.Name).
					Int("members", len(g.DeviceIDs)).
					Msg("Adopted group")
				go s.runGroupObserver(ctx, lg, onFatalError)
			}
		}
		s.bus.Publish(eventbus.NewEvent(eventbus.EventTypeGroupUpdated, map[string]interface{}{
			"id":   g.ID,
			"name": g.Name,
		}))
	}
	return nil
}

func (s *GatewayService) runLightObserver(ctx context.Context, l *tradfri.Light, onFatalError func(error)) {
	if err := l.Run(ctx, s.bus); err != nil {
		if errors.Is(err, tradfri.ErrMaxReconnectsExceeded) {
			log.Error().Str("light_id", l.ID()).Msg("Observation: max reconnects exceeded, triggering shutdown")
			if onFatalError != nil {
				onFatalError(err)
			}
		} else {
			log.Error().Err(err).Str("light_id", l.ID()).Msg("Observation error")
		}
	}
}

func (s *GatewayService) runGroupObserver(ctx context.Context, g *tradfri.LightGroup, onFatalError func(error)) {
	if err := g.Run(ctx, s.bus); err != nil {
		if errors.Is(err, tradfri.ErrMaxReconnectsExceeded) {
			log.Error().Str("group_id", g.ID()).Msg("Observation: max reconnects exceeded, triggering shutdown")
			if onFatalError != nil {
				onFatalError(err)
			}
		} else {
			log.Error().Err(err).Str("group_id", g.ID()).Msg("Observation error")
		}
	}
}

// runRescan periodically re-fetches the device list. The gateway is known to
// silently drop observe subscriptions, the rescan is the safety net that
// brings snapshots back in sync.
func (s *GatewayService) runRescan(ctx context.Context, onFatalError func(error)) {
	interval := s.cfg.Gateway.RescanInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.scan(ctx, onFatalError); err != nil {
				log.Error().Err(err).Msg("Gateway rescan failed")
			}
		}
	}
}

func (s *GatewayService) observeConfig() tradfri.ObserveConfig {
	return tradfri.ObserveConfig{
		MinBackoff:    s.cfg.Gateway.MinRetryBackoff.Duration(),
		MaxBackoff:    s.cfg.Gateway.MaxRetryBackoff.Duration(),
		Multiplier:    s.cfg.Gateway.RetryMultiplier,
		MaxReconnects: s.cfg.Gateway.MaxReconnects,
	}
}

// Close releases the gateway connection.
func (s *GatewayService) Close() {
	if s.Client != nil {
		s.Client.Close()
	}
}
