package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tradfrid/internal/bridge"
	"github.com/dokzlo13/tradfrid/internal/config"
	"github.com/dokzlo13/tradfrid/internal/eventbus"
	"github.com/dokzlo13/tradfrid/internal/mqtt"
	"github.com/dokzlo13/tradfrid/internal/storage"
	"github.com/dokzlo13/tradfrid/internal/tradfri"
)

// BridgeService wraps the MQTT connection and the Home Assistant bridge. It
// routes update events from the bus into retained state publishes and
// persists every fresh record for the next warm start.
type BridgeService struct {
	cfg *config.Config

	MQTT   *mqtt.Client
	Bridge *bridge.Bridge

	reg       *tradfri.Registry
	snapshots *storage.Snapshots
	bus       *eventbus.Bus
}

// NewBridgeService creates a new BridgeService with all components
// initialized but not connected.
func NewBridgeService(cfg *config.Config, reg *tradfri.Registry, snapshots *storage.Snapshots, bus *eventbus.Bus) *BridgeService {
	client := mqtt.NewClient(mqtt.Config{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		WillTopic:   bridge.WillTopic(cfg.Bridge.BaseTopic),
		WillPayload: bridge.WillPayload(),
	})

	br := bridge.New(bridge.Config{
		BaseTopic:        cfg.Bridge.BaseTopic,
		DiscoveryPrefix:  cfg.Bridge.DiscoveryPrefix,
		CoalesceInterval: cfg.Bridge.CoalesceInterval.Duration(),
		CommandTimeout:   cfg.Bridge.CommandTimeout.Duration(),
	}, client, reg)

	// Re-announce everything after broker reconnects: a restarted broker has
	// lost the retained discovery configs.
	client.OnConnect(br.Announce)

	return &BridgeService{
		cfg:       cfg,
		MQTT:      client,
		Bridge:    br,
		reg:       reg,
		snapshots: snapshots,
		bus:       bus,
	}
}

// Start connects to the broker, subscribes to command topics, re-announces
// persisted entities and registers the update handlers on the bus.
func (s *BridgeService) Start(ctx context.Context) error {
	if err := s.MQTT.Connect(ctx); err != nil {
		return err
	}
	if err := s.Bridge.Start(ctx); err != nil {
		return err
	}

	s.publishStored()
	s.registerBusHandlers()
	return nil
}

// Ready reports whether the broker connection is up. Used by the readiness
// probe.
func (s *BridgeService) Ready() bool {
	return s.MQTT.IsConnected()
}

// publishStored announces entities from the last run so Home Assistant sees
// them before the first gateway scan completes.
func (s *BridgeService) publishStored() {
	lights, _, err := s.snapshots.Lights.GetAll()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load stored light records")
	}
	for id, rec := range lights {
		s.Bridge.PublishStoredLight(id, rec)
	}

	var groups map[string]tradfri.GroupRecord
	if s.cfg.Gateway.Groups {
		groups, _, err = s.snapshots.Groups.GetAll()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load stored group records")
		}
		for id, rec := range groups {
			s.Bridge.PublishStoredGroup(id, rec)
		}
	}

	if len(lights)+len(groups) > 0 {
		log.Info().
			Int("lights", len(lights)).
			Int("groups", len(groups)).
			Msg("Announced stored entities")
	}
}

func (s *BridgeService) registerBusHandlers() {
	s.bus.Subscribe(eventbus.EventTypeDeviceUpdated, func(evt eventbus.Event) {
		id, ok := evt.Data["id"].(string)
		if !ok {
			return
		}
		s.Bridge.MarkLightUpdated(id)
		s.persistLight(id)
	})

	s.bus.Subscribe(eventbus.EventTypeGroupUpdated, func(evt eventbus.Event) {
		id, ok := evt.Data["id"].(string)
		if !ok {
			return
		}
		s.Bridge.MarkGroupUpdated(id)
		s.persistGroup(id)
	})
}

func (s *BridgeService) persistLight(id string) {
	l, ok := s.reg.Light(id)
	if !ok {
		return
	}
	if err := s.snapshots.Lights.Set(id, l.Record()); err != nil {
		log.Warn().Err(err).Str("light_id", id).Msg("Failed to persist light record")
	}
}

func (s *BridgeService) persistGroup(id string) {
	g, ok := s.reg.Group(id)
	if !ok {
		return
	}
	if err := s.snapshots.Groups.Set(id, g.Record()); err != nil {
		log.Warn().Err(err).Str("group_id", id).Msg("Failed to persist group record")
	}
}

// Close marks the bridge offline and drops the broker connection.
func (s *BridgeService) Close() {
	s.Bridge.Shutdown()
	s.MQTT.Disconnect()
}
