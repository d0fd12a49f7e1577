// Package bridge exposes gateway lights and groups as Home Assistant MQTT
// entities: retained discovery configs, retained state and availability
// messages, and a command topic per entity. State flows gateway to broker,
// commands flow broker to gateway.
package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tradfrid/internal/mqtt"
	"github.com/dokzlo13/tradfrid/internal/tradfri"
)

// Publisher is the broker surface the bridge needs.
type Publisher interface {
	Publish(topic string, payload []byte, retain bool) error
	Subscribe(topic string, handler mqtt.MessageHandler) error
}

// Config holds the bridge's topic layout and timing knobs.
type Config struct {
	BaseTopic        string
	DiscoveryPrefix  string
	CoalesceInterval time.Duration // 0 publishes every update immediately
	CommandTimeout   time.Duration
}

// Bridge mirrors the registry onto the broker. Updates are flushed through a
// per-entity coalescer so notification bursts collapse into one retained
// state message carrying the freshest snapshot.
type Bridge struct {
	cfg    Config
	topics topics
	pub    Publisher
	reg    *tradfri.Registry

	lightFlush *coalescer
	groupFlush *coalescer

	baseCtx context.Context

	mu        sync.Mutex
	announced map[string]bool
}

func New(cfg Config, pub Publisher, reg *tradfri.Registry) *Bridge {
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "tradfri"
	}
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = "homeassistant"
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 10 * time.Second
	}

	b := &Bridge{
		cfg:       cfg,
		topics:    topics{base: cfg.BaseTopic, discoveryPrefix: cfg.DiscoveryPrefix},
		pub:       pub,
		reg:       reg,
		baseCtx:   context.Background(),
		announced: make(map[string]bool),
	}
	b.lightFlush = newCoalescer(cfg.CoalesceInterval, b.publishLight)
	b.groupFlush = newCoalescer(cfg.CoalesceInterval, b.publishGroup)
	return b
}

// WillTopic returns the bridge availability topic under base. It is needed
// before the bridge exists, when registering the broker last-will.
func WillTopic(base string) string {
	if base == "" {
		base = "tradfri"
	}
	return topics{base: base}.bridgeState()
}

// WillPayload is the last-will message marking the bridge dead.
func WillPayload() []byte {
	return []byte(payloadOffline)
}

// Start subscribes to the command topics. ctx bounds every command dispatched
// from the broker from here on.
func (b *Bridge) Start(ctx context.Context) error {
	b.baseCtx = ctx

	if err := b.pub.Subscribe(b.topics.setFilter(kindLight), b.handleSet); err != nil {
		return err
	}
	if err := b.pub.Subscribe(b.topics.setFilter(kindGroup), b.handleSet); err != nil {
		return err
	}

	log.Info().
		Str("base_topic", b.cfg.BaseTopic).
		Str("discovery_prefix", b.cfg.DiscoveryPrefix).
		Msg("Bridge listening for commands")
	return nil
}

// Shutdown stops the flushers and marks the bridge offline. Entities flip to
// unavailable in Home Assistant through the availability chain.
func (b *Bridge) Shutdown() {
	b.lightFlush.Close()
	b.groupFlush.Close()
	b.publish("bridge", b.topics.bridgeState(), []byte(payloadOffline), true)
}

// Announce publishes the bridge online marker and re-announces every known
// entity. Also serves as the broker reconnect hook, since retained messages
// may have been lost on a broker restart.
func (b *Bridge) Announce() {
	b.publish("bridge", b.topics.bridgeState(), []byte(payloadOnline), true)

	lights := b.reg.Lights()
	for _, l := range lights {
		b.announceLight(l.ID(), l.Record())
	}
	groups := b.reg.Groups()
	for _, g := range groups {
		b.announceGroup(g.ID(), g.Record())
	}

	log.Info().
		Int("lights", len(lights)).
		Int("groups", len(groups)).
		Msg("Announced bridge entities")
}

// MarkLightUpdated schedules a state publish for one light.
func (b *Bridge) MarkLightUpdated(id string) {
	b.lightFlush.Mark(id)
}

// MarkGroupUpdated schedules a state publish for one group.
func (b *Bridge) MarkGroupUpdated(id string) {
	b.groupFlush.Mark(id)
}

// PublishStoredLight announces a light from its persisted record, before the
// gateway has answered. The first live update overwrites it.
func (b *Bridge) PublishStoredLight(id string, rec tradfri.LightRecord) {
	b.markAnnounced(kindLight, id)
	b.publishDiscovery(kindLight, id, lightDiscovery(b.topics, id, rec))
	b.publishAvailability(kindLight, id, rec.Snapshot.Reachable)
	b.publishState(kindLight, id, lightState(rec))
}

// PublishStoredGroup is the group analog of PublishStoredLight.
func (b *Bridge) PublishStoredGroup(id string, rec tradfri.GroupRecord) {
	b.markAnnounced(kindGroup, id)
	b.publishDiscovery(kindGroup, id, groupDiscovery(b.topics, id, rec))
	b.publishState(kindGroup, id, groupState(rec))
}

func (b *Bridge) announceLight(id string, rec tradfri.LightRecord) {
	b.markAnnounced(kindLight, id)
	b.publishDiscovery(kindLight, id, lightDiscovery(b.topics, id, rec))
	b.publishAvailability(kindLight, id, rec.Snapshot.Reachable)
	b.publishState(kindLight, id, lightState(rec))
}

func (b *Bridge) announceGroup(id string, rec tradfri.GroupRecord) {
	b.markAnnounced(kindGroup, id)
	b.publishDiscovery(kindGroup, id, groupDiscovery(b.topics, id, rec))
	b.publishState(kindGroup, id, groupState(rec))
}

// publishLight flushes the current record of one light. Announces it first
// when it has never been announced, so lights appearing mid-run still get a
// discovery config.
func (b *Bridge) publishLight(id string) {
	l, ok := b.reg.Light(id)
	if !ok {
		return
	}
	rec := l.Record()

	if b.firstSeen(kindLight, id) {
		b.publishDiscovery(kindLight, id, lightDiscovery(b.topics, id, rec))
	}
	b.publishAvailability(kindLight, id, rec.Snapshot.Reachable)
	b.publishState(kindLight, id, lightState(rec))
}

func (b *Bridge) publishGroup(id string) {
	g, ok := b.reg.Group(id)
	if !ok {
		return
	}
	rec := g.Record()

	if b.firstSeen(kindGroup, id) {
		b.publishDiscovery(kindGroup, id, groupDiscovery(b.topics, id, rec))
	}
	b.publishState(kindGroup, id, groupState(rec))
}

// handleSet routes one inbound command to its adapter. Dispatch runs on its
// own goroutine so slow gateway commands never block the broker callback.
func (b *Bridge) handleSet(topic string, payload []byte) {
	kind, id, ok := b.topics.parseSet(topic)
	if !ok {
		return
	}

	cmd, err := decodeCommand(payload)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Dropping malformed command")
		commandsReceived.WithLabelValues(kind, "malformed").Inc()
		return
	}

	switch kind {
	case kindLight:
		l, found := b.reg.Light(id)
		if !found {
			log.Warn().Str("light_id", id).Msg("Command for unknown light")
			commandsReceived.WithLabelValues(kind, "unknown").Inc()
			return
		}
		go b.runLightCommand(l, cmd)
	case kindGroup:
		g, found := b.reg.Group(id)
		if !found {
			log.Warn().Str("group_id", id).Msg("Command for unknown group")
			commandsReceived.WithLabelValues(kind, "unknown").Inc()
			return
		}
		go b.runGroupCommand(g, cmd)
	}
}

func (b *Bridge) runLightCommand(l *tradfri.Light, cmd commandPayload) {
	ctx, cancel := context.WithTimeout(b.baseCtx, b.cfg.CommandTimeout)
	defer cancel()

	var err error
	if cmd.isOff() {
		err = l.TurnOff(ctx)
	} else {
		err = l.TurnOn(ctx, cmd.options())
	}

	result := "ok"
	if err != nil {
		result = "error"
		log.Error().Err(err).Str("light_id", l.ID()).Msg("Light command failed")
	}
	commandsReceived.WithLabelValues(kindLight, result).Inc()
}

func (b *Bridge) runGroupCommand(g *tradfri.LightGroup, cmd commandPayload) {
	ctx, cancel := context.WithTimeout(b.baseCtx, b.cfg.CommandTimeout)
	defer cancel()

	var err error
	if cmd.isOff() {
		err = g.TurnOff(ctx)
	} else {
		err = g.TurnOn(ctx, cmd.options())
	}

	result := "ok"
	if err != nil {
		result = "error"
		log.Error().Err(err).Str("group_id", g.ID()).Msg("Group command failed")
	}
	commandsReceived.WithLabelValues(kindGroup, result).Inc()
}

func (b *Bridge) publishDiscovery(kind, id string, payload discoveryPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to encode discovery config")
		return
	}
	b.publish("discovery", b.topics.discovery(kind, id), data, true)
}

func (b *Bridge) publishAvailability(kind, id string, available bool) {
	b.publish("availability", b.topics.availability(kind, id), availabilityPayload(available), true)
}

func (b *Bridge) publishState(kind, id string, payload statePayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to encode state")
		return
	}
	b.publish("state", b.topics.state(kind, id), data, true)
}

func (b *Bridge) publish(kind, topic string, payload []byte, retain bool) {
	err := b.pub.Publish(topic, payload, retain)
	result := "ok"
	if err != nil {
		result = "error"
		log.Error().Err(err).Str("topic", topic).Msg("MQTT publish failed")
	}
	publishesTotal.WithLabelValues(kind, result).Inc()
}

func (b *Bridge) markAnnounced(kind, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.announced[kind+"/"+id] = true
}

// firstSeen marks kind/id announced and reports whether this call was the
// first to do so.
func (b *Bridge) firstSeen(kind, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := kind + "/" + id
	if b.announced[key] {
		return false
	}
	b.announced[key] = true
	return true
}
