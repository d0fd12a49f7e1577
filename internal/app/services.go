package app

import (
	"context"
	"time"

	"github.com/dokzlo13/tradfrid/internal/config"
	"github.com/dokzlo13/tradfrid/internal/db"
	"github.com/dokzlo13/tradfrid/internal/eventbus"
	"github.com/dokzlo13/tradfrid/internal/gateway"
	"github.com/dokzlo13/tradfrid/internal/storage"
	"github.com/dokzlo13/tradfrid/internal/storage/kv"
)

// Credentials are stored per gateway host, so switching gateways keeps both
// provisioned identities around.
const credentialsKind = "gateway_credentials"

const kvCleanupInterval = time.Hour

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB        *db.DB
	Store     *storage.Store
	Snapshots *storage.Snapshots
	KV        *kv.Manager
	Bus       *eventbus.Bus

	// High-level services
	Gateway *GatewayService
	Bridge  *BridgeService
	Health  *HealthService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	// Initialize stores
	s.Store = storage.NewStore(database.DB)
	s.Snapshots = storage.NewSnapshots(s.Store)
	s.KV = kv.NewManager(database.DB)

	// Initialize event bus
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	// Initialize gateway service
	creds := storage.NewTypedStore[gateway.Credentials](s.Store, credentialsKind)
	s.Gateway = NewGatewayService(cfg, creds, s.KV, s.Bus)

	// Initialize bridge service
	s.Bridge = NewBridgeService(cfg, s.Gateway.Registry, s.Snapshots, s.Bus)

	// Initialize health service
	s.Health = NewHealthService(cfg, s.Bridge.Ready, s.Gateway.Registry)

	return s, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a fatal error occurs (e.g., max reconnects exceeded).
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	// Connect to the gateway
	if err := s.Gateway.Start(ctx); err != nil {
		return err
	}

	// Connect to the broker and re-announce persisted entities
	if err := s.Bridge.Start(ctx); err != nil {
		return err
	}

	// Start all background services
	s.Gateway.StartBackground(ctx, onFatalError)
	s.Health.Start(ctx)
	s.KV.StartCleanup(ctx, kvCleanupInterval)

	return nil
}

// ClearState clears all persisted light and group records.
func (s *Services) ClearState() error {
	return s.Store.Clear("")
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		s.Bus.Close(ctx)
	}
	if s.KV != nil {
		s.KV.StopCleanup()
	}
	if s.Bridge != nil {
		s.Bridge.Close()
	}
	if s.Gateway != nil {
		s.Gateway.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
