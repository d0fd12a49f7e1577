// Package discovery locates gateways on the local network via mDNS.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"
)

// Gateways announce a CoAP service instance named gw-<mac>.
const (
	service        = "_coap._udp"
	domain         = "local."
	instancePrefix = "gw-"
)

// ErrNoGateway is returned when the browse window closes without a match.
var ErrNoGateway = errors.New("no gateway found on the local network")

// Gateway is one discovered gateway announcement.
type Gateway struct {
	Instance string
	Host     string
	Port     int
}

// Lookup browses the local network for at most timeout and returns the first
// gateway that answers.
func Lookup(ctx context.Context, timeout time.Duration) (Gateway, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return Gateway{}, fmt.Errorf("mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		wg    sync.WaitGroup
		found Gateway
		ok    bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range entries {
			if ok || !isGateway(e.Instance) {
				continue
			}
			if len(e.AddrIPv4) == 0 {
				continue
			}
			found = Gateway{
				Instance: e.Instance,
				Host:     e.AddrIPv4[0].String(),
				Port:     e.Port,
			}
			ok = true
			cancel()
		}
	}()

	if err := resolver.Browse(ctx, service, domain, entries); err != nil {
		return Gateway{}, fmt.Errorf("mdns browse: %w", err)
	}
	<-ctx.Done()
	wg.Wait()

	if !ok {
		return Gateway{}, ErrNoGateway
	}

	log.Info().
		Str("instance", found.Instance).
		Str("host", found.Host).
		Int("port", found.Port).
		Msg("Discovered gateway")
	return found, nil
}

// isGateway reports whether an mDNS instance name looks like a gateway
// announcement. Other CoAP speakers share the service type.
func isGateway(instance string) bool {
	return strings.HasPrefix(strings.ToLower(instance), instancePrefix)
}
