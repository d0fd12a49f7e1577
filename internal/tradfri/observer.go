package tradfri

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrMaxReconnectsExceeded is returned when the maximum number of
// re-subscription attempts is exceeded.
var ErrMaxReconnectsExceeded = errors.New("max reconnects exceeded")

// ObserveConfig contains configuration for observation re-subscription.
type ObserveConfig struct {
	MinBackoff    time.Duration // Minimum backoff between re-subscriptions
	MaxBackoff    time.Duration // Maximum backoff between re-subscriptions
	Multiplier    float64       // Backoff multiplier
	MaxReconnects int           // Max re-subscription attempts, 0 = infinite
}

// DefaultObserveConfig returns sensible defaults for observation configuration.
func DefaultObserveConfig() ObserveConfig {
	return ObserveConfig{
		MinBackoff:    1 * time.Second,
		MaxBackoff:    2 * time.Minute,
		Multiplier:    2.0,
		MaxReconnects: 0, // infinite
	}
}

// DeviceObserver maintains one push subscription on a device. The call blocks
// while the subscription is alive, invoking onUpdate for every notification,
// and returns an error when the subscription dies. A nil return means the
// context ended.
type DeviceObserver interface {
	ObserveDevice(ctx context.Context, id string, onUpdate func(Device)) error
}

// GroupObserver is the group analog of DeviceObserver.
type GroupObserver interface {
	ObserveGroup(ctx context.Context, id string, onUpdate func(Group)) error
}

// observation keeps one push subscription alive with automatic
// re-subscription. The subscribe function blocks while the subscription
// lives; an error return moves the observation from observing to
// reconnecting until the next attempt succeeds.
type observation struct {
	target    Target
	config    ObserveConfig
	subscribe func(ctx context.Context) error
}

// run drives the subscription until the context ends.
// Returns ErrMaxReconnectsExceeded if max re-subscriptions is exceeded.
func (o *observation) run(ctx context.Context) error {
	retryCount := 0
	currentBackoff := o.config.MinBackoff

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		started := time.Now()
		err := o.subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			// A subscription that outlived the max backoff was established
			// and delivering; its failure starts the ladder over.
			if time.Since(started) > o.config.MaxBackoff {
				retryCount = 0
				currentBackoff = o.config.MinBackoff
			}

			retryCount++
			observeReconnects.WithLabelValues(o.target.Kind.String()).Inc()

			// Check if we exceeded max re-subscription attempts
			if o.config.MaxReconnects > 0 && retryCount > o.config.MaxReconnects {
				log.Error().
					Str("target", o.target.Kind.String()).
					Str("id", o.target.ID).
					Int("max_reconnects", o.config.MaxReconnects).
					Msg("Observation: max reconnects exceeded, terminating")
				return ErrMaxReconnectsExceeded
			}

			log.Warn().
				Err(err).
				Str("target", o.target.Kind.String()).
				Str("id", o.target.ID).
				Dur("backoff", currentBackoff).
				Int("retry", retryCount).
				Int("max_reconnects", o.config.MaxReconnects).
				Msg("Observation lost, re-subscribing")

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(currentBackoff):
			}

			// Calculate next backoff with multiplier, capped at max
			nextBackoff := time.Duration(float64(currentBackoff) * o.config.Multiplier)
			if nextBackoff > o.config.MaxBackoff {
				nextBackoff = o.config.MaxBackoff
			}
			currentBackoff = nextBackoff

			continue
		}

		// Reset retry count and backoff after a clean return
		retryCount = 0
		currentBackoff = o.config.MinBackoff
	}
}
