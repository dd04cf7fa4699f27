package nostrtransport

import (
	"context"
	"time"

	"github.com/SatoshiDNC/nostrmarket/internal/core/ports"
	"github.com/nbd-wtf/go-nostr"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 30 * time.Second

type publisher struct {
	relays []string
}

// New creates a ports.Publisher dispatching events to the given relay
// set. Duplicate urls are dropped.
func New(relays []string) ports.Publisher {
	seen := make(map[string]struct{}, len(relays))
	unique := make([]string, 0, len(relays))
	for _, url := range relays {
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		unique = append(unique, url)
	}

	return &publisher{relays: unique}
}

// PublishEvent dispatches the event to every configured relay without
// waiting for acceptance. Failures are logged and dropped. The dispatch
// outlives the caller's context, the request triggering a publish does
// not wait for relay delivery.
func (p *publisher) PublishEvent(_ context.Context, event nostr.Event) {
	for _, url := range p.relays {
		go func(relayURL string) {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()

			relay, err := nostr.RelayConnect(ctx, relayURL)
			if err != nil {
				logrus.WithError(err).Warnf("failed to connect to relay %s", relayURL)
				return
			}
			defer relay.Close()

			if err := relay.Publish(ctx, event); err != nil {
				logrus.WithError(err).Warnf("failed to publish event %s to relay %s", event.ID, relayURL)
			}
		}(url)
	}
}
