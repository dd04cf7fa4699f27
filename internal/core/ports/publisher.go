package ports

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
)

// Publisher hands fully signed events to the Nostr transport. Dispatch
// is best effort: delivery is not awaited and relay acceptance is
// never confirmed to the caller.
type Publisher interface {
	PublishEvent(ctx context.Context, event nostr.Event)
}
