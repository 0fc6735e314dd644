package querycache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/docintel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/docintel/pkg/errors"
)

// InvalidationChannel is the Redis pub/sub channel used to tell sibling
// processes to drop their local cache entries for a root. The channel never
// carries cached values, only root identifiers.
const InvalidationChannel = "docintel:cache:invalidate"

// Broadcaster publishes and subscribes to cache-invalidation notices over
// Redis pub/sub so multiple docintel processes sharing a corpus root stay
// consistent without a shared cache store.
type Broadcaster struct {
	rdb *redis.Client
	log logging.Logger
}

// NewBroadcaster wraps an existing Redis client. rdb must already be
// configured and reachable; NewBroadcaster does not own its lifecycle.
func NewBroadcaster(rdb *redis.Client, log logging.Logger) *Broadcaster {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Broadcaster{rdb: rdb, log: log}
}

// Publish notifies every subscribed process that root's cached entries are
// stale.
func (b *Broadcaster) Publish(ctx context.Context, root string) error {
	payload, err := MarshalInvalidation(root)
	if err != nil {
		return errors.Internal("querycache: failed to encode invalidation notice").WithCause(err)
	}
	if err := b.rdb.Publish(ctx, InvalidationChannel, payload).Err(); err != nil {
		return errors.ProviderError("querycache: failed to publish invalidation notice").WithCause(err)
	}
	return nil
}

// Subscribe invokes onInvalidate for every root named in an invalidation
// notice received on InvalidationChannel, until ctx is cancelled. Intended
// to be run in its own goroutine.
func (b *Broadcaster) Subscribe(ctx context.Context, onInvalidate func(root string)) error {
	sub := b.rdb.Subscribe(ctx, InvalidationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			root, err := UnmarshalInvalidation([]byte(msg.Payload))
			if err != nil {
				b.log.Warn("querycache: discarding malformed invalidation notice", logging.Err(err))
				continue
			}
			onInvalidate(root)
		}
	}
}
