package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"salesloom/config"
	"salesloom/models"

	"github.com/go-redis/redis/v8"
)

// Realtime is the per-sequence update channel. With redis enabled, updates
// fan out across instances over pub/sub; without it, an in-process hub covers
// single-instance deployments. Subscribers tag an origin so a session does
// not receive echoes of its own writes.
type Realtime struct {
	client *redis.Client
	logger *log.Logger

	mu     sync.Mutex
	local  map[uint]map[int]func(updateEnvelope)
	nextID int
}

type updateEnvelope struct {
	Origin   string          `json:"origin"`
	Sequence models.Sequence `json:"sequence"`
}

func NewRealtime(cfg config.RedisConfig, logger *log.Logger) *Realtime {
	rt := &Realtime{
		logger: logger,
		local:  make(map[uint]map[int]func(updateEnvelope)),
	}
	if cfg.Enabled {
		rt.client = redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}
	return rt
}

func channelFor(sequenceID uint) string {
	return fmt.Sprintf("sequence:%d:updates", sequenceID)
}

// Publish pushes an authoritative snapshot to every subscriber of the
// sequence. origin identifies the publishing session.
func (rt *Realtime) Publish(ctx context.Context, origin string, seq models.Sequence) error {
	env := updateEnvelope{Origin: origin, Sequence: seq}

	if rt.client != nil {
		payload, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("failed to encode sequence update: %w", err)
		}
		if err := rt.client.Publish(ctx, channelFor(seq.ID), payload).Err(); err != nil {
			return fmt.Errorf("failed to publish sequence update: %w", err)
		}
		return nil
	}

	rt.mu.Lock()
	subs := make([]func(updateEnvelope), 0, len(rt.local[seq.ID]))
	for _, fn := range rt.local[seq.ID] {
		subs = append(subs, fn)
	}
	rt.mu.Unlock()

	for _, fn := range subs {
		fn(env)
	}
	return nil
}

// Subscribe registers onUpdate for the sequence and returns an unsubscribe
// function. Updates published with the same origin are filtered out.
func (rt *Realtime) Subscribe(ctx context.Context, sequenceID uint, origin string, onUpdate func(models.Sequence)) (func(), error) {
	deliver := func(env updateEnvelope) {
		if env.Origin == origin {
			return
		}
		onUpdate(env.Sequence)
	}

	if rt.client != nil {
		pubsub := rt.client.Subscribe(ctx, channelFor(sequenceID))
		if _, err := pubsub.Receive(ctx); err != nil {
			return nil, fmt.Errorf("failed to subscribe to sequence channel: %w", err)
		}

		go func() {
			for msg := range pubsub.Channel() {
				var env updateEnvelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					rt.logger.Printf("Dropping malformed sequence update: %v", err)
					continue
				}
				deliver(env)
			}
		}()

		return func() { _ = pubsub.Close() }, nil
	}

	rt.mu.Lock()
	rt.nextID++
	id := rt.nextID
	if rt.local[sequenceID] == nil {
		rt.local[sequenceID] = make(map[int]func(updateEnvelope))
	}
	rt.local[sequenceID][id] = deliver
	rt.mu.Unlock()

	return func() {
		rt.mu.Lock()
		delete(rt.local[sequenceID], id)
		rt.mu.Unlock()
	}, nil
}

// Close releases the redis connection, if any.
func (rt *Realtime) Close() error {
	if rt.client != nil {
		return rt.client.Close()
	}
	return nil
}
