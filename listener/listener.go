// Copyright 2025 openmart Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package listener evicts cached entity collections when domain events
// arrive. The gateway repopulates evicted entries on the next read.
package listener

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/openmart/recommender/base/log"
	"github.com/openmart/recommender/storage/cache"
)

// Topics are the domain event topics the listener consumes.
var Topics = []string{
	"order-events",
	"user-events",
	"product-events",
	"inventory-events",
}

// evictions maps an event topic to the cache keys it invalidates.
var evictions = map[string][]string{
	"order-events":     {cache.AllOrders},
	"user-events":      {cache.AllUsers},
	"product-events":   {cache.AllProducts},
	"inventory-events": {cache.AllProducts, cache.AllOrders},
}

// Listener is a long-lived consumer of domain events.
type Listener struct {
	cacheStore cache.Database
	subscriber message.Subscriber
}

// NewListener creates a listener over an injected cache store and
// subscriber.
func NewListener(cacheStore cache.Database, subscriber message.Subscriber) *Listener {
	return &Listener{
		cacheStore: cacheStore,
		subscriber: subscriber,
	}
}

// Run subscribes to all domain event topics and dispatches messages until
// the context is cancelled. Each message is handled independently; a
// failure to handle one message never stops the loop.
func (l *Listener) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, topic := range Topics {
		messages, err := l.subscriber.Subscribe(ctx, topic)
		if err != nil {
			return errors.Trace(err)
		}
		topic := topic
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.dispatch(ctx, topic, messages)
		}()
	}
	log.Logger().Info("start cache invalidation listener", zap.Strings("topics", Topics))
	wg.Wait()
	log.Logger().Info("stop cache invalidation listener")
	return nil
}

// dispatch drains one topic channel. The channel closes when the context
// is cancelled.
func (l *Listener) dispatch(ctx context.Context, topic string, messages <-chan *message.Message) {
	for msg := range messages {
		if err := l.handle(ctx, topic); err != nil {
			log.Logger().Error("failed to handle domain event",
				zap.String("topic", topic),
				zap.String("message_uuid", msg.UUID),
				zap.Error(err))
		}
		// ack regardless: one malformed event must not stall invalidation
		// for the events behind it
		msg.Ack()
	}
}

// handle evicts the cache keys mapped to a topic.
func (l *Listener) handle(ctx context.Context, topic string) error {
	keys, ok := evictions[topic]
	if !ok {
		log.Logger().Warn("unrecognized event topic", zap.String("topic", topic))
		return nil
	}
	if err := l.cacheStore.Delete(ctx, keys...); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Debug("evicted cache entries",
		zap.String("topic", topic), zap.Strings("keys", keys))
	return nil
}
