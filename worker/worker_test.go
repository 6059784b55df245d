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

package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmart/recommender/base"
	"github.com/openmart/recommender/client"
	"github.com/openmart/recommender/config"
	"github.com/openmart/recommender/data"
	"github.com/openmart/recommender/storage/cache"
)

const (
	testUsersJSON    = `[{"_id":"uA","name":"Tech Enthusiast"},{"_id":"uB","name":"Home Decorator"}]`
	testProductsJSON = `[{"_id":"p1","name":"Premium Smartphone"},{"_id":"p2","name":"High-Performance Laptop"},{"_id":"p3","name":"Modern Coffee Table"}]`
	testOrdersJSON   = `[` +
		`{"_id":"o1","userId":"uA","products":[{"_id":"p1","quantity":1},{"_id":"p1","quantity":1},{"_id":"p2","quantity":1}]},` +
		`{"_id":"o2","userId":"uB","products":[{"_id":"p3","quantity":1}]}]`
)

func newTestWorker(t *testing.T, usersJSON, productsJSON, ordersJSON string) (*Worker, *gochannel.GoChannel, *config.Config) {
	server := miniredis.RunT(t)
	database, err := cache.Open("redis://" + server.Addr())
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, database.Close())
	})

	serve := func(result string) *httptest.Server {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"result":` + result + `}`))
		}))
		t.Cleanup(upstream.Close)
		return upstream
	}
	usersServer := serve(usersJSON)
	productsServer := serve(productsJSON)
	ordersServer := serve(ordersJSON)

	conf, err := config.LoadConfig("")
	require.NoError(t, err)
	conf.Upstream.UsersURL = usersServer.URL
	conf.Upstream.ProductsURL = productsServer.URL
	conf.Upstream.OrdersURL = ordersServer.URL

	gateway := client.NewGateway(conf.Upstream, database)
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	return NewWorker(conf, gateway, pubSub), pubSub, conf
}

func collectEvents(t *testing.T, messages <-chan *message.Message, n int) []data.RecommendationEvent {
	var events []data.RecommendationEvent
	timeout := time.After(time.Second)
	for len(events) < n {
		select {
		case msg := <-messages:
			var event data.RecommendationEvent
			require.NoError(t, json.Unmarshal(msg.Payload, &event))
			events = append(events, event)
			msg.Ack()
		case <-timeout:
			t.Fatalf("expected %d events, got %d", n, len(events))
		}
	}
	return events
}

func TestRunOncePublishesRecommendations(t *testing.T) {
	ctx := context.Background()
	worker, pubSub, conf := newTestWorker(t, testUsersJSON, testProductsJSON, testOrdersJSON)
	messages, err := pubSub.Subscribe(ctx, conf.Broker.OutputTopic)
	require.NoError(t, err)

	// configured rank 50 is clamped to 2 by three products and two users
	result := worker.RunOnce(ctx)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.NoError(t, result.Err)
	require.Positive(t, result.Published)
	assert.NotEmpty(t, result.Last)

	ordered := map[string][]string{
		"uA": {"p1", "p2"},
		"uB": {"p3"},
	}
	events := collectEvents(t, messages, result.Published)
	seen := make(map[string]bool)
	for _, event := range events {
		assert.Equal(t, data.EventTypeRecommendations, event.Type)
		assert.NotEmpty(t, event.Recommendations)
		// exactly one event per user with a non-empty result
		assert.False(t, seen[event.UserID])
		seen[event.UserID] = true
		// recommendations are drawn only from unseen products
		for _, product := range event.Recommendations {
			assert.NotContains(t, ordered[event.UserID], product.ID)
		}
	}
}

func TestRunOnceSkipsOnEmptyCollections(t *testing.T) {
	worker, _, _ := newTestWorker(t, testUsersJSON, testProductsJSON, `[]`)
	result := worker.RunOnce(context.Background())
	assert.Equal(t, StatusSkipped, result.Status)
	assert.Error(t, result.Err)
	assert.Zero(t, result.Published)
}

func TestRunOnceSkipsWithoutModel(t *testing.T) {
	// one product leaves no rank to train on: run proceeds with no model
	worker, _, _ := newTestWorker(t,
		testUsersJSON,
		`[{"_id":"p1"}]`,
		`[{"_id":"o1","userId":"uA","products":[{"_id":"p1"}]}]`)
	result := worker.RunOnce(context.Background())
	assert.Equal(t, StatusSkipped, result.Status)
	assert.Zero(t, result.Published)
}

func TestRunOnceFailsOnUpstreamError(t *testing.T) {
	worker, _, _ := newTestWorker(t, testUsersJSON, testProductsJSON, testOrdersJSON)
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	t.Cleanup(broken.Close)
	worker.gateway = client.NewGateway(config.UpstreamConfig{
		UsersURL:    broken.URL,
		ProductsURL: broken.URL,
		OrdersURL:   broken.URL,
		Timeout:     time.Second,
	}, newCacheDatabase(t))

	result := worker.RunOnce(context.Background())
	assert.Equal(t, StatusFailed, result.Status)
	assert.True(t, errors.Is(result.Err, base.ErrUpstreamUnavailable))
}

func newCacheDatabase(t *testing.T) cache.Database {
	server := miniredis.RunT(t)
	database, err := cache.Open("redis://" + server.Addr())
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, database.Close())
	})
	return database
}

func TestRunOnceOverlapGuard(t *testing.T) {
	worker, _, _ := newTestWorker(t, testUsersJSON, testProductsJSON, testOrdersJSON)
	worker.running.Lock()
	result := worker.RunOnce(context.Background())
	worker.running.Unlock()
	assert.Equal(t, StatusSkipped, result.Status)
	assert.True(t, errors.Is(result.Err, ErrRunInProgress))
}

func TestServeStopsOnCancel(t *testing.T) {
	worker, _, _ := newTestWorker(t, testUsersJSON, testProductsJSON, testOrdersJSON)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Serve(ctx)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
