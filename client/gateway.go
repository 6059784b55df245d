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

// Package client fetches users, products and orders from the upstream
// store services through a read-through cache.
package client

import (
	"context"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/openmart/recommender/base"
	"github.com/openmart/recommender/base/log"
	"github.com/openmart/recommender/config"
	"github.com/openmart/recommender/data"
	"github.com/openmart/recommender/storage/cache"
)

// Gateway reads entity collections from the upstream services. Collections
// are cached under a fixed name per collection; the gateway fills the cache
// on a miss and never invalidates it.
type Gateway struct {
	usersURL    string
	productsURL string
	ordersURL   string
	cacheStore  cache.Database
	httpClient  *http.Client
}

// NewGateway creates a gateway over the configured upstream services.
func NewGateway(cfg config.UpstreamConfig, cacheStore cache.Database) *Gateway {
	return &Gateway{
		usersURL:    cfg.UsersURL,
		productsURL: cfg.ProductsURL,
		ordersURL:   cfg.OrdersURL,
		cacheStore:  cacheStore,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// FetchUsers returns all users.
func (g *Gateway) FetchUsers(ctx context.Context) ([]data.User, error) {
	return fetchCollection[data.User](ctx, g, g.usersURL, cache.AllUsers)
}

// FetchProducts returns all products.
func (g *Gateway) FetchProducts(ctx context.Context) ([]data.Product, error) {
	return fetchCollection[data.Product](ctx, g, g.productsURL, cache.AllProducts)
}

// FetchOrders returns all orders.
func (g *Gateway) FetchOrders(ctx context.Context) ([]data.Order, error) {
	return fetchCollection[data.Order](ctx, g, g.ordersURL, cache.AllOrders)
}

// fetchCollection serves a collection from the cache, falling back to the
// upstream service on a miss. A cached value that is present but empty
// decodes to an empty collection, never an undefined result.
func fetchCollection[T any](ctx context.Context, g *Gateway, address, name string) ([]T, error) {
	if address == "" {
		return nil, errors.Annotate(base.ErrMissingAddress, name)
	}
	cached, err := g.cacheStore.Get(ctx, name).String()
	if err == nil {
		records := make([]T, 0)
		if err = json.Unmarshal([]byte(cached), &records); err != nil {
			return nil, errors.Trace(err)
		}
		return records, nil
	} else if !errors.Is(err, cache.ErrObjectNotExist) {
		return nil, errors.Trace(err)
	}
	records, raw, err := fetchRemote[T](ctx, g.httpClient, address)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = g.cacheStore.Set(ctx, cache.String(name, string(raw))); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Debug("filled cache from upstream",
		zap.String("collection", name), zap.Int("n_records", len(records)))
	return records, nil
}

// fetchRemote calls one upstream service and extracts the result list. The
// raw list is returned alongside so the cache stores it verbatim.
func fetchRemote[T any](ctx context.Context, client *http.Client, address string) ([]T, json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address+"/", nil)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, errors.Annotate(base.ErrUpstreamUnavailable, err.Error())
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.Annotate(base.ErrUpstreamUnavailable, err.Error())
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, nil, errors.Annotatef(base.ErrUpstreamUnavailable, "%s returned %s", address, resp.Status)
	}
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err = json.Unmarshal(body, &envelope); err != nil {
		return nil, nil, errors.Trace(err)
	}
	if envelope.Result == nil {
		envelope.Result = json.RawMessage("[]")
	}
	records := make([]T, 0)
	if err = json.Unmarshal(envelope.Result, &records); err != nil {
		return nil, nil, errors.Trace(err)
	}
	return records, envelope.Result, nil
}
