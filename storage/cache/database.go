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

package cache

import (
	"context"
	"strings"

	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
)

// Names of the cached upstream collections. Entries have no TTL, they live
// until an invalidation event deletes them.
const (
	AllUsers    = "all_users"
	AllProducts = "all_products"
	AllOrders   = "all_orders"
)

// ErrObjectNotExist means the requested key is absent from the cache.
var ErrObjectNotExist = errors.NotFoundf("object")

// Value is a named value to store.
type Value struct {
	name  string
	value string
}

// String creates a string value to store.
func String(name, value string) Value {
	return Value{name: name, value: value}
}

// ReturnValue is the result of a get operation.
type ReturnValue struct {
	value string
	err   error
}

// String returns the value as a string.
func (r *ReturnValue) String() (string, error) {
	return r.value, r.err
}

// Database is a low level key value store. Values are JSON serialized
// entity collections.
type Database interface {
	Close() error
	Ping(ctx context.Context) error
	Set(ctx context.Context, values ...Value) error
	Get(ctx context.Context, name string) *ReturnValue
	Exists(ctx context.Context, names ...string) ([]bool, error)
	Delete(ctx context.Context, names ...string) error
}

const redisPrefix = "redis://"

// Open a connection to a cache store described by an URL.
func Open(path string) (Database, error) {
	if strings.HasPrefix(path, redisPrefix) {
		opt, err := redis.ParseURL(path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		database := new(Redis)
		database.client = redis.NewClient(opt)
		return database, nil
	}
	return nil, errors.Errorf("unknown cache store: %s", path)
}
