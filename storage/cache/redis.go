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

	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// Redis cache storage.
type Redis struct {
	client *redis.Client
}

// Close redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return errors.Trace(r.client.Ping(ctx).Err())
}

// Set stores values in Redis.
func (r *Redis) Set(ctx context.Context, values ...Value) error {
	p := r.client.Pipeline()
	for _, v := range values {
		if err := p.Set(ctx, v.name, v.value, 0).Err(); err != nil {
			return errors.Trace(err)
		}
	}
	_, err := p.Exec(ctx)
	return errors.Trace(err)
}

// Get returns a value from Redis.
func (r *Redis) Get(ctx context.Context, name string) *ReturnValue {
	val, err := r.client.Get(ctx, name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &ReturnValue{err: errors.Annotate(ErrObjectNotExist, name)}
		}
		return &ReturnValue{err: errors.Trace(err)}
	}
	return &ReturnValue{value: val}
}

// Exists checks keys in Redis.
func (r *Redis) Exists(ctx context.Context, names ...string) ([]bool, error) {
	pipeline := r.client.Pipeline()
	commands := make([]*redis.IntCmd, len(names))
	for i, name := range names {
		commands[i] = pipeline.Exists(ctx, name)
	}
	if _, err := pipeline.Exec(ctx); err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(commands, func(cmd *redis.IntCmd, _ int) bool {
		return cmd.Val() > 0
	}), nil
}

// Delete removes keys from Redis. Deleting an absent key is not an error.
func (r *Redis) Delete(ctx context.Context, names ...string) error {
	return errors.Trace(r.client.Del(ctx, names...).Err())
}
