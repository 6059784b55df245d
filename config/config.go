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

package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration for the recommender service.
type Config struct {
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

// UpstreamConfig holds the addresses of the services entities are fetched
// from. An empty address disables the integration and is reported as a
// configuration error on first use.
type UpstreamConfig struct {
	UsersURL    string        `mapstructure:"users_url" validate:"omitempty,url"`
	ProductsURL string        `mapstructure:"products_url" validate:"omitempty,url"`
	OrdersURL   string        `mapstructure:"orders_url" validate:"omitempty,url"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type CacheConfig struct {
	Store string `mapstructure:"store" validate:"required"`
}

type BrokerConfig struct {
	Brokers       []string `mapstructure:"brokers" validate:"min=1,dive,hostname_port"`
	ConsumerGroup string   `mapstructure:"consumer_group" validate:"required"`
	OutputTopic   string   `mapstructure:"output_topic" validate:"required"`
}

type RecommendConfig struct {
	NFactors    int           `mapstructure:"n_factors" validate:"gt=0"`
	RandomState int64         `mapstructure:"random_state"`
	TopN        int           `mapstructure:"top_n" validate:"gt=0"`
	Interval    time.Duration `mapstructure:"interval" validate:"gt=0"`
	Jobs        int           `mapstructure:"jobs" validate:"gt=0"`
}

type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"gte=0,lte=65535"`
}

func setDefault(v *viper.Viper) {
	v.SetDefault("upstream.timeout", 10*time.Second)
	v.SetDefault("cache.store", "redis://localhost:6379/0")
	v.SetDefault("broker.brokers", []string{"localhost:9092"})
	v.SetDefault("broker.consumer_group", "recommender")
	v.SetDefault("broker.output_topic", "recommendation-events")
	v.SetDefault("recommend.n_factors", 50)
	v.SetDefault("recommend.random_state", 42)
	v.SetDefault("recommend.top_n", 5)
	v.SetDefault("recommend.interval", 10*time.Minute)
	v.SetDefault("recommend.jobs", 4)
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8088)
}

func bindEnv(v *viper.Viper) {
	// environment variables kept compatible with the upstream deployment
	_ = v.BindEnv("upstream.users_url", "USERS_SERVICE_URL")
	_ = v.BindEnv("upstream.products_url", "PRODUCTS_SERVICE_URL")
	_ = v.BindEnv("upstream.orders_url", "ORDERS_SERVICE_URL")
	_ = v.BindEnv("cache.store", "REDIS_URL")
	_ = v.BindEnv("broker.brokers", "KAFKA_BROKERS")
	_ = v.BindEnv("broker.output_topic", "RECOMMENDATION_TOPIC")
}

// LoadConfig loads the configuration from a TOML file and the environment.
// The path may be empty, in which case defaults and environment variables
// apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	bindEnv(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	// KAFKA_BROKERS is a comma separated list
	if len(conf.Broker.Brokers) == 1 && strings.Contains(conf.Broker.Brokers[0], ",") {
		conf.Broker.Brokers = strings.Split(conf.Broker.Brokers[0], ",")
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks the loaded configuration.
func (config *Config) Validate() error {
	validate := validator.New()
	return errors.Trace(validate.Struct(config))
}
