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

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openmart/recommender/base/log"
	"github.com/openmart/recommender/client"
	"github.com/openmart/recommender/config"
	"github.com/openmart/recommender/listener"
	"github.com/openmart/recommender/server"
	"github.com/openmart/recommender/storage/cache"
	"github.com/openmart/recommender/worker"
)

var recommenderCommand = &cobra.Command{
	Use:   "recommender",
	Short: "Periodic product recommendations from purchase history.",
	Run: func(cmd *cobra.Command, args []string) {
		// setup logger
		debug, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debug)
		// load config
		configPath, _ := cmd.PersistentFlags().GetString("config")
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}
		// connect cache store
		cacheStore, err := cache.Open(conf.Cache.Store)
		if err != nil {
			log.Logger().Fatal("failed to connect cache store", zap.Error(err),
				zap.String("cache_store", log.RedactURL(conf.Cache.Store)))
		}
		defer cacheStore.Close()
		// connect message broker
		brokerLogger := watermill.NewStdLogger(debug, false)
		publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   conf.Broker.Brokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, brokerLogger)
		if err != nil {
			log.Logger().Fatal("failed to create publisher", zap.Error(err),
				zap.Strings("brokers", conf.Broker.Brokers))
		}
		defer publisher.Close()
		subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
			Brokers:       conf.Broker.Brokers,
			ConsumerGroup: conf.Broker.ConsumerGroup,
			Unmarshaler:   kafka.DefaultMarshaler{},
		}, brokerLogger)
		if err != nil {
			log.Logger().Fatal("failed to create subscriber", zap.Error(err),
				zap.Strings("brokers", conf.Broker.Brokers))
		}
		defer subscriber.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		gateway := client.NewGateway(conf.Upstream, cacheStore)
		w := worker.NewWorker(conf, gateway, publisher)
		l := listener.NewListener(cacheStore, subscriber)

		go func() {
			if err := l.Run(ctx); err != nil {
				log.Logger().Fatal("failed to run cache invalidation listener", zap.Error(err))
			}
		}()
		go w.Serve(ctx)
		go server.NewRestServer(conf.HTTP.Host, conf.HTTP.Port, w).StartHttpServer()

		<-ctx.Done()
		log.Logger().Info("shutting down")
	},
}

func init() {
	recommenderCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	recommenderCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	log.AddFlags(recommenderCommand.PersistentFlags())
}

func main() {
	if err := recommenderCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
