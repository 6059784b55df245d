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

// Package worker runs the recommendation pipeline: fetch entities through
// the gateway, build the interaction matrix, fit the factor model, score
// every user and publish one event per user with recommendations.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openmart/recommender/base/log"
	"github.com/openmart/recommender/client"
	"github.com/openmart/recommender/config"
	"github.com/openmart/recommender/data"
	"github.com/openmart/recommender/dataset"
	"github.com/openmart/recommender/model"
	"github.com/openmart/recommender/recommend"
)

// ErrRunInProgress means a pipeline run was requested while another one
// was still executing. At most one run executes at a time.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Status is the outcome class of one pipeline run.
type Status string

const (
	// StatusCompleted means the run scored all users and published events.
	StatusCompleted Status = "completed"
	// StatusSkipped means the run ended early on a normal path, either
	// insufficient data or an overlapping run.
	StatusSkipped Status = "skipped"
	// StatusFailed means the run hit an unexpected error. The error is
	// logged and carried on the result, never propagated to the scheduler.
	StatusFailed Status = "failed"
)

// Result is the typed outcome of one pipeline run.
type Result struct {
	Status Status `json:"status"`
	// Err carries the skip reason or failure. Always nil on completion.
	Err error `json:"-"`
	// Published counts emitted recommendation events.
	Published int `json:"published"`
	// Last holds the recommendations of the last scored user, kept for
	// the diagnostic endpoint.
	Last []data.Product `json:"last"`
}

// Worker periodically runs the pipeline. Collaborators are injected at
// construction, there is no process-wide state.
type Worker struct {
	recommendConfig config.RecommendConfig
	outputTopic     string
	gateway         *client.Gateway
	publisher       message.Publisher
	running         sync.Mutex
}

// NewWorker creates a worker publishing to the configured output topic.
func NewWorker(cfg *config.Config, gateway *client.Gateway, publisher message.Publisher) *Worker {
	return &Worker{
		recommendConfig: cfg.Recommend,
		outputTopic:     cfg.Broker.OutputTopic,
		gateway:         gateway,
		publisher:       publisher,
	}
}

// Serve triggers a run on every tick until the context is cancelled. The
// first run starts immediately.
func (w *Worker) Serve(ctx context.Context) {
	log.Logger().Info("start recommendation worker",
		zap.Duration("interval", w.recommendConfig.Interval),
		zap.Int("n_factors", w.recommendConfig.NFactors),
		zap.Int("top_n", w.recommendConfig.TopN))
	ticker := time.NewTicker(w.recommendConfig.Interval)
	defer ticker.Stop()
	for {
		w.RunOnce(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			log.Logger().Info("stop recommendation worker")
			return
		}
	}
}

// RunOnce executes one pipeline pass. It never panics or propagates an
// error; the outcome is carried on the returned result.
func (w *Worker) RunOnce(ctx context.Context) (result Result) {
	if !w.running.TryLock() {
		log.Logger().Warn("pipeline run requested while another run is in progress")
		return Result{Status: StatusSkipped, Err: ErrRunInProgress}
	}
	defer w.running.Unlock()
	defer func() {
		if r := recover(); r != nil {
			log.Logger().Error("pipeline run panicked", zap.Any("panic", r))
			result = Result{Status: StatusFailed, Err: errors.Errorf("pipeline run panicked: %v", r)}
		}
	}()
	start := time.Now()
	result = w.run(ctx)
	switch result.Status {
	case StatusCompleted:
		log.Logger().Info("pipeline run completed",
			zap.Int("n_events", result.Published),
			zap.Duration("elapsed", time.Since(start)))
	case StatusSkipped:
		log.Logger().Info("pipeline run skipped", zap.Error(result.Err))
	case StatusFailed:
		log.Logger().Error("pipeline run failed", zap.Error(result.Err))
	}
	return
}

func (w *Worker) run(ctx context.Context) Result {
	// fetch entity collections through the read-through cache
	users, err := w.gateway.FetchUsers(ctx)
	if err != nil {
		return Result{Status: StatusFailed, Err: errors.Trace(err)}
	}
	products, err := w.gateway.FetchProducts(ctx)
	if err != nil {
		return Result{Status: StatusFailed, Err: errors.Trace(err)}
	}
	orders, err := w.gateway.FetchOrders(ctx)
	if err != nil {
		return Result{Status: StatusFailed, Err: errors.Trace(err)}
	}
	if len(users) == 0 || len(products) == 0 || len(orders) == 0 {
		return Result{Status: StatusSkipped,
			Err: errors.Errorf("not enough data: %d users, %d products, %d orders",
				len(users), len(products), len(orders))}
	}

	matrix := dataset.Build(users, products, orders)
	svd, err := model.Fit(matrix, model.Params{
		NFactors:    w.recommendConfig.NFactors,
		RandomState: w.recommendConfig.RandomState,
	})
	if err != nil {
		return Result{Status: StatusFailed, Err: errors.Trace(err)}
	}
	if svd == nil {
		return Result{Status: StatusSkipped,
			Err: errors.Errorf("not enough products to train on: %d", matrix.NumProducts())}
	}

	// score users in parallel, then publish in user order
	recommendations := make([][]data.Product, len(users))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(w.recommendConfig.Jobs)
	for i, user := range users {
		i, user := i, user
		g.Go(func() error {
			recommendations[i] = recommend.RecommendForUser(
				user.ID, svd, matrix, products, w.recommendConfig.TopN)
			return nil
		})
	}
	_ = g.Wait()

	var result Result
	result.Status = StatusCompleted
	for i, user := range users {
		if len(recommendations[i]) == 0 {
			continue
		}
		if err := w.publish(user.ID, recommendations[i]); err != nil {
			return Result{Status: StatusFailed, Err: errors.Trace(err)}
		}
		log.Logger().Debug("published recommendations",
			zap.String("user_id", user.ID),
			zap.Int("n_recommendations", len(recommendations[i])))
		result.Published++
		result.Last = recommendations[i]
	}
	return result
}

func (w *Worker) publish(userID string, recommendations []data.Product) error {
	payload, err := json.Marshal(data.RecommendationEvent{
		Type:            data.EventTypeRecommendations,
		UserID:          userID,
		Recommendations: recommendations,
	})
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(w.publisher.Publish(w.outputTopic, message.NewMessage(uuid.NewString(), payload)))
}
