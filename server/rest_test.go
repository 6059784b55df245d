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

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/alicebob/miniredis/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmart/recommender/client"
	"github.com/openmart/recommender/config"
	"github.com/openmart/recommender/storage/cache"
	"github.com/openmart/recommender/worker"
)

func newTestServer(t *testing.T) *httptest.Server {
	redisServer := miniredis.RunT(t)
	database, err := cache.Open("redis://" + redisServer.Addr())
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, database.Close())
	})

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	t.Cleanup(upstream.Close)

	conf, err := config.LoadConfig("")
	require.NoError(t, err)
	conf.Upstream.UsersURL = upstream.URL
	conf.Upstream.ProductsURL = upstream.URL
	conf.Upstream.OrdersURL = upstream.URL

	gateway := client.NewGateway(conf.Upstream, database)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	w := worker.NewWorker(conf, gateway, pubSub)

	restServer := NewRestServer(conf.HTTP.Host, conf.HTTP.Port, w)
	restServer.CreateWebService()
	container := restful.NewContainer()
	container.Add(restServer.WebService)
	httpServer := httptest.NewServer(container)
	t.Cleanup(httpServer.Close)
	return httpServer
}

func TestGetRoot(t *testing.T) {
	httpServer := newTestServer(t)
	resp, err := http.Get(httpServer.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "recommender", body["service"])
}

func TestPostRecommend(t *testing.T) {
	httpServer := newTestServer(t)
	resp, err := http.Post(httpServer.URL+"/api/recommend", restful.MIME_JSON, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	// the empty upstream collections make the run a skip, not a failure
	assert.Equal(t, string(worker.StatusSkipped), body.Status)
	assert.NotEmpty(t, body.Error)
}
