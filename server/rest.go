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

// Package server exposes the diagnostic HTTP surface: a service banner and
// a synchronous trigger of the recommendation pipeline.
package server

import (
	"fmt"
	"net/http"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"

	"github.com/openmart/recommender/base/log"
	"github.com/openmart/recommender/worker"
)

// RestServer is the diagnostic REST surface of the service.
type RestServer struct {
	HttpHost   string
	HttpPort   int
	Worker     *worker.Worker
	WebService *restful.WebService
}

// NewRestServer creates a REST server wrapping a worker.
func NewRestServer(httpHost string, httpPort int, w *worker.Worker) *RestServer {
	return &RestServer{
		HttpHost:   httpHost,
		HttpPort:   httpPort,
		Worker:     w,
		WebService: new(restful.WebService),
	}
}

// StartHttpServer starts the REST-ful API server.
func (s *RestServer) StartHttpServer() {
	s.CreateWebService()
	container := restful.NewContainer()
	container.Add(s.WebService)
	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s:%d", s.HttpHost, s.HttpPort)))
	log.Logger().Fatal("failed to start http server",
		zap.Error(http.ListenAndServe(fmt.Sprintf("%s:%d", s.HttpHost, s.HttpPort), container)))
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	chain.ProcessFilter(req, resp)
	log.Logger().Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()))
}

// CreateWebService creates the web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Filter(LogFilter)

	// Service banner
	ws.Route(ws.GET("/").To(s.getRoot).
		Doc("Get the service banner."))
	// Trigger a pipeline run
	ws.Route(ws.POST("/api/recommend").To(s.postRecommend).
		Doc("Run the recommendation pipeline synchronously and return its result.").
		Writes(worker.Result{}))
}

func (s *RestServer) getRoot(_ *restful.Request, response *restful.Response) {
	if err := response.WriteAsJson(map[string]string{
		"service": "recommender",
		"status":  "ok",
	}); err != nil {
		log.Logger().Error("failed to write response", zap.Error(err))
	}
}

func (s *RestServer) postRecommend(request *restful.Request, response *restful.Response) {
	result := s.Worker.RunOnce(request.Request.Context())
	body := struct {
		worker.Result
		Error string `json:"error,omitempty"`
	}{Result: result}
	if result.Err != nil {
		body.Error = result.Err.Error()
	}
	if err := response.WriteAsJson(body); err != nil {
		log.Logger().Error("failed to write response", zap.Error(err))
	}
}
