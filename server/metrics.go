// Copyright 2024 ReelRank Project Authors
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
	"strconv"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestSeconds observes the latency of API requests by route and status.
	RequestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reelrank",
		Subsystem: "server",
		Name:      "request_seconds",
		Help:      "Latency of API requests.",
	}, []string{"route", "status"})
	// RecommendedMovies observes the number of movies returned per request.
	RecommendedMovies = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reelrank",
		Subsystem: "server",
		Name:      "recommended_movies",
		Help:      "Number of movies returned per recommend request.",
		Buckets:   prometheus.LinearBuckets(10, 10, 10),
	})
)

// MetricsFilter records request latency by route and status.
func MetricsFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	startTime := time.Now()
	chain.ProcessFilter(req, resp)
	RequestSeconds.WithLabelValues(req.SelectedRoutePath(), strconv.Itoa(resp.StatusCode())).
		Observe(time.Since(startTime).Seconds())
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
