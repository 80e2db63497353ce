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

// Package server implements the REST-ful API serving recommendations.
package server

import (
	"fmt"
	"net/http"
	"strconv"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/juju/errors"
	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/config"
	"github.com/reelrank/reelrank/recommend"
	"github.com/reelrank/reelrank/store"
	"github.com/swaggest/swgui/v5emb"
	"go.uber.org/zap"
)

// RestServer implements a REST-ful API server. The recommender is loaded once
// before the server accepts traffic and never mutated afterwards.
type RestServer struct {
	Recommender *recommend.Recommender
	Config      *config.Config
	HttpHost    string
	HttpPort    int
	WebService  *restful.WebService
}

// NewRestServer creates a RestServer.
func NewRestServer(recommender *recommend.Recommender, cfg *config.Config) *RestServer {
	return &RestServer{
		Recommender: recommender,
		Config:      cfg,
		HttpHost:    cfg.Server.Host,
		HttpPort:    cfg.Server.Port,
		WebService:  new(restful.WebService),
	}
}

// Health is the response of the health endpoint.
type Health struct {
	Ready     bool `json:"ready"`
	NumUsers  int  `json:"num_users"`
	NumItems  int  `json:"num_items"`
	NumMovies int  `json:"num_movies"`
}

// StartHttpServer starts the REST-ful API server.
func (s *RestServer) StartHttpServer() {
	// register restful APIs
	s.CreateWebService()
	restful.DefaultContainer.Add(s.WebService)
	// register swagger UI
	specConfig := restfulspec.Config{
		WebServices: restful.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}
	restful.DefaultContainer.Add(restfulspec.NewOpenAPIService(specConfig))
	http.Handle("/apidocs/", v5emb.New("ReelRank", specConfig.APIPath, "/apidocs/"))
	// register prometheus
	http.Handle("/metrics", metricsHandler())

	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s:%d", s.HttpHost, s.HttpPort)))
	log.Logger().Fatal("failed to start http server",
		zap.Error(http.ListenAndServe(fmt.Sprintf("%s:%d", s.HttpHost, s.HttpPort), nil)))
}

// LogFilter logs every request with its response status.
func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	chain.ProcessFilter(req, resp)
	log.Logger().Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()))
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(LogFilter)
	ws.Filter(MetricsFilter)

	// Get recommendations
	ws.Route(ws.GET("/recommend/{user-id}").To(s.getRecommend).
		Doc("Get the top movies for a user, excluding movies the user has rated.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommend"}).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Param(ws.QueryParameter("n", "number of returned movies").DataType("integer")).
		Writes([]recommend.Recommendation{}))
	// Get a movie
	ws.Route(ws.GET("/movie/{movie-id}").To(s.getMovie).
		Doc("Get a movie.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"movie"}).
		Param(ws.PathParameter("movie-id", "identifier of the movie").DataType("integer")).
		Writes(store.Movie{}))
	// Get movies
	ws.Route(ws.GET("/movies").To(s.getMovies).
		Doc("Get movies.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"movie"}).
		Param(ws.QueryParameter("n", "number of returned movies").DataType("integer")).
		Param(ws.QueryParameter("offset", "offset of the list").DataType("integer")).
		Writes([]store.Movie{}))
	// Health check
	ws.Route(ws.GET("/health").To(s.getHealth).
		Doc("Check the health of the server.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(Health{}))
}

func (s *RestServer) getRecommend(request *restful.Request, response *restful.Response) {
	// parse user id
	userId, err := strconv.Atoi(request.PathParameter("user-id"))
	if err != nil {
		BadRequest(response, err)
		return
	}
	// parse number of returned movies
	n := s.Config.Server.DefaultN
	if raw := request.QueryParameter("n"); raw != "" {
		n, err = strconv.Atoi(raw)
		if err != nil {
			BadRequest(response, err)
			return
		}
	}
	if n < 1 {
		BadRequest(response, errors.BadRequestf("n must be positive, got %d", n))
		return
	}
	if n > s.Config.Server.MaxN {
		n = s.Config.Server.MaxN
	}
	recommendations, err := s.Recommender.Recommend(userId, n)
	if err != nil {
		if errors.IsNotFound(err) {
			PageNotFound(response, err)
		} else if errors.IsBadRequest(err) {
			BadRequest(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	RecommendedMovies.Observe(float64(len(recommendations)))
	Ok(response, recommendations)
}

func (s *RestServer) getMovie(request *restful.Request, response *restful.Response) {
	movieId, err := strconv.Atoi(request.PathParameter("movie-id"))
	if err != nil {
		BadRequest(response, err)
		return
	}
	movie, err := s.Recommender.Movie(movieId)
	if err != nil {
		if errors.IsNotFound(err) {
			PageNotFound(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	Ok(response, movie)
}

func (s *RestServer) getMovies(request *restful.Request, response *restful.Response) {
	movies := s.Recommender.Movies()
	offset, err := parseQueryInt(request, "offset", 0)
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := parseQueryInt(request, "n", len(movies))
	if err != nil {
		BadRequest(response, err)
		return
	}
	if offset < 0 || n < 0 {
		BadRequest(response, errors.BadRequestf("n and offset must be non-negative"))
		return
	}
	if offset > len(movies) {
		offset = len(movies)
	}
	if offset+n > len(movies) {
		n = len(movies) - offset
	}
	Ok(response, movies[offset:offset+n])
}

func parseQueryInt(request *restful.Request, name string, fallback int) (int, error) {
	raw := request.QueryParameter(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (s *RestServer) getHealth(_ *restful.Request, response *restful.Response) {
	Ok(response, Health{
		Ready:     true,
		NumUsers:  s.Recommender.UserCount(),
		NumItems:  s.Recommender.ItemCount(),
		NumMovies: len(s.Recommender.Movies()),
	})
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.Logger().Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns an internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.Logger().Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.Logger().Error("failed to write json", zap.Error(err))
	}
}
