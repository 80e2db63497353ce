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

// Package dashboard serves a thin HTML front-end over the REST API. It keeps
// no state of its own: every page load fetches recommendations from the API
// server configured by api_address.
package dashboard

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/juju/errors"
	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/config"
	"github.com/reelrank/reelrank/recommend"
	"go.uber.org/zap"
)

//go:embed templates
var templates embed.FS

// Server is the dashboard front-end.
type Server struct {
	Config   *config.Config
	client   *http.Client
	template *template.Template
}

// NewServer creates a dashboard server.
func NewServer(cfg *config.Config) (*Server, error) {
	tpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Server{
		Config:   cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		template: tpl,
	}, nil
}

type page struct {
	UserId          string
	Recommendations []recommend.Recommendation
	Error           string
}

// Start serves the dashboard until the process exits.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.index)
	addr := fmt.Sprintf("%s:%d", s.Config.Dashboard.Host, s.Config.Dashboard.Port)
	log.Logger().Info("start dashboard",
		zap.String("url", fmt.Sprintf("http://%s", addr)),
		zap.String("api_address", s.Config.Dashboard.APIAddress))
	log.Logger().Fatal("failed to start dashboard",
		zap.Error(http.ListenAndServe(addr, mux)))
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	p := page{UserId: r.URL.Query().Get("user_id")}
	if p.UserId != "" {
		recommendations, err := s.fetchRecommend(p.UserId)
		if err != nil {
			p.Error = err.Error()
		} else {
			p.Recommendations = recommendations
		}
	}
	if err := s.template.ExecuteTemplate(w, "index.html", p); err != nil {
		log.Logger().Error("failed to render page", zap.Error(err))
	}
}

func (s *Server) fetchRecommend(userId string) ([]recommend.Recommendation, error) {
	url := fmt.Sprintf("%s/api/recommend/%s", s.Config.Dashboard.APIAddress, userId)
	resp, err := s.client.Get(url)
	if err != nil {
		return nil, errors.Annotate(err, "API server is unreachable")
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		var recommendations []recommend.Recommendation
		if err := json.NewDecoder(resp.Body).Decode(&recommendations); err != nil {
			return nil, errors.Trace(err)
		}
		return recommendations, nil
	case http.StatusNotFound:
		return nil, errors.NotFoundf("user %s", userId)
	case http.StatusBadRequest:
		return nil, errors.BadRequestf("invalid user id %s", userId)
	default:
		return nil, errors.Errorf("API server returned %s", resp.Status)
	}
}
