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
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/emicklei/go-restful/v3"
	"github.com/reelrank/reelrank/config"
	"github.com/reelrank/reelrank/dataset"
	"github.com/reelrank/reelrank/model"
	"github.com/reelrank/reelrank/recommend"
	"github.com/reelrank/reelrank/store"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/suite"
)

const (
	testUsers = 20
	testItems = 30
)

type ServerTestSuite struct {
	suite.Suite
	RestServer
	handler *restful.Container
}

func (suite *ServerTestSuite) SetupSuite() {
	// train a small model where every user rates half of the items
	data := dataset.NewDataset()
	for user := 1; user <= testUsers; user++ {
		for item := 1; item <= testItems; item++ {
			if (user+item)%2 == 0 {
				continue
			}
			rating := float32(3 + user%3 - 1 + item%3 - 1)
			data.AddRating(user, item*10, rating)
		}
	}
	svd := model.NewSVD(model.Params{
		model.NFactors:    4,
		model.NEpochs:     5,
		model.Lr:          0.01,
		model.RandomState: 42,
	})
	svd.Fit(data, data, model.NewFitConfig())
	movies := make([]store.Movie, 0, testItems)
	for item := 1; item <= testItems; item++ {
		movies = append(movies, store.Movie{
			Id:     item * 10,
			Title:  fmt.Sprintf("Movie %d", item*10),
			Genres: []string{"Drama"},
		})
	}
	recommender, err := recommend.New(svd, store.NewMovieStore(movies))
	suite.NoError(err)
	suite.Config = config.GetDefaultConfig()
	suite.Config.Server.DefaultN = 10
	suite.Config.Server.MaxN = 12
	suite.Recommender = recommender
	suite.WebService = new(restful.WebService)
	suite.CreateWebService()
	suite.handler = restful.NewContainer()
	suite.handler.Add(suite.WebService)
}

func (suite *ServerTestSuite) marshal(v interface{}) string {
	s, err := json.Marshal(v)
	suite.NoError(err)
	return string(s)
}

func (suite *ServerTestSuite) TestRecommend() {
	t := suite.T()
	recommendations, err := suite.Recommender.Recommend(5, 10)
	suite.NoError(err)
	suite.Len(recommendations, 10)
	apitest.New().
		Handler(suite.handler).
		Get("/api/recommend/5").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(recommendations)).
		End()
}

func (suite *ServerTestSuite) TestRecommendWithN() {
	t := suite.T()
	recommendations, err := suite.Recommender.Recommend(5, 3)
	suite.NoError(err)
	suite.Len(recommendations, 3)
	apitest.New().
		Handler(suite.handler).
		Get("/api/recommend/5").
		Query("n", "3").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(recommendations)).
		End()
}

func (suite *ServerTestSuite) TestRecommendClampN() {
	t := suite.T()
	// n larger than max_n is clamped to max_n
	recommendations, err := suite.Recommender.Recommend(5, suite.Config.Server.MaxN)
	suite.NoError(err)
	apitest.New().
		Handler(suite.handler).
		Get("/api/recommend/5").
		Query("n", "10000").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(recommendations)).
		End()
}

func (suite *ServerTestSuite) TestRecommendUnknownUser() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/api/recommend/999").
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

func (suite *ServerTestSuite) TestRecommendBadRequest() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/api/recommend/abc").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/recommend/5").
		Query("n", "0").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/recommend/5").
		Query("n", "oops").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestMovie() {
	t := suite.T()
	movie, err := suite.Recommender.Movie(10)
	suite.NoError(err)
	apitest.New().
		Handler(suite.handler).
		Get("/api/movie/10").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(movie)).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/movie/99999").
		Expect(t).
		Status(http.StatusNotFound).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/movie/abc").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestMovies() {
	t := suite.T()
	movies := suite.Recommender.Movies()
	apitest.New().
		Handler(suite.handler).
		Get("/api/movies").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(movies)).
		End()
	// paging
	apitest.New().
		Handler(suite.handler).
		Get("/api/movies").
		Query("n", "2").
		Query("offset", "1").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(movies[1:3])).
		End()
	// offset beyond the catalog returns an empty list
	apitest.New().
		Handler(suite.handler).
		Get("/api/movies").
		Query("offset", "100000").
		Expect(t).
		Status(http.StatusOK).
		Body("[]").
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/movies").
		Query("n", "-1").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestHealth() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/api/health").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(Health{
			Ready:     true,
			NumUsers:  testUsers,
			NumItems:  testItems,
			NumMovies: testItems,
		})).
		End()
}

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
