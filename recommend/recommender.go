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

// Package recommend ranks movies for known users with a trained model. The
// Recommender is immutable after Open so it can be shared by concurrent
// request handlers without locking.
package recommend

import (
	"os"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/reelrank/reelrank/base"
	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/model"
	"github.com/reelrank/reelrank/store"
	"go.uber.org/zap"
)

// Recommendation is a scored movie returned to the caller.
type Recommendation struct {
	MovieId int      `json:"movie_id"`
	Title   string   `json:"title"`
	Genres  []string `json:"genres"`
	Score   float32  `json:"score"`
}

// Recommender scores every unrated movie for a user and returns the top N.
type Recommender struct {
	model  model.MatrixFactorization
	movies *store.MovieStore
	rated  []mapset.Set[int32]
}

// New creates a Recommender from a trained model and a movie table.
func New(m model.MatrixFactorization, movies *store.MovieStore) (*Recommender, error) {
	if m == nil || m.Invalid() {
		return nil, errors.New("model has no weights")
	}
	if movies == nil || movies.Count() == 0 {
		return nil, errors.New("movie table is empty")
	}
	r := &Recommender{model: m, movies: movies}
	r.rated = make([]mapset.Set[int32], len(m.GetUserRatings()))
	for userIndex, itemIndices := range m.GetUserRatings() {
		r.rated[userIndex] = mapset.NewThreadUnsafeSet(itemIndices...)
	}
	return r, nil
}

// Open loads the model and movie artifacts written by a training run. Any
// missing or corrupt artifact returns an error so the caller can fail fast
// before accepting traffic.
func Open(modelPath, moviesPath string) (*Recommender, error) {
	modelFile, err := os.Open(modelPath)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to open model %s", modelPath)
	}
	defer modelFile.Close()
	m, err := model.UnmarshalModel(modelFile)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load model %s", modelPath)
	}
	moviesFile, err := os.Open(moviesPath)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to open movie table %s", moviesPath)
	}
	defer moviesFile.Close()
	movies, err := store.UnmarshalMovies(moviesFile)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load movie table %s", moviesPath)
	}
	r, err := New(m, movies)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("loaded artifacts",
		zap.String("model_path", modelPath),
		zap.String("movies_path", moviesPath),
		zap.Int32("n_users", m.GetUserIndex().Len()),
		zap.Int32("n_items", m.GetItemIndex().Len()),
		zap.Int("n_movies", movies.Count()))
	return r, nil
}

// UserCount returns the number of users known to the model.
func (r *Recommender) UserCount() int {
	return int(r.model.GetUserIndex().Len())
}

// ItemCount returns the number of items known to the model.
func (r *Recommender) ItemCount() int {
	return int(r.model.GetItemIndex().Len())
}

// Params returns the hyper-parameters the model was trained with.
func (r *Recommender) Params() model.Params {
	return r.model.GetParams()
}

// Movie returns metadata for a movie id.
func (r *Recommender) Movie(movieId int) (store.Movie, error) {
	movie, exist := r.movies.Get(movieId)
	if !exist {
		return store.Movie{}, errors.NotFoundf("movie %d", movieId)
	}
	return movie, nil
}

// Movies returns the whole movie table in ascending id order.
func (r *Recommender) Movies() []store.Movie {
	return r.movies.Movies()
}

// Recommend returns the n highest scored movies the user has not rated,
// ordered by descending score and ascending movie id among equal scores. An
// unknown user returns a not found error.
func (r *Recommender) Recommend(userId, n int) ([]Recommendation, error) {
	if n < 1 {
		return nil, errors.BadRequestf("n must be positive, got %d", n)
	}
	userIndex := r.model.GetUserIndex().ToNumber(userId)
	if userIndex == base.NotId {
		return nil, errors.NotFoundf("user %d", userId)
	}
	rated := r.rated[userIndex]
	itemIndex := r.model.GetItemIndex()
	filter := base.NewTopKFilter(n)
	for index := int32(0); index < itemIndex.Len(); index++ {
		if rated.Contains(index) {
			continue
		}
		score := r.model.InternalPredict(userIndex, index)
		filter.Add(itemIndex.ToId(index), score)
	}
	ranked := filter.TopK()
	recommendations := make([]Recommendation, 0, len(ranked))
	for _, item := range ranked {
		recommendation := Recommendation{MovieId: item.Id, Score: item.Score}
		if movie, exist := r.movies.Get(item.Id); exist {
			recommendation.Title = movie.Title
			recommendation.Genres = movie.Genres
		}
		recommendations = append(recommendations, recommendation)
	}
	return recommendations, nil
}
