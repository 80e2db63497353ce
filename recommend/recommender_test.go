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

package recommend

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/reelrank/reelrank/dataset"
	"github.com/reelrank/reelrank/model"
	"github.com/reelrank/reelrank/store"
	"github.com/stretchr/testify/assert"
)

const (
	testUsers = 20
	testItems = 30
)

// newTestRecommender trains a small model where every user rates half of the
// items.
func newTestRecommender(t *testing.T) *Recommender {
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
	r, err := New(svd, store.NewMovieStore(movies))
	assert.NoError(t, err)
	return r
}

func TestRecommender_Recommend(t *testing.T) {
	r := newTestRecommender(t)
	recommendations, err := r.Recommend(5, 10)
	assert.NoError(t, err)
	// exactly 10 distinct movies
	assert.Len(t, recommendations, 10)
	seen := make(map[int]bool)
	for _, rec := range recommendations {
		assert.False(t, seen[rec.MovieId])
		seen[rec.MovieId] = true
	}
	// none of them rated by user 5: user 5 rated items where (5+item)%2 != 0
	for _, rec := range recommendations {
		item := rec.MovieId / 10
		assert.Equal(t, 0, (5+item)%2, "movie %d was rated by user 5", rec.MovieId)
	}
	// titles come from the movie table
	for _, rec := range recommendations {
		assert.Equal(t, fmt.Sprintf("Movie %d", rec.MovieId), rec.Title)
	}
}

func TestRecommender_Ordering(t *testing.T) {
	r := newTestRecommender(t)
	recommendations, err := r.Recommend(3, 15)
	assert.NoError(t, err)
	for i := 1; i < len(recommendations); i++ {
		prev, cur := recommendations[i-1], recommendations[i]
		if prev.Score == cur.Score {
			assert.Less(t, prev.MovieId, cur.MovieId)
		} else {
			assert.Greater(t, prev.Score, cur.Score)
		}
	}
	// repeated calls return the same ranking
	again, err := r.Recommend(3, 15)
	assert.NoError(t, err)
	assert.Equal(t, recommendations, again)
}

func TestRecommender_NLargerThanCatalog(t *testing.T) {
	r := newTestRecommender(t)
	recommendations, err := r.Recommend(5, 1000)
	assert.NoError(t, err)
	// user 5 rated half of the items, the rest are returned
	assert.Len(t, recommendations, testItems/2)
}

func TestRecommender_UnknownUser(t *testing.T) {
	r := newTestRecommender(t)
	_, err := r.Recommend(999, 10)
	assert.True(t, errors.IsNotFound(err))
}

func TestRecommender_InvalidN(t *testing.T) {
	r := newTestRecommender(t)
	_, err := r.Recommend(5, 0)
	assert.True(t, errors.IsBadRequest(err))
	_, err = r.Recommend(5, -3)
	assert.True(t, errors.IsBadRequest(err))
}

func TestRecommender_Movie(t *testing.T) {
	r := newTestRecommender(t)
	movie, err := r.Movie(10)
	assert.NoError(t, err)
	assert.Equal(t, "Movie 10", movie.Title)
	_, err = r.Movie(99999)
	assert.True(t, errors.IsNotFound(err))
	assert.Len(t, r.Movies(), testItems)
}

func TestOpen_MissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(filepath.Join(dir, "svd.model"), filepath.Join(dir, "movies.table"))
	assert.Error(t, err)
}

func TestOpen_CorruptModel(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "svd.model")
	moviesPath := filepath.Join(dir, "movies.table")
	assert.NoError(t, os.WriteFile(modelPath, []byte("corrupt"), 0o644))
	assert.NoError(t, os.WriteFile(moviesPath, []byte("corrupt"), 0o644))
	_, err := Open(modelPath, moviesPath)
	assert.Error(t, err)
}
