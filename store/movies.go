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

// Package store manages the movie metadata table. The raw movies.dat file is
// parsed once at training time and persisted as a compact artifact so the
// server never touches the raw dataset.
package store

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/reelrank/reelrank/base/encoding"
	"github.com/reelrank/reelrank/base/log"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// Movie is a single movie record.
type Movie struct {
	Id     int      `json:"movie_id"`
	Title  string   `json:"title"`
	Genres []string `json:"genres"`
}

// MovieStore is an immutable lookup table from movie id to metadata.
type MovieStore struct {
	movies map[int]Movie
	ids    []int
}

// NewMovieStore creates a MovieStore from movie records. Duplicated ids keep
// the first record.
func NewMovieStore(movies []Movie) *MovieStore {
	store := new(MovieStore)
	store.movies = make(map[int]Movie, len(movies))
	store.ids = make([]int, 0, len(movies))
	for _, movie := range movies {
		if _, exist := store.movies[movie.Id]; exist {
			continue
		}
		store.movies[movie.Id] = movie
		store.ids = append(store.ids, movie.Id)
	}
	sort.Ints(store.ids)
	return store
}

// Count returns the number of movies.
func (store *MovieStore) Count() int {
	return len(store.ids)
}

// Get returns the movie with the given id.
func (store *MovieStore) Get(id int) (Movie, bool) {
	movie, exist := store.movies[id]
	return movie, exist
}

// Ids returns all movie ids in ascending order.
func (store *MovieStore) Ids() []int {
	return store.ids
}

// Movies returns all movies in ascending id order.
func (store *MovieStore) Movies() []Movie {
	return lo.Map(store.ids, func(id int, _ int) Movie {
		return store.movies[id]
	})
}

// Genres returns the distinct genres over all movies in ascending order.
func (store *MovieStore) Genres() []string {
	genres := mapset.NewSet[string]()
	for _, movie := range store.movies {
		genres.Append(movie.Genres...)
	}
	sorted := genres.ToSlice()
	sort.Strings(sorted)
	return sorted
}

// LoadMovies loads the movie table from a delimited text file. Each line is
//
//	<movieId><sep><title><sep><genre>|<genre>|...
//
// MovieLens 1M ships movies.dat encoded as Latin-1, so the file is decoded
// before parsing. Malformed lines are skipped with a warning.
func LoadMovies(path, sep string) (*MovieStore, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to open movies file %s", path)
	}
	defer file.Close()
	movies := make([]Movie, 0)
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(file))
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.SplitN(line, sep, 3)
		if len(fields) < 3 {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			log.Logger().Warn("skip malformed movie line", zap.String("line", line))
			continue
		}
		genres := lo.Filter(strings.Split(fields[2], "|"), func(genre string, _ int) bool {
			return genre != ""
		})
		movies = append(movies, Movie{Id: id, Title: fields[1], Genres: genres})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	return NewMovieStore(movies), nil
}

// Marshal writes the movie table to a byte stream.
func (store *MovieStore) Marshal(w io.Writer) error {
	return errors.Trace(encoding.WriteGob(w, store.Movies()))
}

// UnmarshalMovies reads a movie table from a byte stream.
func UnmarshalMovies(r io.Reader) (*MovieStore, error) {
	var movies []Movie
	if err := encoding.ReadGob(r, &movies); err != nil {
		return nil, errors.Trace(err)
	}
	return NewMovieStore(movies), nil
}
