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

package dataset

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/reelrank/reelrank/base"
	"github.com/reelrank/reelrank/base/log"
	"go.uber.org/zap"
)

// Dataset contains preprocessed rating triples for matrix factorization
// models. User and item ids are mapped to dense indices shared by every
// split derived from the same source.
type Dataset struct {
	UserIndex   *base.Index
	ItemIndex   *base.Index
	Users       []int32
	Items       []int32
	Ratings     []float32
	UserRatings [][]int32 // items rated by each user, by dense index
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	dataset := new(Dataset)
	dataset.UserIndex = base.NewMapIndex()
	dataset.ItemIndex = base.NewMapIndex()
	dataset.UserRatings = make([][]int32, 0)
	return dataset
}

// AddRating adds a (user, item, rating) triple.
func (dataset *Dataset) AddRating(userId, itemId int, rating float32) {
	dataset.UserIndex.Add(userId)
	dataset.ItemIndex.Add(itemId)
	userIndex := dataset.UserIndex.ToNumber(userId)
	itemIndex := dataset.ItemIndex.ToNumber(itemId)
	dataset.Users = append(dataset.Users, userIndex)
	dataset.Items = append(dataset.Items, itemIndex)
	dataset.Ratings = append(dataset.Ratings, rating)
	for int(userIndex) >= len(dataset.UserRatings) {
		dataset.UserRatings = append(dataset.UserRatings, make([]int32, 0))
	}
	dataset.UserRatings[userIndex] = append(dataset.UserRatings[userIndex], itemIndex)
}

// Count returns the number of rating triples.
func (dataset *Dataset) Count() int {
	return len(dataset.Ratings)
}

// UserCount returns the number of indexed users.
func (dataset *Dataset) UserCount() int {
	return int(dataset.UserIndex.Len())
}

// ItemCount returns the number of indexed items.
func (dataset *Dataset) ItemCount() int {
	return int(dataset.ItemIndex.Len())
}

// Get returns the i-th triple by <user index, item index, rating>.
func (dataset *Dataset) Get(i int) (int32, int32, float32) {
	return dataset.Users[i], dataset.Items[i], dataset.Ratings[i]
}

// GlobalMean returns the mean rating over all triples.
func (dataset *Dataset) GlobalMean() float32 {
	if dataset.Count() == 0 {
		return 0
	}
	var sum float32
	for _, rating := range dataset.Ratings {
		sum += rating
	}
	return sum / float32(dataset.Count())
}

// subset builds a dataset from selected triple positions. Indices are shared
// with the source dataset so dense indices stay stable across splits.
func (dataset *Dataset) subset(positions []int) *Dataset {
	out := new(Dataset)
	out.UserIndex = dataset.UserIndex
	out.ItemIndex = dataset.ItemIndex
	out.Users = make([]int32, 0, len(positions))
	out.Items = make([]int32, 0, len(positions))
	out.Ratings = make([]float32, 0, len(positions))
	out.UserRatings = make([][]int32, dataset.UserCount())
	for i := range out.UserRatings {
		out.UserRatings[i] = make([]int32, 0)
	}
	for _, p := range positions {
		userIndex, itemIndex, rating := dataset.Get(p)
		out.Users = append(out.Users, userIndex)
		out.Items = append(out.Items, itemIndex)
		out.Ratings = append(out.Ratings, rating)
		out.UserRatings[userIndex] = append(out.UserRatings[userIndex], itemIndex)
	}
	return out
}

// Split splits the dataset into a train set and a test set by the given
// ratio of test triples. The split is deterministic for a fixed seed.
func (dataset *Dataset) Split(testRatio float64, seed int64) (*Dataset, *Dataset) {
	rng := base.NewRandomGenerator(seed)
	perm := rng.Perm(dataset.Count())
	testSize := int(float64(dataset.Count()) * testRatio)
	testSet := dataset.subset(perm[:testSize])
	trainSet := dataset.subset(perm[testSize:])
	return trainSet, testSet
}

// KFold splits the dataset into k cross-validation folds. The i-th fold uses
// the i-th chunk of a seeded permutation as test set and the rest as train
// set.
func (dataset *Dataset) KFold(k int, seed int64) ([]*Dataset, []*Dataset) {
	trainFolds := make([]*Dataset, k)
	testFolds := make([]*Dataset, k)
	rng := base.NewRandomGenerator(seed)
	perm := rng.Perm(dataset.Count())
	foldSize := dataset.Count() / k
	begin, end := 0, 0
	for i := 0; i < k; i++ {
		end += foldSize
		if i < dataset.Count()%k {
			end++
		}
		testFolds[i] = dataset.subset(perm[begin:end])
		train := make([]int, 0, dataset.Count()-(end-begin))
		train = append(train, perm[:begin]...)
		train = append(train, perm[end:]...)
		trainFolds[i] = dataset.subset(train)
		begin = end
	}
	return trainFolds, testFolds
}

// LoadRatings loads rating triples from a delimited text file. Each line is
//
//	<userId><sep><movieId><sep><rating>[<sep><timestamp>]
//
// For example, ratings.dat from MovieLens 1M is:
//
//	1::1193::5::978300760
//	1::661::3::978302109
//
// Malformed lines are skipped with a warning.
func LoadRatings(path, sep string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to open ratings file %s", path)
	}
	defer file.Close()
	dataset := NewDataset()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Split(line, sep)
		if len(fields) < 3 {
			continue
		}
		userId, err := strconv.Atoi(fields[0])
		if err != nil {
			log.Logger().Warn("skip malformed rating line", zap.String("line", line))
			continue
		}
		itemId, err := strconv.Atoi(fields[1])
		if err != nil {
			log.Logger().Warn("skip malformed rating line", zap.String("line", line))
			continue
		}
		rating, err := strconv.ParseFloat(fields[2], 32)
		if err != nil {
			log.Logger().Warn("skip malformed rating line", zap.String("line", line))
			continue
		}
		dataset.AddRating(userId, itemId, float32(rating))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	return dataset, nil
}
