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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataset_AddRating(t *testing.T) {
	data := NewDataset()
	data.AddRating(1, 100, 5)
	data.AddRating(1, 200, 3)
	data.AddRating(2, 100, 4)
	assert.Equal(t, 3, data.Count())
	assert.Equal(t, 2, data.UserCount())
	assert.Equal(t, 2, data.ItemCount())
	userIndex, itemIndex, rating := data.Get(1)
	assert.Equal(t, int32(0), userIndex)
	assert.Equal(t, int32(1), itemIndex)
	assert.Equal(t, float32(3), rating)
	assert.Equal(t, [][]int32{{0, 1}, {0}}, data.UserRatings)
	assert.InDelta(t, 4.0, data.GlobalMean(), 1e-6)
}

func TestDataset_Split(t *testing.T) {
	data := NewDataset()
	for user := 1; user <= 10; user++ {
		for item := 1; item <= 10; item++ {
			data.AddRating(user, item*100, float32(user%5+1))
		}
	}
	train, test := data.Split(0.2, 42)
	assert.Equal(t, 80, train.Count())
	assert.Equal(t, 20, test.Count())
	// indices are shared
	assert.Equal(t, data.UserIndex, train.UserIndex)
	assert.Equal(t, data.ItemIndex, test.ItemIndex)
	// the split is deterministic for a fixed seed
	train2, test2 := data.Split(0.2, 42)
	assert.Equal(t, train.Ratings, train2.Ratings)
	assert.Equal(t, test.Items, test2.Items)
}

func TestDataset_KFold(t *testing.T) {
	data := NewDataset()
	for i := 0; i < 10; i++ {
		data.AddRating(i, i+100, float32(i%5+1))
	}
	trains, tests := data.KFold(3, 0)
	assert.Len(t, trains, 3)
	assert.Len(t, tests, 3)
	total := 0
	for i := range trains {
		assert.Equal(t, 10, trains[i].Count()+tests[i].Count())
		total += tests[i].Count()
	}
	// test folds partition the dataset
	assert.Equal(t, 10, total)
}

func TestLoadRatings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.dat")
	content := "1::1193::5::978300760\n" +
		"1::661::3::978302109\n" +
		"malformed line\n" +
		"2::1193::4::978298413\n"
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	data, err := LoadRatings(path, "::")
	assert.NoError(t, err)
	assert.Equal(t, 3, data.Count())
	assert.Equal(t, 2, data.UserCount())
	assert.Equal(t, 2, data.ItemCount())
	userIndex, itemIndex, rating := data.Get(0)
	assert.Equal(t, 1, data.UserIndex.ToId(userIndex))
	assert.Equal(t, 1193, data.ItemIndex.ToId(itemIndex))
	assert.Equal(t, float32(5), rating)
}

func TestLoadRatings_Missing(t *testing.T) {
	_, err := LoadRatings(filepath.Join(t.TempDir(), "no_such_file.dat"), "::")
	assert.Error(t, err)
}
