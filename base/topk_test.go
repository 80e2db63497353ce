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

package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopKFilter(t *testing.T) {
	filter := NewTopKFilter(3)
	filter.Add(10, 0.5)
	filter.Add(20, 0.9)
	filter.Add(30, 0.1)
	filter.Add(40, 0.7)
	filter.Add(50, 0.3)
	ranked := filter.TopK()
	assert.Equal(t, []ScoredItem{
		{Id: 20, Score: 0.9},
		{Id: 40, Score: 0.7},
		{Id: 10, Score: 0.5},
	}, ranked)
}

func TestTopKFilter_Ties(t *testing.T) {
	// equal scores rank by ascending id
	filter := NewTopKFilter(3)
	filter.Add(7, 0.5)
	filter.Add(3, 0.5)
	filter.Add(5, 0.5)
	filter.Add(1, 0.5)
	ranked := filter.TopK()
	assert.Equal(t, []ScoredItem{
		{Id: 1, Score: 0.5},
		{Id: 3, Score: 0.5},
		{Id: 5, Score: 0.5},
	}, ranked)
}

func TestTopKFilter_FewerThanK(t *testing.T) {
	filter := NewTopKFilter(10)
	filter.Add(2, 0.2)
	filter.Add(1, 0.8)
	ranked := filter.TopK()
	assert.Equal(t, []ScoredItem{
		{Id: 1, Score: 0.8},
		{Id: 2, Score: 0.2},
	}, ranked)
}
