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
	"container/heap"
	"sort"
)

// ScoredItem is an item id with a predicted score.
type ScoredItem struct {
	Id    int
	Score float32
}

// TopKFilter is designed for store K maximal elements. Heap is used to reduce
// time complexity and memory complexity in top-K searching. Ranking is
// deterministic: equal scores are ordered by ascending id.
type TopKFilter struct {
	items []ScoredItem
	k     int
}

// NewTopKFilter creates a TopKFilter.
func NewTopKFilter(k int) *TopKFilter {
	filter := new(TopKFilter)
	filter.items = make([]ScoredItem, 0, k+1)
	filter.k = k
	return filter
}

// Less returns true if the i-th item ranks below the j-th item. It is a
// method of heap.Interface. The root of the heap is the current loser:
// lowest score, largest id among equal scores.
func (filter *TopKFilter) Less(i, j int) bool {
	if filter.items[i].Score != filter.items[j].Score {
		return filter.items[i].Score < filter.items[j].Score
	}
	return filter.items[i].Id > filter.items[j].Id
}

// Swap the i-th item with the j-th item. It is a method of heap.Interface.
func (filter *TopKFilter) Swap(i, j int) {
	filter.items[i], filter.items[j] = filter.items[j], filter.items[i]
}

// Len returns the size of heap. It is a method of heap.Interface.
func (filter *TopKFilter) Len() int {
	return len(filter.items)
}

// Push an item into the TopKFilter. It is a method of heap.Interface.
func (filter *TopKFilter) Push(x interface{}) {
	filter.items = append(filter.items, x.(ScoredItem))
}

// Pop the loser item. It is a method of heap.Interface.
func (filter *TopKFilter) Pop() interface{} {
	n := filter.Len()
	item := filter.items[n-1]
	filter.items = filter.items[:n-1]
	return item
}

// Add a new element to the TopKFilter.
func (filter *TopKFilter) Add(id int, score float32) {
	heap.Push(filter, ScoredItem{Id: id, Score: score})
	if filter.Len() > filter.k {
		heap.Pop(filter)
	}
}

// TopK returns the kept elements ordered by descending score, ascending id
// among equal scores.
func (filter *TopKFilter) TopK() []ScoredItem {
	ranked := make([]ScoredItem, len(filter.items))
	copy(ranked, filter.items)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Id < ranked[j].Id
	})
	return ranked
}
