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
	"encoding/binary"
	"io"

	"github.com/juju/errors"
)

// NotId represents an ID doesn't exist.
const NotId = int32(-1)

// Index manages the map between sparse ids and dense indices. A sparse id is
// a MovieLens user id or movie id. The dense index is the internal user index
// or item index optimized for faster parameter access and less memory usage.
type Index struct {
	Numbers map[int]int32 // sparse id -> dense index
	Ids     []int         // dense index -> sparse id
}

// NewMapIndex creates an Index.
func NewMapIndex() *Index {
	idx := new(Index)
	idx.Numbers = make(map[int]int32)
	idx.Ids = make([]int, 0)
	return idx
}

// Len returns the number of indexed ids.
func (idx *Index) Len() int32 {
	if idx == nil {
		return 0
	}
	return int32(len(idx.Ids))
}

// Add adds a new id to the indexer.
func (idx *Index) Add(id int) {
	if _, exist := idx.Numbers[id]; !exist {
		idx.Numbers[id] = int32(len(idx.Ids))
		idx.Ids = append(idx.Ids, id)
	}
}

// ToNumber converts a sparse id to a dense index.
func (idx *Index) ToNumber(id int) int32 {
	if denseId, exist := idx.Numbers[id]; exist {
		return denseId
	}
	return NotId
}

// ToId converts a dense index to a sparse id.
func (idx *Index) ToId(index int32) int {
	return idx.Ids[index]
}

// GetIds returns all ids in current index.
func (idx *Index) GetIds() []int {
	return idx.Ids
}

// Marshal map index into byte stream.
func (idx *Index) Marshal(w io.Writer) error {
	// write length
	err := binary.Write(w, binary.LittleEndian, int32(len(idx.Ids)))
	if err != nil {
		return errors.Trace(err)
	}
	// write ids
	for _, id := range idx.Ids {
		if err = binary.Write(w, binary.LittleEndian, int64(id)); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// Unmarshal map index from byte stream.
func (idx *Index) Unmarshal(r io.Reader) error {
	// read length
	var n int32
	err := binary.Read(r, binary.LittleEndian, &n)
	if err != nil {
		return errors.Trace(err)
	}
	if n < 0 {
		return errors.New("negative index length")
	}
	// read ids
	idx.Ids = make([]int, 0, n)
	idx.Numbers = make(map[int]int32, n)
	for i := 0; i < int(n); i++ {
		var id int64
		if err = binary.Read(r, binary.LittleEndian, &id); err != nil {
			return errors.Trace(err)
		}
		idx.Add(int(id))
	}
	return nil
}

// MarshalIndex marshal index into byte stream.
func MarshalIndex(w io.Writer, index *Index) error {
	return index.Marshal(w)
}

// UnmarshalIndex unmarshal index from byte stream.
func UnmarshalIndex(r io.Reader) (*Index, error) {
	index := &Index{}
	err := index.Unmarshal(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return index, nil
}
