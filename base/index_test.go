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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndex(t *testing.T) {
	idx := NewMapIndex()
	idx.Add(5)
	idx.Add(3)
	idx.Add(5)
	idx.Add(8)
	assert.Equal(t, int32(3), idx.Len())
	assert.Equal(t, int32(0), idx.ToNumber(5))
	assert.Equal(t, int32(1), idx.ToNumber(3))
	assert.Equal(t, int32(2), idx.ToNumber(8))
	assert.Equal(t, NotId, idx.ToNumber(100))
	assert.Equal(t, 5, idx.ToId(0))
	assert.Equal(t, 3, idx.ToId(1))
	assert.Equal(t, 8, idx.ToId(2))
	assert.Equal(t, []int{5, 3, 8}, idx.GetIds())
}

func TestIndex_Marshal(t *testing.T) {
	idx := NewMapIndex()
	idx.Add(42)
	idx.Add(7)
	idx.Add(1000)
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, MarshalIndex(buf, idx))
	decoded, err := UnmarshalIndex(buf)
	assert.NoError(t, err)
	assert.Equal(t, idx.Ids, decoded.Ids)
	assert.Equal(t, idx.Numbers, decoded.Numbers)
}
