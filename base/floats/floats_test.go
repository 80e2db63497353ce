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

package floats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDot(t *testing.T) {
	assert.Equal(t, float32(32), Dot([]float32{1, 2, 3}, []float32{4, 5, 6}))
	assert.Panics(t, func() { Dot([]float32{1}, []float32{1, 2}) })
}

func TestMulConstTo(t *testing.T) {
	dst := make([]float32, 3)
	MulConstTo([]float32{1, 2, 3}, 2, dst)
	assert.Equal(t, []float32{2, 4, 6}, dst)
}

func TestMulConstAddTo(t *testing.T) {
	dst := []float32{1, 1, 1}
	MulConstAddTo([]float32{1, 2, 3}, 2, dst)
	assert.Equal(t, []float32{3, 5, 7}, dst)
}

func TestAdd(t *testing.T) {
	dst := []float32{1, 2, 3}
	Add(dst, []float32{1, 1, 1})
	assert.Equal(t, []float32{2, 3, 4}, dst)
}

func TestSubTo(t *testing.T) {
	dst := make([]float32, 3)
	SubTo([]float32{4, 5, 6}, []float32{1, 2, 3}, dst)
	assert.Equal(t, []float32{3, 3, 3}, dst)
}
