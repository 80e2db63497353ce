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

package encoding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrix(t *testing.T) {
	a := [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, WriteMatrix(buf, a))
	b := [][]float32{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}
	assert.NoError(t, ReadMatrix(buf, b))
	assert.Equal(t, a, b)
}

func TestString(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, WriteString(buf, "hello"))
	s, err := ReadString(buf)
	assert.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestReadBytes_Truncated(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, WriteBytes(buf, []byte("hello")))
	truncated := bytes.NewBuffer(buf.Bytes()[:6])
	_, err := ReadBytes(truncated)
	assert.Error(t, err)
}

func TestGob(t *testing.T) {
	a := map[string][]int{"a": {1, 2}, "b": {3}}
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, WriteGob(buf, a))
	var b map[string][]int
	assert.NoError(t, ReadGob(buf, &b))
	assert.Equal(t, a, b)
}
