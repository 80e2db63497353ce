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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "::", cfg.Data.Separator)
	assert.Equal(t, 10, cfg.Server.DefaultN)
	assert.Equal(t, filepath.Join("models", "svd.model"), cfg.Model.ModelPath())
	assert.Equal(t, filepath.Join("models", "movies.table"), cfg.Model.MoviesPath())
	assert.Equal(t, filepath.Join("models", "metadata.json"), cfg.Model.MetadataPath())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[data]
ratings_path = "/data/ratings.dat"

[train]
cv_folds = 5

[train.grid]
n_factors = [10, 20, 40]

[server]
port = 9000
`
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	cfg, err := LoadConfig(path)
	assert.NoError(t, err)
	// overridden values
	assert.Equal(t, "/data/ratings.dat", cfg.Data.RatingsPath)
	assert.Equal(t, 5, cfg.Train.CVFolds)
	assert.Equal(t, []int{10, 20, 40}, cfg.Train.Grid.NFactors)
	assert.Equal(t, 9000, cfg.Server.Port)
	// defaults fill the rest
	assert.Equal(t, "data/raw/movies.dat", cfg.Data.MoviesPath)
	assert.Equal(t, int64(42), cfg.Train.RandomState)
	assert.Equal(t, 100, cfg.Server.MaxN)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[train]
cv_folds = 1
`
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "no_such_config.toml"))
	assert.Error(t, err)
}
