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
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration for reelrank.
type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	Model     ModelConfig     `mapstructure:"model"`
	Train     TrainConfig     `mapstructure:"train"`
	Server    ServerConfig    `mapstructure:"server"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// DataConfig locates the raw MovieLens files.
type DataConfig struct {
	RatingsPath string `mapstructure:"ratings_path" validate:"required"`
	MoviesPath  string `mapstructure:"movies_path" validate:"required"`
	Separator   string `mapstructure:"separator" validate:"required"`
}

// ModelConfig locates the artifacts written by training and read by serving.
type ModelConfig struct {
	Dir          string `mapstructure:"dir" validate:"required"`
	ModelFile    string `mapstructure:"model_file" validate:"required"`
	MoviesFile   string `mapstructure:"movies_file" validate:"required"`
	MetadataFile string `mapstructure:"metadata_file" validate:"required"`
}

// ModelPath returns the path of the model artifact.
func (c *ModelConfig) ModelPath() string {
	return filepath.Join(c.Dir, c.ModelFile)
}

// MoviesPath returns the path of the cleaned movie table artifact.
func (c *ModelConfig) MoviesPath() string {
	return filepath.Join(c.Dir, c.MoviesFile)
}

// MetadataPath returns the path of the run metadata file.
func (c *ModelConfig) MetadataPath() string {
	return filepath.Join(c.Dir, c.MetadataFile)
}

// TrainConfig is the configuration for the offline training run.
type TrainConfig struct {
	MinRating   float32    `mapstructure:"min_rating"`
	MaxRating   float32    `mapstructure:"max_rating" validate:"gtfield=MinRating"`
	TestRatio   float64    `mapstructure:"test_ratio" validate:"gt=0,lt=1"`
	CVFolds     int        `mapstructure:"cv_folds" validate:"gte=2"`
	RandomState int64      `mapstructure:"random_state"`
	TuneTrials  int        `mapstructure:"tune_trials" validate:"gt=0"`
	Grid        GridConfig `mapstructure:"grid"`
}

// GridConfig is the hyperparameter search space for grid search.
type GridConfig struct {
	NFactors []int     `mapstructure:"n_factors" validate:"min=1,dive,gt=0"`
	Lr       []float64 `mapstructure:"lr" validate:"min=1,dive,gt=0"`
	Reg      []float64 `mapstructure:"reg" validate:"min=1,dive,gte=0"`
	NEpochs  []int     `mapstructure:"n_epochs" validate:"min=1,dive,gt=0"`
}

// ServerConfig is the configuration for the REST server.
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"gt=0"`
	DefaultN int    `mapstructure:"default_n" validate:"gt=0"`
	MaxN     int    `mapstructure:"max_n" validate:"gtefield=DefaultN"`
}

// DashboardConfig is the configuration for the dashboard front-end.
type DashboardConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port" validate:"gt=0"`
	APIAddress string `mapstructure:"api_address" validate:"required"`
}

// GetDefaultConfig returns the default configuration. Hyperparameter
// defaults follow the MovieLens 1M baseline: 100 factors, 20 epochs,
// learning rate 0.005, regularization 0.02.
func GetDefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			RatingsPath: "data/raw/ratings.dat",
			MoviesPath:  "data/raw/movies.dat",
			Separator:   "::",
		},
		Model: ModelConfig{
			Dir:          "models",
			ModelFile:    "svd.model",
			MoviesFile:   "movies.table",
			MetadataFile: "metadata.json",
		},
		Train: TrainConfig{
			MinRating:   1,
			MaxRating:   5,
			TestRatio:   0.2,
			CVFolds:     3,
			RandomState: 42,
			TuneTrials:  10,
			Grid: GridConfig{
				NFactors: []int{50, 100},
				Lr:       []float64{0.002, 0.005},
				Reg:      []float64{0.02, 0.05},
				NEpochs:  []int{20},
			},
		},
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8087,
			DefaultN: 10,
			MaxN:     100,
		},
		Dashboard: DashboardConfig{
			Host:       "127.0.0.1",
			Port:       8088,
			APIAddress: "http://127.0.0.1:8087",
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [data]
	viper.SetDefault("data.ratings_path", defaultConfig.Data.RatingsPath)
	viper.SetDefault("data.movies_path", defaultConfig.Data.MoviesPath)
	viper.SetDefault("data.separator", defaultConfig.Data.Separator)
	// [model]
	viper.SetDefault("model.dir", defaultConfig.Model.Dir)
	viper.SetDefault("model.model_file", defaultConfig.Model.ModelFile)
	viper.SetDefault("model.movies_file", defaultConfig.Model.MoviesFile)
	viper.SetDefault("model.metadata_file", defaultConfig.Model.MetadataFile)
	// [train]
	viper.SetDefault("train.min_rating", defaultConfig.Train.MinRating)
	viper.SetDefault("train.max_rating", defaultConfig.Train.MaxRating)
	viper.SetDefault("train.test_ratio", defaultConfig.Train.TestRatio)
	viper.SetDefault("train.cv_folds", defaultConfig.Train.CVFolds)
	viper.SetDefault("train.random_state", defaultConfig.Train.RandomState)
	viper.SetDefault("train.tune_trials", defaultConfig.Train.TuneTrials)
	viper.SetDefault("train.grid.n_factors", defaultConfig.Train.Grid.NFactors)
	viper.SetDefault("train.grid.lr", defaultConfig.Train.Grid.Lr)
	viper.SetDefault("train.grid.reg", defaultConfig.Train.Grid.Reg)
	viper.SetDefault("train.grid.n_epochs", defaultConfig.Train.Grid.NEpochs)
	// [server]
	viper.SetDefault("server.host", defaultConfig.Server.Host)
	viper.SetDefault("server.port", defaultConfig.Server.Port)
	viper.SetDefault("server.default_n", defaultConfig.Server.DefaultN)
	viper.SetDefault("server.max_n", defaultConfig.Server.MaxN)
	// [dashboard]
	viper.SetDefault("dashboard.host", defaultConfig.Dashboard.Host)
	viper.SetDefault("dashboard.port", defaultConfig.Dashboard.Port)
	viper.SetDefault("dashboard.api_address", defaultConfig.Dashboard.APIAddress)
}

// LoadConfig loads configuration from a TOML file and fills defaults for
// missing values.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	viper.SetConfigType("toml")
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks invariants the rest of the system relies on.
func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Annotate(err, "invalid config")
	}
	return nil
}
