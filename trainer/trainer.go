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

// Package trainer runs the offline training pipeline: load the raw MovieLens
// files, search hyper-parameters by cross-validation, refit the best
// parameters on the full dataset and persist the serving artifacts.
package trainer

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/config"
	"github.com/reelrank/reelrank/dataset"
	"github.com/reelrank/reelrank/model"
	"github.com/reelrank/reelrank/store"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Metadata describes a completed training run. It is written next to the
// model artifact as a human-readable record.
type Metadata struct {
	TrainedAt    time.Time    `json:"trained_at"`
	TrainTime    string       `json:"train_time"`
	NumUsers     int          `json:"num_users"`
	NumItems     int          `json:"num_items"`
	NumRatings   int          `json:"num_ratings"`
	NumMovies    int          `json:"num_movies"`
	BestParams   model.Params `json:"best_params"`
	CVScore      model.Score  `json:"cv_score"`
	HoldoutScore model.Score  `json:"holdout_score"`
}

// Trainer is the offline training pipeline.
type Trainer struct {
	config *config.Config
}

// NewTrainer creates a Trainer.
func NewTrainer(cfg *config.Config) *Trainer {
	return &Trainer{config: cfg}
}

// paramsGrid converts the configured search space into grid candidates.
func paramsGrid(grid config.GridConfig) model.ParamsGrid {
	return model.ParamsGrid{
		model.NFactors: lo.ToAnySlice(grid.NFactors),
		model.Lr:       lo.ToAnySlice(grid.Lr),
		model.Reg:      lo.ToAnySlice(grid.Reg),
		model.NEpochs:  lo.ToAnySlice(grid.NEpochs),
	}
}

// Train runs the full pipeline. With tune set, hyper-parameters are searched
// by TPE instead of exhaustive grid search.
func (t *Trainer) Train(tune bool) error {
	startTime := time.Now()
	cfg := t.config
	// Load raw data
	data, err := dataset.LoadRatings(cfg.Data.RatingsPath, cfg.Data.Separator)
	if err != nil {
		return errors.Trace(err)
	}
	if data.Count() == 0 {
		return errors.Errorf("no ratings found in %s", cfg.Data.RatingsPath)
	}
	movies, err := store.LoadMovies(cfg.Data.MoviesPath, cfg.Data.Separator)
	if err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("loaded dataset",
		zap.Int("n_users", data.UserCount()),
		zap.Int("n_items", data.ItemCount()),
		zap.Int("n_ratings", data.Count()),
		zap.Int("n_movies", movies.Count()))
	// Search hyper-parameters on the train split
	trainSet, testSet := data.Split(cfg.Train.TestRatio, cfg.Train.RandomState)
	fitConfig := model.NewFitConfig().
		SetRatingScale(cfg.Train.MinRating, cfg.Train.MaxRating)
	baseParams := model.Params{model.RandomState: cfg.Train.RandomState}
	var result model.ParamsSearchResult
	if tune {
		result, err = model.TPESearchCV(func() model.MatrixFactorization {
			return model.NewSVD(baseParams.Copy())
		}, trainSet, cfg.Train.CVFolds, cfg.Train.TuneTrials, cfg.Train.RandomState, fitConfig)
		if err != nil {
			return errors.Trace(err)
		}
	} else {
		estimator := model.NewSVD(baseParams.Copy())
		result = model.GridSearchCV(estimator, trainSet, paramsGrid(cfg.Train.Grid),
			cfg.Train.CVFolds, cfg.Train.RandomState, fitConfig)
	}
	bestParams := baseParams.Overwrite(result.BestParams)
	// Evaluate the best parameters on the held-out split
	holdout := model.NewSVD(bestParams.Copy())
	holdoutScore := holdout.Fit(trainSet, testSet, fitConfig)
	log.Logger().Info("holdout evaluation",
		zap.Float32("RMSE", holdoutScore.RMSE),
		zap.Float32("MAE", holdoutScore.MAE))
	// Refit on the full dataset for the serving artifact
	final := model.NewSVD(bestParams.Copy())
	final.Fit(data, testSet, fitConfig)
	// Persist artifacts
	metadata := Metadata{
		TrainedAt:    startTime,
		TrainTime:    time.Since(startTime).String(),
		NumUsers:     data.UserCount(),
		NumItems:     data.ItemCount(),
		NumRatings:   data.Count(),
		NumMovies:    movies.Count(),
		BestParams:   bestParams,
		CVScore:      result.BestScore,
		HoldoutScore: holdoutScore,
	}
	if err := t.persist(final, movies, &metadata); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("training complete",
		zap.String("train_time", metadata.TrainTime),
		zap.Any("params", bestParams),
		zap.String("model_path", cfg.Model.ModelPath()))
	return nil
}

// persist writes the model, movie table and metadata. Each file is written to
// a temporary path and renamed so a serving process never sees a partial
// artifact.
func (t *Trainer) persist(m model.MatrixFactorization, movies *store.MovieStore, metadata *Metadata) error {
	cfg := t.config
	if err := os.MkdirAll(cfg.Model.Dir, 0o755); err != nil {
		return errors.Trace(err)
	}
	if err := atomicWrite(cfg.Model.ModelPath(), func(w io.Writer) error {
		return model.MarshalModel(w, m)
	}); err != nil {
		return errors.Trace(err)
	}
	if err := atomicWrite(cfg.Model.MoviesPath(), func(w io.Writer) error {
		return movies.Marshal(w)
	}); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(atomicWrite(cfg.Model.MetadataPath(), func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(metadata)
	}))
}

func atomicWrite(path string, write func(w io.Writer) error) error {
	temp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.Trace(err)
	}
	defer os.Remove(temp.Name())
	if err := write(temp); err != nil {
		temp.Close()
		return errors.Trace(err)
	}
	if err := temp.Close(); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(os.Rename(temp.Name(), path))
}
