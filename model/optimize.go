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

package model

import (
	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	"github.com/juju/errors"
	"github.com/reelrank/reelrank/dataset"
)

// ModelCreator creates a fresh model for one optimization trial.
type ModelCreator func() MatrixFactorization

// ModelSearch searches hyper-parameters with a TPE sampler instead of
// exhaustive grid search. Each trial draws parameters from SuggestParams and
// scores them by k-fold cross-validation.
type ModelSearch struct {
	creator   ModelCreator
	data      *dataset.Dataset
	folds     int
	seed      int64
	config    *FitConfig
	bestScore  Score
	bestParams Params
}

// NewModelSearch creates a ModelSearch.
func NewModelSearch(creator ModelCreator, data *dataset.Dataset, folds int, seed int64, config *FitConfig) *ModelSearch {
	return &ModelSearch{
		creator: creator,
		data:    data,
		folds:   folds,
		seed:    seed,
		config:  config,
	}
}

// Objective is the goptuna objective. The study direction must be minimize
// since the returned value is the cross-validated RMSE.
func (ms *ModelSearch) Objective(trial goptuna.Trial) (float64, error) {
	if ms.creator == nil {
		return 0, errors.New("no model to search")
	}
	m := ms.creator()
	m.SetParams(m.GetParams().Overwrite(m.SuggestParams(trial)))
	score := CrossValidate(m, ms.data, ms.folds, ms.seed, ms.config)
	if ms.bestParams == nil || score.RMSE < ms.bestScore.RMSE {
		ms.bestScore = score
		ms.bestParams = m.GetParams().Copy()
	}
	return float64(score.RMSE), nil
}

// Result returns the best score and parameters found so far.
func (ms *ModelSearch) Result() (Score, Params) {
	return ms.bestScore, ms.bestParams
}

// TPESearchCV searches hyper-parameters with the tree-structured Parzen
// estimator for numTrials trials.
func TPESearchCV(creator ModelCreator, data *dataset.Dataset, folds int, numTrials int,
	seed int64, fitConfig *FitConfig) (ParamsSearchResult, error) {
	search := NewModelSearch(creator, data, folds, seed, fitConfig)
	study, err := goptuna.CreateStudy("tpe",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMinimize),
		goptuna.StudyOptionSampler(tpe.NewSampler()))
	if err != nil {
		return ParamsSearchResult{}, errors.Trace(err)
	}
	if err = study.Optimize(search.Objective, numTrials); err != nil {
		return ParamsSearchResult{}, errors.Trace(err)
	}
	score, params := search.Result()
	result := ParamsSearchResult{}
	result.AddScore(params, score)
	return result, nil
}
