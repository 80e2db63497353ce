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
	"fmt"

	"github.com/reelrank/reelrank/base"
	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/dataset"
	"go.uber.org/zap"
)

// ParamsSearchResult contains the return of grid search.
type ParamsSearchResult struct {
	BestScore  Score
	BestParams Params
	BestIndex  int
	Scores     []Score
	Params     []Params
}

// AddScore adds a cross-validation score. Lower RMSE wins.
func (r *ParamsSearchResult) AddScore(params Params, score Score) {
	r.Scores = append(r.Scores, score)
	r.Params = append(r.Params, params.Copy())
	if len(r.Scores) == 1 || score.RMSE < r.BestScore.RMSE {
		r.BestScore = score
		r.BestParams = params.Copy()
		r.BestIndex = len(r.Params) - 1
	}
}

// CrossValidate evaluates one parameter set by k-fold cross-validation and
// returns the mean score over folds.
func CrossValidate(estimator MatrixFactorization, data *dataset.Dataset, folds int, seed int64, fitConfig *FitConfig) Score {
	trainFolds, testFolds := data.KFold(folds, seed)
	var mean Score
	for i := range trainFolds {
		estimator.Clear()
		score := estimator.Fit(trainFolds[i], testFolds[i], fitConfig)
		mean.RMSE += score.RMSE
		mean.MAE += score.MAE
	}
	mean.RMSE /= float32(folds)
	mean.MAE /= float32(folds)
	return mean
}

// GridSearchCV finds the best parameters for a model by exhaustive search
// over the parameter grid with k-fold cross-validation.
func GridSearchCV(estimator MatrixFactorization, data *dataset.Dataset, paramGrid ParamsGrid,
	folds int, seed int64, fitConfig *FitConfig) ParamsSearchResult {
	// Retrieve parameter names and length
	paramNames := make([]ParamName, 0, len(paramGrid))
	count := 1
	for paramName, values := range paramGrid {
		paramNames = append(paramNames, paramName)
		count *= len(values)
	}
	// Construct DFS procedure
	results := ParamsSearchResult{
		Scores: make([]Score, 0, count),
		Params: make([]Params, 0, count),
	}
	var dfs func(deep int, params Params)
	progress := 0
	dfs = func(deep int, params Params) {
		if deep == len(paramNames) {
			progress++
			log.Logger().Info(fmt.Sprintf("grid search (%v/%v)", progress, count),
				zap.Any("params", params))
			// Cross validate
			estimator.SetParams(estimator.GetParams().Overwrite(params))
			score := CrossValidate(estimator, data, folds, seed, fitConfig)
			results.AddScore(params, score)
		} else {
			paramName := paramNames[deep]
			values := paramGrid[paramName]
			for _, val := range values {
				params[paramName] = val
				dfs(deep+1, params)
			}
		}
	}
	params := make(map[ParamName]interface{})
	dfs(0, params)
	log.Logger().Info("complete grid search",
		zap.Float32("RMSE", results.BestScore.RMSE),
		zap.Float32("MAE", results.BestScore.MAE),
		zap.Any("params", results.BestParams))
	return results
}

// RandomSearchCV searches hyper-parameters by random sampling from the grid.
func RandomSearchCV(estimator MatrixFactorization, data *dataset.Dataset, paramGrid ParamsGrid,
	numTrials int, folds int, seed int64, fitConfig *FitConfig) ParamsSearchResult {
	// if the number of combinations is less than the number of trials, use grid search
	if paramGrid.NumCombinations() < numTrials {
		return GridSearchCV(estimator, data, paramGrid, folds, seed, fitConfig)
	}
	rng := base.NewRandomGenerator(seed)
	results := ParamsSearchResult{
		Scores: make([]Score, 0, numTrials),
		Params: make([]Params, 0, numTrials),
	}
	for i := 1; i <= numTrials; i++ {
		// Make parameters
		params := Params{}
		for paramName, values := range paramGrid {
			params[paramName] = values[rng.Intn(len(values))]
		}
		// Cross validate
		log.Logger().Info(fmt.Sprintf("random search (%v/%v)", i, numTrials),
			zap.Any("params", params))
		estimator.SetParams(estimator.GetParams().Overwrite(params))
		score := CrossValidate(estimator, data, folds, seed, fitConfig)
		results.AddScore(params, score)
	}
	return results
}
