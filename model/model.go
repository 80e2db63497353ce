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

// Package model provides rating prediction models for explicit feedback.
package model

import (
	"io"

	"github.com/c-bata/goptuna"
	"github.com/juju/errors"
	"github.com/reelrank/reelrank/base"
	"github.com/reelrank/reelrank/base/encoding"
	"github.com/reelrank/reelrank/dataset"
)

// Score is the evaluation of a rating prediction model on a test set.
type Score struct {
	RMSE float32 `json:"rmse"`
	MAE  float32 `json:"mae"`
}

// FitConfig carries fitting options that are not hyper-parameters.
type FitConfig struct {
	Verbose   int     // report validation scores every Verbose epochs
	MinRating float32 // lower bound of the rating scale
	MaxRating float32 // upper bound of the rating scale
}

// NewFitConfig creates a FitConfig for the MovieLens 1-5 star scale.
func NewFitConfig() *FitConfig {
	return &FitConfig{
		Verbose:   10,
		MinRating: 1,
		MaxRating: 5,
	}
}

// SetVerbose sets the validation report period.
func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

// SetRatingScale sets the bounds predictions are clamped to.
func (config *FitConfig) SetRatingScale(minRating, maxRating float32) *FitConfig {
	config.MinRating = minRating
	config.MaxRating = maxRating
	return config
}

// LoadDefaultIfNil returns the default config when config is nil.
func (config *FitConfig) LoadDefaultIfNil() *FitConfig {
	if config == nil {
		return NewFitConfig()
	}
	return config
}

// MatrixFactorization is the interface of rating prediction models.
type MatrixFactorization interface {
	// Set parameters.
	SetParams(params Params)
	// Get parameters.
	GetParams() Params
	// Get parameter candidates for grid search.
	GetParamsGrid() ParamsGrid
	// Suggest parameters for hyper-parameter optimization.
	SuggestParams(trial goptuna.Trial) Params
	// Clear model weights.
	Clear()
	// Invalid returns true if the model has no weights.
	Invalid() bool
	// Fit a model with a train set, evaluated on a validation set.
	Fit(trainSet, valSet *dataset.Dataset, config *FitConfig) Score
	// Predict the rating given by a user (userId) to an item (itemId).
	Predict(userId, itemId int) float32
	// InternalPredict predicts a rating given a user index and an item index.
	InternalPredict(userIndex, itemIndex int32) float32
	// GetUserIndex returns the user index.
	GetUserIndex() *base.Index
	// GetItemIndex returns the item index.
	GetItemIndex() *base.Index
	// GetUserRatings returns the dense item indices rated by each user.
	GetUserRatings() [][]int32
	// Marshal model into byte stream.
	Marshal(w io.Writer) error
	// Unmarshal model from byte stream.
	Unmarshal(r io.Reader) error
}

// BaseModel must be included by every rating prediction model.
// Hyper-parameters and the random generator are managed by BaseModel.
type BaseModel struct {
	Params    Params               // Hyper-parameters
	rng       base.RandomGenerator // Random generator
	randState int64                // Random seed
}

// SetParams sets hyper-parameters for the BaseModel.
func (model *BaseModel) SetParams(params Params) {
	model.Params = params
	model.randState = model.Params.GetInt64(RandomState, 0)
	model.rng = base.NewRandomGenerator(model.randState)
}

// GetParams returns all hyper-parameters.
func (model *BaseModel) GetParams() Params {
	return model.Params
}

// GetRandomGenerator returns the random generator seeded by RandomState.
func (model *BaseModel) GetRandomGenerator() base.RandomGenerator {
	return model.rng
}

const modelNameSVD = "svd"

// GetModelName returns the name of a model type.
func GetModelName(m MatrixFactorization) string {
	switch m.(type) {
	case *SVD:
		return modelNameSVD
	default:
		return "unknown"
	}
}

// MarshalModel marshals a model with a type header into a byte stream.
func MarshalModel(w io.Writer, m MatrixFactorization) error {
	if err := encoding.WriteString(w, GetModelName(m)); err != nil {
		return errors.Trace(err)
	}
	if err := m.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// UnmarshalModel unmarshals a model with a type header from a byte stream.
func UnmarshalModel(r io.Reader) (MatrixFactorization, error) {
	name, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	switch name {
	case modelNameSVD:
		var svd SVD
		if err := svd.Unmarshal(r); err != nil {
			return nil, errors.Trace(err)
		}
		return &svd, nil
	}
	return nil, errors.Errorf("unknown model %v", name)
}
