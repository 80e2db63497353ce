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
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/c-bata/goptuna"
	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/reelrank/reelrank/base"
	"github.com/reelrank/reelrank/base/encoding"
	"github.com/reelrank/reelrank/base/floats"
	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/dataset"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// SVD is the matrix factorization algorithm popularized by Simon Funk during
// the Netflix Prize. The prediction \hat{r}_{ui} is set as:
//
//	\hat{r}_{ui} = \mu + b_u + b_i + q_i^Tp_u
//
// where \mu is the global mean rating of the train set. If user u is unknown,
// the bias b_u and the factors p_u are assumed to be zero. The same applies
// for item i with b_i and q_i. Predictions are clamped to the rating scale.
//
// Hyper-parameters:
//
//	Reg        - The regularization parameter of the cost function that is
//	             optimized. Default is 0.02.
//	Lr         - The learning rate of SGD. Default is 0.005.
//	NFactors   - The number of latent factors. Default is 100.
//	NEpochs    - The number of iterations of the SGD procedure. Default is 20.
//	InitMean   - The mean of initial random latent factors. Default is 0.
//	InitStdDev - The standard deviation of initial random latent factors. Default is 0.1.
type SVD struct {
	BaseModel
	UserIndex *base.Index
	ItemIndex *base.Index
	// Model parameters
	UserFactor  [][]float32 // p_u
	ItemFactor  [][]float32 // q_i
	UserBias    []float32   // b_u
	ItemBias    []float32   // b_i
	GlobalMean  float32     // mu
	UserRatings [][]int32   // items rated by each user, kept for serving
	MinRating   float32
	MaxRating   float32
	// Hyper parameters
	nFactors   int
	nEpochs    int
	lr         float32
	reg        float32
	initMean   float32
	initStdDev float32
}

// NewSVD creates an SVD model.
func NewSVD(params Params) *SVD {
	svd := new(SVD)
	svd.SetParams(params)
	return svd
}

// SetParams sets hyper-parameters of the SVD model.
func (svd *SVD) SetParams(params Params) {
	svd.BaseModel.SetParams(params)
	svd.nFactors = svd.Params.GetInt(NFactors, 100)
	svd.nEpochs = svd.Params.GetInt(NEpochs, 20)
	svd.lr = svd.Params.GetFloat32(Lr, 0.005)
	svd.reg = svd.Params.GetFloat32(Reg, 0.02)
	svd.initMean = svd.Params.GetFloat32(InitMean, 0)
	svd.initStdDev = svd.Params.GetFloat32(InitStdDev, 0.1)
}

// GetParamsGrid returns the default hyper-parameter candidates.
func (svd *SVD) GetParamsGrid() ParamsGrid {
	return ParamsGrid{
		NFactors: []interface{}{50, 100},
		Lr:       []interface{}{0.002, 0.005},
		Reg:      []interface{}{0.02, 0.05},
		NEpochs:  []interface{}{20},
	}
}

// SuggestParams draws hyper-parameters for one optimization trial.
func (svd *SVD) SuggestParams(trial goptuna.Trial) Params {
	return Params{
		NFactors: lo.Must(trial.SuggestStepInt(string(NFactors), 20, 120, 20)),
		Lr:       lo.Must(trial.SuggestLogFloat(string(Lr), 1e-3, 1e-1)),
		Reg:      lo.Must(trial.SuggestLogFloat(string(Reg), 1e-3, 1e-1)),
		NEpochs:  lo.Must(trial.SuggestStepInt(string(NEpochs), 10, 30, 10)),
	}
}

// Clear resets model weights.
func (svd *SVD) Clear() {
	svd.UserIndex = nil
	svd.ItemIndex = nil
	svd.UserFactor = nil
	svd.ItemFactor = nil
	svd.UserBias = nil
	svd.ItemBias = nil
	svd.UserRatings = nil
	svd.GlobalMean = 0
}

// Invalid returns true if the model has no weights.
func (svd *SVD) Invalid() bool {
	return svd == nil || svd.UserFactor == nil || svd.ItemFactor == nil
}

// GetUserIndex returns the user index.
func (svd *SVD) GetUserIndex() *base.Index {
	return svd.UserIndex
}

// GetItemIndex returns the item index.
func (svd *SVD) GetItemIndex() *base.Index {
	return svd.ItemIndex
}

// GetUserRatings returns the dense item indices rated by each user.
func (svd *SVD) GetUserRatings() [][]int32 {
	return svd.UserRatings
}

// Predict the rating given by a user (userId) to an item (itemId).
func (svd *SVD) Predict(userId, itemId int) float32 {
	userIndex := svd.UserIndex.ToNumber(userId)
	itemIndex := svd.ItemIndex.ToNumber(itemId)
	if userIndex == base.NotId {
		log.Logger().Warn("unknown user", zap.Int("user_id", userId))
	}
	if itemIndex == base.NotId {
		log.Logger().Warn("unknown item", zap.Int("item_id", itemId))
	}
	return svd.InternalPredict(userIndex, itemIndex)
}

// InternalPredict predicts a rating given a user index and an item index.
func (svd *SVD) InternalPredict(userIndex, itemIndex int32) float32 {
	ret := svd.GlobalMean
	// + b_u
	if userIndex != base.NotId {
		ret += svd.UserBias[userIndex]
	}
	// + b_i
	if itemIndex != base.NotId {
		ret += svd.ItemBias[itemIndex]
	}
	// + q_i^Tp_u
	if userIndex != base.NotId && itemIndex != base.NotId {
		ret += floats.Dot(svd.UserFactor[userIndex], svd.ItemFactor[itemIndex])
	}
	if svd.MaxRating > svd.MinRating {
		ret = math32.Min(svd.MaxRating, math32.Max(svd.MinRating, ret))
	}
	return ret
}

// Fit the SVD model. Updates are applied in a seeded order so the same train
// set, parameters and seed produce the same weights.
func (svd *SVD) Fit(trainSet, valSet *dataset.Dataset, config *FitConfig) Score {
	config = config.LoadDefaultIfNil()
	log.Logger().Info("fit svd",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Int("test_set_size", valSet.Count()),
		zap.Any("params", svd.GetParams()))
	// Initialize parameters
	svd.UserIndex = trainSet.UserIndex
	svd.ItemIndex = trainSet.ItemIndex
	svd.UserRatings = trainSet.UserRatings
	svd.GlobalMean = trainSet.GlobalMean()
	svd.MinRating = config.MinRating
	svd.MaxRating = config.MaxRating
	svd.UserBias = make([]float32, trainSet.UserCount())
	svd.ItemBias = make([]float32, trainSet.ItemCount())
	svd.UserFactor = svd.GetRandomGenerator().NormalMatrix(trainSet.UserCount(), svd.nFactors, svd.initMean, svd.initStdDev)
	svd.ItemFactor = svd.GetRandomGenerator().NormalMatrix(trainSet.ItemCount(), svd.nFactors, svd.initMean, svd.initStdDev)
	// Create buffers
	a := make([]float32, svd.nFactors)
	b := make([]float32, svd.nFactors)
	// Optimize
	var score Score
	for epoch := 1; epoch <= svd.nEpochs; epoch++ {
		fitStart := time.Now()
		cost := float32(0)
		perm := svd.GetRandomGenerator().Perm(trainSet.Count())
		for _, i := range perm {
			userIndex, itemIndex, rating := trainSet.Get(i)
			// Compute error: e_{ui} = r_{ui} - \hat{r}_{ui}
			prediction := svd.GlobalMean + svd.UserBias[userIndex] + svd.ItemBias[itemIndex] +
				floats.Dot(svd.UserFactor[userIndex], svd.ItemFactor[itemIndex])
			grad := rating - prediction
			cost += grad * grad
			// Update user bias: b_u <- b_u + \gamma (e_{ui} - \lambda b_u)
			svd.UserBias[userIndex] += svd.lr * (grad - svd.reg*svd.UserBias[userIndex])
			// Update item bias: b_i <- b_i + \gamma (e_{ui} - \lambda b_i)
			svd.ItemBias[itemIndex] += svd.lr * (grad - svd.reg*svd.ItemBias[itemIndex])
			userFactor := svd.UserFactor[userIndex]
			itemFactor := svd.ItemFactor[itemIndex]
			// Update user latent factor: p_u <- p_u + \gamma (e_{ui} q_i - \lambda p_u)
			floats.MulConstTo(itemFactor, grad, a)
			floats.MulConstAddTo(userFactor, -svd.reg, a)
			floats.MulConstTo(a, svd.lr, b)
			// Update item latent factor: q_i <- q_i + \gamma (e_{ui} p_u - \lambda q_i)
			floats.MulConstTo(userFactor, grad, a)
			floats.MulConstAddTo(itemFactor, -svd.reg, a)
			floats.MulConstAddTo(a, svd.lr, itemFactor)
			// The item update above reads p_u, so the user update lands last
			floats.Add(userFactor, b)
		}
		fitTime := time.Since(fitStart)
		if epoch%config.Verbose == 0 || epoch == svd.nEpochs {
			evalStart := time.Now()
			score = Evaluate(svd, valSet)
			evalTime := time.Since(evalStart)
			log.Logger().Debug(fmt.Sprintf("fit svd %v/%v", epoch, svd.nEpochs),
				zap.String("fit_time", fitTime.String()),
				zap.String("eval_time", evalTime.String()),
				zap.Float32("cost", cost/float32(trainSet.Count())),
				zap.Float32("RMSE", score.RMSE),
				zap.Float32("MAE", score.MAE))
		}
	}
	log.Logger().Info("fit svd complete",
		zap.Float32("RMSE", score.RMSE),
		zap.Float32("MAE", score.MAE))
	return score
}

// Marshal model into byte stream.
func (svd *SVD) Marshal(w io.Writer) error {
	// write params
	if err := encoding.WriteGob(w, svd.Params); err != nil {
		return errors.Trace(err)
	}
	// write indices
	if err := base.MarshalIndex(w, svd.UserIndex); err != nil {
		return errors.Trace(err)
	}
	if err := base.MarshalIndex(w, svd.ItemIndex); err != nil {
		return errors.Trace(err)
	}
	// write rated items
	if err := encoding.WriteGob(w, svd.UserRatings); err != nil {
		return errors.Trace(err)
	}
	// write scalars
	if err := binary.Write(w, binary.LittleEndian, svd.GlobalMean); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, svd.MinRating); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, svd.MaxRating); err != nil {
		return errors.Trace(err)
	}
	// write biases
	if err := binary.Write(w, binary.LittleEndian, svd.UserBias); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, svd.ItemBias); err != nil {
		return errors.Trace(err)
	}
	// write factors
	if err := encoding.WriteMatrix(w, svd.UserFactor); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(encoding.WriteMatrix(w, svd.ItemFactor))
}

// Unmarshal model from byte stream.
func (svd *SVD) Unmarshal(r io.Reader) error {
	// read params
	var params Params
	if err := encoding.ReadGob(r, &params); err != nil {
		return errors.Trace(err)
	}
	svd.SetParams(params)
	// read indices
	var err error
	if svd.UserIndex, err = base.UnmarshalIndex(r); err != nil {
		return errors.Trace(err)
	}
	if svd.ItemIndex, err = base.UnmarshalIndex(r); err != nil {
		return errors.Trace(err)
	}
	// read rated items
	if err = encoding.ReadGob(r, &svd.UserRatings); err != nil {
		return errors.Trace(err)
	}
	// read scalars
	if err = binary.Read(r, binary.LittleEndian, &svd.GlobalMean); err != nil {
		return errors.Trace(err)
	}
	if err = binary.Read(r, binary.LittleEndian, &svd.MinRating); err != nil {
		return errors.Trace(err)
	}
	if err = binary.Read(r, binary.LittleEndian, &svd.MaxRating); err != nil {
		return errors.Trace(err)
	}
	// read biases
	svd.UserBias = make([]float32, svd.UserIndex.Len())
	svd.ItemBias = make([]float32, svd.ItemIndex.Len())
	if err = binary.Read(r, binary.LittleEndian, svd.UserBias); err != nil {
		return errors.Trace(err)
	}
	if err = binary.Read(r, binary.LittleEndian, svd.ItemBias); err != nil {
		return errors.Trace(err)
	}
	// read factors
	svd.UserFactor = base.NewMatrix32(int(svd.UserIndex.Len()), svd.nFactors)
	svd.ItemFactor = base.NewMatrix32(int(svd.ItemIndex.Len()), svd.nFactors)
	if err = encoding.ReadMatrix(r, svd.UserFactor); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(encoding.ReadMatrix(r, svd.ItemFactor))
}
