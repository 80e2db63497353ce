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
	"github.com/chewxy/math32"
	"github.com/reelrank/reelrank/dataset"
)

// Evaluate computes RMSE and MAE of a model on a test set.
func Evaluate(m MatrixFactorization, testSet *dataset.Dataset) Score {
	return Score{
		RMSE: RMSE(m, testSet),
		MAE:  MAE(m, testSet),
	}
}

// RMSE is the root mean square error:
//
//	\sqrt{\frac{1}{|T|} \sum_{(u,i)\in T} (r_{ui} - \hat{r}_{ui})^2}
func RMSE(m MatrixFactorization, testSet *dataset.Dataset) float32 {
	if testSet.Count() == 0 {
		return 0
	}
	var sum float32
	for i := 0; i < testSet.Count(); i++ {
		userIndex, itemIndex, rating := testSet.Get(i)
		diff := rating - m.InternalPredict(userIndex, itemIndex)
		sum += diff * diff
	}
	return math32.Sqrt(sum / float32(testSet.Count()))
}

// MAE is the mean absolute error:
//
//	\frac{1}{|T|} \sum_{(u,i)\in T} |r_{ui} - \hat{r}_{ui}|
func MAE(m MatrixFactorization, testSet *dataset.Dataset) float32 {
	if testSet.Count() == 0 {
		return 0
	}
	var sum float32
	for i := 0; i < testSet.Count(); i++ {
		userIndex, itemIndex, rating := testSet.Get(i)
		sum += math32.Abs(rating - m.InternalPredict(userIndex, itemIndex))
	}
	return sum / float32(testSet.Count())
}
