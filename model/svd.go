// Copyright 2025 openmart Project Authors
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

// Package model fits a truncated singular value decomposition of the
// interaction matrix. The latent space is spanned by the top right
// singular vectors, so projecting a user row down and back up yields a
// low-rank reconstruction used as the predicted affinity over products.
package model

import (
	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/openmart/recommender/dataset"
)

// Params are the hyper-parameters of the trainer.
type Params struct {
	// NFactors is the target rank. The effective rank is clamped to
	// num_products-1 and to the matrix rank bound min(n, p).
	NFactors int
	// RandomState is recorded on the model. The exact thin SVD solver is
	// deterministic, so it does not influence the decomposition.
	RandomState int64
}

// TruncatedSVD is a rank-k approximation of one interaction matrix.
// Immutable after Fit.
type TruncatedSVD struct {
	components  *mat.Dense // p x k, columns are right singular vectors
	nComponents int
	randomState int64
}

// Fit trains a truncated SVD on the interaction matrix. A nil model with a
// nil error means the matrix carries too little data to train on; every
// user then receives empty recommendations.
func Fit(matrix *dataset.Matrix, params Params) (*TruncatedSVD, error) {
	n, p := matrix.NumUsers(), matrix.NumProducts()
	k := min(params.NFactors, p-1)
	if k <= 0 || n == 0 || matrix.Dense() == nil {
		return nil, nil
	}
	if k > min(n, p) {
		// a thin SVD yields at most min(n, p) singular vectors; components
		// past the rank bound carry zero variance
		k = min(n, p)
	}
	var svd mat.SVD
	if ok := svd.Factorize(matrix.Dense(), mat.SVDThin); !ok {
		return nil, errors.Errorf("SVD of %dx%d interaction matrix did not converge", n, p)
	}
	var v mat.Dense
	svd.VTo(&v)
	components := mat.DenseCopyOf(v.Slice(0, p, 0, k))
	return &TruncatedSVD{
		components:  components,
		nComponents: k,
		randomState: params.RandomState,
	}, nil
}

// NumComponents returns the effective rank of the model.
func (svd *TruncatedSVD) NumComponents() int {
	return svd.nComponents
}

// Transform projects an interaction row into the latent space.
func (svd *TruncatedSVD) Transform(row []float64) []float64 {
	p, _ := svd.components.Dims()
	var latent mat.Dense
	latent.Mul(mat.NewDense(1, p, row), svd.components)
	out := make([]float64, svd.nComponents)
	copy(out, latent.RawRowView(0))
	return out
}

// InverseTransform maps a latent vector back to a reconstructed row over
// all products.
func (svd *TruncatedSVD) InverseTransform(latent []float64) []float64 {
	p, _ := svd.components.Dims()
	var row mat.Dense
	row.Mul(mat.NewDense(1, svd.nComponents, latent), svd.components.T())
	out := make([]float64, p)
	copy(out, row.RawRowView(0))
	return out
}
