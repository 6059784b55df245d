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

// Package recommend ranks unseen products for one user by reconstructing
// the user's interaction row through the factor model.
package recommend

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/openmart/recommender/data"
	"github.com/openmart/recommender/dataset"
	"github.com/openmart/recommender/model"
)

// RecommendForUser returns the top-N products for a user, ranked by
// reconstructed affinity. Already purchased products are never returned.
// Without a model, or for a user absent from the matrix, the result is
// empty. Products whose id left the catalog are silently omitted, so the
// result may be shorter than topN. Ties keep catalog column order; the
// order among equal scores is not semantic.
func RecommendForUser(userID string, svd *model.TruncatedSVD, matrix *dataset.Matrix,
	catalog []data.Product, topN int) []data.Product {
	if svd == nil {
		return nil
	}
	row, ok := matrix.Row(userID)
	if !ok {
		return nil
	}
	predicted := svd.InverseTransform(svd.Transform(row))
	// mask already purchased products
	candidates := make([]int, 0, len(predicted))
	for column := range predicted {
		if row[column] > 0 {
			predicted[column] = math.Inf(-1)
		} else {
			candidates = append(candidates, column)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return predicted[candidates[i]] > predicted[candidates[j]]
	})
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	byID := lo.SliceToMap(catalog, func(product data.Product) (string, data.Product) {
		return product.ID, product
	})
	recommendations := make([]data.Product, 0, len(candidates))
	for _, column := range candidates {
		id, ok := matrix.Products().String(column)
		if !ok {
			continue
		}
		if product, found := byID[id]; found {
			recommendations = append(recommendations, product)
		}
	}
	return recommendations
}
