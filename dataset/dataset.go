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

// Package dataset builds the user-item interaction matrix consumed by the
// factorization trainer.
package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/openmart/recommender/data"
)

// Matrix is a dense user x product interaction matrix together with the
// two index bijections it was built with. The dictionaries never grow
// after construction; orders referencing unknown ids are skipped.
type Matrix struct {
	dense    *mat.Dense
	users    *Dict
	products *Dict
}

// Build assigns row indices to users and column indices to products in
// input order, then counts one interaction per (order, product reference)
// pair whose user and product are both known.
func Build(users []data.User, products []data.Product, orders []data.Order) *Matrix {
	m := &Matrix{users: NewDict(), products: NewDict()}
	for _, user := range users {
		m.users.Add(user.ID)
	}
	for _, product := range products {
		m.products.Add(product.ID)
	}
	// mat.NewDense panics on an empty dimension, keep the dense matrix nil
	// and let the trainer treat the shape as insufficient data.
	if m.users.Count() == 0 || m.products.Count() == 0 {
		return m
	}
	m.dense = mat.NewDense(m.users.Count(), m.products.Count(), nil)
	for _, order := range orders {
		row, ok := m.users.Id(order.UserID)
		if !ok {
			continue
		}
		for _, product := range order.Products {
			if column, ok := m.products.Id(product.ID); ok {
				m.dense.Set(row, column, m.dense.At(row, column)+1)
			}
		}
	}
	return m
}

// NumUsers returns the number of rows.
func (m *Matrix) NumUsers() int {
	return m.users.Count()
}

// NumProducts returns the number of columns.
func (m *Matrix) NumProducts() int {
	return m.products.Count()
}

// Users returns the user id bijection.
func (m *Matrix) Users() *Dict {
	return m.users
}

// Products returns the product id bijection.
func (m *Matrix) Products() *Dict {
	return m.products
}

// Dense returns the underlying matrix. It is nil when either dimension is
// zero.
func (m *Matrix) Dense() *mat.Dense {
	return m.dense
}

// Row returns a copy of the interaction row of a user.
func (m *Matrix) Row(userID string) ([]float64, bool) {
	row, ok := m.users.Id(userID)
	if !ok || m.dense == nil {
		return nil, false
	}
	out := make([]float64, m.products.Count())
	mat.Row(out, row, m.dense)
	return out, true
}
