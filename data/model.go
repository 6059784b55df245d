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

// Package data defines the entity records exchanged with the upstream
// store services and the payload of outgoing recommendation events.
package data

// User is a shopper record. The pipeline only reads the id; the remaining
// fields are carried through caches and events untouched.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Product is a catalog record.
type Product struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Quantity int     `json:"quantity,omitempty"`
	Category string  `json:"category,omitempty"`
}

// OrderProduct is one product reference inside an order. Quantity is
// decoded but not used as an interaction weight.
type OrderProduct struct {
	ID       string `json:"_id"`
	Quantity int    `json:"quantity,omitempty"`
}

// Order is a purchase record owned by one user.
type Order struct {
	ID       string         `json:"_id"`
	UserID   string         `json:"userId"`
	Products []OrderProduct `json:"products"`
}

// EventTypeRecommendations is the type tag of outgoing recommendation
// events.
const EventTypeRecommendations = "RECOMMENDATIONS"

// RecommendationEvent is published once per user and run.
type RecommendationEvent struct {
	Type            string    `json:"type"`
	UserID          string    `json:"userId"`
	Recommendations []Product `json:"recommendations"`
}
