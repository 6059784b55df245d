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

package base

import "github.com/juju/errors"

var (
	// ErrMissingAddress means a required upstream service address is not
	// configured. Fatal at the call site, never retried.
	ErrMissingAddress = errors.New("upstream service address is not configured")

	// ErrUpstreamUnavailable means a network call to an upstream service
	// failed or returned a non-success status. Propagated to the caller
	// without retry.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)
