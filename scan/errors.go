// Copyright 2023 The Parascan Authors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package scan

import "errors"

// Sentinel errors returned by the core transition functions. Callers should
// match on these with errors.Is; the core always wraps them with
// fmt.Errorf("...: %w", ...) to add operation-specific context.
var (
	// ErrDataCountExceeded is returned when a caller submits more base data
	// in one round than max_base_jobs allows.
	ErrDataCountExceeded = errors.New("data count exceeds max base jobs")

	// ErrForestOverflow is returned when a round would leave more live
	// trees than the forest's bound permits.
	ErrForestOverflow = errors.New("forest exceeds max trees")

	// ErrInvalidMergeJob is returned when the jobs arriving at a merge slot
	// do not match any entry in the update pairing table.
	ErrInvalidMergeJob = errors.New("invalid merge job")

	// ErrInvalidBaseJob is returned when the jobs arriving at a base slot
	// do not match the leaf pairing table.
	ErrInvalidBaseJob = errors.New("invalid base job")

	// ErrInsufficientWork is returned when a caller asks for more pending
	// jobs than are currently available.
	ErrInsufficientWork = errors.New("insufficient work available")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("invalid scan configuration")
)
