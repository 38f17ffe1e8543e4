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

// Package scan implements a parallel scan state machine: a forest of
// staggered, incomplete perfect binary trees that folds a bounded stream of
// base work items into aggregate results, one per admitted batch, in
// admission order.
//
// A Forest owns an ordered sequence of Trees, each a flat, depth-indexed
// array of merge and base slots. Every round, a caller supplies newly
// admitted base data plus externally completed jobs; Update applies both,
// advances every tree in lockstep, and emits at most one finished result.
package scan
