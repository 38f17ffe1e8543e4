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

import (
	"fmt"
	"math/bits"

	"github.com/hashicorp/go-multierror"
)

// DefaultConfig has the default values of the config set: eight base jobs
// per tree and no scheduling slack between trees.
var DefaultConfig = Config{
	MaxBaseJobs: 8,
	Delay:       0,
}

// Config contains the parameters that shape a Forest's lifecycle.
type Config struct {
	// MaxBaseJobs is the hard cap on base jobs per tree; validation rejects
	// any value that is not a power of two, so every tree has a
	// well-defined depth.
	MaxBaseJobs uint32

	// Delay is the number of rounds of scheduling slack between
	// successive trees in the forest.
	Delay uint32
}

// WithMaxBaseJobs sets the per-tree base job cap.
func WithMaxBaseJobs(n uint32) func(*Config) {
	return func(cfg *Config) {
		cfg.MaxBaseJobs = n
	}
}

// WithDelay sets the number of rounds of scheduling slack between trees.
func WithDelay(d uint32) func(*Config) {
	return func(cfg *Config) {
		cfg.Delay = d
	}
}

// validate checks that the config describes a usable forest. Every
// violation is collected rather than returned on the first failure, so a
// caller fixing up a bad config sees every problem at once instead of
// re-running validate() once per fix.
func (cfg Config) validate() error {
	var errs *multierror.Error
	if cfg.MaxBaseJobs < 1 {
		errs = multierror.Append(errs, fmt.Errorf("max base jobs must be at least 1: %w", ErrInvalidConfig))
	}
	if bits.OnesCount32(cfg.MaxBaseJobs) != 1 {
		errs = multierror.Append(errs, fmt.Errorf("max base jobs must be a power of two, got %d: %w", cfg.MaxBaseJobs, ErrInvalidConfig))
	}
	return errs.ErrorOrNil()
}

// depth returns the tree depth implied by the config: ceil(log2(MaxBaseJobs)).
func (cfg Config) depth() int {
	return bits.TrailingZeros32(cfg.MaxBaseJobs)
}

// maxTrees returns the forest size bound implied by the config:
// (d+1)*(delay+1) + 1.
func (cfg Config) maxTrees() int {
	d := cfg.depth()
	return (d+1)*int(cfg.Delay+1) + 1
}
