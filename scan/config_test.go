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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		cfg := Config{MaxBaseJobs: 8, Delay: 2}
		require.NoError(t, cfg.validate())
	})

	t.Run("edge case: zero max base jobs", func(t *testing.T) {
		cfg := Config{MaxBaseJobs: 0}
		assert.ErrorIs(t, cfg.validate(), ErrInvalidConfig)
	})

	t.Run("edge case: non power of two", func(t *testing.T) {
		cfg := Config{MaxBaseJobs: 6}
		assert.ErrorIs(t, cfg.validate(), ErrInvalidConfig)
	})

	t.Run("edge case: one is a valid power of two", func(t *testing.T) {
		cfg := Config{MaxBaseJobs: 1}
		require.NoError(t, cfg.validate())
		assert.Equal(t, 0, cfg.depth())
	})
}

func TestConfig_Depth(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		cfg := Config{MaxBaseJobs: 8}
		assert.Equal(t, 3, cfg.depth())
	})
}

func TestConfig_MaxTrees(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		cfg := Config{MaxBaseJobs: 8, Delay: 2}
		// depth=3, (3+1)*(2+1)+1 = 13
		assert.Equal(t, 13, cfg.maxTrees())
	})

	t.Run("edge case: zero delay", func(t *testing.T) {
		cfg := Config{MaxBaseJobs: 4, Delay: 0}
		// depth=2, (2+1)*(0+1)+1 = 4
		assert.Equal(t, 4, cfg.maxTrees())
	})
}

func TestWithOptions(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		cfg := DefaultConfig
		WithMaxBaseJobs(16)(&cfg)
		WithDelay(3)(&cfg)
		assert.Equal(t, uint32(16), cfg.MaxBaseJobs)
		assert.Equal(t, uint32(3), cfg.Delay)
	})
}
