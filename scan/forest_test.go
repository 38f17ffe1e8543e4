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

func TestEmpty(t *testing.T) {
	t.Run("nominal case", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 4, Delay: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, f.Len())
		assert.Equal(t, 2, f.Depth())
		assert.True(t, f.NextOnNewTree())
	})

	t.Run("edge case: invalid config rejected", func(t *testing.T) {
		_, err := Empty[uint64, uint64](Config{MaxBaseJobs: 3})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("nominal case: functional options apply before validation", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{}, WithMaxBaseJobs(8), WithDelay(2))
		require.NoError(t, err)
		assert.Equal(t, 3, f.Depth())
		assert.Equal(t, 13, f.MaxTrees())
	})
}

func TestForest_Accessors(t *testing.T) {
	f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 4, Delay: 0})
	require.NoError(t, err)

	assert.Equal(t, f.Head(), f.TreeAt(0))
	assert.Equal(t, uint64(0), f.CurrentJobSequenceNumber())
	assert.Equal(t, uint32(4), f.FreeSpace())
	assert.Nil(t, f.LastEmittedResult())
	assert.Empty(t, f.BaseJobsOnLatestTree())
}

func TestForest_BaseJobsOnLatestTree(t *testing.T) {
	t.Run("nominal case: reflects partially filled head", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 4, Delay: 0})
		require.NoError(t, err)

		_, err = f.Update([]uint64{1, 2, 3}, nil)
		require.NoError(t, err)

		assert.Equal(t, []uint64{1, 2, 3}, f.BaseJobsOnLatestTree())
		assert.False(t, f.NextOnNewTree())
	})
}

func TestForest_PartitionIfOverflowing(t *testing.T) {
	t.Run("nominal case: no overflow", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 4, Delay: 0})
		require.NoError(t, err)

		first, second := f.PartitionIfOverflowing(3)
		assert.Equal(t, uint32(3), first)
		assert.Nil(t, second)
	})

	t.Run("nominal case: overflow seeds a second tree", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 4, Delay: 0})
		require.NoError(t, err)

		// Fill the head with three of its four base slots.
		_, err = f.Update([]uint64{1, 2, 3}, nil)
		require.NoError(t, err)

		first, second := f.PartitionIfOverflowing(3)
		assert.Equal(t, uint32(1), first)
		require.NotNil(t, second)
		assert.Equal(t, uint32(2), *second)
	})
}

func TestForest_Update_OverflowSplitsAcrossTwoTrees(t *testing.T) {
	t.Run("nominal case: scenario 3, overflow seeds a second tree mid-round", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 4, Delay: 0})
		require.NoError(t, err)

		_, err = f.Update([]uint64{1, 2, 3}, nil)
		require.NoError(t, err)

		first, second := f.PartitionIfOverflowing(3)
		assert.Equal(t, uint32(1), first)
		require.NotNil(t, second)
		assert.Equal(t, uint32(2), *second)

		_, err = f.Update([]uint64{4, 5, 6}, nil)
		require.NoError(t, err)

		assert.Equal(t, 2, f.Len())
		assert.Len(t, f.BaseJobsOnLatestTree(), 2)
		assert.Equal(t, []uint64{5, 6}, f.BaseJobsOnLatestTree())
	})
}

func TestForest_Update_SpawnsNewTreeOnFill(t *testing.T) {
	t.Run("nominal case: filling the head spawns a fresh one", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 4, Delay: 0})
		require.NoError(t, err)

		emitted, err := f.Update([]uint64{1, 2, 3, 4}, nil)
		require.NoError(t, err)
		assert.Nil(t, emitted)
		assert.Equal(t, 2, f.Len())
		assert.True(t, f.NextOnNewTree())
		assert.Empty(t, f.BaseJobsOnLatestTree())
	})
}

func TestForest_Update_RejectsOversizedBatch(t *testing.T) {
	t.Run("edge case: data count exceeds max base jobs", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 4, Delay: 0})
		require.NoError(t, err)

		before := f.clone()
		_, err = f.Update([]uint64{1, 2, 3, 4, 5}, nil)
		assert.ErrorIs(t, err, ErrDataCountExceeded)
		assert.Equal(t, before.currJobSeqNo, f.currJobSeqNo)
	})
}
