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

// answer supplies a synthetic external prover for a batch of exposed jobs:
// a base job's proof is the datum itself, a merge job's proof is the sum of
// its two children. Both scan-demo and these tests share this semiring, so
// the final emitted value is always the sum of the batch of base data it
// represents.
func answer(jobs []AvailableJob[uint64, uint64]) []uint64 {
	out := make([]uint64, len(jobs))
	for i, job := range jobs {
		switch job.Kind {
		case JobBase:
			out[i] = job.Base
		case JobMerge:
			out[i] = job.Left + job.Right
		}
	}
	return out
}

func TestForest_Update_SteadyState(t *testing.T) {
	t.Run("nominal case: scenario 1, max_base_jobs=8 delay=2", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 8, Delay: 2})
		require.NoError(t, err)

		var emissions []uint64
		for i := uint64(0); i < 100; i++ {
			data := make([]uint64, 8)
			for k := range data {
				data[k] = i + uint64(k)
			}

			jobs := f.JobsForNextUpdate(len(data))
			completed := answer(jobs)

			emitted, err := f.Update(data, completed)
			require.NoErrorf(t, err, "round %d", i)
			if emitted != nil {
				emissions = append(emissions, *emitted)
			}
			require.LessOrEqualf(t, f.Len(), f.MaxTrees(), "round %d", i)
		}

		require.NotEmpty(t, emissions, "expected at least one emission within 100 rounds")

		result := f.LastEmittedResult()
		require.NotNil(t, result)
		var sum uint64
		for _, d := range result.Data {
			sum += d
		}
		assert.Equal(t, sum, result.Value)
	})
}

func TestForest_Update_PartialFills(t *testing.T) {
	t.Run("nominal case: scenario 2, one datum per round", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 8, Delay: 2})
		require.NoError(t, err)

		emitted := false
		for i := 0; i < 200; i++ {
			jobs := f.JobsForNextUpdate(1)
			completed := answer(jobs)

			value, err := f.Update([]uint64{1}, completed)
			require.NoErrorf(t, err, "round %d", i)
			if value != nil {
				emitted = true
				assert.GreaterOrEqualf(t, i, 8, "no emission should occur before round 8")
			}
		}
		assert.True(t, emitted, "expected at least one emission over 200 rounds of single-item fills")
	})
}

func TestForest_Update_ExactEmission(t *testing.T) {
	t.Run("nominal case: scenario 5, max_base_jobs=2 delay=0", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 2, Delay: 0})
		require.NoError(t, err)

		// The first batch [3,5] is the one whose emission we check; later
		// batches exist only to keep the pipeline advancing; admission
		// order equals emission order, so 3+5=8 must surface first.
		_, err = f.Update([]uint64{3, 5}, nil)
		require.NoError(t, err)

		var emitted *uint64
		for round := 0; round < 20 && emitted == nil; round++ {
			data := []uint64{100 + uint64(round)*2, 101 + uint64(round)*2}
			jobs := f.JobsForNextUpdate(len(data))
			completed := answer(jobs)
			emitted, err = f.Update(data, completed)
			require.NoErrorf(t, err, "round %d", round)
		}

		require.NotNil(t, emitted)
		assert.Equal(t, uint64(8), *emitted)
	})
}

func TestForest_Update_OverflowWithPendingMergeWork(t *testing.T) {
	t.Run("nominal case: a round with both overflow data and overflow merge jobs", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 2, Delay: 0})
		require.NoError(t, err)

		// Build a tail tree with two pending base jobs (values 1 and 9),
		// then leave the next head one base short of full (free == 1).
		_, err = f.Update([]uint64{1}, nil)
		require.NoError(t, err)
		_, err = f.Update([]uint64{9}, nil)
		require.NoError(t, err)
		_, err = f.Update([]uint64{5}, nil)
		require.NoError(t, err)

		// free == 1 but data carries 2 items: the head pass fills the last
		// head slot (spawning a new head), and the overflow pass fills one
		// slot of that freshly spawned head. completedJobs carries the tail
		// tree's two required base answers (1, 9) plus a third item that can
		// only be routed once the head pass has demoted the filled tree
		// into the tail, exercising addMergeJobs(jobsOverflow, ...) against
		// the post-pushHead tail rather than the pre-round one.
		first, second := f.PartitionIfOverflowing(2)
		require.Equal(t, uint32(1), first)
		require.NotNil(t, second)
		assert.Equal(t, uint32(1), *second)

		emitted, err := f.Update([]uint64{6, 7}, []uint64{1, 9, 100})
		require.NoError(t, err)
		assert.Nil(t, emitted)
		assert.Equal(t, 3, f.Len())
		assert.Equal(t, []uint64{7}, f.BaseJobsOnLatestTree())
	})
}

func TestForest_Update_DataCountExceeded(t *testing.T) {
	t.Run("edge case: scenario 4, forest left unchanged", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 4, Delay: 0})
		require.NoError(t, err)

		before := f.Snapshot()
		_, err = f.Update([]uint64{1, 2, 3, 4, 5}, nil)
		assert.ErrorIs(t, err, ErrDataCountExceeded)

		after := f.Snapshot()
		assert.Equal(t, before, after)
	})
}

func TestForest_Update_SeqNoIncreasesByOne(t *testing.T) {
	t.Run("nominal case: invariant 3", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 4, Delay: 0})
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			before := f.CurrentJobSequenceNumber()
			_, err := f.Update([]uint64{1}, nil)
			require.NoError(t, err)
			assert.Equal(t, before+1, f.CurrentJobSequenceNumber())
		}
	})
}

func TestForest_Update_ResetWeightsIdempotent(t *testing.T) {
	t.Run("nominal case: scenario 6, reset_weights is idempotent after an update", func(t *testing.T) {
		f, err := Empty[uint64, uint64](Config{MaxBaseJobs: 4, Delay: 0})
		require.NoError(t, err)

		_, err = f.Update([]uint64{1, 2, 3, 4}, nil)
		require.NoError(t, err)

		head := f.Head()
		head.ResetWeights()
		first := head.clone()
		head.ResetWeights()
		assert.Equal(t, first.Merges, head.Merges)
		assert.Equal(t, first.Bases, head.Bases)
	})
}
