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

import "fmt"

// WorkForCurrentRound returns the jobs that must be completed so the next
// Update can advance every tree in lockstep: from the tail of the forest
// (every tree other than the head), select trees at tail-index i satisfying
// i mod (delay+1) == delay, take the first depth+1 of them, and for the
// j-th selected tree gather its jobs at level depth-j.
func (f *Forest[A, D]) WorkForCurrentRound() []AvailableJob[A, D] {
	return f.workAtStaggeredLevels(f.tailIndices())
}

// workForCurrentRoundOverAll is WorkForCurrentRound computed over every
// tree, including the head; it is used when an overflowing batch will seed
// a second tree this round.
func (f *Forest[A, D]) workForCurrentRoundOverAll() []AvailableJob[A, D] {
	n := f.trees.Len()
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	return f.workAtStaggeredLevels(all)
}

// workAtStaggeredLevels implements the shared selection-and-gather step:
// pick every (delay+1)-th index from candidates (indexed 0-based within the
// slice), keep at most depth+1 of them, and for the j-th kept tree gather
// its jobs at level depth-j.
func (f *Forest[A, D]) workAtStaggeredLevels(candidates []int) []AvailableJob[A, D] {
	d := f.depth
	stride := int(f.Config.Delay) + 1

	var selected []int
	for i, idx := range candidates {
		if i%stride == int(f.Config.Delay) {
			selected = append(selected, idx)
		}
	}
	if len(selected) > d+1 {
		selected = selected[:d+1]
	}

	var jobs []AvailableJob[A, D]
	for j, idx := range selected {
		level := d - j
		jobs = append(jobs, f.TreeAt(idx).JobsOnLevel(level)...)
	}
	return jobs
}

// WorkForNextUpdate extends WorkForCurrentRound when the incoming batch
// will overflow the head tree: if dataCount exceeds the head's free space,
// up to (dataCount-free)*2 further jobs are appended, gathered over all
// trees, because the overflow will seed a second tree this round.
func (f *Forest[A, D]) WorkForNextUpdate(dataCount int) []AvailableJob[A, D] {
	jobs := f.WorkForCurrentRound()

	free := f.Head().RequiredJobCount()
	if uint32(dataCount) <= free {
		return jobs
	}

	overflow := uint32(dataCount) - free
	needed := int(overflow) * 2
	all := f.workForCurrentRoundOverAll()
	if needed > len(all) {
		needed = len(all)
	}
	return append(jobs, all[:needed]...)
}

// WorkForCurrentTree is an alias for WorkForCurrentRound, matching the
// exposed interface name.
func (f *Forest[A, D]) WorkForCurrentTree() []AvailableJob[A, D] {
	return f.WorkForCurrentRound()
}

// JobsForNextUpdate is an alias for WorkForNextUpdate, matching the exposed
// interface name.
func (f *Forest[A, D]) JobsForNextUpdate(dataCount int) []AvailableJob[A, D] {
	return f.WorkForNextUpdate(dataCount)
}

// AllWork returns every job currently pending anywhere in the forest. Tail
// trees are consumed via a staggered decimation at stride delay+1, with
// delay replaced by max(2, delay-1) after each pass, until d+1 trees remain
// (or a pass picks no tree), at which point every
// level is gathered from those remaining trees; the head tree's base-level
// jobs are appended last.
func (f *Forest[A, D]) AllWork() []AvailableJob[A, D] {
	d := f.depth
	delay := int(f.Config.Delay)

	remaining := f.tailIndicesOldestFirst()
	var jobs []AvailableJob[A, D]

	for len(remaining) > d+1 {
		stride := delay + 1
		var picked []int
		pickedSet := make(map[int]bool)
		for i, idx := range remaining {
			if i%stride == delay {
				picked = append(picked, idx)
				pickedSet[idx] = true
			}
		}
		if len(picked) > d+1 {
			picked = picked[:d+1]
			pickedSet = make(map[int]bool, len(picked))
			for _, idx := range picked {
				pickedSet[idx] = true
			}
		}
		if len(picked) == 0 {
			// No index satisfies i%stride == delay (delay at or beyond the
			// remaining count): decimation can make no further progress, so
			// stop and let the remaining trees fall through to the final
			// full-level gather below, rather than spin forever.
			break
		}
		for j, idx := range picked {
			level := d - j
			jobs = append(jobs, f.TreeAt(idx).JobsOnLevel(level)...)
		}

		next := remaining[:0:0]
		for _, idx := range remaining {
			if !pickedSet[idx] {
				next = append(next, idx)
			}
		}
		remaining = next

		if delay > 2 {
			delay--
		} else {
			delay = 2
		}
	}

	for _, idx := range remaining {
		tree := f.TreeAt(idx)
		for level := 0; level <= d; level++ {
			jobs = append(jobs, tree.JobsOnLevel(level)...)
		}
	}

	jobs = append(jobs, f.Head().JobsOnLevel(d)...)
	return jobs
}

// NextJobs is an alias for AllWork, matching the exposed interface name.
func (f *Forest[A, D]) NextJobs() []AvailableJob[A, D] {
	return f.AllWork()
}

// NextKJobs returns the first k jobs from AllWork, or ErrInsufficientWork
// if fewer than k are available.
func (f *Forest[A, D]) NextKJobs(k int) ([]AvailableJob[A, D], error) {
	all := f.AllWork()
	if k > len(all) {
		return nil, fmt.Errorf("asked for %d jobs, %d available: %w", k, len(all), ErrInsufficientWork)
	}
	return all[:k], nil
}

// tailIndicesOldestFirst returns tail tree indices (excluding the head),
// ordered from oldest (nearest emission) to newest.
func (f *Forest[A, D]) tailIndicesOldestFirst() []int {
	n := f.trees.Len()
	indices := make([]int, 0, n-1)
	for i := n - 1; i >= 1; i-- {
		indices = append(indices, i)
	}
	return indices
}
