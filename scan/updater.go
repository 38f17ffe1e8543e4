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

// Update executes one round: it validates the incoming batch, splits data
// and completed jobs between the current tree and a newly spawned tree,
// drives tree updates, recomputes weights, prunes finished trees, and
// emits a result if the round completed one. On failure, the forest is
// left exactly as it was before the call.
func (f *Forest[A, D]) Update(data []D, completedJobs []A) (*A, error) {
	clone := f.clone()
	emitted, err := clone.update(data, completedJobs)
	if err != nil {
		return nil, err
	}
	*f = *clone
	return emitted, nil
}

func (f *Forest[A, D]) update(data []D, completedJobs []A) (*A, error) {
	if uint32(len(data)) > f.Config.MaxBaseJobs {
		return nil, fmt.Errorf("data length %d exceeds max base jobs %d: %w", len(data), f.Config.MaxBaseJobs, ErrDataCountExceeded)
	}

	f.currJobSeqNo++
	seqNo := f.currJobSeqNo

	free := f.Head().RequiredJobCount()
	dataHeadLen := minInt(len(data), int(free))
	dataHead, dataOverflow := data[:dataHeadLen], data[dataHeadLen:]

	requiredMergesForTail := len(f.WorkForCurrentRound())
	jobsHeadLen := minInt(len(completedJobs), requiredMergesForTail)
	jobsHead, jobsOverflow := completedJobs[:jobsHeadLen], completedJobs[jobsHeadLen:]
	resetAllowed := len(completedJobs) == requiredMergesForTail

	emitted, err := runSteps(f,
		func(f *Forest[A, D]) (*A, error) {
			return f.addMergeJobs(jobsHead, resetAllowed, seqNo)
		},
		func(f *Forest[A, D]) (*A, error) {
			return nil, f.addData(dataHead, seqNo)
		},
		func(f *Forest[A, D]) (*A, error) {
			return f.addMergeJobs(jobsOverflow, resetAllowed, seqNo)
		},
		func(f *Forest[A, D]) (*A, error) {
			return nil, f.addData(dataOverflow, seqNo)
		},
		func(f *Forest[A, D]) (*A, error) {
			return nil, f.checkBound()
		},
	)
	if err != nil {
		return nil, err
	}

	if emitted != nil {
		f.lastEmitted = &EmittedResult[A, D]{
			Value: *emitted,
			Data:  f.popOldestTreeData(),
		}
	}

	return emitted, nil
}

// addMergeJobs implements step 5: deliver completed jobs to the staggered
// tail trees, stopping once a root merge finalizes, then reset weights on
// every tail tree if either an emission occurred this step, or the forest
// has room to grow and the round supplied exactly the jobs the tail
// required (no overflow).
func (f *Forest[A, D]) addMergeJobs(jobs []A, resetAllowed bool, seqNo uint64) (*A, error) {
	d := f.depth
	stride := int(f.Config.Delay) + 1
	candidates := f.tailIndices()

	var selected []int
	for i, idx := range candidates {
		if i%stride == int(f.Config.Delay) {
			selected = append(selected, idx)
		}
	}
	if len(selected) > d+1 {
		selected = selected[:d+1]
	}

	var emitted *A
	var emittedIdx = -1
	pos := 0
	for j, idx := range selected {
		if emitted != nil {
			break
		}
		tree := f.TreeAt(idx)
		need := int(tree.RequiredJobCount())
		take := minInt(need, len(jobs)-pos)
		if take < 0 {
			take = 0
		}
		slice := jobs[pos : pos+take]
		pos += take

		newJobs := make([]NewJob[A, D], len(slice))
		for k, v := range slice {
			newJobs[k] = NewMergeJob[A, D](v)
		}

		level := d - j
		value, err := tree.Update(newJobs, level, seqNo)
		if err != nil {
			return nil, fmt.Errorf("could not update tail tree: %w", err)
		}
		if value != nil {
			emitted = value
			emittedIdx = idx
		}
	}

	if emittedIdx >= 0 {
		f.dropTreeAt(emittedIdx)
	}

	tailLen := f.trees.Len() - 1
	if emitted != nil || (tailLen+1 < f.MaxTrees() && resetAllowed) {
		for i := 1; i < f.trees.Len(); i++ {
			f.TreeAt(i).ResetWeights()
		}
	}

	return emitted, nil
}

// addData implements step 6: fill the head tree's base slots. If the head
// tree becomes full, it is weight-reset and demoted to tail position 1 by
// prepending a freshly spawned empty tree.
func (f *Forest[A, D]) addData(data []D, seqNo uint64) error {
	if len(data) == 0 {
		return nil
	}

	head := f.Head()
	free := head.RequiredJobCount()

	newJobs := make([]NewJob[A, D], len(data))
	for i, d := range data {
		newJobs[i] = NewBaseJob[A, D](d)
	}
	if _, err := head.Update(newJobs, f.depth, seqNo); err != nil {
		return fmt.Errorf("could not update head tree: %w", err)
	}
	f.recentTreeData = append(f.recentTreeData, data...)

	if uint32(len(data)) == free {
		head.ResetWeights()
		f.otherTreesData = append(f.otherTreesData, f.recentTreeData)
		f.recentTreeData = nil
		f.pushHead()
	}
	return nil
}

// dropTreeAt removes the tree at the given forest index; it is always the
// oldest (back-most) tree, since only the tail's final tree can emit.
func (f *Forest[A, D]) dropTreeAt(idx int) {
	if idx != f.trees.Len()-1 {
		panic(fmt.Errorf("dropTreeAt called on non-back index %d, tail length %d", idx, f.trees.Len()))
	}
	f.trees.PopBack()
}

// popOldestTreeData returns and clears the bookkeeping log entry for the
// tree that just emitted: the oldest entry recorded in otherTreesData, or
// the still-accumulating recentTreeData if no tree had yet been demoted.
func (f *Forest[A, D]) popOldestTreeData() []D {
	if len(f.otherTreesData) > 0 {
		oldest := f.otherTreesData[0]
		f.otherTreesData = f.otherTreesData[1:]
		return oldest
	}
	data := f.recentTreeData
	f.recentTreeData = nil
	return data
}
