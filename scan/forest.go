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

	"github.com/gammazero/deque"
)

// EmittedResult pairs a finished aggregate with the base data that produced
// it, in admission order.
type EmittedResult[A, D any] struct {
	Value A
	Data  []D
}

// Forest is the ordered, non-empty sequence of trees at staggered stages of
// completion, plus the round bookkeeping described in the data model.
// Index 0 (the deque front) is always the current, newest, least complete
// tree; the deque back is the oldest tree, nearest emission.
type Forest[A, D any] struct {
	Config Config
	depth  int

	trees *deque.Deque

	lastEmitted *EmittedResult[A, D]

	currJobSeqNo uint64

	// recentTreeData and otherTreesData are a bookkeeping log of the base
	// data attached to not-yet-emitted trees, grouped per tree; nothing
	// but LastEmittedResult consults them.
	recentTreeData []D
	otherTreesData [][]D
}

// Empty creates a one-tree forest of all-Empty slots per the config.
func Empty[A, D any](cfg Config, opts ...func(*Config)) (*Forest[A, D], error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	d := cfg.depth()
	f := &Forest[A, D]{
		Config: cfg,
		depth:  d,
		trees:  deque.New(),
	}
	f.trees.PushFront(newTreePtr[A, D](d))
	return f, nil
}

func newTreePtr[A, D any](depth int) *Tree[A, D] {
	t := newTree[A, D](depth)
	return &t
}

// Depth returns the tree depth implied by the configured max base jobs.
func (f *Forest[A, D]) Depth() int { return f.depth }

// MaxTrees returns the forest size bound: (depth+1)*(delay+1) + 1.
func (f *Forest[A, D]) MaxTrees() int { return f.Config.maxTrees() }

// Len returns the current number of live trees.
func (f *Forest[A, D]) Len() int { return f.trees.Len() }

// TreeAt returns the tree at the given index, where 0 is the current
// (newest) tree.
func (f *Forest[A, D]) TreeAt(i int) *Tree[A, D] {
	return f.trees.At(i).(*Tree[A, D])
}

// Head returns the current (newest, least complete) tree.
func (f *Forest[A, D]) Head() *Tree[A, D] {
	return f.TreeAt(0)
}

// CurrentJobSequenceNumber returns the monotonic per-round counter.
func (f *Forest[A, D]) CurrentJobSequenceNumber() uint64 { return f.currJobSeqNo }

// FreeSpace returns the configured max base jobs per tree.
func (f *Forest[A, D]) FreeSpace() uint32 { return f.Config.MaxBaseJobs }

// LastEmittedResult returns the most recently emitted result, if any,
// alongside the base data that produced it.
func (f *Forest[A, D]) LastEmittedResult() *EmittedResult[A, D] {
	return f.lastEmitted
}

// NextOnNewTree reports whether the head tree has exactly max_base_jobs
// free slots, i.e. is freshly spawned and entirely empty.
func (f *Forest[A, D]) NextOnNewTree() bool {
	return f.Head().RequiredJobCount() == f.Config.MaxBaseJobs
}

// BaseJobsOnLatestTree returns the base data currently held by the head
// tree, in slot order.
func (f *Forest[A, D]) BaseJobsOnLatestTree() []D {
	head := f.Head()
	var data []D
	for _, slot := range head.Bases {
		if slot.Full() {
			data = append(data, slot.Job)
		}
	}
	return data
}

// PartitionIfOverflowing reports how an incoming batch of the given length
// would be split across the head tree and a newly spawned tree.
func (f *Forest[A, D]) PartitionIfOverflowing(dataCount int) (first uint32, second *uint32) {
	free := f.Head().RequiredJobCount()
	if uint32(dataCount) <= free {
		return uint32(dataCount), nil
	}
	overflow := uint32(dataCount) - free
	return free, &overflow
}

// pushHead prepends a freshly created empty tree.
func (f *Forest[A, D]) pushHead() {
	f.trees.PushFront(newTreePtr[A, D](f.depth))
}

// tailIndices returns the index of every tree other than the head, newest
// (index 1) first.
func (f *Forest[A, D]) tailIndices() []int {
	n := f.trees.Len()
	indices := make([]int, 0, n-1)
	for i := 1; i < n; i++ {
		indices = append(indices, i)
	}
	return indices
}

func (f *Forest[A, D]) checkBound() error {
	if f.trees.Len() > f.MaxTrees() {
		return fmt.Errorf("forest holds %d trees, bound is %d: %w", f.trees.Len(), f.MaxTrees(), ErrForestOverflow)
	}
	return nil
}

// clone deep-copies the forest so a failed transition never mutates the
// caller's state: every tree's slot arrays are copied, not aliased.
func (f *Forest[A, D]) clone() *Forest[A, D] {
	out := &Forest[A, D]{
		Config:       f.Config,
		depth:        f.depth,
		trees:        deque.New(),
		currJobSeqNo: f.currJobSeqNo,
	}
	if f.lastEmitted != nil {
		emitted := *f.lastEmitted
		emitted.Data = append([]D(nil), f.lastEmitted.Data...)
		out.lastEmitted = &emitted
	}
	out.recentTreeData = append([]D(nil), f.recentTreeData...)
	out.otherTreesData = make([][]D, len(f.otherTreesData))
	for i, d := range f.otherTreesData {
		out.otherTreesData[i] = append([]D(nil), d...)
	}
	for i := 0; i < f.trees.Len(); i++ {
		out.trees.PushBack(f.TreeAt(i).clone())
	}
	return out
}

// clone deep-copies a tree's slot arrays.
func (t *Tree[A, D]) clone() *Tree[A, D] {
	return &Tree[A, D]{
		Depth:  t.Depth,
		Merges: append([]MergeSlot[A](nil), t.Merges...),
		Bases:  append([]BaseSlot[D](nil), t.Bases...),
	}
}
