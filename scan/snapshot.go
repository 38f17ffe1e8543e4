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

// Snapshot is the structural, serializable form of a Forest. The live
// Forest type holds its trees in a gammazero/deque for O(1) head/tail
// operations, which is not itself a plain data value; Snapshot flattens it
// into exported fields that scan/codec can encode deterministically and
// that round-trip back into an equivalent Forest.
type Snapshot[A, D any] struct {
	Config         Config
	Depth          int
	Trees          []Tree[A, D]
	LastEmitted    *EmittedResult[A, D]
	CurrJobSeqNo   uint64
	RecentTreeData []D
	OtherTreesData [][]D
}

// Snapshot captures the forest's current state as a plain value suitable
// for deterministic serialization. Trees are ordered head-first, matching
// the forest's own index 0 convention.
func (f *Forest[A, D]) Snapshot() Snapshot[A, D] {
	snap := Snapshot[A, D]{
		Config:         f.Config,
		Depth:          f.depth,
		Trees:          make([]Tree[A, D], f.trees.Len()),
		CurrJobSeqNo:   f.currJobSeqNo,
		RecentTreeData: append([]D(nil), f.recentTreeData...),
		OtherTreesData: make([][]D, len(f.otherTreesData)),
	}
	for i := 0; i < f.trees.Len(); i++ {
		snap.Trees[i] = *f.TreeAt(i).clone()
	}
	for i, d := range f.otherTreesData {
		snap.OtherTreesData[i] = append([]D(nil), d...)
	}
	if f.lastEmitted != nil {
		emitted := *f.lastEmitted
		emitted.Data = append([]D(nil), f.lastEmitted.Data...)
		snap.LastEmitted = &emitted
	}
	return snap
}

// FromSnapshot rebuilds a live Forest from a previously captured Snapshot,
// the inverse of Forest.Snapshot.
func FromSnapshot[A, D any](snap Snapshot[A, D]) (*Forest[A, D], error) {
	cfg := snap.Config
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	f, err := Empty[A, D](cfg)
	if err != nil {
		return nil, err
	}
	for f.trees.Len() > 0 {
		f.trees.PopBack()
	}
	for i := range snap.Trees {
		tree := snap.Trees[i]
		f.trees.PushBack(tree.clone())
	}
	f.currJobSeqNo = snap.CurrJobSeqNo
	f.recentTreeData = append([]D(nil), snap.RecentTreeData...)
	f.otherTreesData = make([][]D, len(snap.OtherTreesData))
	for i, d := range snap.OtherTreesData {
		f.otherTreesData[i] = append([]D(nil), d...)
	}
	if snap.LastEmitted != nil {
		emitted := *snap.LastEmitted
		emitted.Data = append([]D(nil), snap.LastEmitted.Data...)
		f.lastEmitted = &emitted
	}
	return f, nil
}
