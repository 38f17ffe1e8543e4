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
	"strings"
)

// Tree is a perfectly balanced binary tree of fixed depth carrying a merge
// slot at each internal level and a base slot at each leaf. Rather than the
// pair-nested generic type a higher-kinded language would use, levels are
// held as flat arrays indexed by the standard binary-heap scheme: the merge
// slot at (level, i) lives at index 2^level-1+i, and the 2^depth base slots
// form their own flat array.
type Tree[A, D any] struct {
	Depth  int
	Merges []MergeSlot[A]
	Bases  []BaseSlot[D]
}

// newTree builds a fresh, all-Empty tree of the given depth with
// level-derived initial weights: level-ℓ merges owe 2^(depth-ℓ-1) on each
// side, base leaves owe 1.
func newTree[A, D any](depth int) Tree[A, D] {
	t := Tree[A, D]{
		Depth:  depth,
		Merges: make([]MergeSlot[A], mergeSlotCount(depth)),
		Bases:  make([]BaseSlot[D], baseSlotCount(depth)),
	}
	for level := 0; level < depth; level++ {
		w := initialMergeWeight(depth, level)
		for i := 0; i < levelWidth(level); i++ {
			slot := &t.Merges[mergeIndex(level, i)]
			slot.LeftWeight, slot.RightWeight = w, w
		}
	}
	for i := range t.Bases {
		t.Bases[i].WeightRemaining = 1
	}
	return t
}

// RequiredJobCount is the sum of the root weights: the number of base-job
// equivalents still owed before the tree's root can finalize. For a
// depth-zero tree (a single base slot with no merges) it is that slot's own
// weight.
func (t *Tree[A, D]) RequiredJobCount() uint32 {
	if t.Depth == 0 {
		return t.Bases[0].WeightRemaining
	}
	root := t.Merges[mergeIndex(0, 0)]
	return root.LeftWeight + root.RightWeight
}

// JobsOnLevel returns, for the chosen level, every Todo/Full slot as an
// AvailableJob, left to right. At level == Depth it returns base jobs;
// otherwise it returns merge jobs at that interior level.
func (t *Tree[A, D]) JobsOnLevel(level int) []AvailableJob[A, D] {
	var jobs []AvailableJob[A, D]
	if level == t.Depth {
		for i, slot := range t.Bases {
			if slot.Full() && slot.Status == StatusTodo {
				jobs = append(jobs, AvailableJob[A, D]{Kind: JobBase, Level: level, Index: i, Base: slot.Job})
			}
		}
		return jobs
	}
	for i := 0; i < levelWidth(level); i++ {
		slot := t.Merges[mergeIndex(level, i)]
		if slot.Full() && slot.Status == StatusTodo {
			jobs = append(jobs, AvailableJob[A, D]{Kind: JobMerge, Level: level, Index: i, Left: slot.Left, Right: slot.Right})
		}
	}
	return jobs
}

// ToData is an alias for JobsOnLevel(Depth): every Todo base leaf of this
// tree.
func (t *Tree[A, D]) ToData() []AvailableJob[A, D] {
	return t.JobsOnLevel(t.Depth)
}

// Update is the central state-transition primitive. Given the raw job
// values a caller routed to this tree for the current round, it walks the
// tree top-down from the root, splitting the job slice at each node using
// that node's current (left, right) weights as cut points, until it reaches
// updateLevel. Strictly above updateLevel-1 the walk only does weight
// accounting; at updateLevel-1 it builds or extends a merge slot (the
// "create" step); at updateLevel it finalizes an existing slot (the
// "complete" step). A completed slot's value (a merge slot's, or a Todo
// base slot's confirmed by a merge value) bubbles back to its parent's
// create step in the same call; a base slot newly filled with raw data
// never bubbles, since a base datum is not a merge payload.
func (t *Tree[A, D]) Update(jobs []NewJob[A, D], updateLevel int, seqNo uint64) (*A, error) {
	if updateLevel < 0 || updateLevel > t.Depth {
		return nil, fmt.Errorf("update level %d out of range for depth %d: %w", updateLevel, t.Depth, ErrInvalidMergeJob)
	}
	return t.updateNode(0, 0, jobs, updateLevel, seqNo)
}

func (t *Tree[A, D]) updateNode(level, idx int, jobs []NewJob[A, D], updateLevel int, seqNo uint64) (*A, error) {
	switch {
	case level == updateLevel:
		if level == t.Depth {
			return t.completeBase(idx, jobs, seqNo)
		}
		return t.completeMerge(level, idx, jobs, seqNo)
	case level == updateLevel-1:
		return t.createMerge(level, idx, jobs, updateLevel, seqNo)
	case level < updateLevel-1:
		return nil, t.accountOnly(level, idx, jobs, updateLevel, seqNo)
	default:
		return nil, nil
	}
}

// splitForDescent divides jobs between a node's two children using its
// current (left, right) weights as cut points: the first L items go left,
// the next R items go right.
func splitForDescent[A, D any](jobs []NewJob[A, D], left, right uint32) (leftJobs, rightJobs []NewJob[A, D]) {
	usedLeft := minInt(len(jobs), int(left))
	usedRight := minInt(len(jobs)-usedLeft, int(right))
	return jobs[:usedLeft], jobs[usedLeft : usedLeft+usedRight]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// accountOnly implements case 3 of the update algorithm: subtract the
// consumed counts from this node's weights, leaving its slot state
// unchanged, and keep routing the jobs slice toward updateLevel.
func (t *Tree[A, D]) accountOnly(level, idx int, jobs []NewJob[A, D], updateLevel int, seqNo uint64) error {
	mi := mergeIndex(level, idx)
	slot := &t.Merges[mi]
	usedLeft := minInt(len(jobs), int(slot.LeftWeight))
	usedRight := minInt(len(jobs)-usedLeft, int(slot.RightWeight))
	leftJobs, rightJobs := jobs[:usedLeft], jobs[usedLeft:usedLeft+usedRight]
	slot.LeftWeight -= uint32(usedLeft)
	slot.RightWeight -= uint32(usedRight)

	if _, err := t.updateNode(level+1, 2*idx, leftJobs, updateLevel, seqNo); err != nil {
		return err
	}
	if _, err := t.updateNode(level+1, 2*idx+1, rightJobs, updateLevel, seqNo); err != nil {
		return err
	}
	return nil
}

// createMerge implements case 1 of the update algorithm. It routes jobs
// down to the two children at updateLevel, then builds or extends its own
// slot from whatever bubbles back up: a child merge's completed value when
// the children are themselves merge nodes, or a base job's proved value
// when the children are leaves. A leaf fed raw NewJob::Base data never
// bubbles a value (the datum alone is not yet a mergeable A), so that case
// is pure weight accounting instead.
func (t *Tree[A, D]) createMerge(level, idx int, jobs []NewJob[A, D], updateLevel int, seqNo uint64) (*A, error) {
	mi := mergeIndex(level, idx)
	slot := &t.Merges[mi]
	leftJobs, rightJobs := splitForDescent(jobs, slot.LeftWeight, slot.RightWeight)

	leftVal, err := t.updateNode(level+1, 2*idx, leftJobs, updateLevel, seqNo)
	if err != nil {
		return nil, err
	}
	rightVal, err := t.updateNode(level+1, 2*idx+1, rightJobs, updateLevel, seqNo)
	if err != nil {
		return nil, err
	}

	if level+1 == t.Depth && len(jobs) > 0 && jobs[0].Kind == JobBase {
		// Children are leaves being filled with raw base data: the leaf
		// fill already happened above; here we only account the weight,
		// since raw data carries no mergeable value to bubble.
		switch len(jobs) {
		case 1:
			if slot.LeftWeight > 0 {
				slot.LeftWeight--
			} else {
				slot.RightWeight--
			}
		case 2:
			slot.LeftWeight--
			slot.RightWeight--
		default:
			return nil, fmt.Errorf("invalid merge job at level %d index %d: %w", level, idx, ErrInvalidMergeJob)
		}
		return nil, nil
	}

	// Either children are merge nodes bubbling their completed values, or
	// children are leaves whose just-proved base values bubble up from
	// completeBase: both cases build this slot from leftVal/rightVal the
	// same way.
	switch {
	case leftVal == nil && rightVal == nil:
		// No arrivals; unchanged.
	case leftVal != nil && rightVal != nil && slot.Empty():
		slot.Left, slot.Right = *leftVal, *rightVal
		slot.SeqNo = seqNo
		slot.Status = StatusTodo
		slot.state = mergeFull
		slot.LeftWeight--
		slot.RightWeight--
	case leftVal != nil && rightVal == nil && slot.Empty():
		slot.part = *leftVal
		slot.state = mergePart
		slot.LeftWeight--
	case leftVal == nil && rightVal != nil && slot.Part():
		slot.Left, slot.Right = slot.part, *rightVal
		slot.SeqNo = seqNo
		slot.Status = StatusTodo
		slot.state = mergeFull
		slot.RightWeight--
	default:
		return nil, fmt.Errorf("invalid merge job at level %d index %d: %w", level, idx, ErrInvalidMergeJob)
	}
	return nil, nil
}

// completeMerge implements case 2 for an internal node: the single
// arriving merge value must match an existing Full{Todo} slot. The root
// (level 0) additionally bubbles the value out as the round's emission and
// zeroes its weights; non-root levels keep their weights and instead bubble
// the value to their parent's create step.
func (t *Tree[A, D]) completeMerge(level, idx int, jobs []NewJob[A, D], seqNo uint64) (*A, error) {
	mi := mergeIndex(level, idx)
	slot := &t.Merges[mi]
	if len(jobs) == 0 {
		return nil, nil
	}
	if len(jobs) != 1 || jobs[0].Kind != JobMerge || !slot.Full() || slot.Status != StatusTodo {
		return nil, fmt.Errorf("invalid merge job at level %d index %d: %w", level, idx, ErrInvalidMergeJob)
	}
	result := jobs[0].Merge
	slot.Status = StatusDone
	slot.SeqNo = seqNo
	if level == 0 {
		slot.LeftWeight, slot.RightWeight = 0, 0
	}
	return &result, nil
}

// completeBase implements the leaf pairing table: a NewJob::Base fills an
// Empty slot (no value bubbles, a raw datum is not yet mergeable); a
// NewJob::Merge confirms an existing Full{Todo} slot Done and bubbles the
// supplied value to the parent's create step, exactly as a completed
// merge child would.
func (t *Tree[A, D]) completeBase(idx int, jobs []NewJob[A, D], seqNo uint64) (*A, error) {
	slot := &t.Bases[idx]
	if len(jobs) == 0 {
		return nil, nil
	}
	if len(jobs) != 1 {
		return nil, fmt.Errorf("invalid base job at index %d: %w", idx, ErrInvalidBaseJob)
	}
	job := jobs[0]
	switch {
	case slot.Empty() && job.Kind == JobBase:
		slot.Job = job.Base
		slot.SeqNo = seqNo
		slot.Status = StatusTodo
		slot.state = baseFull
		slot.WeightRemaining = 0
		return nil, nil
	case slot.Full() && slot.Status == StatusTodo && job.Kind == JobMerge:
		slot.Status = StatusDone
		result := job.Merge
		return &result, nil
	default:
		return nil, fmt.Errorf("invalid base job at index %d: %w", idx, ErrInvalidBaseJob)
	}
}

// ResetWeights recomputes every weight bottom-up from current slot
// statuses: a Todo slot contributes weight 1, a Done or never-filled slot
// contributes 0. A Todo merge's own weights are literally forced to (1,0)
// regardless of what its children's contributions would otherwise sum to;
// it needs exactly one completion job next round.
func (t *Tree[A, D]) ResetWeights() {
	if t.Depth == 0 {
		t.resetBaseWeight(0)
		return
	}
	t.resetMergeWeight(0, 0)
}

// resetBaseWeight returns the (left, right) contribution a base leaf
// propagates to its parent.
func (t *Tree[A, D]) resetBaseWeight(idx int) (uint32, uint32) {
	slot := &t.Bases[idx]
	if slot.Full() && slot.Status == StatusTodo {
		slot.WeightRemaining = 1
		return 1, 0
	}
	slot.WeightRemaining = 0
	return 0, 0
}

// resetMergeWeight returns the (left, right) contribution a merge node
// propagates to its parent, after updating its own weights in place.
func (t *Tree[A, D]) resetMergeWeight(level, idx int) (uint32, uint32) {
	slot := &t.Merges[mergeIndex(level, idx)]
	if slot.Full() && slot.Status == StatusTodo {
		slot.LeftWeight, slot.RightWeight = 1, 0
		return 1, 0
	}

	var l1, r1, l2, r2 uint32
	if level+1 == t.Depth {
		l1, r1 = t.resetBaseWeight(2 * idx)
		l2, r2 = t.resetBaseWeight(2*idx + 1)
	} else {
		l1, r1 = t.resetMergeWeight(level+1, 2*idx)
		l2, r2 = t.resetMergeWeight(level+1, 2*idx+1)
	}
	left, right := l1+r1, l2+r2
	slot.LeftWeight, slot.RightWeight = left, right
	return left, right
}

// MapDepth structurally maps a tree's payload types, preserving the state
// and weights of every slot: fMerge transforms a merge payload given its
// level, fBase transforms a base payload. This mirrors the recursive
// pair-nested map_depth of a higher-kinded encoding, adapted to the flat,
// depth-indexed representation of Tree.
func MapDepth[A, D, B, C any](t *Tree[A, D], fMerge func(level int, a A) B, fBase func(d D) C) Tree[B, C] {
	out := Tree[B, C]{
		Depth:  t.Depth,
		Merges: make([]MergeSlot[B], len(t.Merges)),
		Bases:  make([]BaseSlot[C], len(t.Bases)),
	}
	level := 0
	for i, slot := range t.Merges {
		for mergeIndex(level+1, 0) <= i {
			level++
		}
		out.Merges[i] = mapMergeSlot(slot, func(a A) B { return fMerge(level, a) })
	}
	for i, slot := range t.Bases {
		out.Bases[i] = mapBaseSlot(slot, fBase)
	}
	return out
}

func mapMergeSlot[A, B any](slot MergeSlot[A], f func(A) B) MergeSlot[B] {
	out := MergeSlot[B]{
		LeftWeight:  slot.LeftWeight,
		RightWeight: slot.RightWeight,
		state:       slot.state,
		SeqNo:       slot.SeqNo,
		Status:      slot.Status,
	}
	switch {
	case slot.Part():
		out.part = f(slot.part)
	case slot.Full():
		out.Left, out.Right = f(slot.Left), f(slot.Right)
	}
	return out
}

func mapBaseSlot[D, C any](slot BaseSlot[D], f func(D) C) BaseSlot[C] {
	out := BaseSlot[C]{
		WeightRemaining: slot.WeightRemaining,
		state:           slot.state,
		SeqNo:           slot.SeqNo,
		Status:          slot.Status,
	}
	if slot.Full() {
		out.Job = f(slot.Job)
	}
	return out
}

// FoldDepth deterministically folds over every slot of the tree, merges
// first (level by level, left to right), then bases (left to right),
// combining each slot's contribution with the running accumulator.
func FoldDepth[A, D, R any](t *Tree[A, D], fMerge func(level int, slot MergeSlot[A]) R, fBase func(slot BaseSlot[D]) R, combine func(acc, next R) R, init R) R {
	acc := init
	level := 0
	for i, slot := range t.Merges {
		for mergeIndex(level+1, 0) <= i {
			level++
		}
		acc = combine(acc, fMerge(level, slot))
	}
	for _, slot := range t.Bases {
		acc = combine(acc, fBase(slot))
	}
	return acc
}

// View renders a human-readable, level-by-level dump of the tree; it is not
// functionally essential, only a debugging aid.
func (t *Tree[A, D]) View(showA func(A) string, showD func(D) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tree(depth=%d)\n", t.Depth)
	for level := 0; level < t.Depth; level++ {
		fmt.Fprintf(&b, "  level %d:", level)
		for i := 0; i < levelWidth(level); i++ {
			slot := t.Merges[mergeIndex(level, i)]
			switch {
			case slot.Empty():
				fmt.Fprintf(&b, " _")
			case slot.Part():
				fmt.Fprintf(&b, " <%s,?>", showA(slot.part))
			default:
				fmt.Fprintf(&b, " <%s,%s>:%s", showA(slot.Left), showA(slot.Right), slot.Status)
			}
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  bases:")
	for _, slot := range t.Bases {
		if slot.Empty() {
			fmt.Fprintf(&b, " _")
			continue
		}
		fmt.Fprintf(&b, " %s:%s", showD(slot.Job), slot.Status)
	}
	b.WriteByte('\n')
	return b.String()
}
