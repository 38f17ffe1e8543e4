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

import "github.com/fxamacker/cbor/v2"

// Status is the lifecycle stage of a slot once it holds a job.
type Status uint8

const (
	// StatusTodo marks a slot that holds a job awaiting external completion.
	StatusTodo Status = iota
	// StatusDone marks a slot whose job has been completed and is immutable
	// until weight-reset consumes it.
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusTodo:
		return "todo"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// baseState is the occupancy of a base (leaf) slot.
type baseState uint8

const (
	baseEmpty baseState = iota
	baseFull
)

// mergeState is the occupancy of a merge (internal node) slot.
type mergeState uint8

const (
	mergeEmpty mergeState = iota
	mergePart
	mergeFull
)

// BaseSlot holds a single admitted base datum of type D.
type BaseSlot[D any] struct {
	WeightRemaining uint32
	state           baseState
	Job             D
	SeqNo           uint64
	Status          Status
}

// Empty reports whether the slot has not yet received a base job.
func (s BaseSlot[D]) Empty() bool { return s.state == baseEmpty }

// Full reports whether the slot holds a base job (Todo or Done).
func (s BaseSlot[D]) Full() bool { return s.state == baseFull }

// MergeSlot holds the combined result of two child subtrees of type A.
type MergeSlot[A any] struct {
	LeftWeight, RightWeight uint32
	state                   mergeState
	part                    A
	Left, Right             A
	SeqNo                   uint64
	Status                  Status
}

// Empty reports whether the slot has not received either child value.
func (s MergeSlot[A]) Empty() bool { return s.state == mergeEmpty }

// Part reports whether the slot has received exactly one child value.
func (s MergeSlot[A]) Part() bool { return s.state == mergePart }

// Full reports whether the slot holds both child values (Todo or Done).
func (s MergeSlot[A]) Full() bool { return s.state == mergeFull }

// baseSlotWire is the exported wire shape of BaseSlot, letting the struct
// keep its occupancy field unexported while still round-tripping through
// scan/codec's cbor encoding.
type baseSlotWire[D any] struct {
	WeightRemaining uint32
	State           baseState
	Job             D
	SeqNo           uint64
	Status          Status
}

// MarshalCBOR implements cbor.Marshaler.
func (s BaseSlot[D]) MarshalCBOR() ([]byte, error) {
	wire := baseSlotWire[D]{
		WeightRemaining: s.WeightRemaining,
		State:           s.state,
		Job:             s.Job,
		SeqNo:           s.SeqNo,
		Status:          s.Status,
	}
	return cbor.Marshal(wire)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (s *BaseSlot[D]) UnmarshalCBOR(data []byte) error {
	var wire baseSlotWire[D]
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.WeightRemaining = wire.WeightRemaining
	s.state = wire.State
	s.Job = wire.Job
	s.SeqNo = wire.SeqNo
	s.Status = wire.Status
	return nil
}

// mergeSlotWire is the exported wire shape of MergeSlot, for the same
// reason as baseSlotWire.
type mergeSlotWire[A any] struct {
	LeftWeight, RightWeight uint32
	State                   mergeState
	Part                    A
	Left, Right             A
	SeqNo                   uint64
	Status                  Status
}

// MarshalCBOR implements cbor.Marshaler.
func (s MergeSlot[A]) MarshalCBOR() ([]byte, error) {
	wire := mergeSlotWire[A]{
		LeftWeight:  s.LeftWeight,
		RightWeight: s.RightWeight,
		State:       s.state,
		Part:        s.part,
		Left:        s.Left,
		Right:       s.Right,
		SeqNo:       s.SeqNo,
		Status:      s.Status,
	}
	return cbor.Marshal(wire)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (s *MergeSlot[A]) UnmarshalCBOR(data []byte) error {
	var wire mergeSlotWire[A]
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.LeftWeight = wire.LeftWeight
	s.RightWeight = wire.RightWeight
	s.state = wire.State
	s.part = wire.Part
	s.Left = wire.Left
	s.Right = wire.Right
	s.SeqNo = wire.SeqNo
	s.Status = wire.Status
	return nil
}

// mergeIndex computes the flat-array position of the merge slot at
// (level, i) within a level-order layout: level 0 holds 1 slot, level 1
// holds 2, and so on, matching a standard binary-heap index.
func mergeIndex(level, i int) int {
	return (1 << uint(level)) - 1 + i
}

// mergeSlotCount returns the total number of merge slots in a tree of the
// given depth: 2^depth - 1.
func mergeSlotCount(depth int) int {
	if depth <= 0 {
		return 0
	}
	return (1 << uint(depth)) - 1
}

// baseSlotCount returns the number of base (leaf) slots in a tree of the
// given depth: 2^depth.
func baseSlotCount(depth int) int {
	return 1 << uint(depth)
}

// levelWidth returns the number of slots present at the given level.
func levelWidth(level int) int {
	return 1 << uint(level)
}

// initialMergeWeight returns the weight a merge slot at the given level
// starts with in a freshly created tree of the given depth: each side owes
// 2^(depth-level-1) base-job equivalents.
func initialMergeWeight(depth, level int) uint32 {
	return uint32(1) << uint(depth-level-1)
}
