// Package coder implements the BUFR coder state machine and template
// walker: the single recursive-descent algorithm that, driven by a
// resolved template, handles element reads/writes, fixed and delayed
// replication, operator descriptors, bitmaps, statistical markers, and
// the compression min/diff codec — shared between decode and encode via
// the Hooks interface.
package coder

import (
	"github.com/bufrgo/bufrcore/descriptor"
	"github.com/bufrgo/bufrcore/table"
)

// QAStatus tracks the class-33 quality-information state machine driven
// by operator 222.
type QAStatus int

const (
	QANA QAStatus = iota
	QAWaiting
	QAProcessing
)

// BitmapPhase tracks the bitmap-definition state machine driven by
// operators 222/223/224/225/232/236/237.
type BitmapPhase int

const (
	BitmapNA BitmapPhase = iota
	BitmapIndicator
	BitmapWaitingForBit
	BitmapBitCounting
)

// BSRModifier is the (nbits_increment, scale_increment, refval_factor)
// triple controlled by operator 207 YYY.
type BSRModifier struct {
	NBitsIncrement int
	ScaleIncrement int
	RefValFactor   int64
}

// ValueKind tags a decoded/encoded Value's payload shape.
type ValueKind int

const (
	ValNumeric ValueKind = iota
	ValString
	ValCodeFlag
	ValNone // no-value placeholder (data-not-present guard, skipped descriptor)
)

// Value is one entry of a subset's decoded_values vector.
type Value struct {
	Kind    ValueKind
	Num     float64 // ValNumeric: physical (scaled) value
	Str     string  // ValString
	Raw     int64   // ValCodeFlag, and the raw transport integer for ValNumeric when useful to retain
	Missing bool
}

// BitmappedEntry pairs an absolute descriptor index with the exact-type
// Element descriptor a bitmap bit of 0 selected.
type BitmappedEntry struct {
	Index      int
	Descriptor *descriptor.Descriptor
}

// SubsetState holds one subset's decoded_descriptors / decoded_values /
// bitmap_links vectors.
type SubsetState struct {
	Descriptors []*descriptor.Descriptor
	Values      []Value
	BitmapLinks map[int]int
}

// State is the per-message mutable bag of operator modifiers, bitmap
// machinery, and per-subset vectors described in spec.md §4.D.
type State struct {
	Group        *table.Group
	IsCompressed bool
	NSubsets     int
	IdxSubset    int
	IdxValue     int

	Subsets []*SubsetState

	NBitsOffset int // 201
	ScaleOffset int // 202

	NBitsOfNewRefVal int // 203 Y, >0 while capturing
	NewRefVals       map[descriptor.ID]int64

	NBitsOfAssociated []int // 204 stack; empty == inactive

	NBitsOfSkippedLocal int // 206, consumed by the very next descriptor

	BSR BSRModifier // 207

	NewNBytes int // 208, 0 == no override

	DataNotPresentCount int // 221

	QAInfoStatus QAStatus // 222

	BitmapPhase            BitmapPhase
	N031031                int
	Bitmap                 []bool
	BackReferenceBoundary  int
	BitmappedDescriptors   []BitmappedEntry
	bitmappedCursor        int
	reuseBitmap            bool
	hasReusableBitmap      bool
	pendingBitmapIndicator int // absolute descriptor index where INDICATOR started, for boundary bookkeeping
}

// NewState builds a coder state for a message with nSubsets subsets; an
// uncompressed message is walked once per subset after SwitchSubset
// selects it.
func NewState(group *table.Group, isCompressed bool, nSubsets int) *State {
	s := &State{
		Group:        group,
		IsCompressed: isCompressed,
		NSubsets:     nSubsets,
		NewRefVals:   make(map[descriptor.ID]int64),
	}
	s.Subsets = make([]*SubsetState, nSubsets)
	for i := range s.Subsets {
		s.Subsets[i] = &SubsetState{BitmapLinks: make(map[int]int)}
	}

	return s
}

// CurrentSubset returns the subset vector the walker is currently
// populating/consuming.
func (s *State) CurrentSubset() *SubsetState {
	return s.Subsets[s.IdxSubset]
}

// SwitchSubset rebinds the current per-subset vectors (uncompressed path
// only) and clears per-subset modifier state, per spec.md §4.D.
func (s *State) SwitchSubset(idx int) {
	s.IdxSubset = idx
	s.IdxValue = 0
	s.NewRefVals = make(map[descriptor.ID]int64)
}

// PushAssociated pushes a width onto the 204 stack.
func (s *State) PushAssociated(nbits int) {
	s.NBitsOfAssociated = append(s.NBitsOfAssociated, nbits)
}

// PopAssociated pops the most recently pushed 204 width.
func (s *State) PopAssociated() {
	if len(s.NBitsOfAssociated) > 0 {
		s.NBitsOfAssociated = s.NBitsOfAssociated[:len(s.NBitsOfAssociated)-1]
	}
}

// AssociatedWidth sums the active 204 stack.
func (s *State) AssociatedWidth() int {
	total := 0
	for _, w := range s.NBitsOfAssociated {
		total += w
	}

	return total
}
