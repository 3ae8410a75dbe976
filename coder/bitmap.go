package coder

import (
	"github.com/bufrgo/bufrcore/descriptor"
	"github.com/bufrgo/bufrcore/errs"
)

// AdvanceBitmapPhase implements the bitmap-definition state machine of
// spec.md §4.E.3. It is called once per member, before dispatch. When a
// bitmap completes (the first non-031031 member after BitmapBitCounting),
// it invokes buildBitmap; the resulting bitmapped descriptors are then
// iterated by NextBitmappedDescriptor during subsequent marker-operator
// processing.
func (s *State) AdvanceBitmapPhase(member *descriptor.Descriptor) error {
	switch s.BitmapPhase {
	case BitmapIndicator:
		switch {
		case member.Kind == descriptor.KindOperator && member.ID == descriptor.NewID(2, 36, 0):
			s.reuseBitmap = true
			s.BitmapPhase = BitmapWaitingForBit
			s.N031031 = 0
		case member.Kind == descriptor.KindOperator && member.ID == descriptor.NewID(2, 37, 0):
			s.BitmapPhase = BitmapNA
		default:
			s.reuseBitmap = false
			s.BitmapPhase = BitmapWaitingForBit
		}

	case BitmapWaitingForBit:
		if member.ID == descriptor.NewID(0, 31, 31) {
			s.BitmapPhase = BitmapBitCounting
			s.N031031 = 1
		}

	case BitmapBitCounting:
		if member.ID == descriptor.NewID(0, 31, 31) {
			s.N031031++
		} else {
			if err := s.buildBitmap(); err != nil {
				return err
			}
			s.BitmapPhase = BitmapNA
		}
	}

	return nil
}

func (s *State) buildBitmap() error {
	sub := s.CurrentSubset()
	n := s.N031031
	// The decoder appends values as it reads them, so the bits are the
	// last n values. The encoder's Values are filled in before the walk,
	// so there the bits end at its write cursor IdxValue.
	end := len(sub.Values)
	if s.IdxValue > 0 && s.IdxValue < end {
		end = s.IdxValue
	}
	if n <= 0 || end < n {
		return nil
	}

	bits := make([]bool, n)
	start := end - n
	for i := 0; i < n; i++ {
		v := sub.Values[start+i]
		bits[i] = v.Raw != 0
	}

	if s.reuseBitmap {
		s.Bitmap = bits
		s.hasReusableBitmap = true
	}

	return s.buildBackReferencedDescriptors(bits)
}

// buildBackReferencedDescriptors scans backward from
// BackReferenceBoundary collecting exact-type Element descriptors until
// the collected count equals len(bits), then pairs each bit with its
// descriptor and records the bit==0 entries as the forward iterator for
// subsequent marker-operator resolution. Per spec.md §4.E.3/§7, it is a
// ProtocolViolation for the back-reference window to hold fewer Element
// descriptors than the bitmap needs.
func (s *State) buildBackReferencedDescriptors(bits []bool) error {
	sub := s.CurrentSubset()
	boundary := s.BackReferenceBoundary
	if boundary > len(sub.Descriptors) {
		boundary = len(sub.Descriptors)
	}

	collected := make([]int, 0, len(bits))
	for i := boundary - 1; i >= 0 && len(collected) < len(bits); i-- {
		d := sub.Descriptors[i]
		if d.Kind == descriptor.KindElement {
			collected = append(collected, i)
		}
	}
	if len(collected) < len(bits) {
		return errs.ErrProtocolViolation
	}
	// collected is nearest-first; reverse to original order
	for l, r := 0, len(collected)-1; l < r; l, r = l+1, r-1 {
		collected[l], collected[r] = collected[r], collected[l]
	}

	entries := make([]BitmappedEntry, 0, len(bits))
	for i, idx := range collected {
		if i >= len(bits) {
			break
		}
		if !bits[i] {
			entries = append(entries, BitmappedEntry{Index: idx, Descriptor: sub.Descriptors[idx]})
		}
	}

	s.BitmappedDescriptors = entries
	s.bitmappedCursor = 0

	return nil
}

// RecallReusableBitmap rebuilds the bitmapped-descriptor iterator from
// the last saved reusable bitmap (operator 237 Y=0).
func (s *State) RecallReusableBitmap() error {
	if s.hasReusableBitmap {
		return s.buildBackReferencedDescriptors(s.Bitmap)
	}

	return nil
}

// CancelReusableBitmap discards the saved reusable bitmap (operator 237
// Y=255).
func (s *State) CancelReusableBitmap() {
	s.hasReusableBitmap = false
	s.Bitmap = nil
}

// ClearBackReferenceState implements operator 235: clears boundary,
// bitmap, and the bitmapped iterator.
func (s *State) ClearBackReferenceState() {
	s.BackReferenceBoundary = 0
	s.BitmappedDescriptors = nil
	s.bitmappedCursor = 0
	s.hasReusableBitmap = false
	s.Bitmap = nil
}

// NextBitmappedDescriptor consumes the next back-referenced Element from
// the forward iterator set up by the last bitmap definition/recall.
func (s *State) NextBitmappedDescriptor() (*descriptor.Descriptor, bool) {
	if s.bitmappedCursor >= len(s.BitmappedDescriptors) {
		return nil, false
	}
	d := s.BitmappedDescriptors[s.bitmappedCursor].Descriptor
	s.bitmappedCursor++

	return d, true
}
