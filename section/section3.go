package section

import (
	"github.com/bufrgo/bufrcore/bitio"
	"github.com/bufrgo/bufrcore/descriptor"
)

// ParseSection3 reads length, a reserved byte, subset count, the
// observed/compressed flag byte, and the unexpanded descriptor list
// (two bytes per descriptor: high 2 bits F, next 6 bits X, low 8 bits
// Y), consuming exactly the declared section length.
func ParseSection3(r *bitio.Reader) (Section3, error) {
	start := r.BitPos()

	length, err := r.ReadUint(24)
	if err != nil {
		return Section3{}, err
	}
	s := Section3{Length: uint32(length)}

	if _, err := r.ReadUint(8); err != nil { // reserved
		return Section3{}, err
	}

	nSubsets, err := r.ReadUint(16)
	if err != nil {
		return Section3{}, err
	}
	s.NSubsets = uint16(nSubsets)

	flag, err := r.ReadUint(8)
	if err != nil {
		return Section3{}, err
	}
	s.IsObserved = flag&0x80 != 0
	s.IsCompressed = flag&0x40 != 0

	consumedBits := r.BitPos() - start
	remainingBits := int64(length)*8 - consumedBits
	nDescriptors := int(remainingBits / 16)

	s.UnexpandedDescriptors = make([]descriptor.ID, 0, nDescriptors)
	for i := 0; i < nDescriptors; i++ {
		f, err := r.ReadUint(2)
		if err != nil {
			return Section3{}, err
		}
		x, err := r.ReadUint(6)
		if err != nil {
			return Section3{}, err
		}
		y, err := r.ReadUint(8)
		if err != nil {
			return Section3{}, err
		}
		s.UnexpandedDescriptors = append(s.UnexpandedDescriptors, descriptor.NewID(int(f), int(x), int(y)))
	}

	// Consume any trailing padding bits (even-byte padding for edition <= 3
	// is applied by the caller at the message level).
	remainingAfter := int64(length)*8 - (r.BitPos() - start)
	if remainingAfter > 0 {
		r.Skip(int(remainingAfter))
	}

	return s, nil
}

// WriteSection3 writes section 3, deferring the length field.
func WriteSection3(w *bitio.Writer, s Section3) (lengthBitOffset int64, err error) {
	lengthBitOffset = w.BitPos()
	if err := w.WriteUint(0, 24); err != nil {
		return 0, err
	}
	if err := w.WriteUint(0, 8); err != nil { // reserved
		return 0, err
	}
	if err := w.WriteUint(uint64(s.NSubsets), 16); err != nil {
		return 0, err
	}

	flag := uint64(0)
	if s.IsObserved {
		flag |= 0x80
	}
	if s.IsCompressed {
		flag |= 0x40
	}
	if err := w.WriteUint(flag, 8); err != nil {
		return 0, err
	}

	for _, id := range s.UnexpandedDescriptors {
		if err := w.WriteUint(uint64(id.F()), 2); err != nil {
			return 0, err
		}
		if err := w.WriteUint(uint64(id.X()), 6); err != nil {
			return 0, err
		}
		if err := w.WriteUint(uint64(id.Y()), 8); err != nil {
			return 0, err
		}
	}

	return lengthBitOffset, nil
}
