package section

import (
	"github.com/bufrgo/bufrcore/bitio"
)

// ParseSection1 reads section 1 using the schema for the given edition.
// Edition 3 truncates the year to two digits (assumed 1900s/2000s per the
// WMO convention of treating 0-100 as a cardinal year count) and omits
// seconds and the international subcategory; edition 4 carries full
// 4-digit years, seconds, and the international data subcategory.
func ParseSection1(r *bitio.Reader, edition uint8) (Section1, error) {
	start := r.BitPos()

	length, err := r.ReadUint(24)
	if err != nil {
		return Section1{}, err
	}
	s := Section1{Length: uint32(length)}

	masterTable, err := r.ReadUint(8)
	if err != nil {
		return Section1{}, err
	}
	s.MasterTable = uint8(masterTable)

	if edition <= 3 {
		centre, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.Centre = uint16(centre)

		updateSeq, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.UpdateSequence = uint8(updateSeq)

		flag, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.HasSection2 = flag&0x80 != 0

		dataCategory, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.DataCategory = uint8(dataCategory)

		localSubcategory, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.LocalSubcategory = uint8(localSubcategory)

		masterVersion, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.MasterTableVersion = uint8(masterVersion)

		localVersion, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.LocalTableVersion = uint8(localVersion)

		year, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.Year = int(year)

		month, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.Month = int(month)

		day, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.Day = int(day)

		hour, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.Hour = int(hour)

		minute, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.Minute = int(minute)
	} else {
		centre, err := r.ReadUint(16)
		if err != nil {
			return Section1{}, err
		}
		s.Centre = uint16(centre)

		subcentre, err := r.ReadUint(16)
		if err != nil {
			return Section1{}, err
		}
		s.Subcentre = uint16(subcentre)

		updateSeq, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.UpdateSequence = uint8(updateSeq)

		flag, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.HasSection2 = flag&0x80 != 0

		dataCategory, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.DataCategory = uint8(dataCategory)

		intlSub, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.IntlSubcategory = uint8(intlSub)

		localSub, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.LocalSubcategory = uint8(localSub)

		masterVersion, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.MasterTableVersion = uint8(masterVersion)

		localVersion, err := r.ReadUint(8)
		if err != nil {
			return Section1{}, err
		}
		s.LocalTableVersion = uint8(localVersion)

		year, err := r.ReadUint(16)
		if err != nil {
			return Section1{}, err
		}
		s.Year = int(year)

		for _, dst := range []*int{&s.Month, &s.Day, &s.Hour, &s.Minute, &s.Second} {
			v, err := r.ReadUint(8)
			if err != nil {
				return Section1{}, err
			}
			*dst = int(v)
		}
	}

	consumedBits := r.BitPos() - start
	if length > 0 {
		remaining := int64(length)*8 - consumedBits
		if remaining > 0 {
			r.Skip(int(remaining))
		}
	}

	return s, nil
}

// WriteSection1 writes section 1 for the given edition, deferring the
// length field and returning its bit offset for back-patching.
func WriteSection1(w *bitio.Writer, edition uint8, s Section1) (lengthBitOffset int64, err error) {
	lengthBitOffset = w.BitPos()
	if err := w.WriteUint(0, 24); err != nil {
		return 0, err
	}
	if err := w.WriteUint(uint64(s.MasterTable), 8); err != nil {
		return 0, err
	}

	flag := uint64(0)
	if s.HasSection2 {
		flag = 0x80
	}

	if edition <= 3 {
		fields := []struct {
			v     uint64
			width int
		}{
			{uint64(s.Centre), 8},
			{uint64(s.UpdateSequence), 8},
			{flag, 8},
			{uint64(s.DataCategory), 8},
			{uint64(s.LocalSubcategory), 8},
			{uint64(s.MasterTableVersion), 8},
			{uint64(s.LocalTableVersion), 8},
			{uint64(s.Year), 8},
			{uint64(s.Month), 8},
			{uint64(s.Day), 8},
			{uint64(s.Hour), 8},
			{uint64(s.Minute), 8},
		}
		for _, f := range fields {
			if err := w.WriteUint(f.v, f.width); err != nil {
				return 0, err
			}
		}
	} else {
		fields := []struct {
			v     uint64
			width int
		}{
			{uint64(s.Centre), 16},
			{uint64(s.Subcentre), 16},
			{uint64(s.UpdateSequence), 8},
			{flag, 8},
			{uint64(s.DataCategory), 8},
			{uint64(s.IntlSubcategory), 8},
			{uint64(s.LocalSubcategory), 8},
			{uint64(s.MasterTableVersion), 8},
			{uint64(s.LocalTableVersion), 8},
			{uint64(s.Year), 16},
			{uint64(s.Month), 8},
			{uint64(s.Day), 8},
			{uint64(s.Hour), 8},
			{uint64(s.Minute), 8},
			{uint64(s.Second), 8},
		}
		for _, f := range fields {
			if err := w.WriteUint(f.v, f.width); err != nil {
				return 0, err
			}
		}
	}

	return lengthBitOffset, nil
}
