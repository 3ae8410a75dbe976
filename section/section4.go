package section

import "github.com/bufrgo/bufrcore/bitio"

// ParseSection4 reads the declared length, skips the one reserved byte,
// and returns the remaining bytes as the opaque template-data payload.
// Sections are always byte-aligned at their boundaries (section 3 always
// ends on a whole byte), so the payload can be sliced out as raw bytes
// and handed to the coder as a fresh bitio.Reader.
func ParseSection4(r *bitio.Reader) (Section4, error) {
	length, err := r.ReadUint(24)
	if err != nil {
		return Section4{}, err
	}
	if _, err := r.ReadUint(8); err != nil { // reserved
		return Section4{}, err
	}

	payloadLen := int(length) - 4
	if payloadLen < 0 {
		payloadLen = 0
	}

	data, err := r.ReadBytes(payloadLen)
	if err != nil {
		return Section4{}, err
	}

	return Section4{Length: uint32(length), Data: data}, nil
}

// WriteSection4Header writes the deferred length field and the reserved
// byte, returning the length field's bit offset for back-patching once
// the template data that follows has been serialized.
func WriteSection4Header(w *bitio.Writer) (lengthBitOffset int64, err error) {
	lengthBitOffset = w.BitPos()
	if err := w.WriteUint(0, 24); err != nil {
		return 0, err
	}
	if err := w.WriteUint(0, 8); err != nil { // reserved
		return 0, err
	}

	return lengthBitOffset, nil
}
