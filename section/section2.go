package section

import "github.com/bufrgo/bufrcore/bitio"

// ParseSection2 reads the optional opaque local-use section. Callers
// must gate this on Section1.HasSection2; when absent the framing engine
// skips configuration entirely, per spec.md §4.C.
func ParseSection2(r *bitio.Reader) (Section2, error) {
	length, err := r.ReadUint(24)
	if err != nil {
		return Section2{}, err
	}

	payloadLen := int(length) - 3
	if payloadLen < 0 {
		payloadLen = 0
	}

	payload, err := r.ReadBytes(payloadLen)
	if err != nil {
		return Section2{}, err
	}

	return Section2{Present: true, Length: uint32(length), Payload: payload}, nil
}

// WriteSection2 writes the optional local-use section, computing its own
// length inline (section 2 has no downstream consumer relying on a
// deferred back-patch, unlike sections 0/1/3/4's lengths).
func WriteSection2(w *bitio.Writer, payload []byte) error {
	length := uint64(3 + len(payload))
	if err := w.WriteUint(length, 24); err != nil {
		return err
	}

	return w.WriteBytes(payload)
}
