// Package section implements the BUFR section framing engine (§0-§5 of
// the wire format): fixed and edition-dependent parameter schemas, the
// optional section 2 gate, and the encode-time back-patching of deferred
// section and total lengths.
package section

import (
	"time"

	"github.com/bufrgo/bufrcore/bitio"
	"github.com/bufrgo/bufrcore/descriptor"
	"github.com/bufrgo/bufrcore/errs"
)

var (
	startSignature = [4]byte{'B', 'U', 'F', 'R'}
	stopSignature  = [4]byte{'7', '7', '7', '7'}
)

// Section0 is the fixed-layout message header.
type Section0 struct {
	TotalLength uint32 // 24-bit, back-patched on encode
	Edition     uint8
}

// Section1 carries the identification parameters; its byte layout
// differs between edition 3 and edition 4.
type Section1 struct {
	Length             uint32
	MasterTable        uint8
	Centre             uint16
	Subcentre          uint16
	UpdateSequence     uint8
	HasSection2        bool
	DataCategory       uint8
	IntlSubcategory    uint8 // edition 4 only
	LocalSubcategory   uint8
	MasterTableVersion uint8
	LocalTableVersion  uint8
	Year               int
	Month              int
	Day                int
	Hour               int
	Minute             int
	Second             int // edition 4 only; 0 on edition 3
}

// Timestamp reassembles the section's date/time fields.
func (s *Section1) Timestamp() time.Time {
	return time.Date(s.Year, time.Month(s.Month), s.Day, s.Hour, s.Minute, s.Second, 0, time.UTC)
}

// Section2 is the opaque, optional local-use payload.
type Section2 struct {
	Present bool
	Length  uint32
	Payload []byte
}

// Section3 declares subset count, the observation/compression flags, and
// the unexpanded descriptor list that drives template construction.
type Section3 struct {
	Length              uint32
	NSubsets            uint16
	IsObserved          bool
	IsCompressed        bool
	UnexpandedDescriptors []descriptor.ID
}

// Section4 is the bit-packed template data payload. Data excludes the
// one reserved byte that follows the 24-bit length and the padding bits
// trailing the last element.
type Section4 struct {
	Length uint32
	Data   []byte
}

// Section5 is the fixed 4-byte stop signature.
type Section5 struct{}

// Message aggregates the six sections of one BUFR message. It is built
// incrementally by the decoder (sections appended in order as they are
// parsed) or by the encoder (sections filled in before serialization).
type Message struct {
	Section0 Section0
	Section1 Section1
	Section2 Section2
	Section3 Section3
	Section4 Section4
	Section5 Section5
}

// Edition is a message-property convenience accessor.
func (m *Message) Edition() uint8 { return m.Section0.Edition }

// NSubsets is a message-property convenience accessor.
func (m *Message) NSubsets() int { return int(m.Section3.NSubsets) }

// IsCompressed is a message-property convenience accessor.
func (m *Message) IsCompressed() bool { return m.Section3.IsCompressed }

// ParseOptions configures how section framing treats expected-value
// checks; it is the section-level half of the top-level decode options.
type ParseOptions struct {
	IgnoreValueExpectation bool
}

// ParseSection0 reads the 8-byte fixed header: magic, 24-bit total
// length, 8-bit edition.
func ParseSection0(r *bitio.Reader) (Section0, error) {
	magic, err := r.ReadBytes(4)
	if err != nil {
		return Section0{}, err
	}
	if [4]byte(magic) != startSignature {
		return Section0{}, errs.ErrProtocolViolation
	}

	length, err := r.ReadUint(24)
	if err != nil {
		return Section0{}, err
	}

	edition, err := r.ReadUint(8)
	if err != nil {
		return Section0{}, err
	}

	return Section0{TotalLength: uint32(length), Edition: uint8(edition)}, nil
}

// WriteSection0 writes the fixed header, writing 0 for TotalLength (it is
// back-patched once the whole message has been serialized) and returning
// the bit offset of the length field for that back-patch.
func WriteSection0(w *bitio.Writer, edition uint8) (lengthBitOffset int64, err error) {
	if err := w.WriteBytes(startSignature[:]); err != nil {
		return 0, err
	}
	lengthBitOffset = w.BitPos()
	if err := w.WriteUint(0, 24); err != nil {
		return 0, err
	}
	if err := w.WriteUint(uint64(edition), 8); err != nil {
		return 0, err
	}

	return lengthBitOffset, nil
}

// ParseSection5 reads and validates the stop signature.
func ParseSection5(r *bitio.Reader) error {
	sig, err := r.ReadBytes(4)
	if err != nil {
		return err
	}
	if [4]byte(sig) != stopSignature {
		return errs.ErrProtocolViolation
	}

	return nil
}

// WriteSection5 writes the stop signature.
func WriteSection5(w *bitio.Writer) error {
	return w.WriteBytes(stopSignature[:])
}
