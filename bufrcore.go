// Package bufrcore implements the core of a WMO BUFR (Binary Universal
// Form for the Representation of meteorological data) encoder/decoder
// toolkit: descriptor resolution, the coder state machine, bit I/O, and
// the compression codec, wired together behind the in-process
// equivalents of the CLI surface described by the external collaborator
// boundary — Decode, Encode, Info, Split, Subset, and DecodeStream.
//
// Loading table JSON from disk, rendering to text/JSON, the path-query
// DSL, and the scripting facility are all out of scope; callers reach
// the table group shape this package consumes through a TableProvider.
package bufrcore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bufrgo/bufrcore/bitio"
	"github.com/bufrgo/bufrcore/coder"
	"github.com/bufrgo/bufrcore/descriptor"
	"github.com/bufrgo/bufrcore/errs"
	"github.com/bufrgo/bufrcore/section"
	"github.com/bufrgo/bufrcore/table"
)

// Message is the public structural view of one BUFR message: section
// parameters plus, unless decoded header-only, the resolved template and
// the per-subset decoded_descriptors/decoded_values/bitmap_links vectors
// spec.md §6 describes as what the non-core renderer/query/script layers
// need.
type Message struct {
	Section0 section.Section0
	Section1 section.Section1
	Section2 section.Section2
	Section3 section.Section3

	// Group is the table group the template was resolved against; nil
	// for a header-only Info result.
	Group *table.Group

	// Template is the fully expanded descriptor tree; nil for a
	// header-only Info result.
	Template []*descriptor.Descriptor

	// Subsets holds one SubsetState per data subset; nil for a
	// header-only Info result.
	Subsets []*coder.SubsetState
}

// Decode parses a complete BUFR message, including section 4 and the
// resulting per-subset decoded_values vectors.
func Decode(data []byte, opts ...Option) (*Message, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	return decodeMessage(data, o, false)
}

// Info parses only as much of a message as headerOnly requires: with
// headerOnly set, section 4 is never touched and Template/Subsets are
// left nil, which avoids resolving a table group at all.
func Info(data []byte, headerOnly bool, opts ...Option) (*Message, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	return decodeMessage(data, o, headerOnly)
}

func decodeMessage(data []byte, o *Options, headerOnly bool) (*Message, error) {
	r := bitio.NewReader(data)

	sec0, err := section.ParseSection0(r)
	if err != nil {
		return nil, err
	}

	sec1, err := section.ParseSection1(r, sec0.Edition)
	if err != nil {
		return nil, err
	}

	var sec2 section.Section2
	if sec1.HasSection2 {
		sec2, err = section.ParseSection2(r)
		if err != nil {
			return nil, err
		}
	}

	sec3, err := section.ParseSection3(r)
	if err != nil {
		return nil, err
	}

	msg := &Message{Section0: sec0, Section1: sec1, Section2: sec2, Section3: sec3}

	if headerOnly {
		return msg, nil
	}

	group, err := o.resolveGroup(sec1)
	if err != nil {
		return nil, err
	}
	msg.Group = group

	members, err := o.resolveTemplate(group, sec3.UnexpandedDescriptors)
	if err != nil {
		return nil, err
	}
	msg.Template = members

	sec4, err := section.ParseSection4(r)
	if err != nil {
		return nil, err
	}

	if err := section.ParseSection5(r); err != nil {
		return nil, err
	}

	state := coder.NewState(group, sec3.IsCompressed, int(sec3.NSubsets))
	payload := bitio.NewReader(sec4.Data)

	if sec3.IsCompressed {
		if err := coder.Decode(payload, state, members); err != nil {
			return nil, errs.Wrap(err, "", -1, payload.BitPos())
		}
	} else {
		for i := 0; i < state.NSubsets; i++ {
			state.SwitchSubset(i)
			if err := coder.Decode(payload, state, members); err != nil {
				return nil, errs.Wrap(err, "", i, payload.BitPos())
			}
		}
	}
	msg.Subsets = state.Subsets

	return msg, nil
}

// Encode serializes msg back to wire bytes. msg.Subsets must already
// carry one Values entry per expanded template member, in walk order,
// the same contract coder.Encode places on its caller; Decode's output
// satisfies it directly, which is what makes subset-then-encode a valid
// round trip.
func Encode(msg *Message, opts ...Option) ([]byte, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	return encodeMessage(msg, o)
}

func encodeMessage(msg *Message, o *Options) ([]byte, error) {
	if msg.Group == nil {
		return nil, fmt.Errorf("bufrcore: message has no table group: %w", errs.ErrTableLoad)
	}

	sec1 := msg.Section1
	if o.MasterTableVersionOverride != nil {
		sec1.MasterTableVersion = *o.MasterTableVersionOverride
	}

	members := msg.Template
	if members == nil {
		resolved, err := o.resolveTemplate(msg.Group, msg.Section3.UnexpandedDescriptors)
		if err != nil {
			return nil, err
		}
		members = resolved
		msg.Template = members
	}

	w := bitio.NewPooledWriter()
	defer w.Release()

	totalLenOffset, err := section.WriteSection0(w, msg.Section0.Edition)
	if err != nil {
		return nil, err
	}

	sec1Start := w.BitPos()
	sec1LenOffset, err := section.WriteSection1(w, msg.Section0.Edition, sec1)
	if err != nil {
		return nil, err
	}
	if err := w.SetUint(sec1LenOffset, uint64((w.BitPos()-sec1Start)/8), 24); err != nil {
		return nil, err
	}

	if sec1.HasSection2 {
		if err := section.WriteSection2(w, msg.Section2.Payload); err != nil {
			return nil, err
		}
	}

	sec3Start := w.BitPos()
	sec3LenOffset, err := section.WriteSection3(w, msg.Section3)
	if err != nil {
		return nil, err
	}
	if err := w.SetUint(sec3LenOffset, uint64((w.BitPos()-sec3Start)/8), 24); err != nil {
		return nil, err
	}

	sec4Start := w.BitPos()
	sec4LenOffset, err := section.WriteSection4Header(w)
	if err != nil {
		return nil, err
	}

	state := coder.NewState(msg.Group, msg.Section3.IsCompressed, int(msg.Section3.NSubsets))
	for i, sub := range msg.Subsets {
		if i >= len(state.Subsets) {
			break
		}
		state.Subsets[i].Values = sub.Values
	}

	if msg.Section3.IsCompressed {
		if err := coder.Encode(w, state, members); err != nil {
			return nil, errs.Wrap(err, "", -1, w.BitPos())
		}
	} else {
		for i := range state.Subsets {
			state.SwitchSubset(i)
			if err := coder.Encode(w, state, members); err != nil {
				return nil, errs.Wrap(err, "", i, w.BitPos())
			}
		}
	}

	if pad := w.PaddingBits(); pad > 0 {
		if err := w.WriteUint(0, pad); err != nil {
			return nil, err
		}
	}
	if msg.Section0.Edition <= 3 {
		if sec4Bytes := (w.BitPos() - sec4Start) / 8; sec4Bytes%2 != 0 {
			if err := w.WriteUint(0, 8); err != nil {
				return nil, err
			}
		}
	}

	if err := w.SetUint(sec4LenOffset, uint64((w.BitPos()-sec4Start)/8), 24); err != nil {
		return nil, err
	}

	if err := section.WriteSection5(w); err != nil {
		return nil, err
	}

	totalBytes := uint64(w.BitPos() / 8)
	if err := w.SetUint(totalLenOffset, totalBytes, 24); err != nil {
		return nil, err
	}

	out := make([]byte, len(w.Bytes()))
	copy(out, w.Bytes())

	return out, nil
}

// Subset projects msg down to the given zero-based subset indices,
// preserving section parameters but replacing Section3.NSubsets and
// Subsets with the selected slice, in the order requested.
func Subset(msg *Message, indices []int) (*Message, error) {
	projected := &Message{
		Section0: msg.Section0,
		Section1: msg.Section1,
		Section2: msg.Section2,
		Section3: msg.Section3,
		Group:    msg.Group,
		Template: msg.Template,
	}
	projected.Section3.NSubsets = uint16(len(indices))
	projected.Subsets = make([]*coder.SubsetState, len(indices))

	for i, idx := range indices {
		if idx < 0 || idx >= len(msg.Subsets) {
			return nil, fmt.Errorf("bufrcore: subset index %d out of range [0,%d): %w", idx, len(msg.Subsets), errs.ErrUnexpectedValue)
		}
		projected.Subsets[i] = msg.Subsets[idx]
	}

	return projected, nil
}

// resolveGroup resolves the table.Key a message's section 1 implies,
// through the caller-supplied TableProvider. How that provider actually
// obtains the three table JSON shapes (spec.md §6) is out of scope here.
// The provider receives only the requested Key; Options.Normalize is not
// passed to it, so any version fallback happens inside the provider.
func (o *Options) resolveGroup(sec1 section.Section1) (*table.Group, error) {
	if o.TableProvider == nil {
		return nil, fmt.Errorf("bufrcore: no TableProvider configured: %w", errs.ErrTableLoad)
	}

	key := table.Key{
		RootDir:           o.TablesRootDir,
		MasterTableNumber: int(sec1.MasterTable),
		Centre:            int(sec1.Centre),
		Subcentre:         int(sec1.Subcentre),
		MasterVersion:     int(sec1.MasterTableVersion),
		LocalVersion:      int(sec1.LocalTableVersion),
	}

	return o.TableProvider.TableGroup(key)
}

// resolveTemplate expands ids against group, through the compiled-
// template cache when one is configured.
func (o *Options) resolveTemplate(group *table.Group, ids []descriptor.ID) ([]*descriptor.Descriptor, error) {
	if o.cache != nil {
		tpl, err := o.cache.GetOrCompile(group, ids)
		if err != nil {
			return nil, err
		}

		return tpl.Members, nil
	}

	return group.DescriptorsFromIDs(ids)
}

// Splitter iterates the individual BUFR messages packed back-to-back in
// a byte stream, in the style of bufio.Scanner: call Next until it
// returns false, then check Err.
type Splitter struct {
	data []byte
	pos  int
	err  error
}

// Split returns a Splitter over data's back-to-back BUFR messages.
func Split(data []byte) *Splitter {
	return &Splitter{data: data}
}

// Next advances to the next message and reports whether one was found.
func (s *Splitter) Next() ([]byte, bool) {
	if s.err != nil || s.pos >= len(s.data) {
		return nil, false
	}

	start := bytes.Index(s.data[s.pos:], []byte("BUFR"))
	if start < 0 {
		s.pos = len(s.data)

		return nil, false
	}
	start += s.pos

	r := bitio.NewReader(s.data[start:])
	sec0, err := section.ParseSection0(r)
	if err != nil {
		s.err = err

		return nil, false
	}

	end := start + int(sec0.TotalLength)
	if end > len(s.data) {
		s.err = fmt.Errorf("bufrcore: truncated message at offset %d: %w", start, errs.ErrLengthMismatch)

		return nil, false
	}

	s.pos = end

	return s.data[start:end], true
}

// Err returns the error, if any, that stopped iteration.
func (s *Splitter) Err() error { return s.err }

// DecodeStream decodes every message in a byte stream read from r,
// calling fn with each successfully decoded Message or the error
// encountered recovering the message at that position. Per spec.md §7,
// a bad message does not abort the stream: DecodeStream resynchronizes
// on the next "BUFR" magic and continues. fn returning false stops
// iteration early.
func DecodeStream(r io.Reader, fn func(*Message, error) bool, opts ...Option) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	sp := Split(data)
	for {
		before := sp.pos
		raw, ok := sp.Next()
		if !ok {
			if sp.err == nil {
				break
			}
			// Section 0 of the message at the next magic could not be
			// framed: report it and resume the search past that magic.
			frameErr := sp.err
			sp.err = nil
			sp.pos = before + bytes.Index(data[before:], []byte("BUFR")) + 4
			if !fn(nil, frameErr) {
				break
			}

			continue
		}

		msg, decErr := Decode(raw, opts...)
		if !fn(msg, decErr) {
			break
		}
	}

	return sp.Err()
}
