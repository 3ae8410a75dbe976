// Package section parses and serializes the six wire sections of a BUFR
// message (WMO Manual on Codes, FM 94 BUFR): Section 0 (indicator),
// Section 1 (identification), Section 2 (optional, opaque), Section 3
// (data description), Section 4 (data), and Section 5 (end marker).
//
// Every Parse/Write pair operates on a bitio.Reader/Writer rather than a
// byte slice directly: although every section boundary in BUFR happens to
// fall on a byte boundary, Section 3's descriptor list and Section 4's
// template payload do not, so the whole message is read through one
// cursor from the "BUFR" magic to the "7777" stop signature.
//
// Declared section lengths are 24-bit big-endian fields; on the write
// side they are deferred (written as zero, patched in once the section's
// true length is known via bitio.Writer.SetUint) rather than computed in
// advance.
package section
