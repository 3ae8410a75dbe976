package table

import (
	"fmt"

	"github.com/bufrgo/bufrcore/internal/hash"
)

// Default fallback values used by Normalize when a requested tuple
// component has no matching table directory.
const (
	DefaultMasterTableNumber = 0
	DefaultCentre            = 0
	DefaultSubcentre         = 0
	DefaultMasterVersion     = 33
	DefaultLocalVersion      = 0
)

// Key identifies one versioned table set: the WMO master table tuple
// plus the originating-centre local table tuple.
type Key struct {
	RootDir           string
	MasterTableNumber int
	Centre            int
	Subcentre         int
	MasterVersion     int
	LocalVersion      int
	// LocalTablesDisabled is set by Normalize when no local table
	// directory could be resolved at all; LookupElement/LookupSequence
	// callers should consult only the master tables in that case.
	LocalTablesDisabled bool
}

// Hash returns a 64-bit xxHash of the key's string form, used as the
// cache map key (mirrors the teacher's internal/hash.ID pattern).
func (k Key) Hash() uint64 {
	s := fmt.Sprintf("%s|%d|%d|%d|%d|%d", k.RootDir, k.MasterTableNumber, k.Centre, k.Subcentre, k.MasterVersion, k.LocalVersion)

	return hash.ID(s)
}

// AvailableVersions describes what table directories a caller has on
// hand, so Normalize can decide the fallback policy without touching a
// filesystem itself (table loading from disk is out of core scope).
type AvailableVersions struct {
	MasterTableNumbers []int
	MasterVersions     []int
	Subcentres         []int
	LocalVersions      []int
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}

	return false
}

// Normalize applies the fallback policy described in spec.md §3: master
// table number falls back to 0 if the requested one is unavailable;
// master version falls back to DefaultMasterVersion; subcentre falls
// back to 0; if the local table version still cannot be resolved, local
// tables are disabled outright for this key rather than erroring.
func Normalize(requested Key, avail AvailableVersions) Key {
	k := requested

	if len(avail.MasterTableNumbers) > 0 && !contains(avail.MasterTableNumbers, k.MasterTableNumber) {
		k.MasterTableNumber = DefaultMasterTableNumber
	}
	if len(avail.MasterVersions) > 0 && !contains(avail.MasterVersions, k.MasterVersion) {
		k.MasterVersion = DefaultMasterVersion
	}
	if len(avail.Subcentres) > 0 && !contains(avail.Subcentres, k.Subcentre) {
		k.Subcentre = DefaultSubcentre
	}
	if len(avail.LocalVersions) > 0 && !contains(avail.LocalVersions, k.LocalVersion) {
		k.LocalTablesDisabled = true
		k.LocalVersion = DefaultLocalVersion
	}

	return k
}
