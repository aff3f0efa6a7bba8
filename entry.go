package fts

import (
	"golang.org/x/sys/unix"
)

const (
	// RootLevel is the [Entry.Level] of the root paths themselves.
	RootLevel = 0

	// RootParentLevel is the [Entry.Level] of the synthetic shared parent
	// of all root paths.
	RootParentLevel = -1
)

// Info tags what kind of node an [Entry] describes, and for directories
// which visit of the pre-/post-order pair it is.
type Info uint8

const (
	InfoInit          Info = iota // initialized only, never returned
	InfoPreDir                    // directory, pre-order visit
	InfoCycle                     // directory closing a cycle, not entered
	InfoDefault                   // none of the other kinds
	InfoNoReadDir                 // directory that could not be read
	InfoDot                       // "." or ".." entry
	InfoPostDir                   // directory, post-order visit
	InfoErr                       // directory whose read partially failed
	InfoFile                      // regular file
	InfoNoStat                    // stat failed, [Entry.Err] is set
	InfoNoStatOK                  // stat elided, identity fields unset
	InfoSymlink                   // symbolic link
	InfoBrokenSymlink             // symbolic link without a target
	InfoWhiteout                  // union-mount whiteout marker
)

// String implements [fmt.Stringer] for an [Info].
func (i Info) String() string {
	switch i {
	case InfoInit:
		return "init"
	case InfoPreDir:
		return "pre-dir"
	case InfoCycle:
		return "cycle-dir"
	case InfoDefault:
		return "default"
	case InfoNoReadDir:
		return "unreadable-dir"
	case InfoDot:
		return "dot"
	case InfoPostDir:
		return "post-dir"
	case InfoErr:
		return "error-dir"
	case InfoFile:
		return "file"
	case InfoNoStat:
		return "no-stat"
	case InfoNoStatOK:
		return "no-stat-ok"
	case InfoSymlink:
		return "symlink"
	case InfoBrokenSymlink:
		return "broken-symlink"
	case InfoWhiteout:
		return "whiteout"
	default:
		return "unknown"
	}
}

// An Entry is one visited node of a traversal. Directories are handed out
// twice, as [InfoPreDir] and later [InfoPostDir], through the same pointer,
// so state stored in [Entry.Number] and [Entry.Pointer] on the first visit
// is still there on the second. Entries stay valid after the stream moved
// on.
type Entry struct {
	Name string // basename of the node
	Path string // full path, starting with the root as given
	Info Info
	Err  error // per-entry error, a [*io/fs.PathError] when set

	Level  int    // depth, roots are [RootLevel]
	Parent *Entry // parent node, shared synthetic parent for roots
	Cycle  *Entry // for [InfoCycle], the ancestor closing the cycle

	Ino   uint64
	Dev   uint64
	NLink uint64
	Size  int64
	Stat  *unix.Stat_t // full stat record, nil when failed or elided

	Number  int64 // free for use by the caller
	Pointer any   // free for use by the caller

	link  *Entry // next sibling
	instr Instruction
}

// setStat records a stat result on the entry, together with the identity
// fields drawn from it.
func (e *Entry) setStat(st *unix.Stat_t) {
	e.Stat = st
	e.Err = nil
	e.Ino = st.Ino
	e.Dev = uint64(st.Dev)
	e.NLink = uint64(st.Nlink)
	e.Size = st.Size
}

// clearStat invalidates the stat information of the entry, recording err as
// the reason.
func (e *Entry) clearStat(err error) {
	e.Stat = nil
	e.Err = err
	e.Ino = 0
	e.Dev = 0
	e.NLink = 0
	e.Size = 0
}
