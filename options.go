package fts

// Options select the traversal behavior of a [Stream]. Exactly one of
// [Logical] and [Physical] must be set, the rest combine freely.
type Options uint16

const (
	// ComFollow makes [Open] follow symbolic links given as root paths,
	// regardless of the walk mode.
	ComFollow Options = 1 << iota

	// Logical walks follow symbolic links everywhere. Entries describe the
	// link targets, with [InfoBrokenSymlink] marking links whose target is
	// missing. Link cycles come back as [InfoCycle] and are not entered.
	Logical

	// NoStat elides the stat call for entries whose directory read already
	// shows them to be non-directories, returning them as [InfoNoStatOK]
	// without identity fields. Only meaningful together with [Physical].
	NoStat

	// Physical walks never follow symbolic links, the links themselves are
	// returned as [InfoSymlink].
	Physical

	// SeeDot returns the "." and ".." entries of every read directory,
	// which are otherwise never part of a traversal.
	SeeDot

	// XDev keeps a traversal on the device of its root path, returning
	// directories on other devices without descending into them.
	XDev

	// Whiteout returns union-mount whiteout markers as [InfoWhiteout]
	// instead of [InfoDefault].
	Whiteout

	optionMask = ComFollow | Logical | NoStat | Physical | SeeDot | XDev | Whiteout
)

// An Instruction tells a [Stream], through [Stream.Set], how to handle an
// entry on the next [Stream.Read]. Instructions are consumed single-shot.
type Instruction uint8

const (
	// NoInstruction is the zero instruction, it also clears a previously
	// set one.
	NoInstruction Instruction = iota

	// Again re-stats the entry and returns it once more. On a directory
	// already past its post-order visit this re-descends the subtree.
	Again

	// Follow re-stats a symbolic link entry following the link, so that a
	// link to a directory is afterwards descended into.
	Follow

	// Skip discards the entry: a pre-order directory is not descended, a
	// not yet returned sibling is never returned.
	Skip
)

// CompareFunc orders the entries of a directory (and the root paths) before
// they are returned. The usual contract applies: negative for a before b,
// zero for equal, positive for a after b.
type CompareFunc func(a, b *Entry) int
