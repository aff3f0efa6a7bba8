package fts

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// statEntry stats and classifies a single entry, filling its stat and
// identity fields and returning its [Info] kind. Symbolic links are
// followed under [Logical], or when follow forces it for this one entry.
// Failures are recorded on [Entry.Err], a successful call clears it.
func (s *Stream) statEntry(p *Entry, follow bool) Info {
	st := &unix.Stat_t{}

	if s.opts&Logical != 0 || follow {
		if err := s.sys.Stat(p.Path, st); err != nil {
			if lerr := s.sys.Lstat(p.Path, st); lerr == nil {
				// A symbolic link whose target is missing.
				p.setStat(st)

				return InfoBrokenSymlink
			}
			p.clearStat(&fs.PathError{Op: "stat", Path: p.Path, Err: err})

			return InfoNoStat
		}
	} else if err := s.sys.Lstat(p.Path, st); err != nil {
		p.clearStat(&fs.PathError{Op: "lstat", Path: p.Path, Err: err})

		return InfoNoStat
	}

	p.setStat(st)

	switch st.Mode & unix.S_IFMT {
	case unix.S_IFDIR:
		if isDotName(p.Name) {
			return InfoDot
		}

		// Cycle detection is done by brute force against the ancestor
		// chain when the directory is first encountered.
		for t := p.Parent; t != nil && t.Level >= RootLevel; t = t.Parent {
			if t.Ino == p.Ino && t.Dev == p.Dev {
				p.Cycle = t

				return InfoCycle
			}
		}

		return InfoPreDir
	case unix.S_IFLNK:
		return InfoSymlink
	case unix.S_IFREG:
		return InfoFile
	case unix.S_IFCHR:
		if s.opts&Whiteout != 0 && st.Rdev == 0 {
			// Character device 0:0 is the whiteout marker convention.
			return InfoWhiteout
		}

		return InfoDefault
	default:
		return InfoDefault
	}
}
