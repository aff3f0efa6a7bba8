package fts

import (
	"io/fs"
	"os"
	"sort"
)

// buildChildren reads and classifies the children of directory p in on-disk
// order, sorted when a comparator is set. With namesOnly no entry is
// statted. A fully failed directory read returns the error and leaves p
// untouched; a partial read records the error on p for its post-order visit
// and delivers the entries that were read.
func (s *Stream) buildChildren(p *Entry, namesOnly bool) ([]*Entry, error) {
	dirents, rdErr := s.sys.ReadDir(p.Path)
	if rdErr != nil && len(dirents) == 0 {
		return nil, rdErr
	}

	children := make([]*Entry, 0, len(dirents))

	newChild := func(name string) *Entry {
		return &Entry{
			Name:   name,
			Path:   joinPath(p.Path, name),
			Level:  p.Level + 1,
			Parent: p,
		}
	}

	if s.opts&SeeDot != 0 {
		for _, dot := range []string{".", ".."} {
			e := newChild(dot)
			if namesOnly {
				e.Info = InfoNoStatOK
			} else {
				e.Info = s.statEntry(e, false)
			}
			children = append(children, e)
		}
	}

	for _, d := range dirents {
		e := newChild(d.Name())
		switch {
		case namesOnly:
			e.Info = InfoNoStatOK
		case !s.statNeeded(d):
			e.Info = InfoNoStatOK
		default:
			e.Info = s.statEntry(e, false)
		}
		children = append(children, e)
	}

	if s.cmp != nil && len(children) > 1 {
		sort.SliceStable(children, func(i, j int) bool {
			return s.cmp(children[i], children[j]) < 0
		})
	}

	for i := 0; i+1 < len(children); i++ {
		children[i].link = children[i+1]
	}

	if rdErr != nil {
		p.Err = rdErr
	}

	return children, nil
}

// statNeeded reports whether a child needs its own stat call, or whether
// the type from the directory read suffices under [NoStat].
func (s *Stream) statNeeded(d os.DirEntry) bool {
	if s.opts&NoStat == 0 || s.opts&Physical == 0 {
		return true
	}

	if d.IsDir() {
		return true
	}

	// Whiteout detection needs the device numbers.
	return s.opts&Whiteout != 0 && d.Type()&fs.ModeCharDevice != 0
}
