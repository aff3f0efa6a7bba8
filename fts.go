// Package fts traverses filesystem hierarchies in the manner of the BSD
// fts(3) facility: a depth-first walk over one or more root paths, with
// directories visited in pre-order and again in post-order, a configurable
// symbolic link and device-crossing policy, optional ordering of siblings
// through a comparator, per-entry errors instead of aborted walks, and
// per-entry instructions to skip, follow or re-visit nodes mid-traversal.
//
// A [Stream] is a pull interface: [Open] it over the roots, [Stream.Read]
// entries until a nil entry signals the clean end, [Stream.Close] it. For
// the common case of a full walk with a callback, [Walk] wraps that loop.
//
// A Stream is not safe for concurrent use.
package fts

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/desertwitch/fts/assert"
)

// Stream is a traversal in progress over one or more filesystem
// hierarchies.
type Stream struct {
	opts Options
	cmp  CompareFunc
	sys  sysOps

	cur      *Entry   // node the last Read returned
	roots    []*Entry // root entries, in traversal order
	child    []*Entry // prefetched children of cur
	nameOnly bool     // the prefetch was names-only
	dev      uint64   // device of the root currently descended

	stopped bool
	closed  bool
}

// Open starts a traversal over the given root paths. Exactly one of
// [Logical] and [Physical] must be set in opts. A nil cmp traverses
// directories in on-disk order and the roots in the order given.
//
// Roots are classified immediately: a root that cannot be statted still
// opens fine and is later returned as an [InfoNoStat] entry carrying the
// error, leaving the other roots unaffected.
func Open(roots []string, opts Options, cmp CompareFunc) (*Stream, error) {
	return openStream(realSys{}, roots, opts, cmp)
}

func openStream(sys sysOps, roots []string, opts Options, cmp CompareFunc) (*Stream, error) {
	if opts&^optionMask != 0 {
		return nil, fmt.Errorf("(fts-open) %w", ErrInvalidOptions)
	}

	if logical, physical := opts&Logical != 0, opts&Physical != 0; logical == physical {
		return nil, fmt.Errorf("(fts-open) %w", ErrInvalidOptions)
	}

	if len(roots) == 0 {
		return nil, fmt.Errorf("(fts-open) %w", ErrNoRoots)
	}

	s := &Stream{
		opts: opts,
		cmp:  cmp,
		sys:  sys,
	}

	parent := &Entry{
		Level: RootParentLevel,
		Info:  InfoInit,
	}

	list := make([]*Entry, 0, len(roots))

	for _, root := range roots {
		if root == "" {
			return nil, fmt.Errorf("(fts-open) %w", ErrEmptyRoot)
		}

		e := &Entry{
			Name:   filepath.Base(root),
			Path:   root,
			Level:  RootLevel,
			Parent: parent,
		}
		e.Info = s.statEntry(e, opts&ComFollow != 0)

		// Root paths named "." or ".." are real directories.
		if e.Info == InfoDot {
			e.Info = InfoPreDir
		}

		list = append(list, e)
	}

	if cmp != nil && len(list) > 1 {
		sort.SliceStable(list, func(i, j int) bool {
			return cmp(list[i], list[j]) < 0
		})
	}

	for i := 0; i+1 < len(list); i++ {
		list[i].link = list[i+1]
	}

	s.roots = list

	// A synthetic current node just before the first root, so the first
	// Read advances like any other sibling step.
	s.cur = &Entry{
		Info:   InfoInit,
		Parent: parent,
		link:   list[0],
	}

	return s, nil
}

// Read returns the next entry of the traversal, or (nil, nil) once all
// hierarchies are finished. Errors concerning single nodes ride on the
// entries as [Entry.Err], a non-nil error return means the stream itself is
// unusable.
//
// Directories come back twice, [InfoPreDir] before their contents and
// [InfoPostDir] after, through the same [*Entry]. A pending [Instruction]
// on the current entry is consumed first.
func (s *Stream) Read() (*Entry, error) {
	if s.closed {
		return nil, fmt.Errorf("(fts-read) %w", ErrClosed)
	}

	if s.stopped {
		return nil, fmt.Errorf("(fts-read) %w", ErrStopped)
	}

	p := s.cur
	if p == nil {
		return nil, nil
	}

	instr := p.instr
	p.instr = NoInstruction

	// Any kind of node may be re-visited, re-stat and re-turn it.
	if instr == Again {
		p.Info = s.statEntry(p, false)

		return p, nil
	}

	// Follow a symbolic link: the entry now describes the target, a
	// directory target is descended on the next Read.
	if instr == Follow && (p.Info == InfoSymlink || p.Info == InfoBrokenSymlink) {
		p.Info = s.statEntry(p, true)

		return p, nil
	}

	// Directory in pre-order.
	if p.Info == InfoPreDir {
		// Skipped or crossing a device boundary: post-order it now.
		if instr == Skip || (s.opts&XDev != 0 && p.Dev != s.dev) {
			s.child = nil
			s.nameOnly = false
			p.Info = InfoPostDir

			return p, nil
		}

		// A names-only prefetch cannot seed a descent, drop it.
		if s.nameOnly {
			s.child = nil
			s.nameOnly = false
		}

		children := s.child
		s.child = nil

		if children == nil {
			var err error
			if children, err = s.buildChildren(p, false); err != nil {
				p.Info = InfoNoReadDir
				p.Err = err

				return p, nil
			}
		}

		if len(children) == 0 {
			p.Info = InfoPostDir

			return p, nil
		}

		return s.advance(p, children[0])
	}

	// Move to the next node on this level, up to the parent when the
	// level is exhausted.
	return s.advance(p.Parent, p.link)
}

// advance makes cand the current entry and returns it, unless instructions
// discard it in favor of a following sibling. With the sibling chain
// exhausted, parent is due its post-order visit.
func (s *Stream) advance(parent, cand *Entry) (*Entry, error) {
	for p := cand; p != nil; p = p.link {
		switch p.instr {
		case Skip:
			p.instr = NoInstruction

			continue
		case Follow:
			if p.Info == InfoSymlink || p.Info == InfoBrokenSymlink {
				p.Info = s.statEntry(p, true)
			}
			p.instr = NoInstruction
		}

		if p.Level == RootLevel {
			// Each root anchors the reference device for [XDev].
			s.dev = p.Dev
		}

		s.cur = p

		return p, nil
	}

	return s.ascend(parent)
}

// ascend turns the parent of an exhausted level into its post-order visit,
// or ends the stream when the synthetic root parent is reached. A recorded
// partial read error makes the visit [InfoErr] instead of [InfoPostDir].
func (s *Stream) ascend(p *Entry) (*Entry, error) {
	assert.That(p != nil, "entry chain detached from its root parent")
	if p == nil {
		s.stopped = true

		return nil, fmt.Errorf("(fts-read) %w", ErrStopped)
	}

	if p.Level == RootParentLevel {
		s.cur = nil

		return nil, nil
	}

	if p.Err != nil {
		p.Info = InfoErr
	} else {
		p.Info = InfoPostDir
	}

	s.cur = p

	return p, nil
}

// Children returns the entries of the directory the last [Stream.Read]
// returned in pre-order, without advancing the traversal; the next Read
// descends through this same list. Called before the first Read it returns
// the root entries. On any other current entry it returns (nil, nil).
//
// With namesOnly the entries carry names and paths but are not statted,
// and a later descent re-reads the directory.
func (s *Stream) Children(namesOnly bool) ([]*Entry, error) {
	if s.closed {
		return nil, fmt.Errorf("(fts-children) %w", ErrClosed)
	}

	if s.stopped {
		return nil, fmt.Errorf("(fts-children) %w", ErrStopped)
	}

	p := s.cur
	if p == nil {
		return nil, nil
	}

	// Before the first Read: the logical hierarchy of the root paths.
	if p.Info == InfoInit {
		return s.roots, nil
	}

	if p.Info != InfoPreDir {
		return nil, nil
	}

	children, err := s.buildChildren(p, namesOnly)
	if err != nil {
		s.child = nil
		s.nameOnly = false

		return nil, fmt.Errorf("(fts-children) %w", err)
	}

	s.child = children
	s.nameOnly = namesOnly

	return children, nil
}

// Set records an instruction for an entry previously returned by
// [Stream.Read] or [Stream.Children], taking effect on a following Read.
func (s *Stream) Set(e *Entry, instr Instruction) error {
	if s.closed {
		return fmt.Errorf("(fts-set) %w", ErrClosed)
	}

	if e == nil {
		return fmt.Errorf("(fts-set) %w", ErrNilEntry)
	}

	switch instr {
	case NoInstruction, Again, Follow, Skip:
	default:
		return fmt.Errorf("(fts-set) %w", ErrBadInstruction)
	}

	e.instr = instr

	return nil
}

// Close ends the traversal and releases the stream. Any further operation,
// including a second Close, returns [ErrClosed].
func (s *Stream) Close() error {
	if s.closed {
		return fmt.Errorf("(fts-close) %w", ErrClosed)
	}

	s.closed = true
	s.cur = nil
	s.roots = nil
	s.child = nil

	return nil
}
