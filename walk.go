package fts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// WalkFunc is called by [Walk] for every entry of a traversal, including
// entries that only carry an error. Returning [fs.SkipDir] on a pre-order
// directory skips its contents, on any other entry it skips the remainder
// of the containing directory. Returning [fs.SkipAll] ends the walk
// cleanly. Any other error aborts the walk and is returned by [Walk].
type WalkFunc func(e *Entry) error

// Walk traverses the given roots like [Open] followed by a [Stream.Read]
// loop, calling fn for every entry. The context is checked between
// entries, a cancellation ends the walk with the context error.
func Walk(ctx context.Context, roots []string, opts Options, cmp CompareFunc, fn WalkFunc) error {
	s, err := Open(roots, opts, cmp)
	if err != nil {
		return err
	}
	defer s.Close()

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("(fts-walk) %w", err)
		}

		e, err := s.Read()
		if err != nil {
			return fmt.Errorf("(fts-walk) %w", err)
		}

		if e == nil {
			return nil
		}

		err = fn(e)

		switch {
		case err == nil:

		case errors.Is(err, fs.SkipAll):
			return nil

		case errors.Is(err, fs.SkipDir):
			if e.Info == InfoPreDir {
				_ = s.Set(e, Skip)

				continue
			}

			// Pass over whatever remains of the containing directory.
			for t := e.link; t != nil; t = t.link {
				t.instr = Skip
			}

		default:
			return err
		}
	}
}
