package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/desertwitch/fts"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals
var (
	walkJSON     bool
	walkLong     bool
	walkMaxDepth int
	walkType     string

	walkCmd = &cobra.Command{
		Use:   "walk [path ...]",
		Short: "list the entries of filesystem hierarchies",
		RunE:  runWalk,
	}
)

//nolint:gochecknoinits
func init() {
	walkCmd.Flags().BoolVar(&walkJSON, "json", false, "print entries as JSON, one object per line")
	walkCmd.Flags().BoolVarP(&walkLong, "long", "l", false, "print kind and size along with each path")
	walkCmd.Flags().IntVar(&walkMaxDepth, "maxdepth", -1, "descend at most this many levels below the roots")
	walkCmd.Flags().StringVarP(&walkType, "type", "t", "", "only list entries of this kind (f, d, l)")

	rootCmd.AddCommand(walkCmd)
}

// walkEntry is the wire form of one listed entry.
type walkEntry struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Level int    `json:"level"`
	Size  int64  `json:"size"`
	Ino   uint64 `json:"ino,omitempty"`
	Dev   uint64 `json:"dev,omitempty"`
	NLink uint64 `json:"nlink,omitempty"`
	Error string `json:"error,omitempty"`
}

func runWalk(cmd *cobra.Command, args []string) error {
	switch walkType {
	case "", "f", "d", "l":
	default:
		return fmt.Errorf("(cmd-walk) %w: %q", ErrBadTypeFilter, walkType)
	}

	roots, err := resolveRoots(args)
	if err != nil {
		return err
	}

	opts, err := profile.WalkOptions()
	if err != nil {
		return err
	}

	cmpFn, err := profile.CompareFunc()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)

	var failed int

	err = fts.Walk(cmd.Context(), roots, opts, cmpFn, func(e *fts.Entry) error {
		switch e.Info {
		case fts.InfoPostDir:
			return nil

		case fts.InfoNoStat:
			failed++
			slog.Warn("Cannot stat entry.", "path", e.Path, "err", e.Err)

			return nil

		case fts.InfoNoReadDir, fts.InfoErr:
			failed++
			slog.Warn("Cannot fully read directory.", "path", e.Path, "err", e.Err)

			return nil

		case fts.InfoCycle:
			slog.Warn("Not entering directory causing a cycle.", "path", e.Path, "ancestor", e.Cycle.Path)

			return nil
		}

		if matchesType(e) {
			if err := printEntry(enc, out, e); err != nil {
				return err
			}
		}

		if e.Info == fts.InfoPreDir && walkMaxDepth >= 0 && e.Level >= walkMaxDepth {
			return fs.SkipDir
		}

		return nil
	})
	if err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("(cmd-walk) %w: %d entries", ErrWalkFailures, failed)
	}

	return nil
}

// matchesType reports whether an entry passes the kind filter.
func matchesType(e *fts.Entry) bool {
	switch walkType {
	case "f":
		return e.Info == fts.InfoFile
	case "d":
		return e.Info == fts.InfoPreDir
	case "l":
		return e.Info == fts.InfoSymlink || e.Info == fts.InfoBrokenSymlink
	default:
		return true
	}
}

// printEntry writes one entry in the requested listing format.
func printEntry(enc *json.Encoder, out io.Writer, e *fts.Entry) error {
	if walkJSON {
		we := walkEntry{
			Path:  e.Path,
			Name:  e.Name,
			Kind:  e.Info.String(),
			Level: e.Level,
			Size:  e.Size,
			Ino:   e.Ino,
			Dev:   e.Dev,
			NLink: e.NLink,
		}

		if e.Err != nil {
			we.Error = e.Err.Error()
		}

		if err := enc.Encode(we); err != nil {
			return fmt.Errorf("(cmd-walk) %w", err)
		}

		return nil
	}

	if walkLong {
		fmt.Fprintf(out, "%-14s %12d  %s\n", e.Info, e.Size, e.Path)

		return nil
	}

	fmt.Fprintln(out, e.Path)

	return nil
}
