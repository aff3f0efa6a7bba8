package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/desertwitch/fts"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// blockSize is the unit the kernel reports allocated blocks in.
const blockSize = 512

//nolint:gochecknoglobals
var (
	duAll       bool
	duSummarize bool
	duApparent  bool
	duHuman     bool

	duCmd = &cobra.Command{
		Use:   "du [path ...]",
		Short: "summarize the disk usage of filesystem hierarchies",
		RunE:  runDu,
	}
)

//nolint:gochecknoinits
func init() {
	duCmd.Flags().BoolVarP(&duAll, "all", "a", false, "print an entry for every file, not only directories")
	duCmd.Flags().BoolVarP(&duSummarize, "summarize", "s", false, "print only one entry per root path")
	duCmd.Flags().BoolVar(&duApparent, "apparent-size", false, "sum apparent sizes instead of allocated blocks")
	duCmd.Flags().BoolVar(&duHuman, "human-readable", false, "print sizes in human readable form")

	duCmd.MarkFlagsMutuallyExclusive("all", "summarize")

	rootCmd.AddCommand(duCmd)
}

// hardlinkKey identifies a file across all of its links.
type hardlinkKey struct {
	dev uint64
	ino uint64
}

// runDu walks the hierarchies and accumulates subtree sizes bottom-up, each
// post-order directory visit folding its total into the parent through
// [fts.Entry.Number].
func runDu(cmd *cobra.Command, args []string) error {
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

	s, err := fts.Open(roots, opts, cmpFn)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	// Files with multiple links count towards the total only once.
	seen := make(map[hardlinkKey]struct{})

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("(cmd-du) %w", err)
		}

		e, err := s.Read()
		if err != nil {
			return fmt.Errorf("(cmd-du) %w", err)
		}

		if e == nil {
			return nil
		}

		switch e.Info {
		case fts.InfoPreDir:

		case fts.InfoPostDir, fts.InfoErr:
			if e.Err != nil {
				slog.Warn("Directory was only partially read.", "path", e.Path, "err", e.Err)
			}

			total := e.Number + entrySize(e)
			if e.Parent != nil {
				e.Parent.Number += total
			}

			if !duSummarize || e.Level == fts.RootLevel {
				printUsage(out, total, e.Path)
			}

		case fts.InfoNoReadDir:
			slog.Warn("Cannot read directory.", "path", e.Path, "err", e.Err)

			if e.Parent != nil {
				e.Parent.Number += entrySize(e)
			}

		case fts.InfoNoStat:
			slog.Warn("Cannot stat entry.", "path", e.Path, "err", e.Err)

		case fts.InfoCycle:
			slog.Warn("Not entering directory causing a cycle.", "path", e.Path)

		case fts.InfoDot:

		default:
			if e.NLink > 1 {
				key := hardlinkKey{dev: e.Dev, ino: e.Ino}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
			}

			size := entrySize(e)
			if e.Parent != nil {
				e.Parent.Number += size
			}

			if duAll || e.Level == fts.RootLevel {
				printUsage(out, size, e.Path)
			}
		}
	}
}

// entrySize is the charged size of one entry, allocated blocks by default.
func entrySize(e *fts.Entry) int64 {
	if duApparent || e.Stat == nil {
		return e.Size
	}

	return e.Stat.Blocks * blockSize
}

// printUsage writes one usage line in the requested format.
func printUsage(out io.Writer, size int64, path string) {
	if duHuman {
		fmt.Fprintf(out, "%s\t%s\n", humanize.Bytes(uint64(size)), path) //nolint:gosec

		return
	}

	fmt.Fprintf(out, "%d\t%s\n", size, path)
}
